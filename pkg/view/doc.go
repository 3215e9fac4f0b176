// Package view holds the interactive state of the 2D graph view: the pan/zoom
// transform, the Idle/Panning machine and the hover state.
//
// Input handlers call [Controller.PointerDown], [Controller.PointerMove],
// [Controller.PointerUp] and [Controller.Wheel]; the frame function reads
// [Controller.State] at draw time. Nothing here draws or blocks, and a
// Controller is owned by a single goroutine (the host's UI loop).
//
// Coordinates follow screen = world*scale + translate. Scale is always
// clamped to [MinScale, MaxScale].
package view
