// Package particles implements the ambient particle field drawn beneath the
// graph view.
//
// A field is a fixed cloud of [Particle] values generated once by [Generate]:
// eight Fibonacci-sphere cluster centers, a five-way population mixture
// (small, medium and full-body clusters, an outer shell and dust) and a seed
// scalar per particle. Nothing about a particle changes after generation.
//
// Animation is a pure function of (particle, [Uniforms]). [VertexStage] and
// [Fragment] express that function in Go, and [VertexShader] and
// [FragmentShader] carry the same pipeline as GLSL for hosts with a GPU.
// [Describe] bundles the shaders, attribute layout and default uniforms into a
// [Pipeline] descriptor that can be served as JSON.
//
// [Field] is the CPU host: it owns the generated cloud, tracks the backing
// resolution through [Field.Resize] and rasterizes frames with additive (or
// alpha) blending in parallel row bands.
package particles
