// Package tui hosts a render.Scene in the terminal. Frames are rasterized at
// a reduced device pixel ratio and printed as half-block cells, two pixels
// per cell, while mouse events drive the scene's view controller.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/render"
)

const (
	// FPS is the frame tick rate.
	FPS = 30
	// PixelSize is the number of CSS pixels behind one terminal pixel. The
	// layout is sized for a browser viewport, so the terminal renders a
	// larger CSS area at dpr 1/PixelSize.
	PixelSize = 4
	// WheelDelta is the deltaY sent per wheel notch.
	WheelDelta = 100
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	hoverStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// LoadFunc fetches the graph shown by the viewer.
type LoadFunc func(ctx context.Context) (*graph.Graph, error)

type tickMsg time.Time

type loadedMsg struct {
	g   *graph.Graph
	err error
}

// Model is the bubbletea model around one scene.
type Model struct {
	ctx   context.Context
	scene *render.Scene
	load  LoadFunc
	title string

	cols, rows int
	start      time.Time
	lines      []string
	loading    bool
	quitting   bool
	loadErr    error
	frameErr   error
}

// NewModel returns a viewer for scene. load may be nil when the scene
// already holds a graph.
func NewModel(ctx context.Context, scene *render.Scene, title string, load LoadFunc) Model {
	return Model{
		ctx:     ctx,
		scene:   scene,
		load:    load,
		title:   title,
		start:   time.Now(),
		loading: load != nil,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/FPS, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) loadCmd() tea.Cmd {
	load, ctx := m.load, m.ctx
	return func() tea.Msg {
		g, err := load(ctx)
		return loadedMsg{g: g, err: err}
	}
}

func (m Model) Init() tea.Cmd {
	if m.load == nil {
		return tick()
	}
	return tea.Batch(tick(), m.loadCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			_ = m.scene.Close()
			return m, tea.Quit
		case "r":
			// A zero viewport forces a refit on the next frame.
			m.scene.Controller().Resize(0, 0)
		case "+", "=":
			m.zoomCenter(-WheelDelta)
		case "-":
			m.zoomCenter(WheelDelta)
		}

	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		w, h := m.viewport()
		if w > 0 && h > 0 {
			m.scene.Resize(w, h, 1.0/PixelSize)
		}

	case tea.MouseMsg:
		m.mouse(msg)

	case loadedMsg:
		m.loading = false
		m.loadErr = msg.err
		if msg.err == nil {
			m.scene.SetGraph(msg.g)
		}

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		m.frame(time.Time(msg))
		return m, tick()
	}
	return m, nil
}

// viewport returns the CSS size behind the drawable cells. The last row is
// reserved for the status line.
func (m Model) viewport() (w, h float64) {
	if m.cols <= 0 || m.rows <= 1 {
		return 0, 0
	}
	return float64(m.cols * PixelSize), float64((m.rows - 1) * 2 * PixelSize)
}

// toCSS maps a cell coordinate to the CSS pixel at the cell's center.
func toCSS(col, row int) (x, y float64) {
	return (float64(col) + 0.5) * PixelSize, (float64(row)*2 + 1) * PixelSize
}

func (m *Model) mouse(msg tea.MouseMsg) {
	if msg.Y >= m.rows-1 {
		return
	}
	ctrl := m.scene.Controller()
	x, y := toCSS(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		ctrl.Wheel(x, y, -WheelDelta)
	case msg.Button == tea.MouseButtonWheelDown:
		ctrl.Wheel(x, y, WheelDelta)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		ctrl.PointerDown(x, y)
	case msg.Action == tea.MouseActionMotion:
		ctrl.PointerMove(m.scene.Graph(), x, y)
	case msg.Action == tea.MouseActionRelease:
		ctrl.PointerUp()
	}
}

func (m *Model) zoomCenter(deltaY float64) {
	w, h := m.viewport()
	m.scene.Controller().Wheel(w/2, h/2, deltaY)
}

func (m *Model) frame(now time.Time) {
	w, h := m.viewport()
	if w == 0 || h == 0 {
		return
	}
	c := render.NewRasterCanvas(w, h, 1.0/PixelSize)
	m.frameErr = m.scene.Frame(m.ctx, c, now.Sub(m.start).Seconds())
	if m.frameErr != nil {
		return
	}
	m.lines = HalfBlocks(c.RGBA())
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(m.status())
	return b.String()
}

func (m Model) status() string {
	ov := m.scene.Overlay()
	parts := []string{m.title}
	switch {
	case m.loadErr != nil:
		parts = append(parts, errStyle.Render(m.loadErr.Error()))
	case m.frameErr != nil:
		parts = append(parts, errStyle.Render(m.frameErr.Error()))
	case m.loading:
		parts = append(parts, "loading…")
	case ov.Hovering:
		parts = append(parts, hoverStyle.Render(hoverLabel(m.scene.Graph(), ov.HoverID)))
	}
	t := ov.Transform
	parts = append(parts, fmt.Sprintf("%.2fx (%.0f,%.0f)", t.Scale, t.TX, t.TY))
	if m.scene.HasParticles() {
		parts = append(parts, "particles")
	}
	parts = append(parts, "q quit · r refit · wheel zoom · drag pan")
	line := strings.Join(parts, "  ")
	if m.cols > 0 {
		return statusStyle.Width(m.cols).MaxWidth(m.cols).Render(line)
	}
	return statusStyle.Render(line)
}

// hoverLabel prefers the node's label, falling back to its id.
func hoverLabel(g *graph.Graph, id string) string {
	if g == nil {
		return id
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID != id {
			continue
		}
		if n.Title != "" {
			return fmt.Sprintf("%s · %s", n.Label, n.Title)
		}
		if n.Label != "" {
			return n.Label
		}
	}
	return id
}

// Run shows the viewer until the user quits or ctx ends. The scene is
// closed on return.
func Run(ctx context.Context, scene *render.Scene, title string, load LoadFunc) error {
	defer scene.Close()
	p := tea.NewProgram(NewModel(ctx, scene, title, load),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}
