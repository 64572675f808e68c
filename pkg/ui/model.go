// Package ui is the interactive terminal viewer: a bubbletea program that
// paints the graph into a half-block canvas every frame and feeds mouse
// and keyboard input to the interaction controller.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/casegraph/pkg/config"
	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/interaction"
	"github.com/vanderheijden86/casegraph/pkg/loader"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/render"
	"github.com/vanderheijden86/casegraph/pkg/render/termcanvas"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/simulation"
	"github.com/vanderheijden86/casegraph/pkg/viewport"
	"github.com/vanderheijden86/casegraph/pkg/watcher"
)

const (
	zoomDuration = 150 * time.Millisecond // keyboard zoom steps
	fitPadding   = 2.0                    // pixels around a fitted graph
	flashFor     = 3 * time.Second
)

// Options configures the viewer.
type Options struct {
	Graph   model.Graph
	Path    string // graph file that reloads read
	Config  config.Config
	Watcher *watcher.Watcher
	Icons   render.IconSource
	Seed    uint64

	// Renderer styles the output. Defaults to lipgloss.DefaultRenderer().
	Renderer *lipgloss.Renderer

	// Clipboard receives copied node ids. Defaults to clipboard.WriteAll.
	Clipboard func(string) error

	// NewSimulation builds the layout for a scene. Defaults to Eades with
	// the configured parameters.
	NewSimulation func(*scene.Scene) simulation.Simulation
}

type (
	frameMsg       time.Time
	fileChangedMsg struct{}
	graphLoadedMsg struct {
		res loader.Result
		err error
	}
	copiedMsg struct {
		n   int
		err error
	}
)

// graph is the per-load state. Model copies share it, and reloads replace
// its contents in place so the zoom-to-fit action keeps working.
type graph struct {
	scene  *scene.Scene
	sim    simulation.Simulation
	runner *simulation.Runner
	stop   context.CancelFunc
}

// Model is the bubbletea model.
type Model struct {
	cfg     config.Config
	display *config.Display
	path    string
	watcher *watcher.Watcher
	copy    func(string) error
	newSim  func(*scene.Scene) simulation.Simulation

	keys   KeyMap
	help   help.Model
	styles Styles

	g        *graph
	ctrl     *interaction.Controller
	controls *interaction.Controls
	camera   *viewport.Camera
	painter  *render.Painter
	canvas   *termcanvas.Canvas

	width, height int
	frame         string
	stats         render.FrameStats
	fitted        bool
	warnings      int

	flash    string
	flashErr bool
	flashAt  time.Time
}

// New builds the viewer for opts.Graph.
func New(opts Options) Model {
	r := opts.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	cfg := opts.Config
	m := Model{
		cfg:      cfg,
		display:  cfg.DisplaySettings(),
		path:     opts.Path,
		watcher:  opts.Watcher,
		copy:     opts.Clipboard,
		newSim:   opts.NewSimulation,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		styles:   DefaultStyles(r),
		g:        &graph{},
		controls: &interaction.Controls{},
		camera:   viewport.NewCamera(1, 1),
	}
	if m.copy == nil {
		m.copy = clipboard.WriteAll
	}
	if m.newSim == nil {
		seed := opts.Seed
		m.newSim = func(sc *scene.Scene) simulation.Simulation {
			return simulation.NewEades(sc, cfg.SimulationParams(seed))
		}
	}

	session := render.NewSession(render.SessionOptions{
		CellSize:       cfg.Render.GridCellSize,
		ZoomResetDelta: cfg.Render.ZoomResetDelta,
		Policy:         cfg.Policy(),
	})
	m.painter = render.NewPainter(session, CanvasTheme(cfg.Render.Theme), opts.Icons)
	m.ctrl = interaction.New(nil, interaction.MenuLayout{
		Width:   float64(cfg.UI.MenuWidth),
		Height:  float64(cfg.UI.MenuHeight * 2),
		Padding: 1,
	})
	m.controls.Register(interaction.CameraActions(m.camera, m.bounds, interaction.CameraOptions{
		Step:        cfg.UI.ZoomStep,
		Duration:    zoomDuration,
		FitDuration: cfg.UI.FitDuration,
		FitPadding:  fitPadding,
	}))
	m.setGraph(opts.Graph)
	m.resize(80, 24)
	return m
}

// Init starts the frame loop, the layout and the file watch.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.frameTick(), m.runLayout()}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) frameTick() tea.Cmd {
	d := m.cfg.UI.FrameInterval
	if d <= 0 {
		d = 50 * time.Millisecond
	}
	return tea.Tick(d, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// runLayout ticks the current simulation until the next reload or quit.
func (m Model) runLayout() tea.Cmd {
	g := m.g
	if g.runner == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	runner := g.runner
	g.stop = cancel
	return func() tea.Msg {
		runner.Run(ctx)
		return nil
	}
}

// WatchFileCmd waits for the next change of the watched graph file.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return fileChangedMsg{}
	}
}

func loadGraphCmd(path string) tea.Cmd {
	return func() tea.Msg {
		res, err := loader.LoadFile(path)
		return graphLoadedMsg{res: res, err: err}
	}
}

func (m Model) copyCmd(ids []string) tea.Cmd {
	copyFn := m.copy
	return func() tea.Msg {
		err := copyFn(strings.Join(ids, "\n"))
		return copiedMsg{n: len(ids), err: err}
	}
}

// setGraph swaps in a new graph. Nodes that survive keep their position so
// a reload does not scramble the layout.
func (m *Model) setGraph(g model.Graph) {
	var prev map[string]model.Point
	if m.g.sim != nil {
		prev = m.g.sim.Positions().Snapshot()
	}
	if m.g.stop != nil {
		m.g.stop()
		m.g.stop = nil
	}
	nodes := make([]model.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.Position == nil {
			if pt, ok := prev[n.ID]; ok && pt.IsFinite() {
				n.Position = &model.Point{X: pt.X, Y: pt.Y}
			}
		}
		nodes[i] = n
	}
	g.Nodes = nodes

	sc := scene.Build(g, scene.Options{Settings: m.display, Bands: m.cfg.Bands()})
	sim := m.newSim(sc)
	m.g.scene = sc
	m.g.sim = sim
	m.g.runner = simulation.NewRunner(sim, m.cfg.Simulation.TickInterval, nil)
	m.ctrl.SetScene(sc)
	m.painter.Session().Invalidate()
	debug.Log("ui: scene with %d nodes, %d edges", sc.Len(), len(sc.Edges))
}

func (m Model) bounds() viewport.Bounds {
	if m.g.sim == nil {
		return viewport.EmptyBounds()
	}
	pad := 0.0
	if !m.g.scene.Empty() {
		pad = m.g.scene.Nodes[0].Radius
	}
	return m.g.sim.Positions().Bounds(pad)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	rows := height - 1 - lipgloss.Height(m.help.View(m.keys))
	if rows < 1 {
		rows = 1
	}
	if width < 1 {
		width = 1
	}
	m.canvas = termcanvas.New(width, rows)
	m.camera.Resize(float64(width), float64(rows*2))
}

func (m Model) canvasRows() int { return m.canvas.Rows() }

// pointer converts a cell to the canvas pixel at its center.
func pointer(x, y int) (float64, float64) {
	return float64(x) + 0.5, float64(y)*2 + 1
}

func (m *Model) setFlash(msg string, isErr bool) {
	m.flash, m.flashErr, m.flashAt = msg, isErr, time.Now()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.paint(time.Now())
		return m, nil

	case frameMsg:
		m.camera.Step()
		m.paint(time.Time(msg))
		return m, m.frameTick()

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case fileChangedMsg:
		debug.Log("ui: %s changed, reloading", m.path)
		reload := loadGraphCmd(m.path)
		if m.watcher == nil {
			return m, reload
		}
		return m, tea.Batch(reload, WatchFileCmd(m.watcher))

	case graphLoadedMsg:
		if msg.err != nil {
			// Keep showing the last good graph.
			m.setFlash("reload failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.setGraph(msg.res.Graph)
		m.warnings = len(msg.res.Warnings)
		m.setFlash(fmt.Sprintf("reloaded %d nodes", m.g.scene.Len()), false)
		return m, m.runLayout()

	case copiedMsg:
		if msg.err != nil {
			m.setFlash("clipboard: "+msg.err.Error(), true)
		} else {
			m.setFlash(fmt.Sprintf("copied %d id(s)", msg.n), false)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) paint(now time.Time) {
	if !m.fitted {
		if b := m.bounds(); !b.Empty() {
			zoom, center := m.camera.FitZoom(b, fitPadding)
			m.camera.SetZoom(zoom)
			m.camera.CenterAt(center)
			m.fitted = true
		}
	}
	m.stats = m.painter.Paint(m.canvas, render.Frame{
		Scene:      m.g.scene,
		Positions:  m.g.sim.Positions(),
		Camera:     m.camera,
		Highlights: m.ctrl,
		Time:       now,
	})
	m.frame = m.canvas.RenderWith(m.styles.Renderer)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Y >= m.canvasRows() {
		return
	}
	px, py := pointer(msg.X, msg.Y)
	hit := func() (string, bool) {
		return interaction.HitTest(m.g.scene, m.g.sim.Positions().Snapshot(), m.camera, px, py)
	}
	step := m.zoomStep()

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.camera.ZoomAt(px, py, step)
	case msg.Button == tea.MouseButtonWheelDown:
		m.camera.ZoomAt(px, py, 1/step)
	case msg.Action == tea.MouseActionMotion:
		id, _ := hit()
		m.ctrl.Hover(id)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if id, ok := hit(); ok {
			m.ctrl.NodeClick(id)
		} else {
			m.ctrl.BackgroundClick()
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonRight:
		id, _ := hit()
		m.ctrl.RightClick(id, px, py, m.camera.Width, m.camera.Height)
	}
}

func (m Model) zoomStep() float64 {
	if m.cfg.UI.ZoomStep > 1 {
		return m.cfg.UI.ZoomStep
	}
	return interaction.DefaultZoomStep
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	panX, panY := m.camera.Width/5, m.camera.Height/5
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.g.stop != nil {
			m.g.stop()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.ZoomIn):
		m.controls.ZoomIn()
	case key.Matches(msg, m.keys.ZoomOut):
		m.controls.ZoomOut()
	case key.Matches(msg, m.keys.Fit):
		m.controls.ZoomToFit()
	case key.Matches(msg, m.keys.Up):
		m.camera.Pan(0, panY)
	case key.Matches(msg, m.keys.Down):
		m.camera.Pan(0, -panY)
	case key.Matches(msg, m.keys.Left):
		m.camera.Pan(panX, 0)
	case key.Matches(msg, m.keys.Right):
		m.camera.Pan(-panX, 0)
	case key.Matches(msg, m.keys.NextNode):
		m.cycleHover(1)
	case key.Matches(msg, m.keys.PrevNode):
		m.cycleHover(-1)
	case key.Matches(msg, m.keys.Toggle):
		if id := m.ctrl.Hovered(); id != "" {
			m.ctrl.NodeClick(id)
		}
	case key.Matches(msg, m.keys.Menu):
		m.openMenuForHovered()
	case key.Matches(msg, m.keys.Dismiss):
		if _, open := m.ctrl.Menu(); open {
			m.ctrl.CloseMenu()
		} else {
			m.ctrl.BackgroundClick()
		}
	case key.Matches(msg, m.keys.Copy):
		ids := m.ctrl.Selection()
		if len(ids) == 0 {
			if menu, open := m.ctrl.Menu(); open {
				ids = []string{menu.Node}
			}
		}
		if len(ids) == 0 {
			m.setFlash("nothing selected", true)
			return m, nil
		}
		return m, m.copyCmd(ids)
	case key.Matches(msg, m.keys.Reheat):
		if m.g.runner != nil {
			m.g.runner.Reheat()
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.width, m.height)
	}
	return m, nil
}

// cycleHover moves the hover through nodes in paint order and brings the
// new node into view.
func (m *Model) cycleHover(dir int) {
	sc := m.g.scene
	n := sc.Len()
	if n == 0 {
		return
	}
	i := -1
	if cur := m.ctrl.Hovered(); cur != "" {
		i = sc.Index(cur)
	}
	switch {
	case i < 0 && dir < 0:
		i = n - 1
	case i < 0:
		i = 0
	default:
		i = ((i+dir)%n + n) % n
	}
	id := sc.Nodes[i].ID
	m.ctrl.Hover(id)
	if pt, ok := m.g.sim.Positions().Get(id); ok {
		x, y := m.camera.ToScreen(pt)
		if x < 0 || y < 0 || x > m.camera.Width || y > m.camera.Height {
			m.camera.CenterAt(pt)
		}
	}
}

func (m *Model) openMenuForHovered() {
	id := m.ctrl.Hovered()
	if id == "" {
		return
	}
	pt, ok := m.g.sim.Positions().Get(id)
	if !ok {
		return
	}
	x, y := m.camera.ToScreen(pt)
	m.ctrl.RightClick(id, x, y, m.camera.Width, m.camera.Height)
}

// Selection returns the selected node ids in paint order.
func (m Model) Selection() []string { return m.ctrl.Selection() }

// Controls exposes the zoom controls for toolbars and tests.
func (m Model) Controls() *interaction.Controls { return m.controls }

// Stats returns the statistics of the last painted frame.
func (m Model) Stats() render.FrameStats { return m.stats }

func (m Model) View() string {
	if m.frame == "" {
		return "loading…"
	}
	body := m.frame
	if menu, open := m.ctrl.Menu(); open {
		body = m.overlayMenu(body, menu)
	}
	return body + "\n" + m.statusBar() + "\n" + m.help.View(m.keys)
}
