package render

import (
	"image/color"
	"math"
	"time"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/labels"
	"github.com/vanderheijden86/casegraph/pkg/lod"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/spatial"
	"github.com/vanderheijden86/casegraph/pkg/viewport"
	"github.com/vanderheijden86/casegraph/pkg/zoomband"
)

// Screen-space sizes, divided by the zoom before use.
const (
	LabelPadding = 4.0
	LabelGap     = 1.0
	ArrowLength  = 6.0
	ParticleSize = 2.0
	EdgeFontSize = 10.0
	EmptyFont    = 14.0

	// LabelLineHeight is the label box height in ems.
	LabelLineHeight = 1.3
)

// Edge line widths in screen units by highlight state.
const (
	EdgeWidthNeutral     = 1.0
	EdgeWidthHighlighted = 2.0
	EdgeWidthDimmed      = 0.5
)

// EmptyText is painted when the scene has no nodes.
const EmptyText = "No entities to display"

// Mark is an entity's highlight state for one frame.
type Mark int

const (
	Neutral Mark = iota
	Highlighted
	Dimmed
)

func (m Mark) String() string {
	switch m {
	case Highlighted:
		return "highlighted"
	case Dimmed:
		return "dimmed"
	default:
		return "neutral"
	}
}

// Highlights is read by the painter, by id, once per entity per frame.
type Highlights interface {
	NodeMark(id string) Mark
	EdgeMark(id string) Mark
	Selected(id string) bool
}

type noHighlights struct{}

func (noHighlights) NodeMark(string) Mark  { return Neutral }
func (noHighlights) EdgeMark(string) Mark  { return Neutral }
func (noHighlights) Selected(string) bool { return false }

// PositionSource yields the current node positions. The painter takes one
// snapshot per frame.
type PositionSource interface {
	Snapshot() map[string]model.Point
}

// Frame is the input to one paint pass.
type Frame struct {
	Scene      *scene.Scene
	Positions  PositionSource
	Camera     *viewport.Camera
	Highlights Highlights
	// Time drives the particle animation. Zero means time.Now.
	Time time.Time
}

// FrameStats summarises one paint pass.
type FrameStats struct {
	Mode lod.Mode
	// Reset names the cause when the label caches were cleared this frame.
	Reset     string
	Nodes     int
	Edges     int
	Skipped   int
	Labels    int
	Decisions labels.Stats
	Duration  time.Duration
}

// Painter draws frames for one Session.
type Painter struct {
	session *Session
	theme   Theme
	icons   IconSource
	colors  map[string]color.Color
}

// NewPainter returns a painter. icons may be nil.
func NewPainter(s *Session, theme Theme, icons IconSource) *Painter {
	return &Painter{
		session: s,
		theme:   theme,
		icons:   icons,
		colors:  make(map[string]color.Color),
	}
}

// Session returns the painter's session.
func (p *Painter) Session() *Session {
	return p.session
}

// Paint draws one frame: background, edges, then nodes in scene order
// with their labels. Entities without a finite position are skipped, and a
// panic while drawing one entity skips only that entity.
func (p *Painter) Paint(c Canvas, f Frame) FrameStats {
	start := time.Now()
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()

	cam := f.Camera
	zoom := cam.Zoom
	var st FrameStats
	st.Reset = s.begin(f.Scene, zoom)
	st.Mode = s.policy.Mode(f.Scene.Len(), zoom)

	c.Clear(p.theme.Background)
	scale, tx, ty := cam.Transform()
	c.SetTransform(scale, tx, ty)

	if f.Scene.Empty() {
		p.placeholder(c, cam)
		st.Duration = time.Since(start)
		return st
	}

	var pts map[string]model.Point
	if f.Positions != nil {
		pts = f.Positions.Snapshot()
	}
	hl := f.Highlights
	if hl == nil {
		hl = noHighlights{}
	}
	now := f.Time
	if now.IsZero() {
		now = start
	}

	sc := f.Scene
	for i := range sc.Edges {
		e := &sc.Edges[i]
		p.guard(&st, "edge", e.ID, func() {
			if p.drawEdge(c, sc, e, pts, hl.EdgeMark(e.ID), zoom, now) {
				st.Edges++
			} else {
				st.Skipped++
				metrics.CountSkip("no_position")
			}
		})
	}

	var labelTime time.Duration
	for i := range sc.Nodes {
		n := &sc.Nodes[i]
		p.guard(&st, "node", n.ID, func() {
			pt, ok := pts[n.ID]
			if !ok || !pt.IsFinite() {
				s.placer.Forget(n.ID)
				st.Skipped++
				metrics.CountSkip("no_position")
				return
			}
			p.drawGlyph(c, n, pt, st.Mode, hl.NodeMark(n.ID), hl.Selected(n.ID), zoom)
			st.Nodes++
			t0 := time.Now()
			p.drawLabel(c, n, pt, st.Mode, hl.NodeMark(n.ID), zoom)
			labelTime += time.Since(t0)
		})
	}

	st.Decisions = s.placer.Stats()
	s.placer.ResetStats()
	st.Labels = s.placer.Len()
	metrics.LabelPlacement.Record(labelTime)
	metrics.CountLabels(st.Decisions.Accepted, st.Decisions.Carried, st.Decisions.Rejected, st.Decisions.Evicted)
	st.Duration = time.Since(start)
	metrics.ObserveFrame(st.Duration, sc.Len())
	return st
}

func (p *Painter) guard(st *FrameStats, kind, id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			st.Skipped++
			metrics.CountSkip("panic")
			debug.Log("paint %s %q: recovered: %v", kind, id, r)
		}
	}()
	fn()
}

func (p *Painter) placeholder(c Canvas, cam *viewport.Camera) {
	w, h := c.Size()
	center := cam.ToWorld(w/2, h/2)
	c.SetFontSize(EmptyFont / cam.Zoom)
	c.SetFillColor(p.theme.Placeholder)
	c.FillText(EmptyText, center.X, center.Y)
}

// color parses and caches a node color, falling back to the default.
func (p *Painter) color(hex string) color.Color {
	if c, ok := p.colors[hex]; ok {
		return c
	}
	c, err := ParseColor(hex)
	if err != nil {
		debug.Log("node color: %v", err)
		c = MustColor(scene.DefaultColor)
	}
	p.colors[hex] = c
	return c
}

func (p *Painter) mark(c color.Color, m Mark) color.Color {
	if m == Dimmed {
		return p.theme.dim(c)
	}
	return c
}

func (p *Painter) drawGlyph(c Canvas, n *scene.Node, pt model.Point, mode lod.Mode, m Mark, selected bool, zoom float64) {
	fill := p.mark(p.color(n.Color), m)
	r := n.Radius
	px := 1 / zoom

	switch mode {
	case lod.Detailed:
		c.SetFillColor(p.mark(p.theme.GlyphInterior, m))
		c.BeginPath()
		c.Arc(pt.X, pt.Y, r, 0, 2*math.Pi)
		c.Fill()
		if p.icons != nil {
			if img, ok := p.icons.Icon(n.Type); ok {
				side := r * 1.2
				c.DrawImage(img, pt.X-side/2, pt.Y-side/2, side, side)
			}
		}
		c.SetStrokeColor(fill)
		c.SetLineWidth(math.Max(r*0.15, px))
		c.BeginPath()
		c.Arc(pt.X, pt.Y, r, 0, 2*math.Pi)
		c.Stroke()
	default:
		c.SetFillColor(fill)
		c.BeginPath()
		c.Arc(pt.X, pt.Y, r, 0, 2*math.Pi)
		c.Fill()
	}

	if m == Highlighted {
		c.SetStrokeColor(p.theme.EdgeHighlight)
		c.SetLineWidth(1.5 * px)
		c.BeginPath()
		c.Arc(pt.X, pt.Y, r+px, 0, 2*math.Pi)
		c.Stroke()
	}
	if selected {
		c.SetStrokeColor(p.theme.Selection)
		c.SetLineWidth(2 * px)
		c.BeginPath()
		c.Arc(pt.X, pt.Y, r+3*px, 0, 2*math.Pi)
		c.Stroke()
	}
}

// LabelBox returns the box a label of the given text width and font size
// occupies under a glyph of radius r at pt, in graph units.
func LabelBox(pt model.Point, r, textWidth, fontSize, zoom float64) spatial.Rect {
	pad := LabelPadding / zoom
	return spatial.Rect{
		X: pt.X - textWidth/2 - pad,
		Y: pt.Y + r + LabelGap/zoom,
		W: textWidth + 2*pad,
		H: fontSize * LabelLineHeight,
	}
}

func (p *Painter) drawLabel(c Canvas, n *scene.Node, pt model.Point, mode lod.Mode, m Mark, zoom float64) {
	placer := p.session.placer
	if !zoomband.ShouldShowLabel(zoom, n.Band) {
		placer.Forget(n.ID)
		return
	}

	fs := p.session.policy.FontSize(mode, zoom, n.Radius)
	c.SetFontSize(fs)
	box := LabelBox(pt, n.Radius, c.MeasureText(n.Label), fs, zoom)
	if math.IsNaN(box.W) || math.IsInf(box.W, 0) {
		placer.Forget(n.ID)
		return
	}

	d := placer.Place(labels.Candidate{Owner: n.ID, Box: box, Size: n.Size})
	if !d.Outcome.Shown() {
		return
	}
	if p.session.policy.LabelBackground(mode, zoom) {
		c.SetFillColor(p.mark(p.theme.LabelBackground, m))
		c.BeginPath()
		c.RoundedRect(box.X, box.Y, box.W, box.H, box.H*0.25)
		c.Fill()
	}
	c.SetFillColor(p.mark(p.theme.LabelText, m))
	c.FillText(n.Label, box.X+box.W/2, box.Y+box.H/2)
}

// ControlPoint returns the quadratic control point for an edge from s to t
// with the given curvature. Zero curvature is the straight midpoint.
func ControlPoint(s, t model.Point, curvature float64) model.Point {
	mid := model.Point{X: (s.X + t.X) / 2, Y: (s.Y + t.Y) / 2}
	dx, dy := t.X-s.X, t.Y-s.Y
	return model.Point{X: mid.X + curvature*dy, Y: mid.Y - curvature*dx}
}

func quadAt(s, cp, t model.Point, u float64) model.Point {
	a, b, d := (1-u)*(1-u), 2*(1-u)*u, u*u
	return model.Point{X: a*s.X + b*cp.X + d*t.X, Y: a*s.Y + b*cp.Y + d*t.Y}
}

func (p *Painter) drawEdge(c Canvas, sc *scene.Scene, e *scene.Edge, pts map[string]model.Point, m Mark, zoom float64, now time.Time) bool {
	s, ok := pts[e.Source]
	if !ok || !s.IsFinite() {
		return false
	}
	t, ok := pts[e.Target]
	if !ok || !t.IsFinite() {
		return false
	}

	col, width := p.theme.Edge, EdgeWidthNeutral
	switch m {
	case Highlighted:
		col, width = p.theme.EdgeHighlight, EdgeWidthHighlighted
	case Dimmed:
		col, width = p.theme.dim(p.theme.Edge), EdgeWidthDimmed
	}
	px := 1 / zoom
	c.SetStrokeColor(col)
	c.SetFillColor(col)
	c.SetLineWidth(width * px)

	var targetR float64
	if n, ok := sc.Node(e.Target); ok {
		targetR = n.Radius
	}

	if e.Source == e.Target {
		lr := math.Max(targetR*0.6, 4*px) * (1 + math.Abs(e.Curvature))
		c.BeginPath()
		c.Arc(s.X, s.Y-targetR-lr*0.6, lr, 0, 2*math.Pi)
		c.Stroke()
		return true
	}

	cp := ControlPoint(s, t, e.Curvature)
	c.BeginPath()
	c.MoveTo(s.X, s.Y)
	c.QuadraticTo(cp.X, cp.Y, t.X, t.Y)
	c.Stroke()

	p.drawArrow(c, cp, t, targetR, ArrowLength*px)

	if m == Highlighted {
		c.SetFillColor(p.theme.Particle)
		phase := float64(now.UnixMilli()%2000) / 2000
		for k := 0; k < 2; k++ {
			u := math.Mod(phase+float64(k)/2, 1)
			q := quadAt(s, cp, t, u)
			c.BeginPath()
			c.Arc(q.X, q.Y, ParticleSize*px, 0, 2*math.Pi)
			c.Fill()
		}
		if e.Label != "" {
			mid := quadAt(s, cp, t, 0.5)
			c.SetFontSize(EdgeFontSize * px)
			c.SetFillColor(p.theme.LabelText)
			c.FillText(e.Label, mid.X, mid.Y)
		}
	}
	return true
}

// drawArrow fills a head pointing along cp->t whose tip touches the target
// glyph border.
func (p *Painter) drawArrow(c Canvas, cp, t model.Point, targetR, length float64) {
	dx, dy := t.X-cp.X, t.Y-cp.Y
	l := math.Hypot(dx, dy)
	if l == 0 || l <= targetR {
		return
	}
	ux, uy := dx/l, dy/l
	tip := model.Point{X: t.X - ux*targetR, Y: t.Y - uy*targetR}
	bx, by := tip.X-ux*length, tip.Y-uy*length
	half := length / 2
	c.BeginPath()
	c.MoveTo(tip.X, tip.Y)
	c.LineTo(bx-uy*half, by+ux*half)
	c.LineTo(bx+uy*half, by-ux*half)
	c.ClosePath()
	c.Fill()
}
