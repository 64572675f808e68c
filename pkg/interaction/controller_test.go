package interaction

import (
	"slices"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/render"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/viewport"
)

type sizes map[model.DisplayType]float64

func (s sizes) Size(t model.DisplayType) float64 { return s[t] }
func (sizes) Color(model.DisplayType) string     { return "" }

// triangle: a-b, b-c, plus an isolated d. a is the largest node.
func triangle() *scene.Scene {
	g := model.Graph{
		Nodes: []model.Node{
			{ID: "a", Type: "big"},
			{ID: "b"},
			{ID: "c"},
			{ID: "d"},
		},
		Edges: []model.Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
	}
	return scene.Build(g, scene.Options{Settings: sizes{"big": 40}})
}

func TestHover_EnterAndExit(t *testing.T) {
	sc := triangle()
	c := New(sc, MenuLayout{})

	for _, id := range []string{"a", "b", "c", "d"} {
		if c.NodeMark(id) != render.Neutral {
			t.Fatalf("%s marked before hover", id)
		}
	}

	c.Hover("b")
	wantNodes := map[string]render.Mark{"a": render.Dimmed, "b": render.Highlighted, "c": render.Dimmed, "d": render.Dimmed}
	for id, want := range wantNodes {
		if got := c.NodeMark(id); got != want {
			t.Errorf("NodeMark(%s) = %v, want %v", id, got, want)
		}
	}
	for _, e := range sc.Edges {
		if got := c.EdgeMark(e.ID); got != render.Highlighted {
			t.Errorf("edge %s touching b = %v", e.ID, got)
		}
	}

	c.Hover("a")
	bc := model.Edge{Source: "b", Target: "c"}.ID()
	ab := model.Edge{Source: "a", Target: "b"}.ID()
	if c.EdgeMark(bc) != render.Dimmed || c.EdgeMark(ab) != render.Highlighted {
		t.Errorf("moving hover to a did not re-mark edges")
	}

	c.Hover("")
	for _, id := range []string{"a", "b", "c", "d"} {
		if c.NodeMark(id) != render.Neutral {
			t.Errorf("%s still marked after exit", id)
		}
	}
	for _, e := range sc.Edges {
		if c.EdgeMark(e.ID) != render.Neutral {
			t.Errorf("edge %s still marked after exit", e.ID)
		}
	}
}

func TestHover_ArrowInNodeIDs(t *testing.T) {
	g := model.Graph{
		Nodes: []model.Node{{ID: "a"}, {ID: "c"}, {ID: "a->b"}, {ID: "b->c"}},
		Edges: []model.Edge{
			{Source: "a->b", Target: "c"},
			{Source: "a", Target: "b->c"},
		},
	}
	sc := scene.Build(g, scene.Options{})
	c := New(sc, MenuLayout{})
	c.Hover("c")

	touching, other := sc.Edges[0], sc.Edges[1]
	if got := c.EdgeMark(touching.ID); got != render.Highlighted {
		t.Errorf("edge into c = %v, want highlighted", got)
	}
	if got := c.EdgeMark(other.ID); got != render.Dimmed {
		t.Errorf("edge not touching c = %v, want dimmed", got)
	}
}
func TestHover_UnknownNodeIsExit(t *testing.T) {
	c := New(triangle(), MenuLayout{})
	c.Hover("a")
	c.Hover("ghost")
	if c.Hovered() != "" {
		t.Errorf("Hovered() = %q", c.Hovered())
	}
}

func TestHover_MarksAreExclusive(t *testing.T) {
	sc := triangle()
	rapid.Check(t, func(t *rapid.T) {
		c := New(sc, MenuLayout{})
		ids := append(sc.IDs(), "")
		for _, id := range rapid.SliceOf(rapid.SampledFrom(ids)).Draw(t, "hovers") {
			c.Hover(id)
		}
		hovered := c.Hovered()
		highlighted := 0
		for _, id := range sc.IDs() {
			m := c.NodeMark(id)
			if hovered == "" && m != render.Neutral {
				t.Fatalf("%s is %v without hover", id, m)
			}
			if m == render.Highlighted {
				highlighted++
			}
		}
		if hovered != "" && highlighted != 1 {
			t.Fatalf("%d highlighted nodes while hovering %s", highlighted, hovered)
		}
	})
}

func TestNodeClick_AdditiveToggle(t *testing.T) {
	c := New(triangle(), MenuLayout{})
	if !c.NodeClick("c") || !c.NodeClick("a") {
		t.Fatal("first clicks should select")
	}
	if got := c.Selection(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Selection() = %v, want paint order [a c]", got)
	}
	if c.NodeClick("c") {
		t.Error("second click should deselect")
	}
	if !c.Selected("a") || c.Selected("c") {
		t.Errorf("Selection() = %v", c.Selection())
	}
	if c.NodeClick("ghost") {
		t.Error("unknown node selected")
	}
}

func TestBackgroundClick_ClearsSelectionAndMenu(t *testing.T) {
	c := New(triangle(), MenuLayout{})
	c.NodeClick("a")
	c.NodeClick("b")
	if _, ok := c.RightClick("a", 10, 10, 800, 600); !ok {
		t.Fatal("menu did not open")
	}
	c.BackgroundClick()
	if len(c.Selection()) != 0 {
		t.Errorf("selection survived: %v", c.Selection())
	}
	if _, open := c.Menu(); open {
		t.Error("menu still open")
	}
}

func TestSetScene_KeepsSurvivingSelection(t *testing.T) {
	c := New(triangle(), MenuLayout{})
	c.NodeClick("a")
	c.NodeClick("d")
	c.Hover("a")
	c.RightClick("d", 1, 1, 100, 100)

	smaller := scene.Build(model.Graph{Nodes: []model.Node{{ID: "a"}, {ID: "b"}}}, scene.Options{})
	before := c.Version()
	c.SetScene(smaller)
	if c.Version() == before {
		t.Error("version did not change")
	}
	if got := c.Selection(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Selection() = %v", got)
	}
	if c.Hovered() != "" {
		t.Error("hover survived a reload")
	}
	if _, open := c.Menu(); open {
		t.Error("menu for a removed node stayed open")
	}
}

func TestController_ConcurrentAccess(t *testing.T) {
	sc := triangle()
	c := New(sc, MenuLayout{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Hover(sc.Nodes[j%len(sc.Nodes)].ID)
				c.NodeClick("b")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				for _, e := range sc.Edges {
					_ = c.EdgeMark(e.ID)
				}
				_ = c.NodeMark("a")
				_ = c.Selection()
			}
		}()
	}
	wg.Wait()
}

func TestHitTest(t *testing.T) {
	sc := triangle()
	pts := map[string]model.Point{
		"a": {X: 0, Y: 0},
		"b": {X: 100, Y: 0},
		"c": {X: 105, Y: 0},
	}
	cam := viewport.NewCamera(400, 400)

	tests := []struct {
		name   string
		x, y   float64
		want   string
		wantOK bool
	}{
		{"center of a", 200, 200, "a", true},
		{"edge of a", 235, 200, "a", true},
		{"background", 200, 350, "", false},
		// b and c overlap; c comes later in paint order and sits on top.
		{"overlap picks topmost", 303, 200, "c", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HitTest(sc, pts, cam, tt.x, tt.y)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("HitTest(%v,%v) = %q,%v want %q,%v", tt.x, tt.y, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	// d has no position and can never be hit.
	if id, ok := HitTest(sc, pts, cam, 200+1000, 200); ok {
		t.Errorf("hit %s far away", id)
	}
	if _, ok := HitTest(nil, pts, cam, 200, 200); ok {
		t.Error("hit on a nil scene")
	}
}

func TestHitTest_MinPickRadius(t *testing.T) {
	sc := triangle()
	pts := map[string]model.Point{"d": {X: 0, Y: 0}}
	cam := viewport.NewCamera(400, 400)
	cam.SetZoom(0.1)
	// d's radius is 16 world = 1.6 px at zoom 0.1; the pick radius is 3 px.
	if id, ok := HitTest(sc, pts, cam, 202.5, 200); !ok || id != "d" {
		t.Errorf("HitTest = %q,%v", id, ok)
	}
}

func TestControls(t *testing.T) {
	var ctl Controls
	if ctl.ZoomIn() || ctl.ZoomOut() || ctl.ZoomToFit() {
		t.Fatal("unregistered controls reported success")
	}

	cam := viewport.NewCamera(200, 100)
	bounds := viewport.EmptyBounds().
		Extend(model.Point{X: -50, Y: -50}, 0).
		Extend(model.Point{X: 350, Y: 150}, 0)
	ctl.Register(CameraActions(cam, func() viewport.Bounds { return bounds }, CameraOptions{Step: 2}))

	ctl.ZoomIn()
	if cam.Zoom != 2 {
		t.Errorf("after ZoomIn zoom = %v", cam.Zoom)
	}
	ctl.ZoomOut()
	ctl.ZoomOut()
	if cam.Zoom != 0.5 {
		t.Errorf("after ZoomOut x2 zoom = %v", cam.Zoom)
	}
	if !ctl.ZoomToFit() {
		t.Fatal("ZoomToFit not registered")
	}
	if cam.Zoom != 0.5 || cam.Center != (model.Point{X: 150, Y: 50}) {
		t.Errorf("after fit zoom=%v center=%v", cam.Zoom, cam.Center)
	}

	ctl.Unregister()
	if ctl.ZoomIn() {
		t.Error("ZoomIn after Unregister")
	}
}

func TestCameraActions_Animated(t *testing.T) {
	now := time.Unix(0, 0)
	cam := viewport.NewCamera(100, 100)
	cam.SetClock(func() time.Time { return now })
	a := CameraActions(cam, nil, CameraOptions{Duration: time.Second})
	a.ZoomIn()
	if !cam.Animating() || cam.Zoom != 1 {
		t.Fatalf("zoom should animate, got zoom=%v animating=%v", cam.Zoom, cam.Animating())
	}
	now = now.Add(2 * time.Second)
	cam.Step()
	if cam.Zoom != DefaultZoomStep {
		t.Errorf("zoom = %v, want %v", cam.Zoom, DefaultZoomStep)
	}
	a.ZoomToFit() // nil bounds is a no-op
}

func TestController_NilScene(t *testing.T) {
	c := New(triangle(), MenuLayout{})
	c.NodeClick("a")
	c.SetScene(nil)
	c.Hover("a")
	c.NodeClick("b")
	if sel := c.Selection(); len(sel) != 0 {
		t.Errorf("selection on an empty scene = %v", sel)
	}
	if c.NodeMark("a") != render.Neutral {
		t.Error("hover on an empty scene marked a node")
	}
}
