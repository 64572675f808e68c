package interaction

import (
	"math"

	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/viewport"
)

// MinPickRadius is the smallest hit radius in screen pixels, so tiny glyphs
// stay clickable when zoomed out.
const MinPickRadius = 3.0

// HitTest returns the node under screen point (x, y). Nodes are painted in
// scene order, so the search runs backwards to find the topmost one.
// Nodes without a finite position are never hit.
func HitTest(sc *scene.Scene, pts map[string]model.Point, cam *viewport.Camera, x, y float64) (string, bool) {
	if sc.Empty() || cam == nil || cam.Zoom <= 0 {
		return "", false
	}
	w := cam.ToWorld(x, y)
	minR := MinPickRadius / cam.Zoom
	for i := len(sc.Nodes) - 1; i >= 0; i-- {
		n := &sc.Nodes[i]
		p, ok := pts[n.ID]
		if !ok || !p.IsFinite() {
			continue
		}
		r := math.Max(n.Radius, minR)
		if math.Hypot(p.X-w.X, p.Y-w.Y) <= r {
			return n.ID, true
		}
	}
	return "", false
}
