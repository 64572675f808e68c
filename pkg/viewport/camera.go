// Package viewport maps graph space to screen space and animates camera
// moves (zoom, pan, zoom-to-fit).
package viewport

import (
	"math"
	"time"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// Zoom limits.
const (
	MinZoom = 0.1
	MaxZoom = 40.0
)

// Bounds is an axis-aligned box in graph space.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Empty reports whether no point has been added.
func (b Bounds) Empty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// EmptyBounds returns bounds ready for Extend.
func EmptyBounds() Bounds {
	return Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

// Extend grows the bounds to include p padded by r. Non-finite points are
// ignored.
func (b Bounds) Extend(p model.Point, r float64) Bounds {
	if !p.IsFinite() {
		return b
	}
	b.MinX = math.Min(b.MinX, p.X-r)
	b.MinY = math.Min(b.MinY, p.Y-r)
	b.MaxX = math.Max(b.MaxX, p.X+r)
	b.MaxY = math.Max(b.MaxY, p.Y+r)
	return b
}

// Center returns the midpoint.
func (b Bounds) Center() model.Point {
	return model.Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Camera is the view onto graph space: the graph point at the screen center
// and the zoom factor. Width and Height are the screen size.
type Camera struct {
	Zoom    float64
	Center  model.Point
	Width   float64
	Height  float64
	anim    *animation
	clockFn func() time.Time
}

type animation struct {
	fromZoom, toZoom     float64
	fromCenter, toCenter model.Point
	start                time.Time
	duration             time.Duration
}

// NewCamera returns a camera at zoom 1 centered on the origin.
func NewCamera(width, height float64) *Camera {
	return &Camera{Zoom: 1, Width: width, Height: height, clockFn: time.Now}
}

// SetClock replaces the time source used by animations.
func (c *Camera) SetClock(fn func() time.Time) {
	c.clockFn = fn
}

func (c *Camera) now() time.Time {
	if c.clockFn == nil {
		return time.Now()
	}
	return c.clockFn()
}

// Resize updates the screen size, keeping the center.
func (c *Camera) Resize(width, height float64) {
	c.Width, c.Height = width, height
}

// Transform returns scale, tx, ty such that screen = world*scale + t.
func (c *Camera) Transform() (scale, tx, ty float64) {
	scale = c.Zoom
	tx = c.Width/2 - c.Center.X*c.Zoom
	ty = c.Height/2 - c.Center.Y*c.Zoom
	return scale, tx, ty
}

// ToScreen maps a graph point to screen coordinates.
func (c *Camera) ToScreen(p model.Point) (x, y float64) {
	s, tx, ty := c.Transform()
	return p.X*s + tx, p.Y*s + ty
}

// ToWorld maps screen coordinates to a graph point.
func (c *Camera) ToWorld(x, y float64) model.Point {
	s, tx, ty := c.Transform()
	return model.Point{X: (x - tx) / s, Y: (y - ty) / s}
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) || z <= 0 {
		return MinZoom
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// SetZoom sets the zoom immediately, cancelling any animation.
func (c *Camera) SetZoom(z float64) {
	c.anim = nil
	c.Zoom = clampZoom(z)
}

// ZoomBy multiplies the zoom around the screen center.
func (c *Camera) ZoomBy(factor float64) {
	c.SetZoom(c.Zoom * factor)
}

// ZoomAt multiplies the zoom keeping the graph point under screen x,y fixed.
func (c *Camera) ZoomAt(x, y, factor float64) {
	before := c.ToWorld(x, y)
	c.SetZoom(c.Zoom * factor)
	after := c.ToWorld(x, y)
	c.Center.X += before.X - after.X
	c.Center.Y += before.Y - after.Y
}

// Pan moves the view by a screen-space delta.
func (c *Camera) Pan(dx, dy float64) {
	c.anim = nil
	c.Center.X -= dx / c.Zoom
	c.Center.Y -= dy / c.Zoom
}

// CenterAt moves the view center to a graph point.
func (c *Camera) CenterAt(p model.Point) {
	if !p.IsFinite() {
		return
	}
	c.anim = nil
	c.Center = p
}

// FitZoom returns the zoom and center that fit b into the screen with the
// given screen-space padding.
func (c *Camera) FitZoom(b Bounds, padding float64) (float64, model.Point) {
	if b.Empty() {
		return c.Zoom, c.Center
	}
	w := math.Max(b.MaxX-b.MinX, 1)
	h := math.Max(b.MaxY-b.MinY, 1)
	availW := math.Max(c.Width-2*padding, 1)
	availH := math.Max(c.Height-2*padding, 1)
	return clampZoom(math.Min(availW/w, availH/h)), b.Center()
}

// ZoomTo animates to the zoom level over d. A zero duration jumps.
func (c *Camera) ZoomTo(level float64, d time.Duration) {
	c.animateTo(clampZoom(level), c.Center, d)
}

// ZoomToFit animates to fit b over d.
func (c *Camera) ZoomToFit(b Bounds, padding float64, d time.Duration) {
	z, center := c.FitZoom(b, padding)
	c.animateTo(z, center, d)
}

func (c *Camera) animateTo(z float64, center model.Point, d time.Duration) {
	if d <= 0 {
		c.anim = nil
		c.Zoom = z
		c.Center = center
		return
	}
	c.anim = &animation{
		fromZoom:   c.Zoom,
		toZoom:     z,
		fromCenter: c.Center,
		toCenter:   center,
		start:      c.now(),
		duration:   d,
	}
}

// Animating reports whether a transition is in progress.
func (c *Camera) Animating() bool {
	return c.anim != nil
}

// Step advances any running animation to the current time. It returns true
// while the animation is still running.
func (c *Camera) Step() bool {
	a := c.anim
	if a == nil {
		return false
	}
	t := float64(c.now().Sub(a.start)) / float64(a.duration)
	if t >= 1 {
		c.Zoom = a.toZoom
		c.Center = a.toCenter
		c.anim = nil
		return false
	}
	if t < 0 {
		t = 0
	}
	// ease-out cubic
	e := 1 - math.Pow(1-t, 3)
	// Interpolate zoom geometrically so zooming feels uniform.
	c.Zoom = a.fromZoom * math.Pow(a.toZoom/a.fromZoom, e)
	c.Center = model.Point{
		X: a.fromCenter.X + (a.toCenter.X-a.fromCenter.X)*e,
		Y: a.fromCenter.Y + (a.toCenter.Y-a.fromCenter.Y)*e,
	}
	return true
}
