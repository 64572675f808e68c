// Package render paints a scene onto a drawing surface once per frame.
//
// The painter talks to backends through Canvas, a small capability
// interface modelled on a 2D drawing context. Coordinates passed to a
// Canvas are graph (world) units; the backend applies the transform set by
// SetTransform. Line widths and font sizes are world units too, so callers
// that want constant screen widths divide by the zoom themselves.
package render

import (
	"image"
	"image/color"
)

// Canvas is the drawing surface a backend provides.
type Canvas interface {
	// Size returns the surface size in screen units.
	Size() (width, height float64)
	// SetTransform sets screen = world*scale + (tx, ty).
	SetTransform(scale, tx, ty float64)
	// Clear fills the whole surface, ignoring the transform.
	Clear(c color.Color)

	SetFillColor(c color.Color)
	SetStrokeColor(c color.Color)
	SetLineWidth(w float64)
	SetFontSize(size float64)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadraticTo(cx, cy, x, y float64)
	// Arc adds a circular arc from angle a0 to a1 (radians).
	Arc(x, y, r, a0, a1 float64)
	RoundedRect(x, y, w, h, r float64)
	ClosePath()
	Fill()
	Stroke()

	// MeasureText returns the advance width of s at the current font size.
	MeasureText(s string) float64
	// FillText draws s centered on x,y.
	FillText(s string, x, y float64)
	// DrawImage draws img scaled into the box at x,y.
	DrawImage(img image.Image, x, y, w, h float64)
}
