// Package lod decides how much visual detail a frame can afford, as a pure
// function of node count and zoom.
package lod

import "math"

// Mode is the node rendering mode.
type Mode int

const (
	// Simple draws flat filled circles.
	Simple Mode = iota
	// Detailed draws a circular border with the entity's type icon inside.
	Detailed
)

func (m Mode) String() string {
	switch m {
	case Simple:
		return "simple"
	case Detailed:
		return "detailed"
	default:
		return "unknown"
	}
}

// Policy thresholds. The zero value is not useful; start from DefaultPolicy.
type Policy struct {
	// MaxDetailedNodes is the largest node count still eligible for
	// Detailed mode.
	MaxDetailedNodes int
	// DetailZoom is the lowest zoom that renders Detailed.
	DetailZoom float64
	// GlyphFontZoom is the zoom above which Detailed labels scale with
	// the glyph instead of the screen.
	GlyphFontZoom float64
}

// DefaultPolicy returns the standard thresholds: Simple above 1000 nodes or
// below zoom 4; glyph-relative fonts above zoom 3.
func DefaultPolicy() Policy {
	return Policy{
		MaxDetailedNodes: 1000,
		DetailZoom:       4,
		GlyphFontZoom:    3,
	}
}

// DecideRenderMode applies the default policy.
func DecideRenderMode(nodeCount int, zoom float64) Mode {
	return DefaultPolicy().Mode(nodeCount, zoom)
}

// Mode returns Simple when the graph is too large or the view too far out
// for icons to be perceptible.
func (p Policy) Mode(nodeCount int, zoom float64) Mode {
	if nodeCount > p.MaxDetailedNodes || zoom < p.DetailZoom || math.IsNaN(zoom) {
		return Simple
	}
	return Detailed
}

// FontSize returns the label font size in canvas units for a node with the
// given glyph radius.
func (p Policy) FontSize(mode Mode, zoom, glyphRadius float64) float64 {
	if mode == Detailed && zoom > p.GlyphFontZoom {
		return math.Max(2, glyphRadius*0.4)
	}
	return screenFont(zoom)
}

// LabelBackground reports whether accepted labels get a background pill.
// Detailed frames at or below GlyphFontZoom draw text only.
func (p Policy) LabelBackground(mode Mode, zoom float64) bool {
	if mode == Simple {
		return true
	}
	return zoom > p.GlyphFontZoom
}

// FontSize applies the default policy.
func FontSize(mode Mode, zoom, glyphRadius float64) float64 {
	return DefaultPolicy().FontSize(mode, zoom, glyphRadius)
}

func screenFont(zoom float64) float64 {
	if zoom <= 0 || math.IsNaN(zoom) {
		return 8
	}
	return math.Max(8, 14/zoom)
}
