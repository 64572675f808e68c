package render

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Theme holds the painter's colors.
type Theme struct {
	Background      color.Color
	Edge            color.Color
	EdgeHighlight   color.Color
	Particle        color.Color
	LabelBackground color.Color
	LabelText       color.Color
	Selection       color.Color
	GlyphInterior   color.Color
	Placeholder     color.Color
	// DimAmount is how far dimmed entities blend toward Background.
	DimAmount float64
}

// DefaultTheme is a dark palette.
func DefaultTheme() Theme {
	return Theme{
		Background:      MustColor("#1e1f29"),
		Edge:            MustColor("#6b7089"),
		EdgeHighlight:   MustColor("#ff79c6"),
		Particle:        MustColor("#f1fa8c"),
		LabelBackground: MustColor("#282a36"),
		LabelText:       MustColor("#f8f8f2"),
		Selection:       MustColor("#50fa7b"),
		GlyphInterior:   MustColor("#f8f8f2"),
		Placeholder:     MustColor("#8a8fa8"),
		DimAmount:       0.75,
	}
}

// LightTheme suits PNG and SVG exports meant for documents.
func LightTheme() Theme {
	return Theme{
		Background:      MustColor("#f9fafb"),
		Edge:            MustColor("#9aa0ad"),
		EdgeHighlight:   MustColor("#d6336c"),
		Particle:        MustColor("#f08c00"),
		LabelBackground: MustColor("#ffffff"),
		LabelText:       MustColor("#222222"),
		Selection:       MustColor("#2b8a3e"),
		GlyphInterior:   MustColor("#ffffff"),
		Placeholder:     MustColor("#666666"),
		DimAmount:       0.75,
	}
}

// ParseColor parses a #rgb or #rrggbb hex string.
func ParseColor(s string) (color.Color, error) {
	if len(s) == 4 && s[0] == '#' {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("parse color %q: %w", s, err)
	}
	return c.Clamped(), nil
}

// MustColor is ParseColor for literals.
func MustColor(s string) color.Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Blend mixes a toward b by t in Lab space.
func Blend(a, b color.Color, t float64) color.Color {
	ca, ok := colorful.MakeColor(a)
	if !ok {
		return a
	}
	cb, ok := colorful.MakeColor(b)
	if !ok {
		return a
	}
	return ca.BlendLab(cb, t).Clamped()
}

// Hex formats c as #rrggbb.
func Hex(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cf.Clamped().Hex()
}

func (t Theme) dim(c color.Color) color.Color {
	return Blend(c, t.Background, t.DimAmount)
}
