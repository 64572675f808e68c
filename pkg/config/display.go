package config

import (
	"path/filepath"
	"sort"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// Display resolves per-type size, color and icon. It satisfies
// scene.DisplaySettings.
type Display struct {
	types        map[model.DisplayType]TypeDisplay
	defaultSize  float64
	defaultColor string
	iconsDir     string
}

// DisplaySettings builds the lookup from the display section. Type names
// are normalized the same way node types are.
func (c Config) DisplaySettings() *Display {
	d := &Display{
		types:        make(map[model.DisplayType]TypeDisplay, len(c.Display.Types)),
		defaultSize:  c.Display.DefaultSize,
		defaultColor: c.Display.DefaultColor,
		iconsDir:     c.Display.IconsDir,
	}
	for name, t := range c.Display.Types {
		d.types[model.DisplayType(name).Normalize()] = t
	}
	return d
}

// Size returns the display size of t, falling back to the default size.
func (d *Display) Size(t model.DisplayType) float64 {
	if td, ok := d.types[t.Normalize()]; ok && td.Size > 0 {
		return td.Size
	}
	return d.defaultSize
}

// Color returns the hex color of t, falling back to the default color.
func (d *Display) Color(t model.DisplayType) string {
	if td, ok := d.types[t.Normalize()]; ok && td.Color != "" {
		return td.Color
	}
	return d.defaultColor
}

// IconPaths maps each type with an icon to its file. Relative paths are
// resolved against icons_dir.
func (d *Display) IconPaths() map[model.DisplayType]string {
	out := make(map[model.DisplayType]string)
	for t, td := range d.types {
		if td.Icon == "" {
			continue
		}
		p := expandHome(td.Icon)
		if !filepath.IsAbs(p) && d.iconsDir != "" {
			p = filepath.Join(d.iconsDir, p)
		}
		out[t] = p
	}
	return out
}

// Types lists the configured types in sorted order.
func (d *Display) Types() []model.DisplayType {
	out := make([]model.DisplayType, 0, len(d.types))
	for t := range d.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
