// Package config handles loading and saving casegraph configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/casegraph/config.yaml
//   - Icons:  ~/.local/share/casegraph/icons/ (default icons_dir)
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/casegraph/pkg/lod"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/simulation"
	"github.com/vanderheijden86/casegraph/pkg/zoomband"
)

const appName = "casegraph"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// TypeDisplay is the presentation of one entity type.
type TypeDisplay struct {
	Size  float64 `yaml:"size,omitempty"`
	Color string  `yaml:"color,omitempty"`
	Icon  string  `yaml:"icon,omitempty"` // PNG/JPEG path, relative to icons_dir
}

// DisplayConfig is the display-settings provider.
type DisplayConfig struct {
	Types        map[string]TypeDisplay `yaml:"types,omitempty"`
	DefaultSize  float64                `yaml:"default_size,omitempty"`
	DefaultColor string                 `yaml:"default_color,omitempty"`
	IconsDir     string                 `yaml:"icons_dir,omitempty"`
}

// RenderConfig tunes the painter and its label caches.
type RenderConfig struct {
	GridCellSize        float64 `yaml:"grid_cell_size,omitempty"`
	ZoomResetDelta      float64 `yaml:"zoom_reset_delta,omitempty"`
	SimpleNodeThreshold int     `yaml:"simple_node_threshold,omitempty"`
	DetailZoom          float64 `yaml:"detail_zoom,omitempty"`
	StableBands         bool    `yaml:"stable_bands,omitempty"`
	BandSeed            uint64  `yaml:"band_seed,omitempty"`
	Theme               string  `yaml:"theme,omitempty"` // dark, light; empty: dark in the TUI, light in exports
}

// SimulationConfig tunes the force layout.
type SimulationConfig struct {
	Repulsion    float64       `yaml:"repulsion,omitempty"`
	Rate         float64       `yaml:"rate,omitempty"`
	Theta        float64       `yaml:"theta,omitempty"`
	Updates      int           `yaml:"updates,omitempty"`
	Scale        float64       `yaml:"scale,omitempty"`
	TickInterval time.Duration `yaml:"tick_interval,omitempty"`
}

// UIConfig holds interactive viewer settings.
type UIConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval,omitempty"`
	ZoomStep      float64       `yaml:"zoom_step,omitempty"`
	FitDuration   time.Duration `yaml:"fit_duration,omitempty"`
	MenuWidth     int           `yaml:"menu_width,omitempty"`  // cells
	MenuHeight    int           `yaml:"menu_height,omitempty"` // cells
}

// Config is the top-level configuration.
type Config struct {
	Display    DisplayConfig    `yaml:"display,omitempty"`
	Render     RenderConfig     `yaml:"render,omitempty"`
	Simulation SimulationConfig `yaml:"simulation,omitempty"`
	UI         UIConfig         `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	sim := simulation.DefaultParams()
	policy := lod.DefaultPolicy()
	return Config{
		Display: DisplayConfig{
			Types: map[string]TypeDisplay{
				string(model.TypeIndividual):   {Size: 30, Color: "#bd93f9"},
				string(model.TypeOrganization): {Size: 28, Color: "#ff79c6"},
				string(model.TypeEmail):        {Size: 20, Color: "#8be9fd"},
				string(model.TypePhone):        {Size: 20, Color: "#50fa7b"},
				string(model.TypeAddress):      {Size: 22, Color: "#ffb86c"},
				string(model.TypeSocial):       {Size: 18, Color: "#f1fa8c"},
				string(model.TypeUsername):     {Size: 16, Color: "#f1fa8c"},
				string(model.TypeDomain):       {Size: 18, Color: "#ff5555"},
				string(model.TypeIP):           {Size: 14, Color: "#ff5555"},
				string(model.TypeWebsite):      {Size: 18, Color: "#8be9fd"},
			},
			DefaultSize:  20,
			DefaultColor: "#6272a4",
			IconsDir:     filepath.Join(DataDir(), "icons"),
		},
		Render: RenderConfig{
			GridCellSize:        50,
			ZoomResetDelta:      0.5,
			SimpleNodeThreshold: policy.MaxDetailedNodes,
			DetailZoom:          policy.DetailZoom,
		},
		Simulation: SimulationConfig{
			Repulsion:    sim.Repulsion,
			Rate:         sim.Rate,
			Theta:        sim.Theta,
			Updates:      sim.Updates,
			Scale:        sim.Scale,
			TickInterval: 16 * time.Millisecond,
		},
		UI: UIConfig{
			FrameInterval: 50 * time.Millisecond,
			ZoomStep:      1.25,
			FitDuration:   400 * time.Millisecond,
			MenuWidth:     32,
			MenuHeight:    10,
		},
	}
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// DataDir returns the XDG data directory.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Fields the file leaves out
// keep their defaults; a missing file yields DefaultConfig.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	defaults := cfg.Display.Types
	cfg.Display.Types = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	cfg.Display.Types = mergeTypes(defaults, cfg.Display.Types)
	cfg.Display.IconsDir = expandHome(cfg.Display.IconsDir)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	positive := func(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

	for name, t := range c.Display.Types {
		if t.Size < 0 || math.IsNaN(t.Size) || math.IsInf(t.Size, 0) {
			return bad("display.types.%s.size must be positive, got %v", name, t.Size)
		}
		if t.Color != "" && !isHexColor(t.Color) {
			return bad("display.types.%s.color %q is not a hex color", name, t.Color)
		}
	}
	if !positive(c.Display.DefaultSize) {
		return bad("display.default_size must be positive, got %v", c.Display.DefaultSize)
	}
	if !isHexColor(c.Display.DefaultColor) {
		return bad("display.default_color %q is not a hex color", c.Display.DefaultColor)
	}
	if !positive(c.Render.GridCellSize) {
		return bad("render.grid_cell_size must be positive, got %v", c.Render.GridCellSize)
	}
	if !positive(c.Render.ZoomResetDelta) {
		return bad("render.zoom_reset_delta must be positive, got %v", c.Render.ZoomResetDelta)
	}
	if c.Render.SimpleNodeThreshold < 0 {
		return bad("render.simple_node_threshold must not be negative")
	}
	switch c.Render.Theme {
	case "", "dark", "light":
	default:
		return bad("render.theme must be dark or light, got %q", c.Render.Theme)
	}
	if c.Simulation.Updates < 0 {
		return bad("simulation.updates must not be negative")
	}
	if c.UI.ZoomStep != 0 && c.UI.ZoomStep <= 1 {
		return bad("ui.zoom_step must be greater than 1, got %v", c.UI.ZoomStep)
	}
	if c.UI.FrameInterval < 0 || c.Simulation.TickInterval < 0 || c.UI.FitDuration < 0 {
		return bad("durations must not be negative")
	}
	return nil
}

func isHexColor(s string) bool {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 3 && len(s) != 6 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// Policy returns the level-of-detail policy.
func (c Config) Policy() lod.Policy {
	p := lod.DefaultPolicy()
	if c.Render.SimpleNodeThreshold > 0 {
		p.MaxDetailedNodes = c.Render.SimpleNodeThreshold
	}
	if c.Render.DetailZoom > 0 {
		p.DetailZoom = c.Render.DetailZoom
	}
	return p
}

// Bands returns the zoom-band assigner for one load: stable per node id
// when render.stable_bands is set, freshly random otherwise.
func (c Config) Bands() *zoomband.Assigner {
	if c.Render.StableBands {
		return zoomband.NewStableAssigner(c.Render.BandSeed)
	}
	return zoomband.NewAssigner(nil)
}

// SimulationParams returns the layout parameters. seed is passed through.
func (c Config) SimulationParams(seed uint64) simulation.Params {
	p := simulation.DefaultParams()
	s := c.Simulation
	if s.Repulsion > 0 {
		p.Repulsion = s.Repulsion
	}
	if s.Rate > 0 {
		p.Rate = s.Rate
	}
	if s.Theta > 0 {
		p.Theta = s.Theta
	}
	if s.Updates > 0 {
		p.Updates = s.Updates
	}
	if s.Scale > 0 {
		p.Scale = s.Scale
	}
	p.Seed = seed
	return p
}

// mergeTypes normalizes user type names and fills fields they leave empty
// from the built-in entry of the same type.
func mergeTypes(defaults, user map[string]TypeDisplay) map[string]TypeDisplay {
	out := make(map[string]TypeDisplay, len(defaults)+len(user))
	for name, t := range defaults {
		out[string(model.DisplayType(name).Normalize())] = t
	}
	for name, t := range user {
		key := string(model.DisplayType(name).Normalize())
		base := out[key]
		if t.Size == 0 {
			t.Size = base.Size
		}
		if t.Color == "" {
			t.Color = base.Color
		}
		if t.Icon == "" {
			t.Icon = base.Icon
		}
		out[key] = t
	}
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
