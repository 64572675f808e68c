// Package export writes static snapshots of a laid-out graph: PNG and SVG
// images painted by the same painter the viewer uses, and JSON or SQLite
// graph files carrying the settled positions so a later load starts from
// the same layout.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/casegraph/internal/datasource"
	"github.com/vanderheijden86/casegraph/pkg/config"
	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/loader"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/render"
	"github.com/vanderheijden86/casegraph/pkg/render/rastercanvas"
	"github.com/vanderheijden86/casegraph/pkg/render/svgcanvas"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/simulation"
	"github.com/vanderheijden86/casegraph/pkg/viewport"
)

// Format is an output kind.
type Format string

const (
	FormatPNG    Format = "png"
	FormatSVG    Format = "svg"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

const (
	DefaultWidth    = 1600
	DefaultHeight   = 1200
	DefaultPadding  = 40.0
	DefaultMaxTicks = 1000
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// FormatFor resolves the output format from an explicit name or, when that
// is empty, from the path's extension.
func FormatFor(path, explicit string) (Format, error) {
	name := strings.ToLower(strings.TrimPrefix(explicit, "."))
	if name == "" {
		name = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	switch name {
	case "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	case "json", "graph":
		return FormatJSON, nil
	case "db", "sqlite", "sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("%w: %q (want png, svg, json or sqlite)", ErrUnsupportedFormat, name)
}

// SnapshotOptions controls a snapshot export.
type SnapshotOptions struct {
	Path   string
	Format string // inferred from Path when empty
	Graph  model.Graph
	Config config.Config

	Width, Height int     // image size in pixels
	Padding       float64 // screen-space margin around the fitted graph
	MaxTicks      int     // bound on layout iterations
	Seed          uint64  // layout seed; 0 is nondeterministic

	// Icons is used as is when set; otherwise icons are preloaded from the
	// display settings.
	Icons      *render.IconCache
	Highlights render.Highlights
}

func (o SnapshotOptions) withDefaults() SnapshotOptions {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.MaxTicks <= 0 {
		o.MaxTicks = DefaultMaxTicks
	}
	return o
}

// SaveSnapshot lays out opts.Graph and writes one output.
func SaveSnapshot(ctx context.Context, opts SnapshotOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	return SaveSnapshots(ctx, opts, []string{opts.Path})
}

// SaveSnapshots lays out opts.Graph once and writes every path
// concurrently, inferring each format from its extension. Each image gets
// its own render session.
func SaveSnapshots(ctx context.Context, opts SnapshotOptions, paths []string) error {
	opts = opts.withDefaults()
	formats := make([]Format, len(paths))
	for i, p := range paths {
		explicit := ""
		if len(paths) == 1 {
			explicit = opts.Format
		}
		f, err := FormatFor(p, explicit)
		if err != nil {
			return err
		}
		formats[i] = f
	}

	sc := scene.Build(opts.Graph, scene.Options{
		Settings: opts.Config.DisplaySettings(),
		Bands:    opts.Config.Bands(),
	})
	pos := Layout(sc, opts.Config, opts.Seed, opts.MaxTicks)

	if opts.Icons == nil {
		opts.Icons = render.NewIconCache()
		// Missing icons leave glyph interiors empty; the export goes on.
		if err := opts.Icons.Preload(ctx, opts.Config.DisplaySettings().IconPaths()); err != nil {
			debug.Log("export: icons: %v", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := write(formats[i], path, sc, pos, opts); err != nil {
				return fmt.Errorf("export %s: %w", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Layout settles positions for sc. A graph whose nodes all carry finite
// positions keeps them; otherwise the force simulation runs to rest from
// whatever seeds there are.
func Layout(sc *scene.Scene, cfg config.Config, seed uint64, maxTicks int) *simulation.Positions {
	fixed := make(map[string]model.Point, sc.Len())
	for _, n := range sc.Nodes {
		if n.Seed == nil || !n.Seed.IsFinite() {
			fixed = nil
			break
		}
		fixed[n.ID] = *n.Seed
	}
	if fixed != nil {
		return simulation.NewFixed(fixed).Positions()
	}
	sim := simulation.NewEades(sc, cfg.SimulationParams(seed))
	ticks := simulation.RunToRest(sim, maxTicks)
	debug.Log("export: layout settled after %d ticks", ticks)
	return sim.Positions()
}

func write(f Format, path string, sc *scene.Scene, pos *simulation.Positions, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotExport)()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	switch f {
	case FormatPNG:
		c := rastercanvas.New(opts.Width, opts.Height)
		paint(c, sc, pos, opts)
		return createWith(path, func(file *os.File) error { return c.EncodePNG(file) })
	case FormatSVG:
		return createWith(path, func(file *os.File) error {
			c := svgcanvas.New(file, opts.Width, opts.Height)
			paint(c, sc, pos, opts)
			c.End()
			return nil
		})
	case FormatJSON:
		g := withPositions(opts.Graph, pos)
		return createWith(path, func(file *os.File) error { return loader.WriteJSON(file, g) })
	case FormatSQLite:
		// WriteGraph appends edges; start from an empty database.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return datasource.WriteGraph(path, withPositions(opts.Graph, pos))
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

func createWith(path string, fn func(*os.File) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func paint(c render.Canvas, sc *scene.Scene, pos *simulation.Positions, opts SnapshotOptions) render.FrameStats {
	cam := viewport.NewCamera(float64(opts.Width), float64(opts.Height))
	pad := 0.0
	if !sc.Empty() {
		pad = sc.Nodes[0].Radius // largest node
	}
	zoom, center := cam.FitZoom(pos.Bounds(pad), opts.Padding)
	cam.SetZoom(zoom)
	cam.CenterAt(center)

	s := render.NewSession(render.SessionOptions{
		CellSize:       opts.Config.Render.GridCellSize,
		ZoomResetDelta: opts.Config.Render.ZoomResetDelta,
		Policy:         opts.Config.Policy(),
	})
	p := render.NewPainter(s, Theme(opts.Config.Render.Theme), opts.Icons)
	st := p.Paint(c, render.Frame{
		Scene:      sc,
		Positions:  pos,
		Camera:     cam,
		Highlights: opts.Highlights,
	})
	debug.Log("export: painted %d nodes, %d edges, %d labels (%s) in %v",
		st.Nodes, st.Edges, st.Labels, st.Mode, st.Duration)
	return st
}

// Theme picks the export palette. Snapshots default to the light theme
// since they mostly end up in documents.
func Theme(name string) render.Theme {
	if name == "dark" {
		return render.DefaultTheme()
	}
	return render.LightTheme()
}

func withPositions(g model.Graph, pos *simulation.Positions) model.Graph {
	pts := pos.Snapshot()
	out := model.Graph{Nodes: make([]model.Node, len(g.Nodes)), Edges: g.Edges}
	for i, n := range g.Nodes {
		if pt, ok := pts[n.ID]; ok && pt.IsFinite() {
			n.Position = &model.Point{X: pt.X, Y: pt.Y}
		}
		out.Nodes[i] = n
	}
	return out
}
