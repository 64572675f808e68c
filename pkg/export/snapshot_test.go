package export

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/casegraph/pkg/config"
	"github.com/vanderheijden86/casegraph/pkg/loader"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/render"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/testutil"
)

func placedGraph() model.Graph {
	g := testutil.QuickInvestigation(4, 2)
	ring := testutil.Ring(testutil.IDs(g), 120)
	for i := range g.Nodes {
		pt := ring[g.Nodes[i].ID]
		g.Nodes[i].Position = &pt
	}
	return g
}

func baseOptions(g model.Graph) SnapshotOptions {
	return SnapshotOptions{
		Graph:  g,
		Config: config.DefaultConfig(),
		Width:  320,
		Height: 240,
		Seed:   7,
		Icons:  render.NewIconCache(),
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path, explicit string
		want           Format
	}{
		{"out/graph.png", "", FormatPNG},
		{"out/graph.SVG", "", FormatSVG},
		{"case.json", "", FormatJSON},
		{"case.sqlite3", "", FormatSQLite},
		{"case.db", "", FormatSQLite},
		{"noext", "svg", FormatSVG},
		{"graph.png", ".svg", FormatSVG},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.path, tt.explicit)
		if err != nil || got != tt.want {
			t.Errorf("FormatFor(%q, %q) = %q, %v", tt.path, tt.explicit, got, err)
		}
	}
	if _, err := FormatFor("graph.gif", ""); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("gif: %v", err)
	}
}

func TestSaveSnapshot_PNG(t *testing.T) {
	opts := baseOptions(placedGraph())
	opts.Path = filepath.Join(t.TempDir(), "nested", "case.png")

	metrics.SetEnabled(true)
	before := metrics.SnapshotExport.Count()
	if err := SaveSnapshot(context.Background(), opts); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if metrics.SnapshotExport.Count() != before+1 {
		t.Error("export not timed")
	}

	f, err := os.Open(opts.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("size = %v", b)
	}
	// Light background in the corner.
	r, g, b, _ := img.At(0, 0).RGBA()
	if r < 0xc000 || g < 0xc000 || b < 0xc000 {
		t.Errorf("corner pixel not light: %x %x %x", r, g, b)
	}
}

func TestSaveSnapshot_SVG(t *testing.T) {
	g := placedGraph()
	opts := baseOptions(g)
	opts.Path = filepath.Join(t.TempDir(), "case.svg")
	if err := SaveSnapshot(context.Background(), opts); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	if !strings.HasPrefix(strings.TrimSpace(doc), "<?xml") || !strings.HasSuffix(strings.TrimSpace(doc), "</svg>") {
		t.Errorf("not a complete svg document:\n%.200s", doc)
	}
	if n := strings.Count(doc, "<path"); n < len(g.Nodes)+len(g.Edges) {
		t.Errorf("paths = %d, want >= %d", n, len(g.Nodes)+len(g.Edges))
	}
}

func TestSaveSnapshot_UnpositionedGraphRunsLayout(t *testing.T) {
	g := testutil.QuickInvestigation(3, 2)
	opts := baseOptions(g)
	opts.Path = filepath.Join(t.TempDir(), "case.json")
	opts.MaxTicks = 50
	if err := SaveSnapshot(context.Background(), opts); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	res, err := loader.LoadFile(opts.Path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, n := range res.Graph.Nodes {
		if n.Position == nil || !n.Position.IsFinite() {
			t.Errorf("node %s has no settled position", n.ID)
		}
	}
}

func TestSaveSnapshots_AllFormatsConcurrently(t *testing.T) {
	g := placedGraph()
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "a.svg"),
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "a.sqlite"),
	}
	if err := SaveSnapshots(context.Background(), baseOptions(g), paths); err != nil {
		t.Fatalf("SaveSnapshots: %v", err)
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("%s: %v", p, err)
		}
	}

	// Given positions are kept exactly.
	res, err := loader.LoadFile(paths[3])
	if err != nil {
		t.Fatalf("reload sqlite: %v", err)
	}
	want := testutil.Ring(testutil.IDs(g), 120)
	for _, n := range res.Graph.Nodes {
		if n.Position == nil || *n.Position != want[n.ID] {
			t.Errorf("%s moved: %+v want %+v", n.ID, n.Position, want[n.ID])
		}
	}
	if len(res.Graph.Edges) != len(g.Edges) {
		t.Errorf("edges = %d, want %d", len(res.Graph.Edges), len(g.Edges))
	}
}

func TestSaveSnapshots_OverwritesSQLite(t *testing.T) {
	g := placedGraph()
	path := filepath.Join(t.TempDir(), "case.db")
	for i := 0; i < 2; i++ {
		if err := SaveSnapshots(context.Background(), baseOptions(g), []string{path}); err != nil {
			t.Fatal(err)
		}
	}
	res, err := loader.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Graph.Edges) != len(g.Edges) {
		t.Errorf("edges duplicated: %d", len(res.Graph.Edges))
	}
}

func TestSaveSnapshot_Errors(t *testing.T) {
	opts := baseOptions(placedGraph())
	if err := SaveSnapshot(context.Background(), opts); err == nil {
		t.Error("missing path accepted")
	}
	opts.Path = filepath.Join(t.TempDir(), "case.bmp")
	if err := SaveSnapshot(context.Background(), opts); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("bmp: %v", err)
	}
	if _, err := os.Stat(opts.Path); !os.IsNotExist(err) {
		t.Error("file written for unsupported format")
	}
}

func TestSaveSnapshot_EmptyGraph(t *testing.T) {
	opts := baseOptions(model.Graph{})
	opts.Path = filepath.Join(t.TempDir(), "empty.png")
	if err := SaveSnapshot(context.Background(), opts); err != nil {
		t.Fatalf("empty graph: %v", err)
	}
}

func TestLayout_KeepsCompletePositions(t *testing.T) {
	g := placedGraph()
	sc := scene.Build(g, scene.Options{})
	pos := Layout(sc, config.DefaultConfig(), 1, 10)
	want := testutil.Ring(testutil.IDs(g), 120)
	for id, pt := range pos.Snapshot() {
		if pt != want[id] {
			t.Errorf("%s = %+v, want %+v", id, pt, want[id])
		}
	}
}

func TestTheme(t *testing.T) {
	if Theme("") != render.LightTheme() || Theme("light") != render.LightTheme() {
		t.Error("exports default to the light theme")
	}
	if Theme("dark") != render.DefaultTheme() {
		t.Error("dark theme not honored")
	}
}
