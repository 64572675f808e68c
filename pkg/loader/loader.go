// Package loader reads investigation graphs from disk. JSON files use the
// force-graph shape; SQLite files are read through internal/datasource.
// Every loaded graph is sanitized: bad entries are dropped with a warning
// rather than failing the load.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/casegraph/internal/datasource"
	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither JSON nor
	// SQLite.
	ErrUnsupportedFormat = errors.New("unsupported graph format")
	// ErrEmptyGraph is returned when a file holds no document at all. A
	// document with zero nodes is valid and renders the empty state.
	ErrEmptyGraph = errors.New("graph file is empty")
)

// ParseOptions configures parsing.
type ParseOptions struct {
	// WarningHandler is called once per dropped entry. If nil, warnings are
	// only collected in Result.Warnings.
	WarningHandler func(string)
}

// Result is a loaded graph with its provenance.
type Result struct {
	Graph    model.Graph
	Source   datasource.DataSource
	Warnings []string
}

// LoadFile loads a graph file, choosing the decoder by extension.
func LoadFile(path string) (Result, error) {
	return LoadFileWithOptions(path, ParseOptions{})
}

// LoadFileWithOptions is LoadFile with custom options.
func LoadFileWithOptions(path string, opts ParseOptions) (Result, error) {
	defer metrics.Timer(metrics.GraphLoad)()
	start := time.Now()

	src, err := datasource.Detect(path)
	if err != nil {
		return Result{}, err
	}

	var g model.Graph
	switch src.Type {
	case datasource.SourceTypeJSON:
		f, err := os.Open(src.Path)
		if err != nil {
			return Result{}, fmt.Errorf("failed to open graph file: %w", err)
		}
		defer f.Close()
		g, err = decodeJSON(f)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", src.Path, err)
		}
	case datasource.SourceTypeSQLite:
		r, err := datasource.NewSQLiteReader(src)
		if err != nil {
			return Result{}, err
		}
		defer r.Close()
		g, err = r.LoadGraph()
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", src.Path, err)
		}
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, src.Path)
	}

	res := sanitize(g, opts)
	res.Source = src
	debug.Log("loaded %s: %d nodes, %d edges, %d warnings in %v",
		src.Path, len(res.Graph.Nodes), len(res.Graph.Edges), len(res.Warnings), time.Since(start))
	return res, nil
}

// ParseJSON decodes and sanitizes a JSON graph document.
func ParseJSON(r io.Reader) (Result, error) {
	return ParseJSONWithOptions(r, ParseOptions{})
}

// ParseJSONWithOptions is ParseJSON with custom options.
func ParseJSONWithOptions(r io.Reader, opts ParseOptions) (Result, error) {
	g, err := decodeJSON(r)
	if err != nil {
		return Result{}, err
	}
	return sanitize(g, opts), nil
}

func sanitize(g model.Graph, opts ParseOptions) Result {
	clean, warnings := g.Sanitize()
	if opts.WarningHandler != nil {
		for _, w := range warnings {
			opts.WarningHandler(w)
		}
	}
	return Result{Graph: clean, Warnings: warnings}
}

// fileGraph is the on-disk JSON shape. "links" is accepted as an alias for
// "edges".
type fileGraph struct {
	Nodes []fileNode `json:"nodes"`
	Edges []fileEdge `json:"edges"`
	Links []fileEdge `json:"links"`
}

type fileNode struct {
	ID   flexID `json:"id"`
	Data struct {
		Type    string `json:"type"`
		Label   string `json:"label"`
		Caption string `json:"caption"`
	} `json:"data"`
	// Some exports put the display fields at the top level.
	Type  string   `json:"type"`
	Label string   `json:"label"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
}

type fileEdge struct {
	Source flexID `json:"source"`
	Target flexID `json:"target"`
	Label  string `json:"label"`
}

// flexID accepts ids written as strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", b)
	}
	*f = flexID(b)
	return nil
}

func decodeJSON(r io.Reader) (model.Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Graph{}, fmt.Errorf("read graph: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return model.Graph{}, ErrEmptyGraph
	}

	var doc fileGraph
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Graph{}, fmt.Errorf("parse graph: %w", err)
	}

	g := model.Graph{
		Nodes: make([]model.Node, 0, len(doc.Nodes)),
		Edges: make([]model.Edge, 0, len(doc.Edges)+len(doc.Links)),
	}
	for _, fn := range doc.Nodes {
		n := model.Node{
			ID:      string(fn.ID),
			Type:    model.DisplayType(firstNonEmpty(fn.Data.Type, fn.Type)),
			Label:   firstNonEmpty(fn.Data.Label, fn.Label),
			Caption: fn.Data.Caption,
		}
		if fn.X != nil && fn.Y != nil {
			n.Position = &model.Point{X: *fn.X, Y: *fn.Y}
		}
		g.Nodes = append(g.Nodes, n)
	}
	for _, list := range [][]fileEdge{doc.Edges, doc.Links} {
		for _, fe := range list {
			g.Edges = append(g.Edges, model.Edge{
				Source: string(fe.Source),
				Target: string(fe.Target),
				Label:  fe.Label,
			})
		}
	}
	return g, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

type outNode struct {
	ID   string `json:"id"`
	Data struct {
		Type    string `json:"type,omitempty"`
		Label   string `json:"label,omitempty"`
		Caption string `json:"caption,omitempty"`
	} `json:"data"`
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

type outEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// WriteJSON encodes g in the shape ParseJSON reads, including positions.
func WriteJSON(w io.Writer, g model.Graph) error {
	doc := struct {
		Nodes []outNode `json:"nodes"`
		Edges []outEdge `json:"edges"`
	}{
		Nodes: make([]outNode, 0, len(g.Nodes)),
		Edges: make([]outEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		var on outNode
		on.ID = n.ID
		on.Data.Type = string(n.Type)
		on.Data.Label = n.Label
		on.Data.Caption = n.Caption
		if n.Position != nil && n.Position.IsFinite() {
			x, y := n.Position.X, n.Position.Y
			on.X, on.Y = &x, &y
		}
		doc.Nodes = append(doc.Nodes, on)
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, outEdge{Source: e.Source, Target: e.Target, Label: e.Label})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}
