// Package scene is the node-data transform stage. It turns a loaded graph
// plus display settings into the immutable, render-ready Scene: resolved
// labels, sizes, colors and zoom bands, nodes in descending size order, and
// edges with their parallel-group curvature.
//
// A Scene is built once per load. Nothing in it changes per frame;
// positions live with the simulation and highlight state with the
// interaction controller.
package scene

import (
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/zoomband"
)

// GlyphInset is subtracted from a type's display size to get the glyph
// radius.
const GlyphInset = 4.0

// MinGlyphRadius keeps tiny configured sizes visible.
const MinGlyphRadius = 1.0

// CurvatureStep is the curvature distance between neighbouring parallel
// edges.
const CurvatureStep = 0.2

// DisplaySettings resolves per-type presentation.
type DisplaySettings interface {
	Size(t model.DisplayType) float64
	Color(t model.DisplayType) string
}

// Node is a render-ready entity.
type Node struct {
	ID    string
	Type  model.DisplayType
	Label string
	// Size is the resolved display size and the label priority weight.
	Size   float64
	Radius float64
	Color  string
	Band   zoomband.Band
	// Seed is the optional initial position from the data provider.
	Seed *model.Point
}

// Edge is a render-ready relationship.
type Edge struct {
	ID        string
	Source    string
	Target    string
	Label     string
	GroupKey  string
	Curvature float64
}

// Scene is the transform output. Nodes are sorted by descending Size with
// ties broken by ID; the label placer relies on that order.
type Scene struct {
	Nodes []Node
	Edges []Edge

	nodeIndex   map[string]int
	adjacency   map[string][]int
	fingerprint uint64
}

// Options controls Build.
type Options struct {
	Settings DisplaySettings
	// Bands assigns zoom bands. Nil uses a fresh randomly seeded assigner.
	Bands *zoomband.Assigner
}

// Build runs the transform. The graph should already be sanitized; edges
// with unknown endpoints are skipped.
func Build(g model.Graph, opts Options) *Scene {
	bands := opts.Bands
	if bands == nil {
		bands = zoomband.NewAssigner(nil)
	}

	nodes := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		t := n.Type.Normalize()
		size := DefaultSize
		color := DefaultColor
		if opts.Settings != nil {
			if s := opts.Settings.Size(t); s > 0 && !math.IsInf(s, 0) {
				size = s
			}
			if c := opts.Settings.Color(t); c != "" {
				color = c
			}
		}
		nodes = append(nodes, Node{
			ID:     n.ID,
			Type:   t,
			Label:  n.DisplayLabel(),
			Size:   size,
			Radius: GlyphRadius(size),
			Color:  color,
			Seed:   n.Position,
		})
	}
	sortNodes(nodes)

	// Bands are drawn in paint order so a seeded non-stable assigner is
	// reproducible for the same input.
	for i := range nodes {
		nodes[i].Band = bands.Assign(nodes[i].ID)
	}

	s := &Scene{
		Nodes:     nodes,
		nodeIndex: make(map[string]int, len(nodes)),
		adjacency: make(map[string][]int),
	}
	for i, n := range nodes {
		s.nodeIndex[n.ID] = i
	}

	var kept []model.Edge
	for _, e := range g.Edges {
		if _, ok := s.nodeIndex[e.Source]; !ok {
			continue
		}
		if _, ok := s.nodeIndex[e.Target]; !ok {
			continue
		}
		kept = append(kept, e)
	}
	s.Edges = buildEdges(kept)
	for i, e := range s.Edges {
		s.adjacency[e.Source] = append(s.adjacency[e.Source], i)
		if e.Target != e.Source {
			s.adjacency[e.Target] = append(s.adjacency[e.Target], i)
		}
	}
	s.fingerprint = Fingerprint(nodes)
	return s
}

// Fallbacks for types the display settings do not cover.
const (
	DefaultSize  = 20.0
	DefaultColor = "#6272a4"
)

// GlyphRadius converts a display size into the drawn radius.
func GlyphRadius(size float64) float64 {
	return math.Max(MinGlyphRadius, size-GlyphInset)
}

func sortNodes(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Size != nodes[j].Size {
			return nodes[i].Size > nodes[j].Size
		}
		return nodes[i].ID < nodes[j].ID
	})
}

// buildEdges assigns ids and curvature. Within a parallel group of k edges
// the i-th (in input order) gets (i - (k-1)/2) * CurvatureStep.
func buildEdges(in []model.Edge) []Edge {
	groups := make(map[string][]int)
	for i, e := range in {
		k := e.GroupKey()
		groups[k] = append(groups[k], i)
	}
	out := make([]Edge, len(in))
	for i, e := range in {
		out[i] = Edge{
			ID:       e.ID(),
			Source:   e.Source,
			Target:   e.Target,
			Label:    e.Label,
			GroupKey: e.GroupKey(),
		}
	}
	for _, members := range groups {
		k := len(members)
		if k == 1 {
			continue
		}
		for pos, idx := range members {
			out[idx].Curvature = Curvature(pos, k)
			out[idx].ID = out[idx].ID + "#" + strconv.Itoa(pos)
		}
	}
	return out
}

// Curvature returns the curvature of the i-th edge of a parallel group of
// size k. Groups of one are straight.
func Curvature(i, k int) float64 {
	if k <= 1 {
		return 0
	}
	return (float64(i) - float64(k-1)/2) * CurvatureStep
}

// Fingerprint hashes node membership (ids and count). Two scenes with the
// same fingerprint have the same node set.
func Fingerprint(nodes []Node) uint64 {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	sort.Strings(ids)
	d := xxhash.New()
	_, _ = d.WriteString(strconv.Itoa(len(ids)))
	for _, id := range ids {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(id)
	}
	return d.Sum64()
}

// Fingerprint returns the membership hash computed at build time.
// A nil scene hashes like an empty one.
func (s *Scene) Fingerprint() uint64 {
	if s == nil {
		return Fingerprint(nil)
	}
	return s.fingerprint
}

// Len returns the node count.
func (s *Scene) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Nodes)
}

// Empty reports whether there is nothing to draw.
func (s *Scene) Empty() bool {
	return s == nil || len(s.Nodes) == 0
}

// Node returns the node with the given id.
func (s *Scene) Node(id string) (*Node, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return &s.Nodes[i], true
}

// Index returns the paint-order index of id, or -1.
func (s *Scene) Index(id string) int {
	if s == nil {
		return -1
	}
	if i, ok := s.nodeIndex[id]; ok {
		return i
	}
	return -1
}

// EdgesOf returns the edges touching the node, in edge order.
func (s *Scene) EdgesOf(id string) []*Edge {
	if s == nil {
		return nil
	}
	idx := s.adjacency[id]
	out := make([]*Edge, len(idx))
	for i, j := range idx {
		out[i] = &s.Edges[j]
	}
	return out
}

// IDs returns node ids in paint order.
func (s *Scene) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
	}
	return ids
}
