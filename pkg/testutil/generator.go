// Package testutil provides fixture generators for investigation graphs
// and node layouts. All generators produce deterministic output for a given
// seed.
package testutil

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// GraphFixture is an abstract topology: node names plus index pairs.
type GraphFixture struct {
	Description string   `json:"description"`
	Nodes       []string `json:"nodes"`
	Edges       [][2]int `json:"edges"` // [source_idx, target_idx]
}

// GeneratorConfig controls how fixtures become model graphs.
type GeneratorConfig struct {
	Seed     int64               // Random seed (0 = 42)
	TypeMix  []model.DisplayType // Types assigned round-robin at random (nil = individual)
	Labels   bool                // Give nodes human-readable labels
	Captions bool                // Give unlabeled nodes a caption
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:    42,
		TypeMix: model.KnownTypes,
		Labels:  true,
	}
}

// Generator creates graphs and layouts.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if len(cfg.TypeMix) == 0 {
		cfg.TypeMix = []model.DisplayType{model.TypeIndividual}
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Chain links n0 -> n1 -> ... -> n{size-1}.
func (g *Generator) Chain(size int) GraphFixture {
	f := GraphFixture{Description: fmt.Sprintf("chain of %d", size)}
	for i := 0; i < size; i++ {
		f.Nodes = append(f.Nodes, fmt.Sprintf("n%d", i))
		if i > 0 {
			f.Edges = append(f.Edges, [2]int{i - 1, i})
		}
	}
	return f
}

// Star links a hub to every spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	f := GraphFixture{Description: fmt.Sprintf("star with %d spokes", spokes), Nodes: []string{"hub"}}
	for i := 1; i <= spokes; i++ {
		f.Nodes = append(f.Nodes, fmt.Sprintf("spoke%d", i))
		f.Edges = append(f.Edges, [2]int{0, i})
	}
	return f
}

// Parallel creates k edges between the same ordered pair a -> b.
func (g *Generator) Parallel(k int) GraphFixture {
	f := GraphFixture{Description: fmt.Sprintf("%d parallel edges", k), Nodes: []string{"a", "b"}}
	for i := 0; i < k; i++ {
		f.Edges = append(f.Edges, [2]int{0, 1})
	}
	return f
}

// Complete links every ordered pair i < j.
func (g *Generator) Complete(size int) GraphFixture {
	f := GraphFixture{Description: fmt.Sprintf("complete graph of %d", size)}
	for i := 0; i < size; i++ {
		f.Nodes = append(f.Nodes, fmt.Sprintf("k%d", i))
		for j := 0; j < i; j++ {
			f.Edges = append(f.Edges, [2]int{j, i})
		}
	}
	return f
}

// Random creates size nodes with each ordered pair linked with the given
// probability.
func (g *Generator) Random(size int, density float64) GraphFixture {
	f := GraphFixture{Description: fmt.Sprintf("random graph of %d (p=%.2f)", size, density)}
	for i := 0; i < size; i++ {
		f.Nodes = append(f.Nodes, fmt.Sprintf("r%d", i))
	}
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i != j && g.rng.Float64() < density {
				f.Edges = append(f.Edges, [2]int{i, j})
			}
		}
	}
	return f
}

// Investigation builds a case-shaped graph: subjects, each with a fan of
// contact points, and a few organizations tying subjects together.
func (g *Generator) Investigation(subjects, contactsEach int) model.Graph {
	var gr model.Graph
	contactTypes := []model.DisplayType{
		model.TypeEmail, model.TypePhone, model.TypeAddress,
		model.TypeSocial, model.TypeUsername, model.TypeWebsite,
	}
	orgs := max(1, subjects/3)
	for o := 0; o < orgs; o++ {
		gr.Nodes = append(gr.Nodes, model.Node{
			ID:    fmt.Sprintf("org-%d", o),
			Type:  model.TypeOrganization,
			Label: fmt.Sprintf("Organization %d", o),
		})
	}
	for s := 0; s < subjects; s++ {
		sid := fmt.Sprintf("person-%d", s)
		gr.Nodes = append(gr.Nodes, model.Node{
			ID:    sid,
			Type:  model.TypeIndividual,
			Label: fmt.Sprintf("Subject %d", s),
		})
		gr.Edges = append(gr.Edges, model.Edge{
			Source: sid,
			Target: fmt.Sprintf("org-%d", g.rng.Intn(orgs)),
			Label:  "member_of",
		})
		for c := 0; c < contactsEach; c++ {
			t := contactTypes[g.rng.Intn(len(contactTypes))]
			cid := fmt.Sprintf("%s-%s-%d", sid, t, c)
			gr.Nodes = append(gr.Nodes, model.Node{
				ID:      cid,
				Type:    t,
				Caption: fmt.Sprintf("%s %d.%d", t, s, c),
			})
			gr.Edges = append(gr.Edges, model.Edge{Source: sid, Target: cid, Label: "uses"})
		}
	}
	return gr
}

// ToGraph converts a fixture into a model graph using the configured
// type mix and label options.
func (g *Generator) ToGraph(f GraphFixture) model.Graph {
	var gr model.Graph
	for i, name := range f.Nodes {
		n := model.Node{
			ID:   name,
			Type: g.cfg.TypeMix[g.rng.Intn(len(g.cfg.TypeMix))],
		}
		switch {
		case g.cfg.Labels:
			n.Label = fmt.Sprintf("Entity %s", name)
		case g.cfg.Captions && i%2 == 0:
			n.Caption = "caption " + name
		}
		gr.Nodes = append(gr.Nodes, n)
	}
	for _, e := range f.Edges {
		gr.Edges = append(gr.Edges, model.Edge{Source: f.Nodes[e[0]], Target: f.Nodes[e[1]]})
	}
	return gr
}

// Ring places ids evenly on a circle of the given radius.
func Ring(ids []string, radius float64) map[string]model.Point {
	pts := make(map[string]model.Point, len(ids))
	for i, id := range ids {
		a := 2 * math.Pi * float64(i) / float64(max(1, len(ids)))
		pts[id] = model.Point{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	return pts
}

// Scatter places ids uniformly in a w x h box centered on the origin.
func (g *Generator) Scatter(ids []string, w, h float64) map[string]model.Point {
	pts := make(map[string]model.Point, len(ids))
	for _, id := range ids {
		pts[id] = model.Point{X: (g.rng.Float64() - 0.5) * w, Y: (g.rng.Float64() - 0.5) * h}
	}
	return pts
}

// QuickStar returns a labeled star graph with the default config.
func QuickStar(spokes int) model.Graph {
	g := NewDefault()
	return g.ToGraph(g.Star(spokes))
}

// QuickInvestigation returns a case graph with the default config.
func QuickInvestigation(subjects, contactsEach int) model.Graph {
	return NewDefault().Investigation(subjects, contactsEach)
}
