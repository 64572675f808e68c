package simulation

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/scene"
)

// Params tunes the Eades layout.
type Params struct {
	Repulsion float64
	Rate      float64
	Theta     float64
	// Updates is the number of ticks before the layout counts as settled;
	// Reheat restores it.
	Updates int
	// Scale maps layout units to graph units.
	Scale float64
	// Seed makes the initial placement deterministic when non-zero.
	Seed uint64
}

// DefaultParams mirrors gonum's suggested Eades settings.
func DefaultParams() Params {
	return Params{
		Repulsion: 1,
		Rate:      0.05,
		Theta:     0.2,
		Updates:   300,
		Scale:     120,
	}
}

// Eades is a force-directed simulation built on gonum's layout optimizer
// with Barnes-Hut repulsion.
type Eades struct {
	mu        sync.Mutex
	params    Params
	eades     *seededR2
	optimizer layout.OptimizerR2
	ids       []string
	positions *Positions
}

// NewEades builds the simulation graph from a scene. Self loops and
// parallel edges collapse into single undirected springs. Nodes with a
// seed start the layout there.
func NewEades(s *scene.Scene, p Params) *Eades {
	if p.Scale <= 0 {
		p.Scale = DefaultParams().Scale
	}
	g := simple.NewUndirectedGraph()
	ids := make([]string, len(s.Nodes))
	index := make(map[string]int64, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
		index[n.ID] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range s.Edges {
		u, v := index[e.Source], index[e.Target]
		if u == v || g.HasEdgeBetween(u, v) {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(u), simple.Node(v)))
	}

	e := &Eades{
		params:    p,
		ids:       ids,
		positions: NewPositions(),
	}
	e.eades = &seededR2{
		Updates:   p.Updates,
		Repulsion: p.Repulsion,
		Rate:      p.Rate,
		Theta:     p.Theta,
	}
	if p.Seed != 0 {
		e.eades.Src = rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)
	}
	e.seed(s)
	e.optimizer = layout.NewOptimizerR2(orderedGraph{g}, e.eades.Update)
	return e
}

// orderedGraph iterates nodes by id so a seeded layout is reproducible;
// simple.UndirectedGraph iterates its node map in random order.
type orderedGraph struct {
	*simple.UndirectedGraph
}

func (g orderedGraph) Nodes() graph.Nodes {
	return sortedNodes(g.UndirectedGraph.Nodes())
}

func (g orderedGraph) From(id int64) graph.Nodes {
	return sortedNodes(g.UndirectedGraph.From(id))
}

func sortedNodes(it graph.Nodes) graph.Nodes {
	nodes := graph.NodesOf(it)
	slices.SortFunc(nodes, func(a, b graph.Node) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return iterator.NewOrderedNodes(nodes)
}

// seed publishes provider positions so frames painted before the first
// tick have something to show, and hands them to the layout in layout
// units.
func (e *Eades) seed(s *scene.Scene) {
	pts := make(map[string]model.Point, len(s.Nodes))
	seeds := make(map[int64]r2.Vec)
	for i, n := range s.Nodes {
		if n.Seed != nil && n.Seed.IsFinite() {
			pts[n.ID] = *n.Seed
			seeds[int64(i)] = r2.Vec{X: n.Seed.X / e.params.Scale, Y: n.Seed.Y / e.params.Scale}
		}
	}
	e.eades.seeds = seeds
	if len(pts) > 0 {
		e.positions.Publish(pts)
	}
}

// Tick runs one Eades update and publishes the new positions.
func (e *Eades) Tick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.ids) == 0 {
		return false
	}
	moving := e.optimizer.Update()
	if !e.eades.placed() {
		// A zero update budget never places anything; fall back to a ring.
		if e.positions.Len() < len(e.ids) {
			e.positions.Publish(ring(e.ids, e.params.Scale))
		}
		return false
	}
	pts := make(map[string]model.Point, len(e.ids))
	for i, id := range e.ids {
		v := e.optimizer.Coord2(int64(i))
		pts[id] = model.Point{X: v.X * e.params.Scale, Y: v.Y * e.params.Scale}
	}
	e.positions.Publish(pts)
	return moving
}

// seededR2 is the Eades update of gonum's layout.EadesR2 with one change:
// the first update starts seeded nodes at their seed instead of at
// random. Unseeded nodes start one unit from their seeded neighbours, or
// from the centre of all seeds. Without any seeds every node starts in the
// unit square.
type seededR2 struct {
	Updates   int
	Repulsion float64
	Rate      float64
	Theta     float64
	Src       rand.Source

	seeds map[int64]r2.Vec

	nodes     graph.Nodes
	indexOf   map[int64]int
	particles []barneshut.Particle2
	forces    []r2.Vec
}

type eadesNode struct {
	id  int64
	pos r2.Vec
}

func (p eadesNode) Coord2() r2.Vec { return p.pos }
func (p eadesNode) Mass() float64  { return 1 }

func (u *seededR2) placed() bool {
	return u.particles != nil
}

// Update is a layout.OptimizerR2 update function.
func (u *seededR2) Update(g graph.Graph, l layout.LayoutR2) bool {
	if u.Updates <= 0 {
		return false
	}
	u.Updates--

	if !u.placed() {
		u.place(g, l)
	}
	u.nodes.Reset()

	plane, err := barneshut.NewPlane(u.particles)
	if err != nil {
		return false
	}
	var updated bool
	for i, p := range u.particles {
		f := r2.Scale(-u.Repulsion, plane.ForceOn(p, u.Theta, barneshut.Gravity2))
		if math.Hypot(f.X, f.Y) > 1e-12 {
			updated = true
		}
		u.forces[i] = f
	}

	seen := make(map[[2]int64]bool)
	for u.nodes.Next() {
		xid := u.nodes.Node().ID()
		xi := u.indexOf[xid]
		to := g.From(xid)
		for to.Next() {
			yid := to.Node().ID()
			if seen[[2]int64{xid, yid}] {
				continue
			}
			seen[[2]int64{yid, xid}] = true
			yi := u.indexOf[yid]

			v := r2.Sub(u.particles[yi].Coord2(), u.particles[xi].Coord2())
			d := math.Hypot(v.X, v.Y)
			if d == 0 {
				// Coincident particles have no spring direction.
				continue
			}
			f := r2.Scale(math.Log(d), v)
			if math.IsInf(f.X, 0) || math.IsInf(f.Y, 0) {
				return false
			}
			if math.Hypot(f.X, f.Y) > 1e-12 {
				updated = true
			}
			u.forces[xi] = r2.Add(u.forces[xi], f)
			u.forces[yi] = r2.Sub(u.forces[yi], f)
		}
	}
	if !updated {
		return false
	}

	rate := u.Rate
	if rate == 0 {
		rate = 0.1
	}
	for i, f := range u.forces {
		n := u.particles[i].(eadesNode)
		n.pos = r2.Add(n.pos, r2.Scale(rate, f))
		u.particles[i] = n
		l.SetCoord2(n.id, n.pos)
	}
	return true
}

// place builds the particles and records their starting coordinates.
func (u *seededR2) place(g graph.Graph, l layout.LayoutR2) {
	rnd := rand.Float64
	if u.Src != nil {
		rnd = rand.New(u.Src).Float64
	}
	var centre r2.Vec
	for _, id := range slices.Sorted(maps.Keys(u.seeds)) {
		centre = r2.Add(centre, u.seeds[id])
	}
	if len(u.seeds) > 0 {
		centre = r2.Scale(1/float64(len(u.seeds)), centre)
	}

	taken := make(map[r2.Vec]bool, len(u.seeds))
	u.nodes = g.Nodes()
	u.indexOf = make(map[int64]int, u.nodes.Len())
	u.particles = make([]barneshut.Particle2, 0, max(u.nodes.Len(), 0))
	for u.nodes.Next() {
		id := u.nodes.Node().ID()
		pos, ok := u.seeds[id]
		switch {
		case ok:
		case len(u.seeds) == 0:
			pos = r2.Vec{X: rnd(), Y: rnd()}
		default:
			// One layout unit from the anchor in a random direction.
			a := 2 * math.Pi * rnd()
			pos = r2.Add(u.anchor(g, id, centre), r2.Vec{X: math.Cos(a), Y: math.Sin(a)})
		}
		// Coincident particles make the Barnes-Hut plane unsplittable.
		for taken[pos] {
			a := 2 * math.Pi * rnd()
			pos = r2.Add(pos, r2.Vec{X: 0.5 * math.Cos(a), Y: 0.5 * math.Sin(a)})
		}
		taken[pos] = true
		u.indexOf[id] = len(u.particles)
		u.particles = append(u.particles, eadesNode{id: id, pos: pos})
		l.SetCoord2(id, pos)
	}
	u.forces = make([]r2.Vec, len(u.particles))
}

// anchor is the mean seed of id's seeded neighbours, or centre when it
// has none.
func (u *seededR2) anchor(g graph.Graph, id int64, centre r2.Vec) r2.Vec {
	var sum r2.Vec
	var n int
	to := g.From(id)
	for to.Next() {
		if v, ok := u.seeds[to.Node().ID()]; ok {
			sum = r2.Add(sum, v)
			n++
		}
	}
	if n == 0 {
		return centre
	}
	return r2.Scale(1/float64(n), sum)
}

// ring places ids evenly on a circle of radius r.
func ring(ids []string, r float64) map[string]model.Point {
	pts := make(map[string]model.Point, len(ids))
	if len(ids) == 1 {
		pts[ids[0]] = model.Point{}
		return pts
	}
	for i, id := range ids {
		a := 2 * math.Pi * float64(i) / float64(len(ids))
		pts[id] = model.Point{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

// SetForce adjusts "repulsion", "rate", "theta" or "scale".
func (e *Eades) SetForce(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("force %s: invalid value %v", name, value)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch name {
	case "repulsion":
		e.eades.Repulsion = value
		e.params.Repulsion = value
	case "rate":
		e.eades.Rate = value
		e.params.Rate = value
	case "theta":
		e.eades.Theta = value
		e.params.Theta = value
	case "scale":
		if value <= 0 {
			return fmt.Errorf("force scale: must be positive, got %v", value)
		}
		e.params.Scale = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownForce, name)
	}
	return nil
}

// Reheat restores the update budget.
func (e *Eades) Reheat() {
	e.mu.Lock()
	e.eades.Updates = e.params.Updates
	e.mu.Unlock()
}

// Positions returns the published positions.
func (e *Eades) Positions() *Positions {
	return e.positions
}

// Fixed is a deterministic stand-in that never moves nodes. Tests and
// static exports use it.
type Fixed struct {
	positions *Positions
	ticks     int
	reheats   int
	forces    map[string]float64
}

// NewFixed returns a Fixed simulation publishing pts.
func NewFixed(pts map[string]model.Point) *Fixed {
	p := NewPositions()
	p.Publish(pts)
	return &Fixed{positions: p, forces: make(map[string]float64)}
}

// Tick counts calls and reports the layout as settled.
func (f *Fixed) Tick() bool {
	f.ticks++
	return false
}

// SetForce records the value.
func (f *Fixed) SetForce(name string, value float64) error {
	f.forces[name] = value
	return nil
}

// Reheat counts calls.
func (f *Fixed) Reheat() {
	f.reheats++
}

// Positions returns the fixed store.
func (f *Fixed) Positions() *Positions {
	return f.positions
}

// Ticks returns how many times Tick ran.
func (f *Fixed) Ticks() int {
	return f.ticks
}
