// Package labels places node labels without overlap across frames.
//
// A Placer keeps two caches that live across frames: a spatial grid of the
// label boxes currently on screen and the set of node ids owning them. A
// label accepted once stays shown without re-contesting space until the
// caches are reset, which keeps labels from flickering while the layout
// settles. New labels contest space against the grid; the larger glyph
// wins and equal sizes keep the incumbent.
package labels

import (
	"cmp"
	"slices"
	"sort"

	"github.com/vanderheijden86/casegraph/pkg/spatial"
)

// Outcome is the result of one placement attempt.
type Outcome int

const (
	// Rejected means an incumbent label of equal or larger size overlaps.
	Rejected Outcome = iota
	// Accepted means the label won free or contested space this frame.
	Accepted
	// Carried means the label was already shown and skipped the contest.
	Carried
)

func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "rejected"
	case Accepted:
		return "accepted"
	case Carried:
		return "carried"
	default:
		return "unknown"
	}
}

// Shown reports whether the label text should be painted.
func (o Outcome) Shown() bool {
	return o == Accepted || o == Carried
}

// Candidate is a label asking for space this frame.
type Candidate struct {
	Owner string
	Box   spatial.Rect
	// Size is the owner's glyph size, compared strictly.
	Size float64
}

// Decision reports the outcome and the owners evicted to make room.
type Decision struct {
	Outcome Outcome
	Evicted []string
}

// Stats counts decisions since the last ResetStats.
type Stats struct {
	Accepted int
	Carried  int
	Rejected int
	Evicted  int
}

// Placer owns the label grid and the shown-label memory. The invariant
// "owner in memory iff owner has a box in the grid" holds after every call.
// It is not safe for concurrent use.
type Placer struct {
	grid  *spatial.Grid
	shown map[string]spatial.Box
	stats Stats
}

// NewPlacer returns a Placer with an empty grid of the given cell size.
func NewPlacer(cellSize float64) *Placer {
	return &Placer{
		grid:  spatial.NewGrid(cellSize),
		shown: make(map[string]spatial.Box),
	}
}

// Place runs the collision contest for one candidate.
//
// Remembered owners skip the contest; their box is moved to the candidate
// position so the grid tracks where the label is actually drawn. Otherwise
// the truly overlapping incumbents are visited largest first: each smaller
// one is evicted, and the first one of the same size or larger rejects the
// candidate. Visiting largest first means a rejection never follows an
// eviction.
func (p *Placer) Place(c Candidate) Decision {
	if old, ok := p.shown[c.Owner]; ok {
		if old.Rect != c.Box || old.Priority != c.Size {
			p.grid.RemoveByOwner(c.Owner)
			b := spatial.Box{Rect: c.Box, Owner: c.Owner, Priority: c.Size}
			p.grid.Insert(b)
			p.shown[c.Owner] = b
		}
		p.stats.Carried++
		return Decision{Outcome: Carried}
	}

	var overlapping []spatial.Box
	for _, other := range p.grid.Query(c.Box) {
		if other.Owner != c.Owner && other.Intersects(c.Box) {
			overlapping = append(overlapping, other)
		}
	}
	slices.SortStableFunc(overlapping, func(a, b spatial.Box) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	var losers []string
	for _, other := range overlapping {
		if c.Size <= other.Priority {
			p.stats.Rejected++
			return Decision{Outcome: Rejected}
		}
		p.evict(other.Owner)
		losers = append(losers, other.Owner)
	}
	b := spatial.Box{Rect: c.Box, Owner: c.Owner, Priority: c.Size}
	p.grid.Insert(b)
	p.shown[c.Owner] = b
	p.stats.Accepted++
	p.stats.Evicted += len(losers)
	return Decision{Outcome: Accepted, Evicted: losers}
}

// Forget evicts the owner's label if shown, e.g. when its node is no longer
// eligible at the current zoom.
func (p *Placer) Forget(owner string) bool {
	if _, ok := p.shown[owner]; !ok {
		return false
	}
	p.evict(owner)
	return true
}

func (p *Placer) evict(owner string) {
	p.grid.RemoveByOwner(owner)
	delete(p.shown, owner)
}

// IsShown reports whether the owner's label is in the shown-label memory.
func (p *Placer) IsShown(owner string) bool {
	_, ok := p.shown[owner]
	return ok
}

// ShownIDs returns the remembered owners, sorted.
func (p *Placer) ShownIDs() []string {
	ids := make([]string, 0, len(p.shown))
	for id := range p.shown {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Box returns the remembered box for owner.
func (p *Placer) Box(owner string) (spatial.Rect, bool) {
	b, ok := p.shown[owner]
	return b.Rect, ok
}

// Len returns the number of shown labels.
func (p *Placer) Len() int {
	return len(p.shown)
}

// Grid exposes the underlying index for inspection.
func (p *Placer) Grid() *spatial.Grid {
	return p.grid
}

// Reset clears the grid and the memory, forcing every label to re-contest.
func (p *Placer) Reset() {
	p.grid.Clear()
	clear(p.shown)
}

// Stats returns decision counts since the last ResetStats.
func (p *Placer) Stats() Stats {
	return p.stats
}

// ResetStats zeroes the decision counters.
func (p *Placer) ResetStats() {
	p.stats = Stats{}
}
