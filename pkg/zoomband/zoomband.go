// Package zoomband staggers label pop-in across a continuous zoom.
//
// Every node gets its own zoom interval in which its label may show. If all
// labels shared one threshold they would flash in and out together; spread
// bands make the transition gradual.
package zoomband

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// Band defaults.
const (
	DefaultZoomMin   = 0.3
	DefaultZoomMax   = 10.0
	DefaultBandWidth = 2.0
)

// Band is the closed zoom interval in which a node's label is eligible.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether zoom lies in the closed interval.
func (b Band) Contains(zoom float64) bool {
	return b.Min <= zoom && zoom <= b.Max
}

// Width returns Max - Min.
func (b Band) Width() float64 {
	return b.Max - b.Min
}

// ShouldShowLabel is the per-frame eligibility test.
func ShouldShowLabel(zoom float64, b Band) bool {
	return b.Contains(zoom)
}

// Assigner draws bands. Band.Min is uniform in
// [ZoomMin, ZoomMax - Width - 1] and Band.Max = Min + Width.
type Assigner struct {
	ZoomMin float64
	ZoomMax float64
	Width   float64

	// Stable derives each band from the node id and Seed, so reloads keep
	// the same stagger. Otherwise every assignment pass draws fresh values.
	Stable bool
	Seed   uint64

	rng *rand.Rand
}

// NewAssigner returns an Assigner with the default range drawing from the
// given source. A nil source uses a randomly seeded PCG.
func NewAssigner(src rand.Source) *Assigner {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Assigner{
		ZoomMin: DefaultZoomMin,
		ZoomMax: DefaultZoomMax,
		Width:   DefaultBandWidth,
		rng:     rand.New(src),
	}
}

// NewStableAssigner returns an Assigner whose bands depend only on node id
// and seed.
func NewStableAssigner(seed uint64) *Assigner {
	a := NewAssigner(rand.NewPCG(seed, seed))
	a.Stable = true
	a.Seed = seed
	return a
}

// span returns the range Min is drawn from. Degenerate configurations
// collapse to a single point at ZoomMin.
func (a *Assigner) span() (lo, hi float64) {
	lo = a.ZoomMin
	hi = a.ZoomMax - a.Width - 1
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Assign returns the band for one node.
func (a *Assigner) Assign(id string) Band {
	lo, hi := a.span()
	var u float64
	if a.Stable {
		h := xxhash.Sum64String(id)
		u = rand.New(rand.NewPCG(h, a.Seed)).Float64()
	} else {
		if a.rng == nil {
			a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		u = a.rng.Float64()
	}
	start := lo + u*(hi-lo)
	return Band{Min: start, Max: start + a.Width}
}

// AssignAll returns bands keyed by node id, visiting ids in the given order.
func (a *Assigner) AssignAll(ids []string) map[string]Band {
	out := make(map[string]Band, len(ids))
	for _, id := range ids {
		out[id] = a.Assign(id)
	}
	return out
}
