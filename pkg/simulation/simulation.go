// Package simulation supplies node positions. The renderer treats the
// physics as opaque: something implementing Simulation ticks, and the
// resulting positions are published to a Positions store the painter reads
// each frame.
//
// Positions is the only state shared between the simulation goroutine and
// the paint loop. It has a single writer (the simulation) and any number
// of readers.
package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/viewport"
)

// ErrUnknownForce is returned by SetForce for names the engine does not know.
var ErrUnknownForce = errors.New("unknown force")

// Simulation is the force-layout collaborator.
type Simulation interface {
	// Tick advances the layout one step and publishes positions. It
	// returns false once the layout has settled.
	Tick() bool
	// SetForce adjusts a named force parameter.
	SetForce(name string, value float64) error
	// Reheat restarts a settled layout from its current positions.
	Reheat()
	// Positions returns the store the simulation publishes into.
	Positions() *Positions
}

// Positions is a concurrency-safe id -> point map with last-value-wins
// semantics.
type Positions struct {
	mu      sync.RWMutex
	pts     map[string]model.Point
	version uint64
}

// NewPositions returns an empty store.
func NewPositions() *Positions {
	return &Positions{pts: make(map[string]model.Point)}
}

// Get returns the current position of id.
func (p *Positions) Get(id string) (model.Point, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pt, ok := p.pts[id]
	return pt, ok
}

// Set stores one position.
func (p *Positions) Set(id string, pt model.Point) {
	p.mu.Lock()
	p.pts[id] = pt
	p.version++
	p.mu.Unlock()
}

// Publish replaces every position at once.
func (p *Positions) Publish(pts map[string]model.Point) {
	p.mu.Lock()
	clear(p.pts)
	for id, pt := range pts {
		p.pts[id] = pt
	}
	p.version++
	p.mu.Unlock()
}

// Snapshot copies the current positions.
func (p *Positions) Snapshot() map[string]model.Point {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]model.Point, len(p.pts))
	for id, pt := range p.pts {
		out[id] = pt
	}
	return out
}

// Version increments on every write; readers use it to detect motion.
func (p *Positions) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Bounds returns the box containing every finite position padded by pad.
func (p *Positions) Bounds(pad float64) viewport.Bounds {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b := viewport.EmptyBounds()
	for _, pt := range p.pts {
		b = b.Extend(pt, pad)
	}
	return b
}

// Len returns the number of stored positions.
func (p *Positions) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pts)
}

// Runner ticks a simulation on its own goroutine.
type Runner struct {
	sim      Simulation
	interval time.Duration
	wake     chan struct{}
	onTick   func()
}

// NewRunner returns a runner ticking every interval. onTick, if not nil, is
// called after each tick that moved nodes.
func NewRunner(sim Simulation, interval time.Duration, onTick func()) *Runner {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Runner{
		sim:      sim,
		interval: interval,
		wake:     make(chan struct{}, 1),
		onTick:   onTick,
	}
}

// Reheat restarts the layout and wakes the runner if it was idle.
func (r *Runner) Reheat() {
	r.sim.Reheat()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. While the layout is settled it idles
// until Reheat is called.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	settled := false
	for {
		if settled {
			select {
			case <-ctx.Done():
				return
			case <-r.wake:
				settled = false
				debug.Log("simulation reheated")
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		case <-ticker.C:
			stop := metrics.Timer(metrics.SimulationTick)
			moving := r.sim.Tick()
			stop()
			if r.onTick != nil {
				r.onTick()
			}
			if !moving {
				settled = true
				debug.Log("simulation settled")
			}
		}
	}
}

// RunToRest ticks synchronously until the layout settles or maxTicks is
// reached. It returns the number of ticks taken.
func RunToRest(sim Simulation, maxTicks int) int {
	n := 0
	for n < maxTicks {
		n++
		if !sim.Tick() {
			break
		}
	}
	return n
}
