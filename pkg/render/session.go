package render

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/labels"
	"github.com/vanderheijden86/casegraph/pkg/lod"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/spatial"
)

// DefaultZoomResetDelta is the accumulated zoom change that forces every
// label to re-contest.
const DefaultZoomResetDelta = 0.5

// SessionOptions configures a Session. Zero fields take defaults.
type SessionOptions struct {
	CellSize       float64
	ZoomResetDelta float64
	Policy         lod.Policy
}

// Session owns the cross-frame label caches for one rendering surface and
// the fingerprint used to invalidate them.
//
// Only the paint loop writes the caches. Other goroutines (a reload, a zoom
// watcher) call Invalidate, which is applied at the start of the next frame
// so a clear never lands mid-frame.
type Session struct {
	mu     sync.Mutex
	placer *labels.Placer
	policy lod.Policy
	delta  float64

	primed      bool
	fingerprint uint64
	nodeCount   int
	resetZoom   float64
	frames      uint64

	pending atomic.Bool
}

// NewSession returns a session with empty caches.
func NewSession(opts SessionOptions) *Session {
	if opts.CellSize <= 0 {
		opts.CellSize = spatial.DefaultCellSize
	}
	if opts.ZoomResetDelta <= 0 || math.IsNaN(opts.ZoomResetDelta) {
		opts.ZoomResetDelta = DefaultZoomResetDelta
	}
	if opts.Policy == (lod.Policy{}) {
		opts.Policy = lod.DefaultPolicy()
	}
	return &Session{
		placer: labels.NewPlacer(opts.CellSize),
		policy: opts.Policy,
		delta:  opts.ZoomResetDelta,
	}
}

// Invalidate requests a full cache clear before the next frame. Safe to
// call from any goroutine.
func (s *Session) Invalidate() {
	s.pending.Store(true)
}

// Policy returns the LOD policy frames are painted with.
func (s *Session) Policy() lod.Policy {
	return s.policy
}

// begin applies pending and automatic invalidation for a frame at zoom
// over sc. It reports the cause when the caches were cleared. Callers hold
// s.mu.
func (s *Session) begin(sc *scene.Scene, zoom float64) (cause string) {
	s.frames++
	fp, n := sc.Fingerprint(), sc.Len()
	switch {
	case s.pending.Swap(false):
		cause = "request"
	case !s.primed:
		s.primed = true
		s.fingerprint, s.nodeCount, s.resetZoom = fp, n, zoom
		return ""
	case fp != s.fingerprint || n != s.nodeCount:
		cause = "graph"
	case math.Abs(zoom-s.resetZoom) > s.delta:
		cause = "zoom"
	default:
		return ""
	}
	s.placer.Reset()
	s.primed = true
	s.fingerprint, s.nodeCount, s.resetZoom = fp, n, zoom
	metrics.CountReset(cause)
	debug.Log("label caches cleared (%s) at zoom %.2f, %d nodes", cause, zoom, n)
	return cause
}

// ShownLabels returns the ids currently in the shown-label memory.
func (s *Session) ShownLabels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placer.ShownIDs()
}

// IsShown reports whether id's label is in the shown-label memory.
func (s *Session) IsShown(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placer.IsShown(id)
}

// LabelBox returns the box id's label occupies, if shown.
func (s *Session) LabelBox(id string) (spatial.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placer.Box(id)
}

// Frames returns how many frames have been painted.
func (s *Session) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
