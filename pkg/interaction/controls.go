package interaction

import (
	"sync"
	"time"

	"github.com/vanderheijden86/casegraph/pkg/viewport"
)

// Actions are the imperative zoom controls a canvas exposes to toolbars.
// Nil fields are not available.
type Actions struct {
	ZoomIn    func()
	ZoomOut   func()
	ZoomToFit func()
}

// Controls is the shared store the canvas registers its Actions into and
// toolbar buttons invoke through. The zero value is ready to use.
type Controls struct {
	mu      sync.RWMutex
	actions Actions
}

// Register replaces the registered actions.
func (c *Controls) Register(a Actions) {
	c.mu.Lock()
	c.actions = a
	c.mu.Unlock()
}

// Unregister drops every action, as when the canvas goes away.
func (c *Controls) Unregister() {
	c.Register(Actions{})
}

func (c *Controls) invoke(pick func(Actions) func()) bool {
	c.mu.RLock()
	fn := pick(c.actions)
	c.mu.RUnlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// ZoomIn runs the registered action and reports whether one was registered.
func (c *Controls) ZoomIn() bool {
	return c.invoke(func(a Actions) func() { return a.ZoomIn })
}

// ZoomOut runs the registered action and reports whether one was registered.
func (c *Controls) ZoomOut() bool {
	return c.invoke(func(a Actions) func() { return a.ZoomOut })
}

// ZoomToFit runs the registered action and reports whether one was
// registered.
func (c *Controls) ZoomToFit() bool {
	return c.invoke(func(a Actions) func() { return a.ZoomToFit })
}

// CameraOptions configures CameraActions.
type CameraOptions struct {
	// Step is the zoom factor per ZoomIn; ZoomOut divides by it.
	Step float64
	// Duration animates zoom changes. Zero jumps.
	Duration time.Duration
	// FitDuration animates ZoomToFit.
	FitDuration time.Duration
	// FitPadding is screen-space padding around the fitted bounds.
	FitPadding float64
}

// DefaultZoomStep is the zoom factor per ZoomIn.
const DefaultZoomStep = 1.25

// CameraActions binds the zoom controls to cam. bounds supplies the graph
// extent for ZoomToFit. The actions touch the camera without locking, so
// invoke them on the goroutine that owns it.
func CameraActions(cam *viewport.Camera, bounds func() viewport.Bounds, opts CameraOptions) Actions {
	if opts.Step <= 1 {
		opts.Step = DefaultZoomStep
	}
	return Actions{
		ZoomIn:  func() { cam.ZoomTo(cam.Zoom*opts.Step, opts.Duration) },
		ZoomOut: func() { cam.ZoomTo(cam.Zoom/opts.Step, opts.Duration) },
		ZoomToFit: func() {
			if bounds == nil {
				return
			}
			cam.ZoomToFit(bounds(), opts.FitPadding, opts.FitDuration)
		},
	}
}
