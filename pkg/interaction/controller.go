// Package interaction turns pointer events into highlight, selection and
// context-menu state. The painter reads that state by id through the
// render.Highlights methods; nothing here mutates scene objects.
package interaction

import (
	"slices"
	"sync"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/render"
	"github.com/vanderheijden86/casegraph/pkg/scene"
)

// Controller holds the interaction state for one canvas. It is safe for
// concurrent use: events arrive on the UI goroutine while the painter reads.
type Controller struct {
	mu sync.RWMutex

	scene   *scene.Scene
	hovered string
	// hoverEdges holds the ids of edges touching the hovered node.
	hoverEdges map[string]struct{}
	selected   map[string]struct{}

	menu       ContextMenu
	menuOpen   bool
	menuLayout MenuLayout

	version uint64
}

var _ render.Highlights = (*Controller)(nil)

// New returns a controller for sc.
func New(sc *scene.Scene, layout MenuLayout) *Controller {
	return &Controller{
		scene:      sc,
		selected:   make(map[string]struct{}),
		menuLayout: layout.withDefaults(),
	}
}

// SetScene swaps in a reloaded scene. Hover is cleared; selected nodes and an
// open menu survive only if their node is still present.
func (c *Controller) SetScene(sc *scene.Scene) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scene = sc
	c.clearHoverLocked()
	for id := range c.selected {
		if _, ok := sc.Node(id); !ok {
			delete(c.selected, id)
		}
	}
	if c.menuOpen {
		if _, ok := sc.Node(c.menu.Node); !ok {
			c.menuOpen = false
		}
	}
	c.version++
}

// Hover is the hover callback: id is the node under the pointer, or "" when
// the pointer left every node. Unknown ids count as leaving.
func (c *Controller) Hover(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.scene.Node(id); !ok {
		id = ""
	}
	if id == c.hovered {
		return
	}
	c.clearHoverLocked()
	if id != "" {
		c.hovered = id
		c.hoverEdges = make(map[string]struct{})
		for _, e := range c.scene.EdgesOf(id) {
			c.hoverEdges[e.ID] = struct{}{}
		}
		debug.Log("hover enter %s (%d edges)", id, len(c.hoverEdges))
	}
	c.version++
}

func (c *Controller) clearHoverLocked() {
	c.hovered = ""
	c.hoverEdges = nil
}

// Hovered returns the hovered node id, or "".
func (c *Controller) Hovered() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hovered
}

// NodeClick toggles id in the selection without touching other members.
// It reports whether id is selected afterwards.
func (c *Controller) NodeClick(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.scene.Node(id); !ok {
		return false
	}
	c.version++
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return false
	}
	c.selected[id] = struct{}{}
	return true
}

// BackgroundClick clears the selection and closes the context menu.
func (c *Controller) BackgroundClick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.selected)
	c.menuOpen = false
	c.version++
}

// ClearSelection empties the selection and leaves the menu alone.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.selected)
	c.version++
}

// Selection returns the selected ids in paint order.
func (c *Controller) Selection() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.selected))
	for id := range c.selected {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b string) int {
		return c.scene.Index(a) - c.scene.Index(b)
	})
	return out
}

// Selected reports whether id is in the selection.
func (c *Controller) Selected(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.selected[id]
	return ok
}

// NodeMark is Neutral with no hover, otherwise Highlighted for the hovered
// node and Dimmed for every other node.
func (c *Controller) NodeMark(id string) render.Mark {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.hovered == "":
		return render.Neutral
	case id == c.hovered:
		return render.Highlighted
	default:
		return render.Dimmed
	}
}

// EdgeMark is Highlighted for edges touching the hovered node and Dimmed for
// the rest while hovering.
func (c *Controller) EdgeMark(id string) render.Mark {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.hovered == "" {
		return render.Neutral
	}
	if _, ok := c.hoverEdges[id]; ok {
		return render.Highlighted
	}
	return render.Dimmed
}

// Version increases on every state change, so a host can skip redraws.
func (c *Controller) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
