package interaction

import "github.com/vanderheijden86/casegraph/pkg/debug"

// MenuLayout sizes the context menu in viewport units.
type MenuLayout struct {
	Width   float64
	Height  float64
	Padding float64
}

// Default menu geometry.
const (
	DefaultMenuWidth   = 200
	DefaultMenuHeight  = 160
	DefaultMenuPadding = 10
)

func (l MenuLayout) withDefaults() MenuLayout {
	if l.Width <= 0 {
		l.Width = DefaultMenuWidth
	}
	if l.Height <= 0 {
		l.Height = DefaultMenuHeight
	}
	if l.Padding < 0 {
		l.Padding = 0
	}
	return l
}

// ContextMenu tells the menu renderer where to sit. Horizontally it is
// anchored either Left from the left edge or, when FromRight is set, Right
// from the right edge; vertically Top or, with FromBottom, Bottom. The
// unused offset of each pair is zero.
type ContextMenu struct {
	Node string

	Top, Left, Right, Bottom float64
	FromRight, FromBottom    bool
}

// Origin returns the menu's top-left corner for a viewport of the given
// size.
func (m ContextMenu) Origin(l MenuLayout, viewW, viewH float64) (x, y float64) {
	l = l.withDefaults()
	x, y = m.Left, m.Top
	if m.FromRight {
		x = viewW - m.Right - l.Width
	}
	if m.FromBottom {
		y = viewH - m.Bottom - l.Height
	}
	return x, y
}

// PlaceMenu anchors a menu at the pointer. If the menu plus padding would
// cross the right edge it is anchored from the right instead, and the same
// for the bottom edge.
func PlaceMenu(node string, px, py, viewW, viewH float64, l MenuLayout) ContextMenu {
	l = l.withDefaults()
	m := ContextMenu{Node: node}
	if px+l.Width+l.Padding > viewW {
		m.FromRight = true
		m.Right = max(viewW-px, 0)
	} else {
		m.Left = px
	}
	if py+l.Height+l.Padding > viewH {
		m.FromBottom = true
		m.Bottom = max(viewH-py, 0)
	} else {
		m.Top = py
	}
	return m
}

// RightClick opens the context menu for node id at pointer (px, py) in a
// viewport of viewW x viewH. Right-clicking the background closes any open
// menu and returns false.
func (c *Controller) RightClick(id string, px, py, viewW, viewH float64) (ContextMenu, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	if _, ok := c.scene.Node(id); !ok {
		c.menuOpen = false
		return ContextMenu{}, false
	}
	c.menu = PlaceMenu(id, px, py, viewW, viewH, c.menuLayout)
	c.menuOpen = true
	debug.Log("context menu for %s at %.0f,%.0f (right=%v bottom=%v)", id, px, py, c.menu.FromRight, c.menu.FromBottom)
	return c.menu, true
}

// Menu returns the open menu, if any.
func (c *Controller) Menu() (ContextMenu, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.menu, c.menuOpen
}

// MenuLayout returns the menu geometry in use.
func (c *Controller) MenuLayout() MenuLayout {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.menuLayout
}

// CloseMenu closes the context menu.
func (c *Controller) CloseMenu() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.menuOpen {
		c.menuOpen = false
		c.version++
	}
}
