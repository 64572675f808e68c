package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/casegraph/pkg/interaction"
)

func (m Model) statusBar() string {
	s := m.styles
	title := s.StatusKey.Render("casegraph")

	sc := m.g.scene
	parts := []string{
		fmt.Sprintf("%d nodes", sc.Len()),
		fmt.Sprintf("%d edges", len(sc.Edges)),
		fmt.Sprintf("%.2fx", m.camera.Zoom),
		m.stats.Mode.String(),
		fmt.Sprintf("%d labels", m.stats.Labels),
	}
	if n := len(m.ctrl.Selection()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if id := m.ctrl.Hovered(); id != "" {
		if n, ok := sc.Node(id); ok {
			parts = append(parts, n.Label)
		}
	}
	if m.warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", m.warnings))
	}

	var flash string
	if m.flash != "" && time.Since(m.flashAt) < flashFor {
		style := s.Flash
		if m.flashErr {
			style = s.Error
		}
		flash = style.Render(truncateRunesHelper(m.flash, max(m.width/3, 10), "…"))
	}

	// Padding(0, 1) on the text style takes two cells.
	room := m.width - lipgloss.Width(title) - lipgloss.Width(flash) - 2
	text := s.StatusText.Render(truncateRunesHelper(strings.Join(parts, " · "), room, "…"))
	bar := lipgloss.JoinHorizontal(lipgloss.Top, title, text, flash)
	return s.StatusBar.Width(m.width).MaxWidth(m.width).Render(bar)
}

// menuLines is the context menu content for node id.
func (m Model) menuLines(id string, inner int) []string {
	s := m.styles
	n, ok := m.g.scene.Node(id)
	if !ok {
		return nil
	}
	state := "not selected"
	if m.ctrl.Selected(id) {
		state = "selected"
	}
	item := func(k, v string) string {
		return s.MenuItem.Render(truncateRunesHelper(k+": "+v, inner, "…"))
	}
	return []string{
		s.MenuTitle.Render(truncateRunesHelper(n.Label, inner, "…")),
		item("type", string(n.Type)),
		item("id", n.ID),
		item("links", fmt.Sprint(len(m.g.scene.EdgesOf(id)))),
		item("state", state),
		"",
		s.MenuHint.Render(truncateRunesHelper("enter select · y copy · esc close", inner, "…")),
	}
}

// overlayMenu draws the open context menu over the canvas. The controller
// places it in pixels; a cell is one pixel wide and two tall.
func (m Model) overlayMenu(body string, menu interaction.ContextMenu) string {
	layout := m.ctrl.MenuLayout()
	w := int(layout.Width)
	h := int(layout.Height) / 2
	if w < 6 || h < 3 {
		return body
	}
	// Border takes one cell each side, padding one more horizontally.
	inner := w - 4
	lines := m.menuLines(menu.Node, inner)
	if len(lines) > h-2 {
		lines = lines[:h-2]
	}
	box := m.styles.Menu.
		Width(w - 2).
		Height(h - 2).
		Render(strings.Join(lines, "\n"))

	x, y := menu.Origin(layout, m.camera.Width, m.camera.Height)
	return overlay(body, box, int(x), int(y)/2)
}
