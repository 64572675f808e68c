package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// truncateRunesHelper truncates s to maxWidth cells, adding suffix if it
// had to cut.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth-suffixWidth, "") + suffix
}

// overlay paints box over base with its top-left cell at (col, row). Both
// may contain ANSI styling; cells of base outside the box are kept.
func overlay(base, box string, col, row int) string {
	if col < 0 {
		col = 0
	}
	if row < 0 {
		row = 0
	}
	lines := strings.Split(base, "\n")
	for i, b := range strings.Split(box, "\n") {
		r := row + i
		if r >= len(lines) {
			break
		}
		line := lines[r]
		left := ansi.Truncate(line, col, "")
		if w := ansi.StringWidth(left); w < col {
			left += strings.Repeat(" ", col-w)
		}
		right := ansi.TruncateLeft(line, col+ansi.StringWidth(b), "")
		lines[r] = left + ansi.ResetStyle + b + right
	}
	return strings.Join(lines, "\n")
}
