package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/casegraph/pkg/render"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns hex for TrueColor terminals and lipgloss.NoColor{}
// otherwise, so 16/256-color terminals keep their own background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns hex for ANSI256+ terminals and ANSI white otherwise.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// CanvasTheme returns the painter palette for the terminal. Below 256
// colors dimming collapses into the background, so it is weakened.
func CanvasTheme(name string) render.Theme {
	t := render.DefaultTheme()
	if name == "light" {
		t = render.LightTheme()
	}
	if TermProfile < colorprofile.ANSI256 {
		t.DimAmount = 0.4
	}
	return t
}

// Styles are the lipgloss styles around the canvas.
type Styles struct {
	Renderer *lipgloss.Renderer

	Primary lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor

	StatusBar  lipgloss.Style
	StatusKey  lipgloss.Style
	StatusText lipgloss.Style
	Flash      lipgloss.Style
	Error      lipgloss.Style

	Menu      lipgloss.Style
	MenuTitle lipgloss.Style
	MenuItem  lipgloss.Style
	MenuHint  lipgloss.Style
}

// DefaultStyles returns the Dracula-inspired adaptive styles.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	s := Styles{
		Renderer: r,
		Primary:  lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Muted:    lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Border:   lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
	}

	s.StatusBar = r.NewStyle().
		Background(ThemeBg("#282A36")).
		Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	s.StatusKey = r.NewStyle().
		Background(s.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	s.StatusText = r.NewStyle().Foreground(s.Muted).Padding(0, 1)
	s.Flash = r.NewStyle().Foreground(ThemeFg("#50FA7B")).Bold(true).Padding(0, 1)
	s.Error = r.NewStyle().Foreground(ThemeFg("#FF5555")).Bold(true).Padding(0, 1)

	s.Menu = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.Primary).
		Background(ThemeBg("#282A36")).
		Padding(0, 1)
	s.MenuTitle = r.NewStyle().Foreground(s.Primary).Bold(true)
	s.MenuItem = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	s.MenuHint = r.NewStyle().Foreground(s.Muted)
	return s
}
