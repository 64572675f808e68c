package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the viewer's key bindings.
type KeyMap struct {
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Fit      key.Binding
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	NextNode key.Binding
	PrevNode key.Binding
	Toggle   key.Binding
	Menu     key.Binding
	Dismiss  key.Binding
	Copy     key.Binding
	Reheat   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Fit:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fit")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
		NextNode: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next node")),
		PrevNode: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev node")),
		Toggle:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
		Menu:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "menu")),
		Dismiss:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy ids")),
		Reheat:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "relayout")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Fit, k.NextNode, k.Toggle, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ZoomIn, k.ZoomOut, k.Fit},
		{k.Up, k.Down, k.Left, k.Right},
		{k.NextNode, k.PrevNode, k.Toggle, k.Menu},
		{k.Dismiss, k.Copy, k.Reheat, k.Help, k.Quit},
	}
}
