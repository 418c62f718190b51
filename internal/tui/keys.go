package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the bindings of the timeline view.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Search   key.Binding
	Type     key.Binding
	Hide     key.Binding
	TZ       key.Binding
	Clear    key.Binding
	Detail   key.Binding
	Raw      key.Binding
	Truncate key.Binding
	Back     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "f", " "), key.WithHelp("pgdn", "page down")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Type:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "type")),
		Hide:     key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hide tool details")),
		TZ:       key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "utc/local")),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
		Detail:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Raw:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "raw line")),
		Truncate: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "truncate")),
		Back:     key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Type, k.Hide, k.TZ, k.Detail, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Search, k.Type, k.Hide, k.TZ, k.Clear},
		{k.Detail, k.Raw, k.Truncate, k.Back, k.Quit},
	}
}
