package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding used by the views
type KeyMap struct {
	Quit      key.Binding
	Back      key.Binding
	Enter     key.Binding
	Tab       key.Binding
	Up        key.Binding
	Down      key.Binding
	Refresh   key.Binding
	Done      key.Binding
	Delete    key.Binding
	DeleteAll key.Binding
	New       key.Binding
	Edit      key.Binding
	Seed      key.Binding
	Search    key.Binding
	Status    key.Binding
	Category  key.Binding
	Priority  key.Binding
	Sort      key.Binding
	Reverse   key.Binding
	Reset     key.Binding
	Logout    key.Binding
	Confirm   key.Binding
	Mode      key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("↵", "submit")),
		Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Done:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "done")),
		Delete:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		DeleteAll: key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "delete all")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit title")),
		Seed:      key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "add sample tasks")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Status:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "status")),
		Category:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "category")),
		Priority:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority")),
		Sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Reverse:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "reverse")),
		Reset:     key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "clear filters")),
		Logout:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Confirm:   key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		Mode:      key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "log in / sign up")),
	}
}
