package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// Navigation
	Home      key.Binding
	Draft     key.Binding
	Customers key.Binding
	Products  key.Binding
	Invoices  key.Binding
	Reports   key.Binding
	Settings  key.Binding

	// Actions
	Select key.Binding
	New    key.Binding
	Delete key.Binding
	Inc    key.Binding
	Dec    key.Binding

	// Movement
	Up   key.Binding
	Down key.Binding
}

var DefaultKeyMap = KeyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Back:      key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Home:      key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "home")),
	Draft:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "draft")),
	Customers: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "customers")),
	Products:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "products")),
	Invoices:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "invoices")),
	Reports:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reports")),
	Settings:  key.NewBinding(key.WithKeys(","), key.WithHelp(",", "settings")),
	Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Delete:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
	Inc:       key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "increase")),
	Dec:       key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "decrease")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}
