package tui

// SwitchScreenMsg requests a screen change
type SwitchScreenMsg struct {
	Screen Screen
}

// RefreshDataMsg requests data refresh
type RefreshDataMsg struct{}

// ErrorMsg carries error information
type ErrorMsg struct {
	Err error
}

// OpenNewCustomerFormMsg tells the customers screen to open the new customer form
type OpenNewCustomerFormMsg struct{}

// firstRunCheckMsg reports whether the database has any customers
type firstRunCheckMsg struct {
	hasCustomers bool
}
