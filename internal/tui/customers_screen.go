package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andy/invoicedesk/internal/app"
	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/service"
)

// customerMode represents the current screen mode
type customerMode int

const (
	customerModeList customerMode = iota
	customerModeNew
	customerModeEdit
)

// form field indices
const (
	fieldName = iota
	fieldEmail
	fieldPhone
	fieldAddress
	fieldNotes
	fieldCount
)

// CustomersModel displays a navigable list of customers with create/edit forms
type CustomersModel struct {
	app          *app.App
	customers    []*domain.Customer
	cursor       int
	showArchived bool
	balances     map[int64]service.CustomerBalance
	loading      bool
	err          error
	statusMsg    string

	// Form state
	mode            customerMode
	fields          []textinput.Model
	fieldFocus      int
	editingID       int64 // 0 for new customer
	autoNewCustomer bool  // open new customer form after data loads
}

type customersDataMsg struct {
	customers []*domain.Customer
	balances  map[int64]service.CustomerBalance
	err       error
}

type customerSavedMsg struct {
	name string
	err  error
}

// NewCustomersModel creates a new customers screen model
func NewCustomersModel(a *app.App) tea.Model {
	return &CustomersModel{
		app:      a,
		balances: make(map[int64]service.CustomerBalance),
		loading:  true,
	}
}

// IsCapturingInput returns true when the form is active
func (m *CustomersModel) IsCapturingInput() bool {
	return m.mode == customerModeNew || m.mode == customerModeEdit
}

func (m *CustomersModel) Init() tea.Cmd {
	return m.loadCustomers()
}

func (m *CustomersModel) loadCustomers() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		customers, err := m.app.CustomerRepo.List(ctx, m.showArchived)
		if err != nil {
			return customersDataMsg{err: err}
		}

		balances := make(map[int64]service.CustomerBalance)
		if list, err := m.app.ReportService.GetCustomerBalances(ctx); err == nil {
			for _, b := range list {
				balances[b.CustomerID] = b
			}
		}

		return customersDataMsg{
			customers: customers,
			balances:  balances,
		}
	}
}

func (m *CustomersModel) initForm(editing *domain.Customer) {
	m.fields = make([]textinput.Model, fieldCount)

	m.fields[fieldName] = textinput.New()
	m.fields[fieldName].Placeholder = "Customer name"
	m.fields[fieldName].CharLimit = 100
	m.fields[fieldName].Width = 40

	m.fields[fieldEmail] = textinput.New()
	m.fields[fieldEmail].Placeholder = "billing@example.com"
	m.fields[fieldEmail].CharLimit = 100
	m.fields[fieldEmail].Width = 40

	m.fields[fieldPhone] = textinput.New()
	m.fields[fieldPhone].Placeholder = "+1 555 0100"
	m.fields[fieldPhone].CharLimit = 30
	m.fields[fieldPhone].Width = 20

	m.fields[fieldAddress] = textinput.New()
	m.fields[fieldAddress].Placeholder = "Billing address"
	m.fields[fieldAddress].CharLimit = 200
	m.fields[fieldAddress].Width = 60

	m.fields[fieldNotes] = textinput.New()
	m.fields[fieldNotes].Placeholder = "Optional notes"
	m.fields[fieldNotes].CharLimit = 200
	m.fields[fieldNotes].Width = 50

	if editing != nil {
		m.fields[fieldName].SetValue(editing.Name)
		m.fields[fieldEmail].SetValue(editing.Email)
		m.fields[fieldPhone].SetValue(editing.Phone)
		m.fields[fieldAddress].SetValue(editing.Address)
		m.fields[fieldNotes].SetValue(editing.Notes)
		m.editingID = editing.ID
	} else {
		m.editingID = 0
	}

	m.fieldFocus = fieldName
	m.fields[fieldName].Focus()
}

func (m *CustomersModel) saveCustomer() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		name := strings.TrimSpace(m.fields[fieldName].Value())
		if name == "" {
			return customerSavedMsg{err: fmt.Errorf("name is required")}
		}

		if m.editingID > 0 {
			customer, err := m.app.CustomerRepo.GetByID(ctx, m.editingID)
			if err != nil {
				return customerSavedMsg{err: err}
			}
			customer.Name = name
			customer.Email = m.fields[fieldEmail].Value()
			customer.Phone = m.fields[fieldPhone].Value()
			customer.Address = m.fields[fieldAddress].Value()
			customer.Notes = m.fields[fieldNotes].Value()
			customer.UpdatedAt = time.Now()

			if err := m.app.CustomerRepo.Update(ctx, customer); err != nil {
				return customerSavedMsg{err: err}
			}
			return customerSavedMsg{name: name}
		}

		customer := domain.NewCustomer(name)
		customer.Email = m.fields[fieldEmail].Value()
		customer.Phone = m.fields[fieldPhone].Value()
		customer.Address = m.fields[fieldAddress].Value()
		customer.Notes = m.fields[fieldNotes].Value()

		if err := m.app.CustomerRepo.Create(ctx, customer); err != nil {
			return customerSavedMsg{err: err}
		}
		return customerSavedMsg{name: name}
	}
}

func (m *CustomersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle OpenNewCustomerFormMsg at the top so it works regardless of mode
	if _, ok := msg.(OpenNewCustomerFormMsg); ok {
		if m.loading {
			m.autoNewCustomer = true
			return m, nil
		}
		m.mode = customerModeNew
		m.initForm(nil)
		return m, m.fields[fieldName].Focus()
	}

	if m.mode == customerModeNew || m.mode == customerModeEdit {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadCustomers()

	case customersDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.customers = msg.customers
			m.balances = msg.balances
			if m.cursor >= len(m.customers) {
				m.cursor = max(0, len(m.customers)-1)
			}
		}
		if m.autoNewCustomer {
			m.autoNewCustomer = false
			m.mode = customerModeNew
			m.initForm(nil)
			return m, m.fields[fieldName].Focus()
		}
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		m.statusMsg = ""
		m.err = nil

		switch {
		case key.Matches(msg, DefaultKeyMap.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, DefaultKeyMap.Down):
			if m.cursor < len(m.customers)-1 {
				m.cursor++
			}
		case key.Matches(msg, DefaultKeyMap.New):
			m.mode = customerModeNew
			m.initForm(nil)
			return m, m.fields[fieldName].Focus()
		case key.Matches(msg, DefaultKeyMap.Select):
			if len(m.customers) > 0 && m.cursor < len(m.customers) {
				m.mode = customerModeEdit
				m.initForm(m.customers[m.cursor])
				return m, m.fields[fieldName].Focus()
			}
		case msg.String() == "a":
			if len(m.customers) > 0 && m.cursor < len(m.customers) {
				return m, m.toggleArchive()
			}
		case msg.String() == "z":
			m.showArchived = !m.showArchived
			m.cursor = 0
			m.loading = true
			return m, m.loadCustomers()
		case msg.String() == "b":
			// Bill the selected customer: point the draft at them
			if len(m.customers) > 0 && m.cursor < len(m.customers) {
				return m, m.billCustomer(m.customers[m.cursor])
			}
		}
	}

	return m, nil
}

func (m *CustomersModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case customerSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = customerModeList
		m.statusMsg = fmt.Sprintf("Saved: %s", msg.name)
		m.loading = true
		return m, m.loadCustomers()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.mode = customerModeList
			m.err = nil
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % fieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + fieldCount) % fieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == fieldCount-1 {
				return m, m.saveCustomer()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.saveCustomer()
		}
	}

	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *CustomersModel) toggleArchive() tea.Cmd {
	customer := m.customers[m.cursor]
	return func() tea.Msg {
		ctx := context.Background()

		var err error
		if customer.IsArchived {
			err = m.app.CustomerRepo.Unarchive(ctx, customer.ID)
		} else {
			err = m.app.CustomerRepo.Archive(ctx, customer.ID)
		}
		if err != nil {
			return customersDataMsg{err: err}
		}

		return m.loadCustomers()()
	}
}

func (m *CustomersModel) billCustomer(customer *domain.Customer) tea.Cmd {
	return func() tea.Msg {
		if err := m.app.DraftService.SetCustomer(context.Background(), customer.ID); err != nil {
			return ErrorMsg{Err: err}
		}
		return SwitchScreenMsg{Screen: ScreenDraft}
	}
}

func (m *CustomersModel) View() string {
	if m.mode == customerModeNew || m.mode == customerModeEdit {
		return m.viewForm()
	}
	return m.viewList()
}

func (m *CustomersModel) viewForm() string {
	var s string

	if m.mode == customerModeNew {
		if len(m.customers) == 0 {
			s += titleStyle.Render("Welcome to invoicedesk!") + "\n"
			s += subtitleStyle.Render("  Add your first customer to get started.") + "\n\n"
		} else {
			s += titleStyle.Render("New Customer") + "\n\n"
		}
	} else {
		s += titleStyle.Render("Edit Customer") + "\n\n"
	}

	labels := []string{"Name:", "Email:", "Phone:", "Address:", "Notes:"}
	for i, label := range labels {
		indicator := "  "
		if i == m.fieldFocus {
			indicator = "> "
		}
		labelStyle := subtitleStyle
		if i == m.fieldFocus {
			labelStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
		}
		s += fmt.Sprintf("%s%s\n  %s\n\n", indicator, labelStyle.Render(label), m.fields[i].View())
	}

	if m.err != nil {
		s += lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	s += helpStyle.Render("  tab/shift+tab: navigate fields  ctrl+s: save  enter: next/save  esc: cancel")

	return s
}

func (m *CustomersModel) viewList() string {
	if m.loading {
		return "Loading customers..."
	}

	if m.err != nil {
		return lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	var s string

	header := "Customers"
	if m.showArchived {
		header += subtitleStyle.Render("  (showing archived)")
	}
	s += titleStyle.Render(header) + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).
			Render("  "+m.statusMsg) + "\n\n"
	}

	if len(m.customers) == 0 {
		s += subtitleStyle.Render("  No customers yet. Press 'n' to add one.") + "\n"
		s += subtitleStyle.Render("  Press 'z' to toggle archived customers") + "\n"
		return s
	}

	for i, customer := range m.customers {
		s += m.renderCustomer(i, customer) + "\n"
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  n: new  enter: edit  b: bill (set on draft)  a: archive/unarchive  z: toggle archived")

	return s
}

func (m *CustomersModel) renderCustomer(index int, customer *domain.Customer) string {
	selected := index == m.cursor

	name := customer.Name
	if customer.IsArchived {
		name += " (archived)"
	}

	balance := "Nothing outstanding"
	if b, ok := m.balances[customer.ID]; ok {
		balance = fmt.Sprintf("Outstanding: %s on %d invoice(s)", formatMoney(b.Outstanding), b.InvoiceCount)
	}

	contact := strings.TrimSpace(strings.Join([]string{customer.Email, customer.Phone}, "  "))
	if contact == "" && customer.Notes != "" {
		contact = truncateStr(customer.Notes, 40)
	}

	indicator := "  "
	if selected {
		indicator = "> "
	}

	line1 := fmt.Sprintf("%s%s", indicator, name)
	line2 := fmt.Sprintf("    %s", balance)
	var line3 string
	if contact != "" {
		line3 = fmt.Sprintf("    %s", contact)
	}

	nameStyle := lipgloss.NewStyle()
	detailStyle := subtitleStyle
	if customer.IsArchived {
		nameStyle = nameStyle.Foreground(mutedColor)
		detailStyle = lipgloss.NewStyle().Foreground(mutedColor)
	}
	if selected {
		nameStyle = nameStyle.Bold(true).Foreground(primaryColor)
	}

	result := nameStyle.Render(line1) + "\n" + detailStyle.Render(line2)
	if line3 != "" {
		result += "\n" + detailStyle.Render(line3)
	}

	return result
}
