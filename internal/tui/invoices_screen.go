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
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/app"
	"github.com/andy/invoicedesk/internal/domain"
)

type invoiceViewMode int

const (
	invoiceViewList    invoiceViewMode = iota
	invoiceViewDetail                  // Viewing a single invoice
	invoiceViewPayment                 // Entering a payment amount
)

// statusFilters is the cycle order of the list filter; nil shows everything
var statusFilters = []*domain.InvoiceStatus{
	nil,
	statusPtr(domain.InvoiceStatusFinalized),
	statusPtr(domain.InvoiceStatusSent),
	statusPtr(domain.InvoiceStatusOverdue),
	statusPtr(domain.InvoiceStatusPaid),
}

func statusPtr(s domain.InvoiceStatus) *domain.InvoiceStatus { return &s }

// InvoicesModel displays invoices in list and detail views
type InvoicesModel struct {
	app       *app.App
	mode      invoiceViewMode
	invoices  []*domain.Invoice
	cursor    int
	filter    int
	selected  *domain.Invoice
	loading   bool
	err       error
	statusMsg string

	amountInput textinput.Model
}

// IsCapturingInput returns true when the payment input is active
func (m *InvoicesModel) IsCapturingInput() bool {
	return m.mode == invoiceViewPayment
}

type invoicesDataMsg struct {
	invoices []*domain.Invoice
	status   string
	err      error
}

type invoiceDetailMsg struct {
	invoice *domain.Invoice
	status  string
	err     error
}

// NewInvoicesModel creates a new invoices screen model
func NewInvoicesModel(a *app.App) tea.Model {
	return &InvoicesModel{
		app:     a,
		mode:    invoiceViewList,
		loading: true,
	}
}

func (m *InvoicesModel) Init() tea.Cmd {
	return m.loadInvoices()
}

func (m *InvoicesModel) loadInvoices() tea.Cmd {
	status := statusFilters[m.filter]
	return func() tea.Msg {
		invoices, err := m.app.InvoiceService.ListInvoices(context.Background(), nil, status)
		return invoicesDataMsg{invoices: invoices, err: err}
	}
}

func (m *InvoicesModel) loadDetail(id int64, status string) tea.Cmd {
	return func() tea.Msg {
		invoice, err := m.app.InvoiceService.GetInvoice(context.Background(), id)
		return invoiceDetailMsg{invoice: invoice, status: status, err: err}
	}
}

// act runs a lifecycle action on the selected invoice and reloads it
func (m *InvoicesModel) act(status string, fn func(ctx context.Context, id int64) error) tea.Cmd {
	id := m.selected.ID
	return func() tea.Msg {
		if err := fn(context.Background(), id); err != nil {
			return invoiceDetailMsg{err: err}
		}
		return m.loadDetail(id, status)()
	}
}

func (m *InvoicesModel) checkOverdue() tea.Cmd {
	return func() tea.Msg {
		n, err := m.app.InvoiceService.CheckOverdue(context.Background())
		if err != nil {
			return invoicesDataMsg{err: err}
		}
		msg := m.loadInvoices()().(invoicesDataMsg)
		msg.status = fmt.Sprintf("%d invoice(s) marked overdue", n)
		return msg
	}
}

func (m *InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadInvoices()

	case invoicesDataMsg:
		m.loading = false
		m.err = msg.err
		m.invoices = msg.invoices
		if msg.err == nil {
			m.statusMsg = msg.status
		}
		if m.cursor >= len(m.invoices) {
			m.cursor = max(0, len(m.invoices)-1)
		}
		return m, nil

	case invoiceDetailMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			if m.mode == invoiceViewPayment {
				m.mode = invoiceViewDetail
			}
			return m, nil
		}
		m.selected = msg.invoice
		m.statusMsg = msg.status
		m.mode = invoiceViewDetail
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		switch m.mode {
		case invoiceViewList:
			return m.updateList(msg)
		case invoiceViewDetail:
			return m.updateDetail(msg)
		case invoiceViewPayment:
			return m.updatePayment(msg)
		}
	}

	// Forward all non-key messages to the amount input (for cursor blink, etc.)
	if m.mode == invoiceViewPayment {
		var cmd tea.Cmd
		m.amountInput, cmd = m.amountInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *InvoicesModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil

	switch {
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.cursor < len(m.invoices)-1 {
			m.cursor++
		}
	case key.Matches(msg, DefaultKeyMap.Select):
		if len(m.invoices) > 0 {
			m.loading = true
			m.statusMsg = ""
			return m, m.loadDetail(m.invoices[m.cursor].ID, "")
		}
	case msg.String() == "tab":
		m.filter = (m.filter + 1) % len(statusFilters)
		m.cursor = 0
		m.loading = true
		return m, m.loadInvoices()
	case msg.String() == "o":
		m.loading = true
		return m, m.checkOverdue()
	}

	return m, nil
}

func (m *InvoicesModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	svc := m.app.InvoiceService

	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		m.mode = invoiceViewList
		m.selected = nil
		m.statusMsg = ""
		m.loading = true
		return m, m.loadInvoices()
	case msg.String() == "f":
		return m, m.act("Invoice finalized", svc.Finalize)
	case msg.String() == "s":
		return m, m.act("Invoice marked as sent", svc.MarkSent)
	case msg.String() == "$":
		m.amountInput = textinput.New()
		m.amountInput.Placeholder = "0.00"
		m.amountInput.CharLimit = 20
		m.amountInput.Width = 20
		m.amountInput.SetValue(m.selected.RemainingAmount.StringFixed(2))
		m.mode = invoiceViewPayment
		return m, m.amountInput.Focus()
	}
	return m, nil
}

func (m *InvoicesModel) updatePayment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = invoiceViewDetail
		m.err = nil
		return m, nil
	case "enter":
		amount, err := decimal.NewFromString(strings.TrimSpace(m.amountInput.Value()))
		if err != nil {
			m.err = fmt.Errorf("amount: not a number")
			return m, nil
		}
		id := m.selected.ID
		return m, func() tea.Msg {
			inv, err := m.app.InvoiceService.RecordPayment(context.Background(), id, amount, time.Now())
			if err != nil {
				return invoiceDetailMsg{err: err}
			}
			return invoiceDetailMsg{invoice: inv, status: fmt.Sprintf("Payment of %s recorded", formatMoney(amount))}
		}
	}

	var cmd tea.Cmd
	m.amountInput, cmd = m.amountInput.Update(msg)
	return m, cmd
}

func (m *InvoicesModel) View() string {
	if m.loading {
		return "Loading..."
	}

	switch m.mode {
	case invoiceViewDetail, invoiceViewPayment:
		return m.viewDetail()
	default:
		return m.viewList()
	}
}

func (m *InvoicesModel) viewList() string {
	var s string
	title := "Invoices"
	if f := statusFilters[m.filter]; f != nil {
		title += subtitleStyle.Render(fmt.Sprintf("  (%s only)", *f))
	}
	s += titleStyle.Render(title) + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).
			Render("  "+m.statusMsg) + "\n\n"
	}

	if m.err != nil {
		s += lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	if len(m.invoices) == 0 && m.err == nil {
		s += subtitleStyle.Render("  No invoices. Submit a draft (d) to create one.") + "\n"
		s += "\n" + helpStyle.Render("  tab: filter by status")
		return s
	}

	s += subtitleStyle.Render(fmt.Sprintf(
		"  %-16s  %-22s  %-12s  %12s  %12s  %s",
		"Number", "Customer", "Due", "Total", "Remaining", "Status",
	)) + "\n"

	for i, inv := range m.invoices {
		invLine := fmt.Sprintf("  %-16s  %-22s  %-12s  %12s  %12s  %s",
			inv.InvoiceNumber,
			truncateStr(inv.CustomerName, 22),
			inv.DueDate.Format("Jan 02, 2006"),
			formatMoney(inv.TotalAmount),
			formatMoney(inv.RemainingAmount),
			statusBadge(inv.Status),
		)

		if i == m.cursor {
			s += selectedStyle.Render(invLine) + "\n"
		} else {
			s += invLine + "\n"
		}
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  enter: view detail  tab: filter by status  o: check overdue")

	return s
}

func (m *InvoicesModel) viewDetail() string {
	inv := m.selected
	if inv == nil {
		return "No invoice selected"
	}

	var s string

	s += titleStyle.Render(fmt.Sprintf("Invoice %s", inv.InvoiceNumber)) + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).
			Render("  "+m.statusMsg) + "\n\n"
	}

	s += fmt.Sprintf("  Customer:  %s\n", inv.CustomerName)
	if inv.ProjectName != "" {
		s += fmt.Sprintf("  Project:   %s\n", inv.ProjectName)
	}
	if inv.QuotationRef != "" {
		s += fmt.Sprintf("  Quotation: %s\n", inv.QuotationRef)
	}
	s += fmt.Sprintf("  Issued:    %s\n", inv.IssueDate.Format("Jan 02, 2006"))
	s += fmt.Sprintf("  Due:       %s\n", inv.DueDate.Format("Jan 02, 2006"))
	s += fmt.Sprintf("  Status:    %s\n", statusBadge(inv.Status))
	if inv.PaymentTerms != "" {
		s += fmt.Sprintf("  Payment:   %s\n", inv.PaymentTerms)
	}
	s += "\n"

	if len(inv.Items) == 0 {
		s += subtitleStyle.Render("  No line items") + "\n"
	} else {
		s += subtitleStyle.Render(fmt.Sprintf(
			"  %-12s  %-28s  %5s  %10s  %10s  %12s",
			"SKU", "Product", "Qty", "Price", "Discount", "Total",
		)) + "\n"

		for _, item := range inv.Items {
			s += fmt.Sprintf("  %-12s  %-28s  %5d  %10s  %10s  %12s\n",
				truncateStr(item.SKU, 12),
				truncateStr(item.ProductName, 28),
				item.Quantity,
				formatMoney(item.UnitPrice),
				formatMoney(item.DiscountAmount),
				formatMoney(item.TotalPrice),
			)
		}
	}

	for _, c := range inv.AdditionalTaxes {
		s += subtitleStyle.Render(fmt.Sprintf("  Tax %s (%s)", c.Name, formatRate(c.Rate))) +
			fmt.Sprintf("  %s\n", formatMoney(c.Amount))
	}
	for _, c := range inv.AdditionalServiceCharges {
		s += subtitleStyle.Render(fmt.Sprintf("  Service %s (%s)", c.Name, formatRate(c.Rate))) +
			fmt.Sprintf("  %s\n", formatMoney(c.Amount))
	}

	s += "\n"
	s += fmt.Sprintf("  Subtotal:         %12s\n", formatMoney(inv.Subtotal))
	s += fmt.Sprintf("  Tax:              %12s\n", formatMoney(inv.TotalTaxAmount))
	s += fmt.Sprintf("  Service charges:  %12s\n", formatMoney(inv.TotalServiceChargeAmount))
	s += lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("  Total:            %12s", formatMoney(inv.TotalAmount)),
	) + "\n"
	s += fmt.Sprintf("  Paid:             %12s\n", formatMoney(inv.PaidAmount))
	s += fmt.Sprintf("  Remaining:        %12s\n", formatMoney(inv.RemainingAmount))

	if m.mode == invoiceViewPayment {
		s += "\n" + lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render("  Payment amount:") + "\n"
		s += "  " + m.amountInput.View() + "\n"
	}

	if m.err != nil {
		s += "\n" + lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
	}

	if m.mode == invoiceViewPayment {
		s += "\n" + helpStyle.Render("  enter: record payment  esc: cancel")
	} else {
		s += "\n" + helpStyle.Render("  f: finalize  s: mark sent  $: record payment  esc: back to list")
	}

	return s
}

// statusBadge renders an invoice status with color
func statusBadge(status domain.InvoiceStatus) string {
	switch status {
	case domain.InvoiceStatusDraft:
		return lipgloss.NewStyle().Foreground(mutedColor).Render("DRAFT")
	case domain.InvoiceStatusFinalized:
		return lipgloss.NewStyle().Foreground(primaryColor).Render("FINALIZED")
	case domain.InvoiceStatusSent:
		return lipgloss.NewStyle().Foreground(warningColor).Render("SENT")
	case domain.InvoiceStatusPaid:
		return lipgloss.NewStyle().Foreground(successColor).Render("PAID")
	case domain.InvoiceStatusOverdue:
		return lipgloss.NewStyle().Foreground(errorColor).Render("OVERDUE")
	default:
		return string(status)
	}
}
