package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andy/invoicedesk/internal/app"
	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/service"
)

// DashboardModel represents the dashboard home screen
type DashboardModel struct {
	app *app.App

	// Data
	summary        *service.SalesSummary
	draft          *draft.Manager
	lowStock       []*domain.Product
	recentInvoices []*domain.Invoice

	loading bool
	err     error
}

type dashboardDataMsg struct {
	summary        *service.SalesSummary
	draft          *draft.Manager
	lowStock       []*domain.Product
	recentInvoices []*domain.Invoice
	err            error
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(a *app.App) tea.Model {
	return &DashboardModel{
		app:     a,
		loading: true,
	}
}

func (m *DashboardModel) Init() tea.Cmd {
	return m.loadData()
}

func (m *DashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var msg dashboardDataMsg

		summary, err := m.app.ReportService.GetSalesSummary(ctx)
		if err != nil {
			msg.err = fmt.Errorf("sales summary: %w", err)
			return msg
		}
		msg.summary = summary

		d, err := m.app.DraftService.Current(ctx)
		if err != nil && !errors.Is(err, service.ErrNoActiveDraft) {
			msg.err = fmt.Errorf("draft: %w", err)
			return msg
		}
		msg.draft = d

		msg.lowStock, _ = m.app.ReportService.GetLowStock(ctx)

		invoices, err := m.app.InvoiceService.ListInvoices(ctx, nil, nil)
		if err == nil {
			if len(invoices) > 6 {
				invoices = invoices[:6]
			}
			msg.recentInvoices = invoices
		}

		return msg
	}
}

func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.summary = msg.summary
		m.draft = msg.draft
		m.lowStock = msg.lowStock
		m.recentInvoices = msg.recentInvoices
		return m, nil

	case RefreshDataMsg:
		m.loading = true
		return m, m.loadData()
	}

	return m, nil
}

func (m *DashboardModel) View() string {
	if m.loading {
		return "Loading dashboard..."
	}

	if m.err != nil {
		return lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	var s string

	sm := m.summary
	s += fmt.Sprintf(
		"  Invoiced:  %-14s  Outstanding:  %s\n  Paid:      %-14s  Overdue:      %d invoice(s)\n",
		formatMoney(sm.InvoicedTotal),
		formatMoney(sm.OutstandingTotal),
		formatMoney(sm.PaidTotal),
		sm.OverdueCount,
	)

	s += "\n" + m.renderDraft()
	s += "\n" + m.renderLowStock()
	s += "\n" + m.renderRecentInvoices()

	return s
}

func (m *DashboardModel) renderDraft() string {
	if m.draft == nil {
		return subtitleStyle.Render("  No draft in progress. Press 'd' to start one.") + "\n"
	}

	h := m.draft.Header()
	customer := h.CustomerName
	if customer == "" {
		customer = "no customer"
	}
	totals := m.draft.Totals()

	s := fmt.Sprintf("  Draft  %s  %s - %d item(s)  %s\n",
		draftStateStyle.Render(string(m.draft.State())),
		customer,
		len(m.draft.Items()),
		totalStyle.Render(formatMoney(totals.TotalAmount)),
	)
	if v := m.draft.Violations(); len(v) > 0 {
		s += violationStyle.Render(fmt.Sprintf("  %d stock problem(s) to fix before submitting", len(v))) + "\n"
	}
	return s
}

func (m *DashboardModel) renderLowStock() string {
	header := "  Low Stock\n"
	if len(m.lowStock) == 0 {
		return header + subtitleStyle.Render("  All tracked products are stocked") + "\n"
	}

	s := header
	for _, p := range m.lowStock {
		s += lowStockStyle.Render(fmt.Sprintf("  %-14s %-30s %5d left",
			truncateStr(p.SKU, 14),
			truncateStr(p.Name, 30),
			p.CurrentStock,
		)) + "\n"
	}
	return s
}

func (m *DashboardModel) renderRecentInvoices() string {
	header := "  Recent Invoices\n"
	if len(m.recentInvoices) == 0 {
		return header + subtitleStyle.Render("  No invoices yet") + "\n"
	}

	s := header
	for _, inv := range m.recentInvoices {
		s += fmt.Sprintf("  %-7s %-16s %-20s %12s  %s\n",
			inv.IssueDate.Format("Jan 2"),
			inv.InvoiceNumber,
			truncateStr(inv.CustomerName, 20),
			formatMoney(inv.TotalAmount),
			statusBadge(inv.Status),
		)
	}
	return s
}
