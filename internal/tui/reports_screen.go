package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/app"
	"github.com/andy/invoicedesk/internal/service"
)

// ReportsModel displays sales, receivables and revenue reports
type ReportsModel struct {
	app         *app.App
	revenueYear int

	summary  *service.SalesSummary
	balances []service.CustomerBalance
	monthly  map[time.Month]decimal.Decimal

	cursor  int // Selected customer balance row
	loading bool
	err     error
}

type reportsDataMsg struct {
	summary  *service.SalesSummary
	balances []service.CustomerBalance
	monthly  map[time.Month]decimal.Decimal
	err      error
}

// NewReportsModel creates a new reports screen model
func NewReportsModel(a *app.App) tea.Model {
	return &ReportsModel{
		app:         a,
		revenueYear: time.Now().Year(),
		loading:     true,
	}
}

func (m *ReportsModel) Init() tea.Cmd {
	return m.loadData()
}

func (m *ReportsModel) loadData() tea.Cmd {
	year := m.revenueYear
	return func() tea.Msg {
		ctx := context.Background()
		var msg reportsDataMsg

		msg.summary, msg.err = m.app.ReportService.GetSalesSummary(ctx)
		if msg.err != nil {
			return msg
		}
		msg.balances, msg.err = m.app.ReportService.GetCustomerBalances(ctx)
		if msg.err != nil {
			return msg
		}
		msg.monthly, msg.err = m.app.ReportService.GetRevenueByMonth(ctx, year)
		return msg
	}
}

func (m *ReportsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadData()

	case reportsDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.summary = msg.summary
			m.balances = msg.balances
			m.monthly = msg.monthly
			if m.cursor >= len(m.balances) {
				m.cursor = max(0, len(m.balances)-1)
			}
		}
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		switch {
		case key.Matches(msg, DefaultKeyMap.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, DefaultKeyMap.Down):
			if m.cursor < len(m.balances)-1 {
				m.cursor++
			}

		case key.Matches(msg, DefaultKeyMap.Select):
			if len(m.balances) > 0 {
				b := m.balances[m.cursor]
				if err := m.app.DraftService.SetCustomer(context.Background(), b.CustomerID); err != nil {
					m.err = err
					return m, nil
				}
				return m, func() tea.Msg { return SwitchScreenMsg{Screen: ScreenDraft} }
			}

		case msg.String() == "[":
			m.revenueYear--
			m.loading = true
			return m, m.loadData()

		case msg.String() == "]":
			if m.revenueYear < time.Now().Year() {
				m.revenueYear++
				m.loading = true
				return m, m.loadData()
			}
		}
	}

	return m, nil
}

func (m *ReportsModel) View() string {
	if m.loading {
		return titleStyle.Render("Reports") + "\n\n  Loading..."
	}

	var s string
	s += titleStyle.Render("Reports") + "\n\n"

	if m.err != nil {
		s += lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	s += m.renderSummary()
	s += "\n"
	s += m.renderBalances()
	s += "\n"
	s += m.renderMonthlyRevenue()

	s += "\n" + helpStyle.Render("  j/k: select customer  enter: bill customer  [/]: prev/next year")

	return s
}

func (m *ReportsModel) renderSummary() string {
	sum := m.summary
	if sum == nil {
		return ""
	}

	s := lipgloss.NewStyle().Bold(true).Render("  Financial Overview") + "\n"
	s += fmt.Sprintf("    Invoices:    %d\n", sum.InvoiceCount)
	s += fmt.Sprintf("    Invoiced:    %s\n", formatMoney(sum.InvoicedTotal))
	s += fmt.Sprintf("    Paid:        %s\n", formatMoney(sum.PaidTotal))
	s += fmt.Sprintf("    Outstanding: %s\n", formatMoney(sum.OutstandingTotal))
	if sum.OverdueCount > 0 {
		s += "    " + lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Overdue:     %d", sum.OverdueCount)) + "\n"
	}
	return s
}

func (m *ReportsModel) renderBalances() string {
	s := lipgloss.NewStyle().Bold(true).Render("  Outstanding by Customer") + "\n"
	if len(m.balances) == 0 {
		return s + subtitleStyle.Render("    Nothing outstanding") + "\n"
	}

	for i, b := range m.balances {
		line := fmt.Sprintf("    %-24s  %14s  %s",
			truncateStr(b.CustomerName, 24),
			formatMoney(b.Outstanding),
			subtitleStyle.Render(fmt.Sprintf("%d invoice(s)", b.InvoiceCount)),
		)
		if i == m.cursor {
			s += selectedStyle.Render(line) + "\n"
		} else {
			s += line + "\n"
		}
	}
	return s
}

func (m *ReportsModel) renderMonthlyRevenue() string {
	s := lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("  Revenue by Month (%d)", m.revenueYear),
	) + "\n"

	peak := decimal.Zero
	yearTotal := decimal.Zero
	for _, revenue := range m.monthly {
		peak = decimal.Max(peak, revenue)
		yearTotal = yearTotal.Add(revenue)
	}

	if !yearTotal.IsPositive() {
		return s + subtitleStyle.Render("    No payments recorded") + "\n"
	}

	const maxBar = 25
	barStyle := lipgloss.NewStyle().Foreground(primaryColor)
	for month := time.January; month <= time.December; month++ {
		revenue := m.monthly[month]
		barLen := int(revenue.Div(peak).Mul(decimal.NewFromInt(maxBar)).IntPart())
		s += fmt.Sprintf("    %-4s %s %s\n",
			month.String()[:3],
			barStyle.Render(fmt.Sprintf("%-25s", strings.Repeat("█", barLen))),
			formatMoney(revenue),
		)
	}

	s += "    " + lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("%-4s %25s %s", "Total", "", formatMoney(yearTotal)),
	) + "\n"

	return s
}
