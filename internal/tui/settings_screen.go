package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/app"
)

type settingsMode int

const (
	settingsModeView settingsMode = iota
	settingsModeEdit
)

// settings form field indices
const (
	settingsFieldPrefix = iota
	settingsFieldDueDays
	settingsFieldTaxRate
	settingsFieldServiceRate
	settingsFieldLowStock
	settingsFieldSellerName
	settingsFieldSellerEmail
	settingsFieldCount
)

var settingsLabels = []string{
	"Number Prefix:",
	"Default Due Days:",
	"Tax Rate (%):",
	"Service Charge (%):",
	"Low Stock Threshold:",
	"Seller Name:",
	"Seller Email:",
}

type settingsSavedMsg struct {
	err error
}

// SettingsModel manages the settings screen
type SettingsModel struct {
	app        *app.App
	mode       settingsMode
	fields     []textinput.Model
	fieldFocus int
	err        error
	statusMsg  string
}

// NewSettingsModel creates a new settings screen
func NewSettingsModel(a *app.App) tea.Model {
	return &SettingsModel{
		app:  a,
		mode: settingsModeView,
	}
}

// IsCapturingInput returns true when the edit form is active
func (m *SettingsModel) IsCapturingInput() bool {
	return m.mode == settingsModeEdit
}

func (m *SettingsModel) Init() tea.Cmd {
	return nil
}

func (m *SettingsModel) initForm() {
	cfg := m.app.Config
	values := []string{
		cfg.Invoice.NumberPrefix,
		strconv.Itoa(cfg.Invoice.DefaultDueDays),
		cfg.Invoice.DefaultTaxRate.String(),
		cfg.Invoice.DefaultServiceChargeRate.String(),
		strconv.Itoa(cfg.Invoice.LowStockThreshold),
		cfg.Seller.Name,
		cfg.Seller.Email,
	}
	placeholders := []string{"INV", "30", "0", "0", "5", "Acme Supplies", "billing@example.com"}

	m.fields = make([]textinput.Model, settingsFieldCount)
	for i := range m.fields {
		m.fields[i] = textinput.New()
		m.fields[i].Placeholder = placeholders[i]
		m.fields[i].CharLimit = 64
		m.fields[i].Width = 40
		m.fields[i].SetValue(values[i])
	}
	m.fields[settingsFieldPrefix].CharLimit = 16

	m.fieldFocus = settingsFieldPrefix
	m.fields[settingsFieldPrefix].Focus()
}

func (m *SettingsModel) saveSettings() tea.Cmd {
	return func() tea.Msg {
		value := func(i int) string { return strings.TrimSpace(m.fields[i].Value()) }

		dueDays, err := strconv.Atoi(value(settingsFieldDueDays))
		if err != nil {
			return settingsSavedMsg{err: fmt.Errorf("due days must be a whole number")}
		}
		taxRate, err := decimal.NewFromString(value(settingsFieldTaxRate))
		if err != nil {
			return settingsSavedMsg{err: fmt.Errorf("tax rate must be a number")}
		}
		serviceRate, err := decimal.NewFromString(value(settingsFieldServiceRate))
		if err != nil {
			return settingsSavedMsg{err: fmt.Errorf("service charge rate must be a number")}
		}
		lowStock, err := strconv.Atoi(value(settingsFieldLowStock))
		if err != nil {
			return settingsSavedMsg{err: fmt.Errorf("low stock threshold must be a whole number")}
		}

		// Validate a copy so a rejected form leaves the live config alone
		cfg := *m.app.Config
		cfg.Invoice.NumberPrefix = value(settingsFieldPrefix)
		cfg.Invoice.DefaultDueDays = dueDays
		cfg.Invoice.DefaultTaxRate = taxRate
		cfg.Invoice.DefaultServiceChargeRate = serviceRate
		cfg.Invoice.LowStockThreshold = lowStock
		cfg.Seller.Name = value(settingsFieldSellerName)
		cfg.Seller.Email = value(settingsFieldSellerEmail)
		if err := cfg.Validate(); err != nil {
			return settingsSavedMsg{err: err}
		}

		*m.app.Config = cfg
		if err := m.app.SaveConfig(); err != nil {
			return settingsSavedMsg{err: fmt.Errorf("failed to save config: %w", err)}
		}

		return settingsSavedMsg{}
	}
}

func (m *SettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.mode == settingsModeEdit {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.err = nil
		if msg.String() == "enter" {
			m.mode = settingsModeEdit
			m.statusMsg = ""
			m.initForm()
			return m, m.fields[m.fieldFocus].Focus()
		}
	}

	return m, nil
}

func (m *SettingsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case settingsSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = settingsModeView
		m.statusMsg = "Settings saved. New defaults take effect on restart."
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.mode = settingsModeView
			m.err = nil
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % settingsFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + settingsFieldCount) % settingsFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == settingsFieldCount-1 {
				return m, m.saveSettings()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.saveSettings()
		}
	}

	// Update the focused text input
	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *SettingsModel) View() string {
	if m.mode == settingsModeEdit {
		return m.viewForm()
	}
	return m.viewSettings()
}

func (m *SettingsModel) viewSettings() string {
	var s string
	s += titleStyle.Render("Settings") + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).
			Render("  "+m.statusMsg) + "\n\n"
	}

	cfg := m.app.Config

	labelStyle := lipgloss.NewStyle().Bold(true).Width(22)
	valueStyle := lipgloss.NewStyle().Foreground(primaryColor)
	row := func(label, value string) string {
		if value == "" {
			return fmt.Sprintf("  %s %s\n", labelStyle.Render(label), subtitleStyle.Render("(not set)"))
		}
		return fmt.Sprintf("  %s %s\n", labelStyle.Render(label), valueStyle.Render(value))
	}

	s += subtitleStyle.Render("  Invoice Settings") + "\n\n"
	s += row("Number Prefix:", cfg.Invoice.NumberPrefix)
	s += row("Default Due Days:", strconv.Itoa(cfg.Invoice.DefaultDueDays))
	s += row("Default Tax Rate:", cfg.Invoice.DefaultTaxRate.StringFixed(2)+"%")
	s += row("Default Service:", cfg.Invoice.DefaultServiceChargeRate.StringFixed(2)+"%")
	s += row("Low Stock Threshold:", strconv.Itoa(cfg.Invoice.LowStockThreshold))

	s += "\n" + subtitleStyle.Render("  Seller") + "\n\n"
	s += row("Name:", cfg.Seller.Name)
	s += row("Email:", cfg.Seller.Email)

	s += "\n" + subtitleStyle.Render("  Database") + "\n\n"
	s += row("Path:", cfg.Database.Path)

	s += "\n" + helpStyle.Render("  enter: edit settings")

	return s
}

func (m *SettingsModel) viewForm() string {
	var s string
	s += titleStyle.Render("Edit Settings") + "\n\n"

	for i, label := range settingsLabels {
		indicator := "  "
		labelStyle := subtitleStyle
		if i == m.fieldFocus {
			indicator = "> "
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
