package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/app"
	"github.com/andy/invoicedesk/internal/domain"
)

type productMode int

const (
	productModeList productMode = iota
	productModeForm
)

// product form field indices
const (
	productFieldSKU = iota
	productFieldName
	productFieldPrice
	productFieldStock
	productFieldCategory
	productFieldManufacturer
	productFieldModel
	productFieldTracking
	productFieldCount
)

// ProductsModel lists the catalog with stock levels
type ProductsModel struct {
	app       *app.App
	products  []*domain.Product
	cursor    int
	loading   bool
	err       error
	statusMsg string

	mode       productMode
	fields     []textinput.Model
	fieldFocus int
	editing    *domain.Product // nil for a new product
}

type productsDataMsg struct {
	products []*domain.Product
	status   string
	err      error
}

// NewProductsModel creates a new products screen model
func NewProductsModel(a *app.App) tea.Model {
	return &ProductsModel{
		app:     a,
		loading: true,
	}
}

// IsCapturingInput returns true when the form is active
func (m *ProductsModel) IsCapturingInput() bool {
	return m.mode == productModeForm
}

func (m *ProductsModel) Init() tea.Cmd {
	return m.loadProducts("")
}

func (m *ProductsModel) loadProducts(status string) tea.Cmd {
	return func() tea.Msg {
		products, err := m.app.ProductRepo.List(context.Background())
		return productsDataMsg{products: products, status: status, err: err}
	}
}

// parseTracking maps the form's tracking field onto the product flags
func parseTracking(s string) (serial, batch bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "-":
		return false, false, nil
	case "serial":
		return true, false, nil
	case "batch":
		return false, true, nil
	case "both", "serial+batch":
		return true, true, nil
	}
	return false, false, fmt.Errorf("tracking must be none, serial, batch, or both")
}

func trackingLabel(p *domain.Product) string {
	switch {
	case p.IsSerialTracked && p.IsBatchTracked:
		return "both"
	case p.IsSerialTracked:
		return "serial"
	case p.IsBatchTracked:
		return "batch"
	}
	return "none"
}

func (m *ProductsModel) initForm(editing *domain.Product) {
	m.editing = editing
	m.fields = make([]textinput.Model, productFieldCount)

	fieldDefs := []struct {
		placeholder string
		width       int
	}{
		{"SKU", 20},
		{"Product name", 40},
		{"0.00", 15},
		{"0", 10},
		{"Main category", 30},
		{"Manufacturer", 30},
		{"Model number", 30},
		{"none, serial, batch, or both", 30},
	}
	for i, def := range fieldDefs {
		m.fields[i] = textinput.New()
		m.fields[i].Placeholder = def.placeholder
		m.fields[i].CharLimit = 100
		m.fields[i].Width = def.width
	}

	if editing != nil {
		m.fields[productFieldSKU].SetValue(editing.SKU)
		m.fields[productFieldName].SetValue(editing.Name)
		m.fields[productFieldPrice].SetValue(editing.SellingPrice.String())
		m.fields[productFieldStock].SetValue(strconv.Itoa(editing.CurrentStock))
		m.fields[productFieldCategory].SetValue(editing.MainCategoryName)
		m.fields[productFieldManufacturer].SetValue(editing.Manufacturer)
		m.fields[productFieldModel].SetValue(editing.ModelNumber)
		m.fields[productFieldTracking].SetValue(trackingLabel(editing))
	}

	m.fieldFocus = productFieldSKU
	m.fields[productFieldSKU].Focus()
}

func (m *ProductsModel) saveProduct() tea.Cmd {
	value := func(i int) string { return strings.TrimSpace(m.fields[i].Value()) }

	price, err := decimal.NewFromString(value(productFieldPrice))
	if err != nil {
		m.err = fmt.Errorf("price: not a number")
		return nil
	}
	stock, err := strconv.Atoi(value(productFieldStock))
	if err != nil {
		m.err = fmt.Errorf("stock: not a whole number")
		return nil
	}
	serial, batch, err := parseTracking(value(productFieldTracking))
	if err != nil {
		m.err = err
		return nil
	}

	editing := m.editing
	return func() tea.Msg {
		ctx := context.Background()

		p := domain.NewProduct(value(productFieldName), value(productFieldSKU), price)
		if editing != nil {
			p = editing
			p.Name = value(productFieldName)
			p.SKU = value(productFieldSKU)
			p.SellingPrice = price
		}
		p.MainCategoryName = value(productFieldCategory)
		p.Manufacturer = value(productFieldManufacturer)
		p.ModelNumber = value(productFieldModel)
		p.IsSerialTracked = serial
		p.IsBatchTracked = batch

		if editing == nil {
			p.CurrentStock = stock
			if err := m.app.ProductRepo.Create(ctx, p); err != nil {
				return productsDataMsg{err: err}
			}
		} else {
			if err := m.app.ProductRepo.Update(ctx, p); err != nil {
				return productsDataMsg{err: err}
			}
			// Update leaves stock alone; the difference goes through AdjustStock
			if delta := stock - editing.CurrentStock; delta != 0 {
				if err := m.app.ProductRepo.AdjustStock(ctx, p.ID, delta); err != nil {
					return productsDataMsg{err: err}
				}
			}
		}
		return m.loadProducts("Saved: " + p.SKU)()
	}
}

func (m *ProductsModel) adjustStock(p *domain.Product, delta int) tea.Cmd {
	return func() tea.Msg {
		if err := m.app.ProductRepo.AdjustStock(context.Background(), p.ID, delta); err != nil {
			return productsDataMsg{err: err}
		}
		return m.loadProducts("")()
	}
}

func (m *ProductsModel) addToDraft(p *domain.Product) tea.Cmd {
	return func() tea.Msg {
		item, err := m.app.DraftService.AddItem(context.Background(), p.ID, 1)
		if err != nil {
			return productsDataMsg{err: err}
		}
		msg := fmt.Sprintf("Added %s to the draft", item.ProductName)
		if item.IsStockTracked && item.Quantity > item.StockAvailable {
			msg += " (out of stock)"
		}
		return m.loadProducts(msg)()
	}
}

func (m *ProductsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadProducts("")

	case productsDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.mode = productModeList
			m.products = msg.products
			m.statusMsg = msg.status
			if m.cursor >= len(m.products) {
				m.cursor = max(0, len(m.products)-1)
			}
		}
		return m, nil
	}

	if m.mode == productModeForm {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.loading {
		return m, nil
	}

	m.statusMsg = ""
	m.err = nil
	var selected *domain.Product
	if m.cursor < len(m.products) {
		selected = m.products[m.cursor]
	}

	switch {
	case key.Matches(keyMsg, DefaultKeyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, DefaultKeyMap.Down):
		if m.cursor < len(m.products)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, DefaultKeyMap.New):
		m.mode = productModeForm
		m.initForm(nil)
		return m, m.fields[m.fieldFocus].Focus()
	case key.Matches(keyMsg, DefaultKeyMap.Select):
		if selected != nil {
			m.mode = productModeForm
			m.initForm(selected)
			return m, m.fields[m.fieldFocus].Focus()
		}
	case key.Matches(keyMsg, DefaultKeyMap.Inc):
		if selected != nil {
			return m, m.adjustStock(selected, 1)
		}
	case key.Matches(keyMsg, DefaultKeyMap.Dec):
		if selected != nil {
			return m, m.adjustStock(selected, -1)
		}
	case keyMsg.String() == "a":
		if selected != nil {
			return m, m.addToDraft(selected)
		}
	}

	return m, nil
}

func (m *ProductsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.mode = productModeList
			m.err = nil
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % productFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + productFieldCount) % productFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == productFieldCount-1 {
				return m, m.saveProduct()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.saveProduct()
		}
	}

	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *ProductsModel) View() string {
	if m.mode == productModeForm {
		return m.viewForm()
	}
	return m.viewList()
}

func (m *ProductsModel) viewForm() string {
	var s string
	if m.editing == nil {
		s += titleStyle.Render("New Product") + "\n\n"
	} else {
		s += titleStyle.Render("Edit Product") + "\n\n"
	}

	labels := []string{"SKU:", "Name:", "Selling price:", "Stock on hand:", "Category:", "Manufacturer:", "Model:", "Stock tracking:"}
	for i, label := range labels {
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

func (m *ProductsModel) viewList() string {
	if m.loading {
		return "Loading products..."
	}

	var s string
	s += titleStyle.Render("Products") + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).
			Render("  "+m.statusMsg) + "\n\n"
	}
	if m.err != nil {
		s += lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	if len(m.products) == 0 {
		s += subtitleStyle.Render("  No products yet. Press 'n' to add one.")
		return s
	}

	s += subtitleStyle.Render(fmt.Sprintf("  %-14s  %-30s  %12s  %7s  %-8s",
		"SKU", "Name", "Price", "Stock", "Tracking")) + "\n"

	threshold := m.app.Config.Invoice.LowStockThreshold
	for i, p := range m.products {
		line := fmt.Sprintf("  %-14s  %-30s  %12s  %7d  %-8s",
			truncateStr(p.SKU, 14),
			truncateStr(p.Name, 30),
			formatMoney(p.SellingPrice),
			p.CurrentStock,
			trackingLabel(p),
		)

		switch {
		case i == m.cursor:
			s += selectedStyle.Render(line) + "\n"
		case p.IsStockTracked() && p.CurrentStock <= threshold:
			s += lowStockStyle.Render(line) + "\n"
		default:
			s += line + "\n"
		}
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  n: new  enter: edit  +/-: stock  a: add to draft")
	return s
}
