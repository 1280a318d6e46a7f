package tui

import (
	"context"
	"errors"
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
	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/service"
)

type draftMode int

const (
	draftModeList draftMode = iota
	draftModePick
	draftModeItemForm
	draftModeChargeForm
	draftModeHeaderForm
	draftModeConfirmDiscard
)

type pickKind int

const (
	pickProduct pickKind = iota
	pickCustomer
	pickProject
	pickQuotation
)

// pickOption is one row of a picker; id 0 clears the reference
type pickOption struct {
	id    int64
	label string
	name  string
}

// itemFormFields lists the editable line item fields in form order
var itemFormFields = []draft.ItemField{
	draft.FieldQuantity,
	draft.FieldUnitPrice,
	draft.FieldDiscountRate,
	draft.FieldTaxRate,
	draft.FieldServiceChargeRate,
}

// draftRow is a cursor position: a line item or an additional charge
type draftRow struct {
	item   *domain.LineItem
	charge *domain.AdditionalCharge
}

// DraftModel edits the single in-progress invoice draft
type DraftModel struct {
	app       *app.App
	draft     *draft.Manager // nil when no draft exists
	rows      []draftRow
	cursor    int
	mode      draftMode
	loading   bool
	err       error
	statusMsg string

	// Picker state
	pickKind    pickKind
	pickOptions []pickOption
	pickCursor  int

	// Form state
	fields      []textinput.Model
	fieldLabels []string
	fieldFocus  int
	original    []string
	formItemID  string
	chargeKind  domain.ChargeKind
	chargeID    string // empty for a new charge
}

type draftLoadedMsg struct {
	draft  *draft.Manager
	status string
	err    error
}

type pickOptionsMsg struct {
	kind    pickKind
	options []pickOption
	err     error
}

// NewDraftModel creates a new draft editor screen
func NewDraftModel(a *app.App) tea.Model {
	return &DraftModel{
		app:     a,
		loading: true,
	}
}

// IsCapturingInput returns true while a picker, form, or confirmation is open
func (m *DraftModel) IsCapturingInput() bool {
	return m.mode != draftModeList
}

func (m *DraftModel) Init() tea.Cmd {
	return m.run("", nil)
}

// run applies fn (if any) and then reloads the stored draft. A failed
// submit still reloads so stock violations show up against the items.
func (m *DraftModel) run(status string, fn func(ctx context.Context) error) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		ctx := context.Background()
		var opErr error
		if fn != nil {
			opErr = fn(ctx)
		}

		d, err := a.DraftService.Current(ctx)
		if errors.Is(err, service.ErrNoActiveDraft) {
			d, err = nil, nil
		}
		if opErr != nil {
			return draftLoadedMsg{draft: d, err: opErr}
		}
		return draftLoadedMsg{draft: d, status: status, err: err}
	}
}

func (m *DraftModel) buildRows() {
	m.rows = nil
	if m.draft == nil {
		m.cursor = 0
		return
	}
	for _, it := range m.draft.Items() {
		it := it
		m.rows = append(m.rows, draftRow{item: &it})
	}
	totals := m.draft.Totals()
	for _, c := range append(totals.AdditionalTaxes, totals.AdditionalServiceCharges...) {
		c := c
		m.rows = append(m.rows, draftRow{charge: &c})
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(0, len(m.rows)-1)
	}
}

func (m *DraftModel) selectedRow() *draftRow {
	if m.cursor < len(m.rows) {
		return &m.rows[m.cursor]
	}
	return nil
}

func (m *DraftModel) loadPickOptions(kind pickKind) tea.Cmd {
	a := m.app
	var customerID int64
	if m.draft != nil {
		customerID = m.draft.Header().CustomerID
	}
	return func() tea.Msg {
		ctx := context.Background()
		var options []pickOption

		switch kind {
		case pickProduct:
			products, err := a.ProductRepo.List(ctx)
			if err != nil {
				return pickOptionsMsg{err: err}
			}
			for _, p := range products {
				label := fmt.Sprintf("%-14s %-30s %12s", truncateStr(p.SKU, 14), truncateStr(p.Name, 30), formatMoney(p.SellingPrice))
				if p.IsStockTracked() {
					label += fmt.Sprintf("  (%d in stock)", p.CurrentStock)
				}
				options = append(options, pickOption{id: p.ID, label: label, name: p.Name})
			}

		case pickCustomer:
			customers, err := a.CustomerRepo.List(ctx, false)
			if err != nil {
				return pickOptionsMsg{err: err}
			}
			for _, c := range customers {
				options = append(options, pickOption{id: c.ID, label: c.Name})
			}

		case pickProject, pickQuotation:
			if customerID == 0 {
				return pickOptionsMsg{err: domain.ErrMissingCustomer}
			}
			options = append(options, pickOption{id: 0, label: "(none)"})
			if kind == pickProject {
				projects, err := a.ProjectRepo.List(ctx, &customerID)
				if err != nil {
					return pickOptionsMsg{err: err}
				}
				for _, p := range projects {
					options = append(options, pickOption{id: p.ID, label: p.Name})
				}
			} else {
				quotations, err := a.QuotationRepo.List(ctx, &customerID)
				if err != nil {
					return pickOptionsMsg{err: err}
				}
				for _, q := range quotations {
					options = append(options, pickOption{id: q.ID, label: q.Reference})
				}
			}
		}

		return pickOptionsMsg{kind: kind, options: options}
	}
}

func (m *DraftModel) applyPick(opt pickOption) tea.Cmd {
	ds := m.app.DraftService
	var ref *int64
	if opt.id > 0 {
		id := opt.id
		ref = &id
	}

	switch m.pickKind {
	case pickProduct:
		return m.run("Added "+opt.name, func(ctx context.Context) error {
			_, err := ds.AddItem(ctx, opt.id, 1)
			return err
		})
	case pickCustomer:
		return m.run("Customer set to "+opt.label, func(ctx context.Context) error {
			return ds.SetCustomer(ctx, opt.id)
		})
	case pickProject:
		return m.run("Project updated", func(ctx context.Context) error {
			return ds.SetProject(ctx, ref)
		})
	case pickQuotation:
		return m.run("Quotation updated", func(ctx context.Context) error {
			return ds.SetQuotation(ctx, ref)
		})
	}
	return nil
}

func (m *DraftModel) newField(placeholder, value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.Width = width
	ti.SetValue(value)
	return ti
}

func (m *DraftModel) openForm(mode draftMode, labels []string, fields []textinput.Model) tea.Cmd {
	m.mode = mode
	m.fieldLabels = labels
	m.fields = fields
	m.original = make([]string, len(fields))
	for i, f := range fields {
		m.original[i] = f.Value()
	}
	m.fieldFocus = 0
	return m.fields[0].Focus()
}

func (m *DraftModel) openItemForm(it *domain.LineItem) tea.Cmd {
	m.formItemID = it.ID
	return m.openForm(draftModeItemForm,
		[]string{"Quantity:", "Unit price:", "Discount (%):", "Tax (%):", "Service charge (%):"},
		[]textinput.Model{
			m.newField("1", strconv.Itoa(it.Quantity), 10),
			m.newField("0.00", it.UnitPrice.String(), 15),
			m.newField("0", it.DiscountRate.String(), 10),
			m.newField("0", it.TaxRate.String(), 10),
			m.newField("0", it.ServiceChargeRate.String(), 10),
		})
}

func (m *DraftModel) openChargeForm(kind domain.ChargeKind, existing *domain.AdditionalCharge) tea.Cmd {
	m.chargeKind = kind
	m.chargeID = ""
	name, rate := "", ""
	if existing != nil {
		m.chargeID = existing.ID
		name, rate = existing.Name, existing.Rate.String()
	}
	return m.openForm(draftModeChargeForm,
		[]string{"Name:", "Rate (%):"},
		[]textinput.Model{
			m.newField("e.g. VAT", name, 30),
			m.newField("0", rate, 10),
		})
}

func (m *DraftModel) openHeaderForm() tea.Cmd {
	var h draft.Header
	if m.draft != nil {
		h = m.draft.Header()
	}
	return m.openForm(draftModeHeaderForm,
		[]string{"Payment terms:", "Delivery terms:", "Warranty terms:", "Notes:"},
		[]textinput.Model{
			m.newField("e.g. Net 30", h.PaymentTerms, 50),
			m.newField("e.g. Ex works", h.DeliveryTerms, 50),
			m.newField("e.g. 12 months", h.WarrantyTerms, 50),
			m.newField("Optional notes", h.Notes, 60),
		})
}

func (m *DraftModel) saveForm() tea.Cmd {
	ds := m.app.DraftService
	values := make([]string, len(m.fields))
	for i, f := range m.fields {
		values[i] = strings.TrimSpace(f.Value())
	}

	switch m.mode {
	case draftModeItemForm:
		itemID := m.formItemID
		changed := make(map[draft.ItemField]decimal.Decimal)
		for i, field := range itemFormFields {
			if values[i] == m.original[i] {
				continue
			}
			v, err := decimal.NewFromString(values[i])
			if err != nil {
				m.err = fmt.Errorf("%s: not a number", strings.TrimSuffix(m.fieldLabels[i], ":"))
				return nil
			}
			changed[field] = v
		}
		return m.run("Item updated", func(ctx context.Context) error {
			for _, field := range itemFormFields {
				if v, ok := changed[field]; ok {
					if _, err := ds.UpdateItem(ctx, itemID, field, v); err != nil {
						return err
					}
				}
			}
			return nil
		})

	case draftModeChargeForm:
		rate, err := decimal.NewFromString(values[1])
		if err != nil {
			m.err = fmt.Errorf("rate: not a number")
			return nil
		}
		kind, chargeID, name := m.chargeKind, m.chargeID, values[0]
		if chargeID != "" {
			return m.run("Charge updated", func(ctx context.Context) error {
				_, err := ds.UpdateCharge(ctx, chargeID, rate)
				return err
			})
		}
		return m.run("Charge added", func(ctx context.Context) error {
			_, err := ds.AddCharge(ctx, kind, name, rate)
			return err
		})

	case draftModeHeaderForm:
		return m.run("Terms updated", func(ctx context.Context) error {
			if err := ds.SetTerms(ctx, values[0], values[1], values[2]); err != nil {
				return err
			}
			return ds.SetNotes(ctx, values[3])
		})
	}
	return nil
}

func (m *DraftModel) submit() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		ctx := context.Background()
		invoice, err := a.DraftService.Submit(ctx)
		if err != nil {
			d, _ := a.DraftService.Current(ctx)
			return draftLoadedMsg{draft: d, err: err}
		}
		return draftLoadedMsg{status: fmt.Sprintf("Invoice %s committed (%s)",
			invoice.InvoiceNumber, formatMoney(invoice.TotalAmount))}
	}
}

func (m *DraftModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.run("", nil)

	case draftLoadedMsg:
		m.loading = false
		m.draft = msg.draft
		m.err = msg.err
		if msg.status != "" {
			m.statusMsg = msg.status
		}
		m.mode = draftModeList
		m.buildRows()
		return m, nil

	case pickOptionsMsg:
		if msg.err != nil {
			m.err = msg.err
			m.mode = draftModeList
			return m, nil
		}
		m.pickKind = msg.kind
		m.pickOptions = msg.options
		m.pickCursor = 0
		m.mode = draftModePick
		return m, nil
	}

	switch m.mode {
	case draftModePick:
		return m.updatePick(msg)
	case draftModeItemForm, draftModeChargeForm, draftModeHeaderForm:
		return m.updateForm(msg)
	case draftModeConfirmDiscard:
		return m.updateConfirmDiscard(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.loading {
		return m, nil
	}

	m.statusMsg = ""
	m.err = nil
	ds := m.app.DraftService
	row := m.selectedRow()

	switch {
	case key.Matches(keyMsg, DefaultKeyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, DefaultKeyMap.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(keyMsg, DefaultKeyMap.Inc), key.Matches(keyMsg, DefaultKeyMap.Dec):
		if row == nil || row.item == nil {
			return m, nil
		}
		qty := row.item.Quantity + 1
		if key.Matches(keyMsg, DefaultKeyMap.Dec) {
			qty = row.item.Quantity - 1
		}
		if qty < 1 {
			m.err = fmt.Errorf("quantity must be at least 1; press x to remove the item")
			return m, nil
		}
		itemID := row.item.ID
		return m, m.run("", func(ctx context.Context) error {
			_, err := ds.UpdateItem(ctx, itemID, draft.FieldQuantity, decimal.NewFromInt(int64(qty)))
			return err
		})

	case key.Matches(keyMsg, DefaultKeyMap.Delete):
		if row == nil {
			return m, nil
		}
		if row.item != nil {
			itemID := row.item.ID
			return m, m.run("Item removed", func(ctx context.Context) error {
				return ds.RemoveItem(ctx, itemID)
			})
		}
		chargeID := row.charge.ID
		return m, m.run("Charge removed", func(ctx context.Context) error {
			return ds.RemoveCharge(ctx, chargeID)
		})

	case key.Matches(keyMsg, DefaultKeyMap.Select):
		if row == nil {
			return m, nil
		}
		if row.item != nil {
			return m, m.openItemForm(row.item)
		}
		return m, m.openChargeForm(row.charge.Kind, row.charge)

	case keyMsg.String() == "a":
		return m, m.loadPickOptions(pickProduct)
	case keyMsg.String() == "u":
		return m, m.loadPickOptions(pickCustomer)
	case keyMsg.String() == "o":
		return m, m.loadPickOptions(pickProject)
	case keyMsg.String() == "g":
		return m, m.loadPickOptions(pickQuotation)
	case keyMsg.String() == "e":
		return m, m.openHeaderForm()
	case keyMsg.String() == "t":
		return m, m.openChargeForm(domain.ChargeKindTax, nil)
	case keyMsg.String() == "v":
		return m, m.openChargeForm(domain.ChargeKindService, nil)

	case keyMsg.String() == "s":
		if m.draft != nil {
			m.loading = true
			return m, m.submit()
		}
	case keyMsg.String() == "X":
		if m.draft != nil {
			m.mode = draftModeConfirmDiscard
		}
	}

	return m, nil
}

func (m *DraftModel) updatePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, DefaultKeyMap.Back):
		m.mode = draftModeList
	case key.Matches(keyMsg, DefaultKeyMap.Up):
		if m.pickCursor > 0 {
			m.pickCursor--
		}
	case key.Matches(keyMsg, DefaultKeyMap.Down):
		if m.pickCursor < len(m.pickOptions)-1 {
			m.pickCursor++
		}
	case key.Matches(keyMsg, DefaultKeyMap.Select):
		if len(m.pickOptions) == 0 {
			m.mode = draftModeList
			return m, nil
		}
		m.mode = draftModeList
		return m, m.applyPick(m.pickOptions[m.pickCursor])
	}
	return m, nil
}

func (m *DraftModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		n := len(m.fields)
		switch keyMsg.String() {
		case "esc":
			m.mode = draftModeList
			m.err = nil
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % n
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + n) % n
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == n-1 {
				return m, m.saveForm()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.saveForm()
		}
	}

	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *DraftModel) updateConfirmDiscard(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y":
		ds := m.app.DraftService
		return m, m.run("Draft discarded", func(ctx context.Context) error {
			return ds.Discard(ctx)
		})
	default:
		m.mode = draftModeList
	}
	return m, nil
}

func (m *DraftModel) View() string {
	if m.loading {
		return "Loading draft..."
	}

	switch m.mode {
	case draftModePick:
		return m.viewPick()
	case draftModeItemForm, draftModeChargeForm, draftModeHeaderForm:
		return m.viewForm()
	case draftModeConfirmDiscard:
		return titleStyle.Render("Discard draft?") + "\n\n" +
			lipgloss.NewStyle().Foreground(warningColor).
				Render("  All items and charges will be lost. Press y to confirm, any other key to cancel.")
	}
	return m.viewDraft()
}

func (m *DraftModel) viewDraft() string {
	var s string

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).Render("  "+m.statusMsg) + "\n\n"
	}
	if m.err != nil {
		s += lipgloss.NewStyle().Foreground(errorColor).Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	if m.draft == nil {
		s += subtitleStyle.Render("  No draft in progress. Press 'a' to add a product or 'u' to pick a customer.") + "\n"
		return s
	}

	h := m.draft.Header()
	customer := h.CustomerName
	if customer == "" {
		customer = lipgloss.NewStyle().Foreground(warningColor).Render("(none)")
	}
	s += fmt.Sprintf("  %s  Customer: %s", draftStateStyle.Render(strings.ToUpper(string(m.draft.State()))), customer)
	if h.ProjectName != "" {
		s += "  Project: " + h.ProjectName
	}
	if h.QuotationRef != "" {
		s += "  Quotation: " + h.QuotationRef
	}
	s += "\n"
	if h.PaymentTerms != "" || h.DeliveryTerms != "" || h.WarrantyTerms != "" {
		s += subtitleStyle.Render(fmt.Sprintf("  Terms: %s / %s / %s", h.PaymentTerms, h.DeliveryTerms, h.WarrantyTerms)) + "\n"
	}
	s += "\n"

	if len(m.rows) == 0 {
		s += subtitleStyle.Render("  No items yet") + "\n"
	} else {
		s += subtitleStyle.Render(fmt.Sprintf("  %-12s %-24s %5s %10s %6s %6s %6s %12s",
			"SKU", "Product", "Qty", "Price", "Disc", "Tax", "Svc", "Total")) + "\n"
	}

	violations := make(map[string]domain.StockViolation)
	for _, v := range m.draft.Violations() {
		violations[v.ItemID] = v
	}

	for i, row := range m.rows {
		var line string
		if row.item != nil {
			it := row.item
			line = fmt.Sprintf("  %-12s %-24s %5d %10s %6s %6s %6s %12s",
				truncateStr(it.SKU, 12),
				truncateStr(it.ProductName, 24),
				it.Quantity,
				formatMoney(it.UnitPrice),
				formatRate(it.DiscountRate),
				formatRate(it.TaxRate),
				formatRate(it.ServiceChargeRate),
				formatMoney(it.TotalPrice),
			)
		} else {
			c := row.charge
			kind := "Tax"
			if c.Kind == domain.ChargeKindService {
				kind = "Service"
			}
			line = fmt.Sprintf("  %-37s %32s %12s",
				truncateStr(fmt.Sprintf("%s: %s", kind, c.Name), 37),
				formatRate(c.Rate),
				formatMoney(c.Amount),
			)
		}

		switch {
		case i == m.cursor:
			s += selectedStyle.Render(line) + "\n"
		case row.item != nil && violations[row.item.ID].ItemID != "":
			s += violationStyle.Render(line) + "\n"
		default:
			s += line + "\n"
		}
	}

	totals := m.draft.Totals()
	s += "\n"
	s += fmt.Sprintf("  %72s %12s\n", "Subtotal:", formatMoney(totals.Subtotal))
	s += fmt.Sprintf("  %72s %12s\n", "Tax:", formatMoney(totals.TotalTaxAmount))
	s += fmt.Sprintf("  %72s %12s\n", "Service charges:", formatMoney(totals.TotalServiceChargeAmount))
	s += totalStyle.Render(fmt.Sprintf("  %72s %12s", "Total:", formatMoney(totals.TotalAmount))) + "\n"

	if len(violations) > 0 {
		s += "\n" + violationStyle.Render("  Not enough stock:") + "\n"
		for _, v := range m.draft.Violations() {
			s += violationStyle.Render("    "+v.String()) + "\n"
		}
	}

	s += "\n" + helpStyle.Render("  j/k: move  a: add product  +/-: quantity  enter: edit  x: remove  t/v: add tax/service")
	s += "\n" + helpStyle.Render("  u: customer  o: project  g: quotation  e: terms  s: submit  X: discard")
	return s
}

func (m *DraftModel) viewPick() string {
	titles := map[pickKind]string{
		pickProduct:   "Add Product",
		pickCustomer:  "Select Customer",
		pickProject:   "Select Project",
		pickQuotation: "Select Quotation",
	}

	s := titleStyle.Render(titles[m.pickKind]) + "\n\n"
	if len(m.pickOptions) == 0 {
		s += subtitleStyle.Render("  Nothing to choose from") + "\n"
	}
	for i, opt := range m.pickOptions {
		if i == m.pickCursor {
			s += lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render("> "+opt.label) + "\n"
		} else {
			s += "  " + opt.label + "\n"
		}
	}
	s += "\n" + helpStyle.Render("  j/k: navigate  enter: select  esc: cancel")
	return s
}

func (m *DraftModel) viewForm() string {
	var title string
	switch m.mode {
	case draftModeItemForm:
		title = "Edit Item"
		if it, ok := m.draft.Item(m.formItemID); ok {
			title += " - " + it.ProductName
		}
	case draftModeChargeForm:
		title = "Additional Tax"
		if m.chargeKind == domain.ChargeKindService {
			title = "Additional Service Charge"
		}
	case draftModeHeaderForm:
		title = "Terms and Notes"
	}

	s := titleStyle.Render(title) + "\n\n"
	for i, label := range m.fieldLabels {
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
