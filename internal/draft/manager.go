// Package draft owns a single invoice under construction. Every mutation
// re-prices the affected item and re-aggregates the document, so derived
// amounts are never stored independently of the raw fields behind them.
package draft

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/pricing"
	"github.com/andy/invoicedesk/internal/stock"
)

// ErrDraftCommitted is returned for any mutation of a committed draft
var ErrDraftCommitted = errors.New("draft has already been committed")

type State string

const (
	StateEmpty      State = "empty"
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateCommitted  State = "committed"
	StateRejected   State = "rejected"
)

// ItemField names a raw line item field that can be updated
type ItemField string

const (
	FieldQuantity          ItemField = "quantity"
	FieldUnitPrice         ItemField = "unit_price"
	FieldDiscountRate      ItemField = "discount_rate"
	FieldTaxRate           ItemField = "tax_rate"
	FieldServiceChargeRate ItemField = "service_charge_rate"
)

// ParseItemField converts user input into an ItemField
func ParseItemField(s string) (ItemField, error) {
	switch f := ItemField(s); f {
	case FieldQuantity, FieldUnitPrice, FieldDiscountRate, FieldTaxRate, FieldServiceChargeRate:
		return f, nil
	}
	return "", fmt.Errorf("unknown item field %q", s)
}

// Quantities are held in an int; anything outside int32 is rejected before
// conversion so it cannot wrap.
var (
	minQuantity = decimal.NewFromInt(math.MinInt32)
	maxQuantity = decimal.NewFromInt(math.MaxInt32)
)

// Config carries the business defaults applied to new items and invoices
type Config struct {
	DefaultTaxRate           decimal.Decimal
	DefaultServiceChargeRate decimal.Decimal
	DueDays                  int
	NumberPrefix             string

	Now   func() time.Time
	NewID func() string
}

// WithDefaults fills in the clock, id generator and number prefix when unset
func (c Config) WithDefaults() Config {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	if c.NumberPrefix == "" {
		c.NumberPrefix = "INV"
	}
	return c
}

type Header struct {
	CustomerID    int64  `yaml:"customer_id"`
	CustomerName  string `yaml:"customer_name"`
	ProjectID     *int64 `yaml:"project_id,omitempty"`
	ProjectName   string `yaml:"project_name,omitempty"`
	QuotationID   *int64 `yaml:"quotation_id,omitempty"`
	QuotationRef  string `yaml:"quotation_ref,omitempty"`
	PaymentTerms  string `yaml:"payment_terms,omitempty"`
	DeliveryTerms string `yaml:"delivery_terms,omitempty"`
	WarrantyTerms string `yaml:"warranty_terms,omitempty"`
	Notes         string `yaml:"notes,omitempty"`
}

// Manager is the draft state machine:
// Empty -> Editing -> Validating -> Committed | Rejected.
// Rejected drafts return to Editing on the next change; Committed is final.
//
// A Manager is not safe for concurrent use. One caller edits one draft.
type Manager struct {
	cfg        Config
	state      State
	header     Header
	items      []domain.LineItem
	taxes      []domain.AdditionalCharge
	charges    []domain.AdditionalCharge
	totals     pricing.Totals
	violations []domain.StockViolation
	createdAt  time.Time
}

// NewManager creates an empty draft
func NewManager(cfg Config) *Manager {
	cfg = cfg.WithDefaults()
	m := &Manager{
		cfg:       cfg,
		state:     StateEmpty,
		createdAt: cfg.Now(),
	}
	m.recompute()
	return m
}

func (m *Manager) State() State         { return m.state }
func (m *Manager) Header() Header       { return m.header }
func (m *Manager) CreatedAt() time.Time { return m.createdAt }

// Items returns a copy of the line items in insertion order
func (m *Manager) Items() []domain.LineItem {
	return append([]domain.LineItem(nil), m.items...)
}

// Item returns a copy of one line item
func (m *Manager) Item(itemID string) (domain.LineItem, bool) {
	if i := m.itemIndex(itemID); i >= 0 {
		return m.items[i], true
	}
	return domain.LineItem{}, false
}

// Totals returns the document totals with resolved charges
func (m *Manager) Totals() pricing.Totals {
	t := m.totals
	t.AdditionalTaxes = append([]domain.AdditionalCharge(nil), t.AdditionalTaxes...)
	t.AdditionalServiceCharges = append([]domain.AdditionalCharge(nil), t.AdditionalServiceCharges...)
	return t
}

// Violations returns the stock violations of the last rejected submit
func (m *Manager) Violations() []domain.StockViolation {
	return append([]domain.StockViolation(nil), m.violations...)
}

// AddItem creates a line item from the product's reference fields with no
// discount and the configured default tax and service charge rates.
func (m *Manager) AddItem(p domain.Product, quantity int) (domain.LineItem, error) {
	if err := m.checkEditable(); err != nil {
		return domain.LineItem{}, err
	}

	item := domain.LineItem{
		ID:               m.cfg.NewID(),
		ProductID:        p.ID,
		ProductName:      p.Name,
		SKU:              p.SKU,
		MainCategoryName: p.MainCategoryName,
		SubCategoryName:  p.SubCategoryName,
		Manufacturer:     p.Manufacturer,
		ModelNumber:      p.ModelNumber,
		ItemInput: domain.ItemInput{
			Quantity:          quantity,
			UnitPrice:         p.SellingPrice,
			DiscountRate:      decimal.Zero,
			TaxRate:           m.cfg.DefaultTaxRate,
			ServiceChargeRate: m.cfg.DefaultServiceChargeRate,
		},
		StockAvailable: p.CurrentStock,
		IsStockTracked: p.IsStockTracked(),
	}

	amounts, err := pricing.PriceItem(item.ItemInput)
	if err != nil {
		return domain.LineItem{}, err
	}
	item.ItemAmounts = amounts

	m.items = append(m.items, item)
	m.changed()
	return item, nil
}

// UpdateItem sets one raw field of one item and re-prices only that item
func (m *Manager) UpdateItem(itemID string, field ItemField, value decimal.Decimal) (domain.LineItem, error) {
	if err := m.checkEditable(); err != nil {
		return domain.LineItem{}, err
	}
	i := m.itemIndex(itemID)
	if i < 0 {
		return domain.LineItem{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	updated := m.items[i]
	switch field {
	case FieldQuantity:
		if !value.IsInteger() {
			return domain.LineItem{}, &domain.InvalidInputError{Field: string(field), Value: value.String(), Reason: "must be a whole number"}
		}
		if value.LessThan(minQuantity) || value.GreaterThan(maxQuantity) {
			return domain.LineItem{}, &domain.InvalidInputError{Field: string(field), Value: value.String(), Reason: "is out of range"}
		}
		updated.Quantity = int(value.IntPart())
	case FieldUnitPrice:
		updated.UnitPrice = value
	case FieldDiscountRate:
		updated.DiscountRate = value
	case FieldTaxRate:
		updated.TaxRate = value
	case FieldServiceChargeRate:
		updated.ServiceChargeRate = value
	default:
		return domain.LineItem{}, &domain.InvalidInputError{Field: string(field), Value: value.String(), Reason: "is not an editable field"}
	}

	amounts, err := pricing.PriceItem(updated.ItemInput)
	if err != nil {
		return domain.LineItem{}, err
	}
	updated.ItemAmounts = amounts

	m.items[i] = updated
	m.changed()
	return updated, nil
}

// RemoveItem drops one item from the draft
func (m *Manager) RemoveItem(itemID string) error {
	if err := m.checkEditable(); err != nil {
		return err
	}
	i := m.itemIndex(itemID)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	m.items = append(m.items[:i:i], m.items[i+1:]...)
	m.changed()
	return nil
}

// AddAdditionalCharge appends an invoice-level tax or service charge
func (m *Manager) AddAdditionalCharge(kind domain.ChargeKind, name string, rate decimal.Decimal) (domain.AdditionalCharge, error) {
	if err := m.checkEditable(); err != nil {
		return domain.AdditionalCharge{}, err
	}
	if kind != domain.ChargeKindTax && kind != domain.ChargeKindService {
		return domain.AdditionalCharge{}, &domain.InvalidInputError{Field: "kind", Value: string(kind), Reason: "must be tax or service"}
	}
	if err := pricing.ValidateRate("rate", rate); err != nil {
		return domain.AdditionalCharge{}, err
	}

	c := domain.AdditionalCharge{ID: m.cfg.NewID(), Kind: kind, Name: name, Rate: rate}
	if kind == domain.ChargeKindTax {
		m.taxes = append(m.taxes, c)
	} else {
		m.charges = append(m.charges, c)
	}
	m.changed()

	c, _ = m.charge(c.ID)
	return c, nil
}

// UpdateAdditionalCharge changes a charge's rate; its amount follows the
// current subtotal.
func (m *Manager) UpdateAdditionalCharge(chargeID string, rate decimal.Decimal) (domain.AdditionalCharge, error) {
	if err := m.checkEditable(); err != nil {
		return domain.AdditionalCharge{}, err
	}
	list, i := m.chargeIndex(chargeID)
	if i < 0 {
		return domain.AdditionalCharge{}, fmt.Errorf("%w: %s", domain.ErrChargeNotFound, chargeID)
	}
	if err := pricing.ValidateRate("rate", rate); err != nil {
		return domain.AdditionalCharge{}, err
	}

	(*list)[i].Rate = rate
	m.changed()

	c, _ := m.charge(chargeID)
	return c, nil
}

// RemoveAdditionalCharge drops an invoice-level charge
func (m *Manager) RemoveAdditionalCharge(chargeID string) error {
	if err := m.checkEditable(); err != nil {
		return err
	}
	list, i := m.chargeIndex(chargeID)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrChargeNotFound, chargeID)
	}

	*list = append((*list)[:i:i], (*list)[i+1:]...)
	m.changed()
	return nil
}

// SetCustomer selects the customer. Project and quotation belong to a
// customer, so switching customers clears them.
func (m *Manager) SetCustomer(customerID int64, displayName string) error {
	if err := m.checkEditable(); err != nil {
		return err
	}
	if customerID < 0 {
		return fmt.Errorf("invalid customer ID %d", customerID)
	}
	if customerID != m.header.CustomerID {
		m.header.ProjectID, m.header.ProjectName = nil, ""
		m.header.QuotationID, m.header.QuotationRef = nil, ""
	}
	m.header.CustomerID = customerID
	m.header.CustomerName = displayName
	m.changed()
	return nil
}

// SetProject sets or, with a nil id, clears the optional project reference
func (m *Manager) SetProject(projectID *int64, displayName string) error {
	if err := m.checkEditable(); err != nil {
		return err
	}
	m.header.ProjectID = copyID(projectID)
	m.header.ProjectName = displayName
	if projectID == nil {
		m.header.ProjectName = ""
	}
	m.changed()
	return nil
}

// SetQuotation sets or, with a nil id, clears the optional quotation reference
func (m *Manager) SetQuotation(quotationID *int64, reference string) error {
	if err := m.checkEditable(); err != nil {
		return err
	}
	m.header.QuotationID = copyID(quotationID)
	m.header.QuotationRef = reference
	if quotationID == nil {
		m.header.QuotationRef = ""
	}
	m.changed()
	return nil
}

func (m *Manager) SetTerms(payment, delivery, warranty string) error {
	if err := m.checkEditable(); err != nil {
		return err
	}
	m.header.PaymentTerms = payment
	m.header.DeliveryTerms = delivery
	m.header.WarrantyTerms = warranty
	m.changed()
	return nil
}

func (m *Manager) SetNotes(notes string) error {
	if err := m.checkEditable(); err != nil {
		return err
	}
	m.header.Notes = notes
	m.changed()
	return nil
}

// Submit validates the draft and, if it passes, returns the finalized
// invoice for the caller to persist. On failure the draft keeps its items
// and can be fixed and resubmitted. An empty invoiceNumber falls back to
// the first number of the year; callers should pass the store's hint.
func (m *Manager) Submit(invoiceNumber string) (*domain.Invoice, error) {
	if m.state == StateCommitted {
		return nil, ErrDraftCommitted
	}
	if m.header.CustomerID <= 0 {
		return nil, domain.ErrMissingCustomer
	}
	if len(m.items) == 0 {
		return nil, domain.ErrEmptyInvoice
	}

	m.state = StateValidating
	if res := stock.Check(m.items); !res.OK() {
		m.state = StateRejected
		m.violations = res.Violations
		return nil, res.Err()
	}

	issued := m.cfg.Now()
	if invoiceNumber == "" {
		invoiceNumber = domain.FormatInvoiceNumber(m.cfg.NumberPrefix, issued.Year(), 1)
	}

	totals := m.Totals()
	inv := &domain.Invoice{
		InvoiceNumber:            invoiceNumber,
		CustomerID:               m.header.CustomerID,
		CustomerName:             m.header.CustomerName,
		ProjectID:                copyID(m.header.ProjectID),
		ProjectName:              m.header.ProjectName,
		QuotationID:              copyID(m.header.QuotationID),
		QuotationRef:             m.header.QuotationRef,
		PaymentTerms:             m.header.PaymentTerms,
		DeliveryTerms:            m.header.DeliveryTerms,
		WarrantyTerms:            m.header.WarrantyTerms,
		Notes:                    m.header.Notes,
		Items:                    m.Items(),
		AdditionalTaxes:          totals.AdditionalTaxes,
		AdditionalServiceCharges: totals.AdditionalServiceCharges,
		Subtotal:                 totals.Subtotal,
		TotalTaxAmount:           totals.TotalTaxAmount,
		TotalServiceChargeAmount: totals.TotalServiceChargeAmount,
		TotalAmount:              totals.TotalAmount,
		PaidAmount:               decimal.Zero,
		RemainingAmount:          totals.TotalAmount,
		Status:                   domain.InvoiceStatusDraft,
		IssueDate:                issued,
		DueDate:                  issued.AddDate(0, 0, m.cfg.DueDays),
		CreatedAt:                issued,
		UpdatedAt:                issued,
	}

	m.state = StateCommitted
	m.violations = nil
	return inv, nil
}

func (m *Manager) checkEditable() error {
	if m.state == StateCommitted {
		return ErrDraftCommitted
	}
	return nil
}

// changed re-aggregates after a successful mutation and moves the draft
// (back) to Editing.
func (m *Manager) changed() {
	m.recompute()
	m.state = StateEditing
	m.violations = nil
}

func (m *Manager) recompute() {
	m.totals = pricing.Aggregate(m.items, m.taxes, m.charges)
	for i := range m.taxes {
		m.taxes[i].Amount = m.totals.AdditionalTaxes[i].Amount
	}
	for i := range m.charges {
		m.charges[i].Amount = m.totals.AdditionalServiceCharges[i].Amount
	}
}

func (m *Manager) itemIndex(itemID string) int {
	for i := range m.items {
		if m.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (m *Manager) chargeIndex(chargeID string) (*[]domain.AdditionalCharge, int) {
	for _, list := range []*[]domain.AdditionalCharge{&m.taxes, &m.charges} {
		for i := range *list {
			if (*list)[i].ID == chargeID {
				return list, i
			}
		}
	}
	return nil, -1
}

func (m *Manager) charge(chargeID string) (domain.AdditionalCharge, bool) {
	list, i := m.chargeIndex(chargeID)
	if i < 0 {
		return domain.AdditionalCharge{}, false
	}
	return (*list)[i], true
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
