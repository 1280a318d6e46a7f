package draft

import (
	"fmt"
	"time"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/pricing"
	"github.com/andy/invoicedesk/internal/stock"
)

// Snapshot is the storable form of a draft. It holds raw fields only;
// derived amounts are recomputed by Restore.
type Snapshot struct {
	State                    State                     `yaml:"state"`
	Header                   Header                    `yaml:"header"`
	Items                    []domain.LineItem         `yaml:"items"`
	AdditionalTaxes          []domain.AdditionalCharge `yaml:"additional_taxes"`
	AdditionalServiceCharges []domain.AdditionalCharge `yaml:"additional_service_charges"`
	CreatedAt                time.Time                 `yaml:"created_at"`
}

// Snapshot copies the draft's raw state
func (m *Manager) Snapshot() Snapshot {
	h := m.header
	h.ProjectID = copyID(h.ProjectID)
	h.QuotationID = copyID(h.QuotationID)
	return Snapshot{
		State:                    m.state,
		Header:                   h,
		Items:                    m.Items(),
		AdditionalTaxes:          append([]domain.AdditionalCharge(nil), m.taxes...),
		AdditionalServiceCharges: append([]domain.AdditionalCharge(nil), m.charges...),
		CreatedAt:                m.createdAt,
	}
}

// Restore rebuilds a Manager from a snapshot, re-pricing every item so no
// stored derived value is trusted. A draft caught mid-validation resumes
// in Editing.
func Restore(cfg Config, s Snapshot) (*Manager, error) {
	m := NewManager(cfg)
	if !s.CreatedAt.IsZero() {
		m.createdAt = s.CreatedAt
	}
	m.header = s.Header

	m.items = make([]domain.LineItem, len(s.Items))
	for i, it := range s.Items {
		amounts, err := pricing.PriceItem(it.ItemInput)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
		it.ItemAmounts = amounts
		m.items[i] = it
	}

	for _, c := range append(append([]domain.AdditionalCharge(nil), s.AdditionalTaxes...), s.AdditionalServiceCharges...) {
		if err := pricing.ValidateRate("rate", c.Rate); err != nil {
			return nil, fmt.Errorf("charge %s: %w", c.ID, err)
		}
	}
	m.taxes = append([]domain.AdditionalCharge(nil), s.AdditionalTaxes...)
	m.charges = append([]domain.AdditionalCharge(nil), s.AdditionalServiceCharges...)
	m.recompute()

	switch s.State {
	case StateEmpty, StateEditing, StateRejected, StateCommitted:
		m.state = s.State
	case StateValidating, "":
		m.state = StateEditing
		if len(m.items) == 0 && m.header == (Header{}) && len(m.taxes)+len(m.charges) == 0 {
			m.state = StateEmpty
		}
	default:
		return nil, fmt.Errorf("unknown draft state %q", s.State)
	}
	if m.state == StateRejected {
		m.violations = stock.Check(m.items).Violations
	}
	return m, nil
}
