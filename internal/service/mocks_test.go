package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/repository"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func testDraftConfig() draft.Config {
	seq := 0
	return draft.Config{
		DefaultTaxRate: decimal.NewFromInt(10),
		DueDays:        14,
		NumberPrefix:   "INV",
		Now:            func() time.Time { return testNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("k%d", seq)
		},
	}
}

// mock implementations

type mockDraftRepo struct {
	snapshot *draft.Snapshot
	saves    int
}

func (m *mockDraftRepo) Get(ctx context.Context) (*draft.Snapshot, error) {
	if m.snapshot == nil {
		return nil, nil
	}
	s := *m.snapshot
	return &s, nil
}
func (m *mockDraftRepo) Save(ctx context.Context, snapshot draft.Snapshot) error {
	m.snapshot = &snapshot
	m.saves++
	return nil
}
func (m *mockDraftRepo) Delete(ctx context.Context) error {
	m.snapshot = nil
	return nil
}

type mockProductRepo struct {
	products map[int64]*domain.Product
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error { return nil }
func (m *mockProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if p, ok := m.products[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, fmt.Errorf("product %w", repository.ErrNotFound)
}
func (m *mockProductRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.SKU == sku {
			c := *p
			return &c, nil
		}
	}
	return nil, fmt.Errorf("product %w", repository.ErrNotFound)
}
func (m *mockProductRepo) List(ctx context.Context) ([]*domain.Product, error) { return nil, nil }
func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	return nil
}
func (m *mockProductRepo) AdjustStock(ctx context.Context, id int64, delta int) error { return nil }
func (m *mockProductRepo) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0)
	for _, p := range m.products {
		if p.IsStockTracked() && p.CurrentStock <= threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockCustomerRepo struct {
	customers map[int64]*domain.Customer
}

func (m *mockCustomerRepo) Create(ctx context.Context, customer *domain.Customer) error { return nil }
func (m *mockCustomerRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	if c, ok := m.customers[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("customer %w", repository.ErrNotFound)
}
func (m *mockCustomerRepo) GetByName(ctx context.Context, name string) (*domain.Customer, error) {
	for _, c := range m.customers {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("customer %w", repository.ErrNotFound)
}
func (m *mockCustomerRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Customer, error) {
	return nil, nil
}
func (m *mockCustomerRepo) Update(ctx context.Context, customer *domain.Customer) error { return nil }
func (m *mockCustomerRepo) Archive(ctx context.Context, id int64) error                 { return nil }
func (m *mockCustomerRepo) Unarchive(ctx context.Context, id int64) error               { return nil }

type mockProjectRepo struct {
	projects map[int64]*domain.Project
}

func (m *mockProjectRepo) Create(ctx context.Context, project *domain.Project) error { return nil }
func (m *mockProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	if p, ok := m.projects[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("project %w", repository.ErrNotFound)
}
func (m *mockProjectRepo) List(ctx context.Context, customerID *int64) ([]*domain.Project, error) {
	out := make([]*domain.Project, 0)
	for _, p := range m.projects {
		if customerID == nil || p.CustomerID == *customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockQuotationRepo struct {
	quotations map[int64]*domain.Quotation
}

func (m *mockQuotationRepo) Create(ctx context.Context, quotation *domain.Quotation) error {
	return nil
}
func (m *mockQuotationRepo) GetByID(ctx context.Context, id int64) (*domain.Quotation, error) {
	if q, ok := m.quotations[id]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("quotation %w", repository.ErrNotFound)
}
func (m *mockQuotationRepo) GetByReference(ctx context.Context, reference string) (*domain.Quotation, error) {
	for _, q := range m.quotations {
		if q.Reference == reference {
			return q, nil
		}
	}
	return nil, fmt.Errorf("quotation %w", repository.ErrNotFound)
}
func (m *mockQuotationRepo) List(ctx context.Context, customerID *int64) ([]*domain.Quotation, error) {
	return nil, nil
}

type mockInvoiceRepo struct {
	invoices  map[int64]*domain.Invoice
	committed []*domain.Invoice
	commitErr error
	updated   []*domain.Invoice
}

func (m *mockInvoiceRepo) Commit(ctx context.Context, invoice *domain.Invoice) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	invoice.ID = int64(len(m.committed) + 1)
	m.committed = append(m.committed, invoice)
	return nil
}
func (m *mockInvoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	if inv, ok := m.invoices[id]; ok {
		return inv, nil
	}
	return nil, fmt.Errorf("invoice %w", repository.ErrNotFound)
}
func (m *mockInvoiceRepo) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	return nil, nil
}
func (m *mockInvoiceRepo) List(ctx context.Context, customerID *int64, status *domain.InvoiceStatus) ([]*domain.Invoice, error) {
	out := make([]*domain.Invoice, 0)
	for _, inv := range m.invoices {
		if status != nil && inv.Status != *status {
			continue
		}
		if customerID != nil && inv.CustomerID != *customerID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}
func (m *mockInvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	m.updated = append(m.updated, invoice)
	return nil
}
func (m *mockInvoiceRepo) GetNextInvoiceNumber(ctx context.Context, prefix string, year int) (string, error) {
	return domain.FormatInvoiceNumber(prefix, year, len(m.committed)+7), nil
}
