package repository

import (
	"context"
	"errors"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/draft"
)

var (
	// ErrNotFound is wrapped by every lookup that matches no row
	ErrNotFound = errors.New("not found")

	// ErrStockConflict means stock changed between validation and commit
	ErrStockConflict = errors.New("stock changed since validation")
)

// CustomerRepository manages customer persistence
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByName(ctx context.Context, name string) (*domain.Customer, error)
	List(ctx context.Context, includeArchived bool) ([]*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
	Archive(ctx context.Context, id int64) error
	Unarchive(ctx context.Context, id int64) error
}

// ProjectRepository manages customer projects
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context, customerID *int64) ([]*domain.Project, error)
}

// QuotationRepository manages quotations invoices can refer to
type QuotationRepository interface {
	Create(ctx context.Context, quotation *domain.Quotation) error
	GetByID(ctx context.Context, id int64) (*domain.Quotation, error)
	GetByReference(ctx context.Context, reference string) (*domain.Quotation, error)
	List(ctx context.Context, customerID *int64) ([]*domain.Quotation, error)
}

// ProductRepository manages the product catalog and stock levels
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	AdjustStock(ctx context.Context, id int64, delta int) error
	LowStock(ctx context.Context, threshold int) ([]*domain.Product, error)
}

// InvoiceRepository manages committed invoices
type InvoiceRepository interface {
	// Commit stores the invoice with its items and charges and reserves
	// stock for tracked items, all in one transaction.
	Commit(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*domain.Invoice, error)
	List(ctx context.Context, customerID *int64, status *domain.InvoiceStatus) ([]*domain.Invoice, error)
	// Update persists status and payment changes; items are immutable
	Update(ctx context.Context, invoice *domain.Invoice) error
	GetNextInvoiceNumber(ctx context.Context, prefix string, year int) (string, error)
}

// DraftRepository stores the draft in progress (singleton)
type DraftRepository interface {
	Get(ctx context.Context) (*draft.Snapshot, error) // Returns nil if no draft exists
	Save(ctx context.Context, snapshot draft.Snapshot) error
	Delete(ctx context.Context) error
}
