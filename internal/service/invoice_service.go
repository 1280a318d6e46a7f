package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/repository"
)

var (
	ErrInvoiceNotEditable = errors.New("invoice cannot be edited after finalization")
	ErrReferenceNotFound  = errors.New("reference not found for customer")
)

// InvoiceService manages committed invoices after the draft stage
type InvoiceService interface {
	// CreateFromOrder prices, validates and commits an order in one step
	// without touching the draft in progress.
	CreateFromOrder(ctx context.Context, order *Order) (*domain.Invoice, error)

	// Finalize locks the invoice for sending
	Finalize(ctx context.Context, invoiceID int64) error

	// MarkSent updates invoice status to sent
	MarkSent(ctx context.Context, invoiceID int64) error

	// RecordPayment applies a (partial) payment; the invoice is paid once
	// nothing remains.
	RecordPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal, paidAt time.Time) (*domain.Invoice, error)

	// CheckOverdue marks sent invoices past their due date as overdue
	CheckOverdue(ctx context.Context) (int, error)

	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, customerID *int64, status *domain.InvoiceStatus) ([]*domain.Invoice, error)
}

type invoiceService struct {
	invoiceRepo   repository.InvoiceRepository
	productRepo   repository.ProductRepository
	customerRepo  repository.CustomerRepository
	projectRepo   repository.ProjectRepository
	quotationRepo repository.QuotationRepository
	cfg           draft.Config
	log           zerolog.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	projectRepo repository.ProjectRepository,
	quotationRepo repository.QuotationRepository,
	cfg draft.Config,
	log zerolog.Logger,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:   invoiceRepo,
		productRepo:   productRepo,
		customerRepo:  customerRepo,
		projectRepo:   projectRepo,
		quotationRepo: quotationRepo,
		cfg:           cfg.WithDefaults(),
		log:           log.With().Str("component", "invoice").Logger(),
	}
}

func (s *invoiceService) CreateFromOrder(ctx context.Context, order *Order) (*domain.Invoice, error) {
	m := draft.NewManager(s.cfg)
	if err := s.applyHeader(ctx, m, order); err != nil {
		return nil, err
	}

	for _, line := range order.Items {
		product, err := s.productRepo.GetBySKU(ctx, line.SKU)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", line.SKU, err)
		}
		item, err := m.AddItem(*product, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", line.SKU, err)
		}

		overrides := []struct {
			field draft.ItemField
			value *decimal.Decimal
		}{
			{draft.FieldUnitPrice, line.UnitPrice},
			{draft.FieldDiscountRate, line.DiscountRate},
			{draft.FieldTaxRate, line.TaxRate},
			{draft.FieldServiceChargeRate, line.ServiceChargeRate},
		}
		for _, o := range overrides {
			if o.value == nil {
				continue
			}
			if _, err := m.UpdateItem(item.ID, o.field, *o.value); err != nil {
				return nil, fmt.Errorf("item %s: %w", line.SKU, err)
			}
		}
	}

	for _, c := range order.AdditionalTaxes {
		if _, err := m.AddAdditionalCharge(domain.ChargeKindTax, c.Name, c.Rate); err != nil {
			return nil, fmt.Errorf("tax %s: %w", c.Name, err)
		}
	}
	for _, c := range order.AdditionalServiceCharges {
		if _, err := m.AddAdditionalCharge(domain.ChargeKindService, c.Name, c.Rate); err != nil {
			return nil, fmt.Errorf("service charge %s: %w", c.Name, err)
		}
	}

	number, err := s.invoiceRepo.GetNextInvoiceNumber(ctx, s.cfg.NumberPrefix, s.cfg.Now().Year())
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice, err := m.Submit(number)
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Commit(ctx, invoice); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice_number", invoice.InvoiceNumber).
		Str("total", invoice.TotalAmount.String()).
		Msg("invoice created from order")
	return invoice, nil
}

// applyHeader resolves the order's customer, project and quotation by name
func (s *invoiceService) applyHeader(ctx context.Context, m *draft.Manager, order *Order) error {
	customer, err := s.customerRepo.GetByName(ctx, order.Customer)
	if err != nil {
		return fmt.Errorf("customer %q: %w", order.Customer, err)
	}
	if customer.IsArchived {
		return fmt.Errorf("%w: %s", ErrCustomerArchived, customer.Name)
	}
	if err := m.SetCustomer(customer.ID, customer.DisplayName()); err != nil {
		return err
	}

	if order.Project != "" {
		projects, err := s.projectRepo.List(ctx, &customer.ID)
		if err != nil {
			return err
		}
		found := false
		for _, p := range projects {
			if p.Name == order.Project {
				if err := m.SetProject(&p.ID, p.DisplayName()); err != nil {
					return err
				}
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: project %q", ErrReferenceNotFound, order.Project)
		}
	}

	if order.Quotation != "" {
		q, err := s.quotationRepo.GetByReference(ctx, order.Quotation)
		if err != nil {
			return fmt.Errorf("quotation %q: %w", order.Quotation, err)
		}
		if q.CustomerID != customer.ID {
			return fmt.Errorf("%w: quotation %q", ErrReferenceNotFound, order.Quotation)
		}
		if err := m.SetQuotation(&q.ID, q.DisplayName()); err != nil {
			return err
		}
	}

	if err := m.SetTerms(order.PaymentTerms, order.DeliveryTerms, order.WarrantyTerms); err != nil {
		return err
	}
	return m.SetNotes(order.Notes)
}

func (s *invoiceService) Finalize(ctx context.Context, invoiceID int64) error {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}

	if !invoice.CanEdit() {
		return ErrInvoiceNotEditable
	}

	invoice.Finalize()
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return err
	}

	s.log.Info().Str("invoice_number", invoice.InvoiceNumber).Msg("invoice finalized")
	return nil
}

func (s *invoiceService) MarkSent(ctx context.Context, invoiceID int64) error {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}

	if invoice.Status == domain.InvoiceStatusDraft {
		return errors.New("cannot mark draft invoice as sent - finalize first")
	}
	if invoice.Status == domain.InvoiceStatusPaid {
		return errors.New("invoice is already paid")
	}

	invoice.Status = domain.InvoiceStatusSent
	invoice.UpdatedAt = s.cfg.Now()

	return s.invoiceRepo.Update(ctx, invoice)
}

func (s *invoiceService) RecordPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal, paidAt time.Time) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.RecordPayment(amount, paidAt); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice_number", invoice.InvoiceNumber).
		Str("amount", amount.String()).
		Str("remaining", invoice.RemainingAmount.String()).
		Msg("payment recorded")
	return invoice, nil
}

func (s *invoiceService) CheckOverdue(ctx context.Context) (int, error) {
	sentStatus := domain.InvoiceStatusSent
	invoices, err := s.invoiceRepo.List(ctx, nil, &sentStatus)
	if err != nil {
		return 0, err
	}

	now := s.cfg.Now()
	marked := 0
	for _, invoice := range invoices {
		if !invoice.IsOverdue(now) {
			continue
		}
		invoice.Status = domain.InvoiceStatusOverdue
		invoice.UpdatedAt = now
		if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
			return marked, err
		}
		marked++
	}

	if marked > 0 {
		s.log.Info().Int("count", marked).Msg("invoices marked overdue")
	}
	return marked, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, id)
}

func (s *invoiceService) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	return s.invoiceRepo.GetByNumber(ctx, number)
}

func (s *invoiceService) ListInvoices(
	ctx context.Context,
	customerID *int64,
	status *domain.InvoiceStatus,
) ([]*domain.Invoice, error) {
	return s.invoiceRepo.List(ctx, customerID, status)
}
