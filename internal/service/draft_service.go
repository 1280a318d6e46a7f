package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/repository"
)

var (
	ErrDraftInProgress  = errors.New("a draft is already in progress")
	ErrNoActiveDraft    = errors.New("no active draft")
	ErrCustomerArchived = errors.New("customer is archived")
	ErrWrongCustomer    = errors.New("reference belongs to a different customer")
)

// DraftService persists the single draft in progress between commands.
// Each call loads the draft, applies one operation and saves it back; a
// failed operation leaves the stored draft untouched.
type DraftService interface {
	// Start begins an empty draft (only when none is in progress)
	Start(ctx context.Context) (*draft.Manager, error)

	// Current returns the draft in progress, or ErrNoActiveDraft
	Current(ctx context.Context) (*draft.Manager, error)

	// Discard throws the draft away without creating an invoice
	Discard(ctx context.Context) error

	AddItem(ctx context.Context, productID int64, quantity int) (domain.LineItem, error)
	UpdateItem(ctx context.Context, itemID string, field draft.ItemField, value decimal.Decimal) (domain.LineItem, error)
	RemoveItem(ctx context.Context, itemID string) error

	AddCharge(ctx context.Context, kind domain.ChargeKind, name string, rate decimal.Decimal) (domain.AdditionalCharge, error)
	UpdateCharge(ctx context.Context, chargeID string, rate decimal.Decimal) (domain.AdditionalCharge, error)
	RemoveCharge(ctx context.Context, chargeID string) error

	SetCustomer(ctx context.Context, customerID int64) error
	SetProject(ctx context.Context, projectID *int64) error
	SetQuotation(ctx context.Context, quotationID *int64) error
	SetTerms(ctx context.Context, payment, delivery, warranty string) error
	SetNotes(ctx context.Context, notes string) error

	// Submit validates stock and commits the draft as an invoice. A
	// rejected draft is kept, with its violations, for correction.
	Submit(ctx context.Context) (*domain.Invoice, error)
}

type draftService struct {
	draftRepo     repository.DraftRepository
	productRepo   repository.ProductRepository
	customerRepo  repository.CustomerRepository
	projectRepo   repository.ProjectRepository
	quotationRepo repository.QuotationRepository
	invoiceRepo   repository.InvoiceRepository
	cfg           draft.Config
	log           zerolog.Logger
}

// NewDraftService creates a new draft service
func NewDraftService(
	draftRepo repository.DraftRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	projectRepo repository.ProjectRepository,
	quotationRepo repository.QuotationRepository,
	invoiceRepo repository.InvoiceRepository,
	cfg draft.Config,
	log zerolog.Logger,
) DraftService {
	return &draftService{
		draftRepo:     draftRepo,
		productRepo:   productRepo,
		customerRepo:  customerRepo,
		projectRepo:   projectRepo,
		quotationRepo: quotationRepo,
		invoiceRepo:   invoiceRepo,
		cfg:           cfg.WithDefaults(),
		log:           log.With().Str("component", "draft").Logger(),
	}
}

func (s *draftService) Start(ctx context.Context) (*draft.Manager, error) {
	existing, err := s.draftRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDraftInProgress
	}

	m := draft.NewManager(s.cfg)
	if err := s.draftRepo.Save(ctx, m.Snapshot()); err != nil {
		return nil, err
	}

	s.log.Info().Msg("draft started")
	return m, nil
}

func (s *draftService) Current(ctx context.Context) (*draft.Manager, error) {
	snapshot, err := s.draftRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrNoActiveDraft
	}
	m, err := draft.Restore(s.cfg, *snapshot)
	if err != nil {
		return nil, fmt.Errorf("stored draft is unreadable: %w", err)
	}
	return m, nil
}

func (s *draftService) Discard(ctx context.Context) error {
	existing, err := s.draftRepo.Get(ctx)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNoActiveDraft
	}

	if err := s.draftRepo.Delete(ctx); err != nil {
		return err
	}

	s.log.Info().Int("items", len(existing.Items)).Msg("draft discarded")
	return nil
}

// mutate applies fn to the stored draft, starting one if none exists,
// and saves the result only if fn succeeds.
func (s *draftService) mutate(ctx context.Context, fn func(m *draft.Manager) error) error {
	m, err := s.Current(ctx)
	if errors.Is(err, ErrNoActiveDraft) {
		m, err = draft.NewManager(s.cfg), nil
	}
	if err != nil {
		return err
	}

	if err := fn(m); err != nil {
		return err
	}
	return s.draftRepo.Save(ctx, m.Snapshot())
}

func (s *draftService) AddItem(ctx context.Context, productID int64, quantity int) (domain.LineItem, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return domain.LineItem{}, err
	}

	var item domain.LineItem
	err = s.mutate(ctx, func(m *draft.Manager) error {
		var err error
		item, err = m.AddItem(*product, quantity)
		return err
	})
	return item, err
}

func (s *draftService) UpdateItem(ctx context.Context, itemID string, field draft.ItemField, value decimal.Decimal) (domain.LineItem, error) {
	var item domain.LineItem
	err := s.mutate(ctx, func(m *draft.Manager) error {
		var err error
		item, err = m.UpdateItem(itemID, field, value)
		return err
	})
	return item, err
}

func (s *draftService) RemoveItem(ctx context.Context, itemID string) error {
	return s.mutate(ctx, func(m *draft.Manager) error {
		return m.RemoveItem(itemID)
	})
}

func (s *draftService) AddCharge(ctx context.Context, kind domain.ChargeKind, name string, rate decimal.Decimal) (domain.AdditionalCharge, error) {
	var charge domain.AdditionalCharge
	err := s.mutate(ctx, func(m *draft.Manager) error {
		var err error
		charge, err = m.AddAdditionalCharge(kind, name, rate)
		return err
	})
	return charge, err
}

func (s *draftService) UpdateCharge(ctx context.Context, chargeID string, rate decimal.Decimal) (domain.AdditionalCharge, error) {
	var charge domain.AdditionalCharge
	err := s.mutate(ctx, func(m *draft.Manager) error {
		var err error
		charge, err = m.UpdateAdditionalCharge(chargeID, rate)
		return err
	})
	return charge, err
}

func (s *draftService) RemoveCharge(ctx context.Context, chargeID string) error {
	return s.mutate(ctx, func(m *draft.Manager) error {
		return m.RemoveAdditionalCharge(chargeID)
	})
}

func (s *draftService) SetCustomer(ctx context.Context, customerID int64) error {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	if customer.IsArchived {
		return fmt.Errorf("%w: %s", ErrCustomerArchived, customer.Name)
	}

	return s.mutate(ctx, func(m *draft.Manager) error {
		return m.SetCustomer(customer.ID, customer.DisplayName())
	})
}

func (s *draftService) SetProject(ctx context.Context, projectID *int64) error {
	return s.mutate(ctx, func(m *draft.Manager) error {
		if projectID == nil {
			return m.SetProject(nil, "")
		}
		project, err := s.projectRepo.GetByID(ctx, *projectID)
		if err != nil {
			return err
		}
		if err := sameCustomer(m, project.CustomerID); err != nil {
			return err
		}
		return m.SetProject(&project.ID, project.DisplayName())
	})
}

func (s *draftService) SetQuotation(ctx context.Context, quotationID *int64) error {
	return s.mutate(ctx, func(m *draft.Manager) error {
		if quotationID == nil {
			return m.SetQuotation(nil, "")
		}
		quotation, err := s.quotationRepo.GetByID(ctx, *quotationID)
		if err != nil {
			return err
		}
		if err := sameCustomer(m, quotation.CustomerID); err != nil {
			return err
		}
		return m.SetQuotation(&quotation.ID, quotation.DisplayName())
	})
}

// sameCustomer requires the draft's customer to be chosen first and to own
// the referenced project or quotation.
func sameCustomer(m *draft.Manager, ownerID int64) error {
	current := m.Header().CustomerID
	if current <= 0 {
		return domain.ErrMissingCustomer
	}
	if current != ownerID {
		return ErrWrongCustomer
	}
	return nil
}

func (s *draftService) SetTerms(ctx context.Context, payment, delivery, warranty string) error {
	return s.mutate(ctx, func(m *draft.Manager) error {
		return m.SetTerms(payment, delivery, warranty)
	})
}

func (s *draftService) SetNotes(ctx context.Context, notes string) error {
	return s.mutate(ctx, func(m *draft.Manager) error {
		return m.SetNotes(notes)
	})
}

func (s *draftService) Submit(ctx context.Context) (*domain.Invoice, error) {
	m, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	number, err := s.invoiceRepo.GetNextInvoiceNumber(ctx, s.cfg.NumberPrefix, s.cfg.Now().Year())
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice, err := m.Submit(number)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.log.Warn().Int("violations", len(stockErr.Violations)).Msg("draft rejected")
			if saveErr := s.draftRepo.Save(ctx, m.Snapshot()); saveErr != nil {
				return nil, saveErr
			}
		}
		return nil, err
	}

	if err := s.invoiceRepo.Commit(ctx, invoice); err != nil {
		if errors.Is(err, repository.ErrStockConflict) {
			s.log.Warn().Err(err).Msg("stock changed before commit")
		}
		return nil, err
	}

	if err := s.draftRepo.Delete(ctx); err != nil {
		return nil, fmt.Errorf("invoice %s committed but draft was not cleared: %w", invoice.InvoiceNumber, err)
	}

	s.log.Info().
		Str("invoice_number", invoice.InvoiceNumber).
		Str("total", invoice.TotalAmount.String()).
		Int("items", len(invoice.Items)).
		Msg("invoice committed")
	return invoice, nil
}

