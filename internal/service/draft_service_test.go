package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/repository"
)

type draftFixture struct {
	svc      *draftService
	drafts   *mockDraftRepo
	invoices *mockInvoiceRepo
}

func newDraftFixture() draftFixture {
	drafts := &mockDraftRepo{}
	invoices := &mockInvoiceRepo{invoices: map[int64]*domain.Invoice{}}
	svc := &draftService{
		draftRepo: drafts,
		productRepo: &mockProductRepo{products: map[int64]*domain.Product{
			1: {ID: 1, Name: "Cable", SKU: "CAB-1", SellingPrice: decimal.NewFromInt(20), CurrentStock: 100},
			2: {ID: 2, Name: "Switch", SKU: "SW-24", SellingPrice: decimal.NewFromInt(300), CurrentStock: 2, IsSerialTracked: true},
		}},
		customerRepo: &mockCustomerRepo{customers: map[int64]*domain.Customer{
			1: {ID: 1, Name: "ACME"},
			2: {ID: 2, Name: "Globex"},
			3: {ID: 3, Name: "Gone Ltd", IsArchived: true},
		}},
		projectRepo: &mockProjectRepo{projects: map[int64]*domain.Project{
			10: {ID: 10, CustomerID: 1, Name: "HQ network"},
		}},
		quotationRepo: &mockQuotationRepo{quotations: map[int64]*domain.Quotation{
			20: {ID: 20, CustomerID: 2, Reference: "Q-20"},
		}},
		invoiceRepo: invoices,
		cfg:         testDraftConfig(),
		log:         zerolog.Nop(),
	}
	return draftFixture{svc: svc, drafts: drafts, invoices: invoices}
}

func TestDraftService_AddItemStartsDraft(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	item, err := f.svc.AddItem(ctx, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ProductName != "Cable" || !item.TotalPrice.Equal(decimal.NewFromInt(66)) {
		t.Fatalf("unexpected item: %s total %s", item.ProductName, item.TotalPrice)
	}

	if f.drafts.snapshot == nil || len(f.drafts.snapshot.Items) != 1 {
		t.Fatalf("expected saved draft with one item")
	}
	if f.drafts.snapshot.State != draft.StateEditing {
		t.Fatalf("expected editing state, got %s", f.drafts.snapshot.State)
	}
}

func TestDraftService_StartTwice(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	if _, err := f.svc.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Start(ctx); !errors.Is(err, ErrDraftInProgress) {
		t.Fatalf("expected ErrDraftInProgress, got %v", err)
	}
}

func TestDraftService_CurrentWithoutDraft(t *testing.T) {
	f := newDraftFixture()

	if _, err := f.svc.Current(context.Background()); !errors.Is(err, ErrNoActiveDraft) {
		t.Fatalf("expected ErrNoActiveDraft, got %v", err)
	}
	if err := f.svc.Discard(context.Background()); !errors.Is(err, ErrNoActiveDraft) {
		t.Fatalf("expected ErrNoActiveDraft on discard, got %v", err)
	}
}

func TestDraftService_FailedMutationIsNotSaved(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	item, err := f.svc.AddItem(ctx, 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saves := f.drafts.saves

	if _, err := f.svc.UpdateItem(ctx, item.ID, draft.FieldDiscountRate, decimal.NewFromInt(150)); !errors.Is(err, domain.ErrInvalidItemInput) {
		t.Fatalf("expected ErrInvalidItemInput, got %v", err)
	}
	if err := f.svc.RemoveItem(ctx, "nope"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := f.svc.AddItem(ctx, 99, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}

	if f.drafts.saves != saves {
		t.Fatalf("expected no saves after failed operations, got %d more", f.drafts.saves-saves)
	}
	if !f.drafts.snapshot.Items[0].DiscountRate.IsZero() {
		t.Fatalf("stored discount changed")
	}
}

func TestDraftService_SetCustomerRules(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()
	project := int64(10)
	quotation := int64(20)

	if err := f.svc.SetProject(ctx, &project); !errors.Is(err, domain.ErrMissingCustomer) {
		t.Fatalf("expected ErrMissingCustomer, got %v", err)
	}
	if err := f.svc.SetCustomer(ctx, 3); !errors.Is(err, ErrCustomerArchived) {
		t.Fatalf("expected ErrCustomerArchived, got %v", err)
	}

	if err := f.svc.SetCustomer(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.SetProject(ctx, &project); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.SetQuotation(ctx, &quotation); !errors.Is(err, ErrWrongCustomer) {
		t.Fatalf("expected ErrWrongCustomer, got %v", err)
	}

	h := f.drafts.snapshot.Header
	if h.CustomerName != "ACME" || h.ProjectName != "HQ network" {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestDraftService_SubmitRejectedKeepsDraft(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	if err := f.svc.SetCustomer(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item, err := f.svc.AddItem(ctx, 2, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.Submit(ctx)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(stockErr.Violations) != 1 || stockErr.Violations[0].Available != 2 {
		t.Fatalf("unexpected violations: %+v", stockErr.Violations)
	}
	if f.drafts.snapshot == nil || f.drafts.snapshot.State != draft.StateRejected {
		t.Fatalf("expected rejected draft to be stored")
	}
	if len(f.invoices.committed) != 0 {
		t.Fatalf("rejected draft must not be committed")
	}

	if _, err := f.svc.UpdateItem(ctx, item.ID, draft.FieldQuantity, decimal.NewFromInt(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	invoice, err := f.svc.Submit(ctx)
	if err != nil {
		t.Fatalf("unexpected error on resubmit: %v", err)
	}
	if invoice.InvoiceNumber != "INV-2026-007" {
		t.Fatalf("expected store-assigned number, got %s", invoice.InvoiceNumber)
	}
	// 600 + 10% tax
	if !invoice.TotalAmount.Equal(decimal.NewFromInt(660)) {
		t.Fatalf("expected total 660, got %s", invoice.TotalAmount)
	}
	if f.drafts.snapshot != nil {
		t.Fatalf("expected draft to be cleared after commit")
	}
}

func TestDraftService_SubmitStockConflictKeepsDraft(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()
	f.invoices.commitErr = repository.ErrStockConflict

	if err := f.svc.SetCustomer(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, 2, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.svc.Submit(ctx); !errors.Is(err, repository.ErrStockConflict) {
		t.Fatalf("expected ErrStockConflict, got %v", err)
	}
	if f.drafts.snapshot == nil || f.drafts.snapshot.State != draft.StateEditing {
		t.Fatalf("expected draft to stay editable after a failed commit")
	}
}

func TestDraftService_Charges(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	if _, err := f.svc.AddItem(ctx, 1, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	charge, err := f.svc.AddCharge(ctx, domain.ChargeKindService, "Install", decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !charge.Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected charge amount 10, got %s", charge.Amount)
	}

	if _, err := f.svc.AddItem(ctx, 1, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := f.svc.Current(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Totals().AdditionalServiceCharges[0].Amount; !got.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected charge to follow subtotal to 20, got %s", got)
	}

	if err := f.svc.RemoveCharge(ctx, charge.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.UpdateCharge(ctx, charge.ID, decimal.NewFromInt(1)); !errors.Is(err, domain.ErrChargeNotFound) {
		t.Fatalf("expected ErrChargeNotFound, got %v", err)
	}
}
