package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andy/invoicedesk/internal/db"
	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/repository"
)

var issued = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type store struct {
	customers *repository.CustomerRepo
	products  *repository.ProductRepo
	invoices  *repository.InvoiceRepo
	drafts    *repository.DraftRepo

	customer *domain.Customer
	router   *domain.Product // serial tracked, 3 in stock
	cable    *domain.Product // untracked
}

func openStore(t *testing.T) *store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"), "test-key")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.RunMigrations())

	s := &store{
		customers: repository.NewCustomerRepo(database),
		products:  repository.NewProductRepo(database),
		invoices:  repository.NewInvoiceRepo(database),
		drafts:    repository.NewDraftRepo(database),
	}
	ctx := context.Background()

	s.customer = domain.NewCustomer("ACME")
	require.NoError(t, s.customers.Create(ctx, s.customer))

	s.router = domain.NewProduct("Edge Router", "RTR-1", decimal.NewFromInt(100))
	s.router.CurrentStock = 3
	s.router.IsSerialTracked = true
	require.NoError(t, s.products.Create(ctx, s.router))

	s.cable = domain.NewProduct("Patch Cable", "CAB-1", decimal.RequireFromString("19.99"))
	s.cable.CurrentStock = 1
	require.NoError(t, s.products.Create(ctx, s.cable))

	return s
}

func (s *store) newDraft(t *testing.T) *draft.Manager {
	t.Helper()
	seq := 0
	m := draft.NewManager(draft.Config{
		DefaultTaxRate: decimal.NewFromInt(10),
		DueDays:        30,
		NumberPrefix:   "INV",
		Now:            func() time.Time { return issued },
		NewID: func() string {
			seq++
			return fmt.Sprintf("line-%d", seq)
		},
	})
	require.NoError(t, m.SetCustomer(s.customer.ID, s.customer.Name))
	return m
}

func (s *store) stock(t *testing.T, p *domain.Product) int {
	t.Helper()
	got, err := s.products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.CurrentStock
}

func (s *store) invoiceCount(t *testing.T) int {
	t.Helper()
	list, err := s.invoices.List(context.Background(), nil, nil)
	require.NoError(t, err)
	return len(list)
}

func assertDecimal(t *testing.T, want, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestCommit_ReservesStockAndReadsBack(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	m := s.newDraft(t)
	_, err := m.AddItem(*s.router, 2)
	require.NoError(t, err)
	cable, err := m.AddItem(*s.cable, 5) // untracked, so more than stock is fine
	require.NoError(t, err)
	_, err = m.UpdateItem(cable.ID, draft.FieldDiscountRate, decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	_, err = m.AddAdditionalCharge(domain.ChargeKindTax, "Levy", decimal.NewFromInt(2))
	require.NoError(t, err)
	_, err = m.AddAdditionalCharge(domain.ChargeKindService, "Handling", decimal.RequireFromString("1.5"))
	require.NoError(t, err)

	number, err := s.invoices.GetNextInvoiceNumber(ctx, "INV", 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-001", number)

	inv, err := m.Submit(number)
	require.NoError(t, err)
	require.NoError(t, s.invoices.Commit(ctx, inv))
	require.NotZero(t, inv.ID)

	assert.Equal(t, 1, s.stock(t, s.router))
	assert.Equal(t, 1, s.stock(t, s.cable))

	got, err := s.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-001", got.InvoiceNumber)
	assert.Equal(t, "ACME", got.CustomerName)
	assertDecimal(t, inv.Subtotal, got.Subtotal, "subtotal")
	assertDecimal(t, inv.TotalTaxAmount, got.TotalTaxAmount, "tax")
	assertDecimal(t, inv.TotalServiceChargeAmount, got.TotalServiceChargeAmount, "service")
	assertDecimal(t, inv.TotalAmount, got.TotalAmount, "total")
	assertDecimal(t, inv.TotalAmount, got.RemainingAmount, "remaining")

	require.Len(t, got.Items, 2)
	for i, want := range inv.Items {
		item := got.Items[i]
		assert.Equal(t, want.ID, item.ID)
		assert.Equal(t, want.Quantity, item.Quantity)
		assert.Equal(t, want.IsStockTracked, item.IsStockTracked)
		assertDecimal(t, want.UnitPrice, item.UnitPrice, "unit price")
		assertDecimal(t, want.DiscountRate, item.DiscountRate, "discount rate")
		assertDecimal(t, want.DiscountAmount, item.DiscountAmount, "discount")
		assertDecimal(t, want.TotalPrice, item.TotalPrice, "line total")
	}

	require.Len(t, got.AdditionalTaxes, 1)
	require.Len(t, got.AdditionalServiceCharges, 1)
	assertDecimal(t, inv.AdditionalTaxes[0].Amount, got.AdditionalTaxes[0].Amount, "levy")
	assertDecimal(t, decimal.RequireFromString("1.5"), got.AdditionalServiceCharges[0].Rate, "handling rate")

	number, err = s.invoices.GetNextInvoiceNumber(ctx, "INV", 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-002", number)
}

func TestCommit_StockConflictRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	m := s.newDraft(t)
	_, err := m.AddItem(*s.router, 2)
	require.NoError(t, err)
	inv, err := m.Submit("INV-2026-001")
	require.NoError(t, err)

	// Stock moves after the draft validated against its snapshot of 3
	require.NoError(t, s.products.AdjustStock(ctx, s.router.ID, -2))

	err = s.invoices.Commit(ctx, inv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrStockConflict))

	assert.Equal(t, 1, s.stock(t, s.router))
	assert.Equal(t, 0, s.invoiceCount(t))
	_, err = s.invoices.GetByNumber(ctx, "INV-2026-001")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestCommit_SumsSplitLinesPerProduct(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	m := s.newDraft(t)
	_, err := m.AddItem(*s.router, 2)
	require.NoError(t, err)
	_, err = m.AddItem(*s.router, 1)
	require.NoError(t, err)
	inv, err := m.Submit("INV-2026-001")
	require.NoError(t, err)

	require.NoError(t, s.invoices.Commit(ctx, inv))
	assert.Equal(t, 0, s.stock(t, s.router))

	// A second invoice for the same product now overdraws and leaves nothing behind
	again := s.newDraft(t)
	_, err = again.AddItem(*s.router, 1)
	require.NoError(t, err)
	second, err := again.Submit("INV-2026-002")
	require.NoError(t, err)

	err = s.invoices.Commit(ctx, second)
	assert.True(t, errors.Is(err, repository.ErrStockConflict))
	assert.Equal(t, 1, s.invoiceCount(t))
	assert.Equal(t, 0, s.stock(t, s.router))
}

func TestGetNextInvoiceNumber_PerPrefixAndYear(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	commit := func(number string) {
		t.Helper()
		m := s.newDraft(t)
		_, err := m.AddItem(*s.cable, 1)
		require.NoError(t, err)
		inv, err := m.Submit(number)
		require.NoError(t, err)
		require.NoError(t, s.invoices.Commit(ctx, inv))
	}

	commit("INV-2026-009")
	commit("INV-2025-041")
	commit("SO-2026-100")
	commit("INV-2026-special")

	tests := []struct {
		prefix string
		year   int
		want   string
	}{
		{"INV", 2026, "INV-2026-010"},
		{"INV", 2025, "INV-2025-042"},
		{"SO", 2026, "SO-2026-101"},
		{"INV", 2027, "INV-2027-001"},
	}
	for _, tt := range tests {
		got, err := s.invoices.GetNextInvoiceNumber(ctx, tt.prefix, tt.year)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDraftRepo_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	none, err := s.drafts.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	m := s.newDraft(t)
	item, err := m.AddItem(*s.cable, 3)
	require.NoError(t, err)
	_, err = m.UpdateItem(item.ID, draft.FieldUnitPrice, decimal.RequireFromString("0.333"))
	require.NoError(t, err)
	_, err = m.AddAdditionalCharge(domain.ChargeKindTax, "Levy", decimal.RequireFromString("2.75"))
	require.NoError(t, err)
	require.NoError(t, s.drafts.Save(ctx, m.Snapshot()))

	snapshot, err := s.drafts.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	restored, err := draft.Restore(draft.Config{DefaultTaxRate: decimal.NewFromInt(10)}, *snapshot)
	require.NoError(t, err)
	assert.Equal(t, draft.StateEditing, restored.State())
	assert.Equal(t, s.customer.ID, restored.Header().CustomerID)
	assertDecimal(t, m.Totals().TotalAmount, restored.Totals().TotalAmount, "total")
	assertDecimal(t, decimal.RequireFromString("0.333"), restored.Items()[0].UnitPrice, "unit price")

	require.NoError(t, s.drafts.Delete(ctx))
	none, err = s.drafts.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)
}
