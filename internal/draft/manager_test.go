package draft

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/andy/invoicedesk/internal/domain"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func newTestManager() *Manager {
	seq := 0
	return NewManager(Config{
		DefaultTaxRate:           dec("8"),
		DefaultServiceChargeRate: dec("5"),
		DueDays:                  30,
		NumberPrefix:             "INV",
		Now:                      func() time.Time { return fixedNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
}

func widget() domain.Product {
	return domain.Product{
		ID:               7,
		Name:             "Widget",
		SKU:              "WID-1",
		MainCategoryName: "Hardware",
		SubCategoryName:  "Widgets",
		Manufacturer:     "Acme",
		ModelNumber:      "W1000",
		SellingPrice:     dec("100"),
		CurrentStock:     50,
	}
}

func trackedProduct(stock int) domain.Product {
	p := widget()
	p.ID = 9
	p.Name = "Serial Router"
	p.CurrentStock = stock
	p.IsSerialTracked = true
	return p
}

func TestNewManager_StartsEmpty(t *testing.T) {
	m := newTestManager()

	assert.Equal(t, StateEmpty, m.State())
	assert.Empty(t, m.Items())
	assert.True(t, m.Totals().TotalAmount.IsZero())
}

func TestAddItem_UsesProductAndDefaults(t *testing.T) {
	m := newTestManager()

	item, err := m.AddItem(widget(), 2)
	require.NoError(t, err)

	assert.Equal(t, StateEditing, m.State())
	assert.Equal(t, "id-1", item.ID)
	assert.Equal(t, int64(7), item.ProductID)
	assert.Equal(t, "Widget", item.ProductName)
	assert.Equal(t, "WID-1", item.SKU)
	assert.Equal(t, "Hardware", item.MainCategoryName)
	assert.Equal(t, "Widgets", item.SubCategoryName)
	assert.Equal(t, "Acme", item.Manufacturer)
	assert.Equal(t, "W1000", item.ModelNumber)
	assert.Equal(t, 50, item.StockAvailable)
	assert.False(t, item.IsStockTracked)
	assert.True(t, item.DiscountRate.IsZero())
	assertDecimal(t, "8", item.TaxRate, "tax rate")
	assertDecimal(t, "5", item.ServiceChargeRate, "service charge rate")

	// 200 net, 16 tax, 10 service
	assertDecimal(t, "226", item.TotalPrice, "total price")
	assertDecimal(t, "226", m.Totals().TotalAmount, "draft total")
}

func TestAddItem_InvalidQuantityLeavesDraftUntouched(t *testing.T) {
	m := newTestManager()

	_, err := m.AddItem(widget(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidItemInput))
	assert.Equal(t, StateEmpty, m.State())
	assert.Empty(t, m.Items())
}

func TestDraft_TwoItemScenarioWithAdditionalTax(t *testing.T) {
	m := newTestManager()

	for i := 0; i < 2; i++ {
		item, err := m.AddItem(widget(), 2)
		require.NoError(t, err)
		_, err = m.UpdateItem(item.ID, FieldDiscountRate, dec("10"))
		require.NoError(t, err)
	}
	assertDecimal(t, "360", m.Totals().Subtotal, "subtotal")

	levy, err := m.AddAdditionalCharge(domain.ChargeKindTax, "Levy", dec("2"))
	require.NoError(t, err)
	assertDecimal(t, "7.2", levy.Amount, "levy amount")

	totals := m.Totals()
	assertDecimal(t, "36", totals.TotalTaxAmount, "total tax")
	assertDecimal(t, "18", totals.TotalServiceChargeAmount, "total service charge")
	assertDecimal(t, "414", totals.TotalAmount, "total")
}

func TestDraft_ChargeAmountFollowsCurrentSubtotal(t *testing.T) {
	m := newTestManager()
	_, err := m.AddItem(widget(), 1)
	require.NoError(t, err)

	levy, err := m.AddAdditionalCharge(domain.ChargeKindTax, "Levy", dec("2"))
	require.NoError(t, err)
	assertDecimal(t, "2", levy.Amount, "levy on 100")

	second, err := m.AddItem(widget(), 3)
	require.NoError(t, err)
	assertDecimal(t, "8", m.Totals().AdditionalTaxes[0].Amount, "levy on 400")

	require.NoError(t, m.RemoveItem(second.ID))
	assertDecimal(t, "2", m.Totals().AdditionalTaxes[0].Amount, "levy back on 100")
}

func TestUpdateItem_TouchesOnlyThatItem(t *testing.T) {
	m := newTestManager()
	first, err := m.AddItem(widget(), 1)
	require.NoError(t, err)
	second, err := m.AddItem(widget(), 1)
	require.NoError(t, err)

	updated, err := m.UpdateItem(second.ID, FieldQuantity, dec("4"))
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assertDecimal(t, "452", updated.TotalPrice, "updated total")

	got, ok := m.Item(first.ID)
	require.True(t, ok)
	assert.Equal(t, first, got)
	assertDecimal(t, "565", m.Totals().TotalAmount, "draft total")
}

func TestUpdateItem_EachField(t *testing.T) {
	tests := []struct {
		field ItemField
		value string
		check func(t *testing.T, li domain.LineItem)
	}{
		{FieldUnitPrice, "50", func(t *testing.T, li domain.LineItem) { assertDecimal(t, "50", li.UnitPrice, "unit price") }},
		{FieldDiscountRate, "25", func(t *testing.T, li domain.LineItem) { assertDecimal(t, "25", li.DiscountAmount, "discount") }},
		{FieldTaxRate, "0", func(t *testing.T, li domain.LineItem) { assert.True(t, li.TaxAmount.IsZero()) }},
		{FieldServiceChargeRate, "10", func(t *testing.T, li domain.LineItem) { assertDecimal(t, "10", li.ServiceChargeAmount, "service") }},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			m := newTestManager()
			item, err := m.AddItem(widget(), 1)
			require.NoError(t, err)

			updated, err := m.UpdateItem(item.ID, tt.field, dec(tt.value))
			require.NoError(t, err)
			tt.check(t, updated)
		})
	}
}

func TestUpdateItem_Errors(t *testing.T) {
	m := newTestManager()
	item, err := m.AddItem(widget(), 2)
	require.NoError(t, err)
	before := m.Snapshot()

	_, err = m.UpdateItem("missing", FieldQuantity, dec("1"))
	assert.True(t, errors.Is(err, domain.ErrItemNotFound))

	_, err = m.UpdateItem(item.ID, FieldQuantity, dec("-1"))
	assert.True(t, errors.Is(err, domain.ErrInvalidItemInput))

	_, err = m.UpdateItem(item.ID, FieldQuantity, dec("1.5"))
	assert.True(t, errors.Is(err, domain.ErrInvalidItemInput))

	_, err = m.UpdateItem(item.ID, FieldQuantity, dec("18446744073709551621"))
	var rangeErr *domain.InvalidInputError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, "quantity", rangeErr.Field)
	assert.Equal(t, "is out of range", rangeErr.Reason)

	_, err = m.UpdateItem(item.ID, FieldQuantity, dec("-18446744073709551611"))
	assert.True(t, errors.Is(err, domain.ErrInvalidItemInput))

	_, err = m.UpdateItem(item.ID, FieldTaxRate, dec("140"))
	var inputErr *domain.InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "tax_rate", inputErr.Field)

	_, err = m.UpdateItem(item.ID, FieldUnitPrice, dec("-3"))
	assert.True(t, errors.Is(err, domain.ErrInvalidItemInput))

	assert.Equal(t, before, m.Snapshot())
}

func TestRemoveItem(t *testing.T) {
	m := newTestManager()
	first, err := m.AddItem(widget(), 1)
	require.NoError(t, err)
	_, err = m.AddItem(widget(), 2)
	require.NoError(t, err)

	require.NoError(t, m.RemoveItem(first.ID))
	require.Len(t, m.Items(), 1)
	assertDecimal(t, "200", m.Totals().Subtotal, "subtotal")

	err = m.RemoveItem(first.ID)
	assert.True(t, errors.Is(err, domain.ErrItemNotFound))
}

func TestItems_ReturnsCopies(t *testing.T) {
	m := newTestManager()
	_, err := m.AddItem(widget(), 1)
	require.NoError(t, err)

	items := m.Items()
	items[0].Quantity = 99
	items[0].TotalPrice = dec("1")

	assert.Equal(t, 1, m.Items()[0].Quantity)
	assertDecimal(t, "113", m.Items()[0].TotalPrice, "total price")
}

func TestAdditionalCharges(t *testing.T) {
	m := newTestManager()
	_, err := m.AddItem(widget(), 1)
	require.NoError(t, err)

	delivery, err := m.AddAdditionalCharge(domain.ChargeKindService, "Delivery", dec("3"))
	require.NoError(t, err)
	assertDecimal(t, "3", delivery.Amount, "delivery")
	assertDecimal(t, "8", m.Totals().TotalServiceChargeAmount, "service total")

	updated, err := m.UpdateAdditionalCharge(delivery.ID, dec("10"))
	require.NoError(t, err)
	assertDecimal(t, "10", updated.Amount, "delivery after update")

	_, err = m.UpdateAdditionalCharge("nope", dec("1"))
	assert.True(t, errors.Is(err, domain.ErrChargeNotFound))

	_, err = m.UpdateAdditionalCharge(delivery.ID, dec("101"))
	assert.True(t, errors.Is(err, domain.ErrInvalidItemInput))

	_, err = m.AddAdditionalCharge("discount", "Oops", dec("1"))
	assert.True(t, errors.Is(err, domain.ErrInvalidItemInput))

	require.NoError(t, m.RemoveAdditionalCharge(delivery.ID))
	assert.Empty(t, m.Totals().AdditionalServiceCharges)
	assert.True(t, errors.Is(m.RemoveAdditionalCharge(delivery.ID), domain.ErrChargeNotFound))
}

func TestSetCustomer_ClearsCustomerScopedReferences(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetCustomer(1, "Acme Corp"))
	projectID, quotationID := int64(4), int64(5)
	require.NoError(t, m.SetProject(&projectID, "Fit-out"))
	require.NoError(t, m.SetQuotation(&quotationID, "Q-2026-005"))

	require.NoError(t, m.SetCustomer(1, "Acme Corp"))
	require.NotNil(t, m.Header().ProjectID)

	require.NoError(t, m.SetCustomer(2, "Globex"))
	h := m.Header()
	assert.Equal(t, int64(2), h.CustomerID)
	assert.Nil(t, h.ProjectID)
	assert.Empty(t, h.ProjectName)
	assert.Nil(t, h.QuotationID)
	assert.Empty(t, h.QuotationRef)
}

func TestSubmit_MissingCustomer(t *testing.T) {
	m := newTestManager()
	_, err := m.AddItem(widget(), 1)
	require.NoError(t, err)

	inv, err := m.Submit("INV-2026-001")
	assert.Nil(t, inv)
	assert.True(t, errors.Is(err, domain.ErrMissingCustomer))
	assert.Equal(t, StateEditing, m.State())
}

func TestSubmit_EmptyInvoice(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetCustomer(1, "Acme Corp"))

	_, err := m.Submit("INV-2026-001")
	assert.True(t, errors.Is(err, domain.ErrEmptyInvoice))
	assert.Equal(t, StateEditing, m.State())
}

func TestSubmit_InsufficientStockThenResubmit(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetCustomer(1, "Acme Corp"))
	item, err := m.AddItem(trackedProduct(3), 5)
	require.NoError(t, err)
	_, err = m.AddItem(widget(), 500)
	require.NoError(t, err)

	inv, err := m.Submit("INV-2026-001")
	assert.Nil(t, inv)
	require.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Violations, 1)
	assert.Equal(t, "Serial Router", stockErr.Violations[0].ProductName)
	assert.Equal(t, 5, stockErr.Violations[0].Requested)
	assert.Equal(t, 3, stockErr.Violations[0].Available)
	assert.Equal(t, StateRejected, m.State())
	assert.Len(t, m.Violations(), 1)
	assert.Len(t, m.Items(), 2)

	_, err = m.UpdateItem(item.ID, FieldQuantity, dec("3"))
	require.NoError(t, err)
	assert.Equal(t, StateEditing, m.State())
	assert.Empty(t, m.Violations())

	inv, err = m.Submit("INV-2026-001")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, m.State())
	assert.Equal(t, "Serial Router", inv.Items[0].ProductName)
}

func TestSubmit_SameProductOnTwoLines(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetCustomer(1, "Acme Corp"))
	first, err := m.AddItem(trackedProduct(3), 2)
	require.NoError(t, err)
	_, err = m.AddItem(trackedProduct(3), 2)
	require.NoError(t, err)

	_, err = m.Submit("INV-2026-001")
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Violations, 2)
	assert.Equal(t, 4, stockErr.Violations[0].Requested)
	assert.Equal(t, 3, stockErr.Violations[0].Available)
	assert.Equal(t, StateRejected, m.State())

	_, err = m.UpdateItem(first.ID, FieldQuantity, dec("1"))
	require.NoError(t, err)
	_, err = m.Submit("INV-2026-001")
	require.NoError(t, err)
}

func TestSubmit_RejectedCanBeResubmittedUnchanged(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetCustomer(1, "Acme Corp"))
	_, err := m.AddItem(trackedProduct(0), 1)
	require.NoError(t, err)

	_, err = m.Submit("")
	require.Error(t, err)
	_, err = m.Submit("")
	require.Error(t, err)
	assert.Equal(t, StateRejected, m.State())
}

func TestSubmit_StampsInvoice(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetCustomer(1, "Acme Corp"))
	projectID := int64(3)
	require.NoError(t, m.SetProject(&projectID, "Warehouse"))
	require.NoError(t, m.SetTerms("Net 30", "FOB", "12 months"))
	require.NoError(t, m.SetNotes("Thanks"))
	_, err := m.AddItem(widget(), 2)
	require.NoError(t, err)
	_, err = m.AddAdditionalCharge(domain.ChargeKindTax, "Levy", dec("2"))
	require.NoError(t, err)

	inv, err := m.Submit("INV-2026-042")
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-042", inv.InvoiceNumber)
	assert.Equal(t, domain.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, int64(1), inv.CustomerID)
	assert.Equal(t, "Acme Corp", inv.CustomerName)
	require.NotNil(t, inv.ProjectID)
	assert.Equal(t, int64(3), *inv.ProjectID)
	assert.Equal(t, "Net 30", inv.PaymentTerms)
	assert.Equal(t, "FOB", inv.DeliveryTerms)
	assert.Equal(t, "12 months", inv.WarrantyTerms)
	assert.Equal(t, "Thanks", inv.Notes)
	assert.Equal(t, fixedNow, inv.IssueDate)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), inv.DueDate)
	assertDecimal(t, "200", inv.Subtotal, "subtotal")
	assertDecimal(t, "20", inv.TotalTaxAmount, "tax")
	assertDecimal(t, "230", inv.TotalAmount, "total")
	assert.True(t, inv.PaidAmount.IsZero())
	assert.True(t, inv.RemainingAmount.Equal(inv.TotalAmount))
	require.Len(t, inv.AdditionalTaxes, 1)
	assertDecimal(t, "4", inv.AdditionalTaxes[0].Amount, "levy")
}

func TestSubmit_FallbackNumber(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetCustomer(1, "Acme Corp"))
	_, err := m.AddItem(widget(), 1)
	require.NoError(t, err)

	inv, err := m.Submit("")
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-001", inv.InvoiceNumber)
}

func TestCommitted_IsTerminal(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetCustomer(1, "Acme Corp"))
	item, err := m.AddItem(widget(), 1)
	require.NoError(t, err)
	_, err = m.Submit("INV-2026-001")
	require.NoError(t, err)

	_, err = m.AddItem(widget(), 1)
	assert.ErrorIs(t, err, ErrDraftCommitted)
	_, err = m.UpdateItem(item.ID, FieldQuantity, dec("2"))
	assert.ErrorIs(t, err, ErrDraftCommitted)
	assert.ErrorIs(t, m.RemoveItem(item.ID), ErrDraftCommitted)
	assert.ErrorIs(t, m.SetNotes("late"), ErrDraftCommitted)
	_, err = m.Submit("INV-2026-002")
	assert.ErrorIs(t, err, ErrDraftCommitted)
}

func TestSnapshotRestore_YAMLRoundTrip(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetCustomer(1, "Acme Corp"))
	item, err := m.AddItem(widget(), 2)
	require.NoError(t, err)
	_, err = m.UpdateItem(item.ID, FieldDiscountRate, dec("12.5"))
	require.NoError(t, err)
	_, err = m.AddItem(trackedProduct(4), 1)
	require.NoError(t, err)
	_, err = m.AddAdditionalCharge(domain.ChargeKindService, "Delivery", dec("1.25"))
	require.NoError(t, err)

	data, err := yaml.Marshal(m.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, yaml.Unmarshal(data, &snap))

	restored, err := Restore(m.cfg, snap)
	require.NoError(t, err)

	assert.Equal(t, m.State(), restored.State())
	assert.Equal(t, m.Header(), restored.Header())
	require.Len(t, restored.Items(), 2)
	assert.True(t, restored.Items()[1].IsStockTracked)
	assert.Equal(t, fixedNow, restored.CreatedAt())

	want, got := m.Totals(), restored.Totals()
	assert.True(t, want.Subtotal.Equal(got.Subtotal))
	assert.True(t, want.TotalTaxAmount.Equal(got.TotalTaxAmount))
	assert.True(t, want.TotalServiceChargeAmount.Equal(got.TotalServiceChargeAmount))
	assert.True(t, want.TotalAmount.Equal(got.TotalAmount))
}

func TestRestore_RecomputesDerivedFields(t *testing.T) {
	snap := Snapshot{
		State:  StateEditing,
		Header: Header{CustomerID: 1},
		Items: []domain.LineItem{{
			ID:          "x",
			ProductName: "Widget",
			ItemInput:   domain.ItemInput{Quantity: 1, UnitPrice: dec("10")},
			ItemAmounts: domain.ItemAmounts{TotalPrice: dec("9999")},
		}},
	}

	m, err := Restore(Config{Now: func() time.Time { return fixedNow }}, snap)
	require.NoError(t, err)
	assertDecimal(t, "10", m.Items()[0].TotalPrice, "total price")
}

func TestRestore_RejectsInvalidItems(t *testing.T) {
	snap := Snapshot{Items: []domain.LineItem{{ID: "x", ItemInput: domain.ItemInput{Quantity: 0}}}}

	_, err := Restore(Config{}, snap)
	assert.True(t, errors.Is(err, domain.ErrInvalidItemInput))
}

func TestRestore_ValidatingResumesEditing(t *testing.T) {
	snap := Snapshot{
		State: StateValidating,
		Items: []domain.LineItem{{ID: "x", ItemInput: domain.ItemInput{Quantity: 1, UnitPrice: dec("1")}}},
	}

	m, err := Restore(Config{}, snap)
	require.NoError(t, err)
	assert.Equal(t, StateEditing, m.State())
}
