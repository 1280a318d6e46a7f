package pricing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andy/invoicedesk/internal/domain"
)

func pricedItem(t *testing.T, id string, in domain.ItemInput) domain.LineItem {
	t.Helper()
	amounts, err := PriceItem(in)
	require.NoError(t, err)
	return domain.LineItem{ID: id, ItemInput: in, ItemAmounts: amounts}
}

func TestAggregate_Empty(t *testing.T) {
	totals := Aggregate(nil, nil, nil)

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.TotalTaxAmount.IsZero())
	assert.True(t, totals.TotalServiceChargeAmount.IsZero())
	assert.True(t, totals.TotalAmount.IsZero())
	assert.Empty(t, totals.AdditionalTaxes)
	assert.Empty(t, totals.AdditionalServiceCharges)
}

func TestAggregate_EmptyItemsWithCharges(t *testing.T) {
	taxes := []domain.AdditionalCharge{{ID: "t1", Kind: domain.ChargeKindTax, Name: "VAT", Rate: dec("15")}}

	totals := Aggregate(nil, taxes, nil)

	assert.True(t, totals.TotalAmount.IsZero())
	require.Len(t, totals.AdditionalTaxes, 1)
	assert.True(t, totals.AdditionalTaxes[0].Amount.IsZero())
}

func TestAggregate_TwoItemsWithAdditionalTax(t *testing.T) {
	in := domain.ItemInput{
		Quantity:          2,
		UnitPrice:         dec("100"),
		DiscountRate:      dec("10"),
		TaxRate:           dec("8"),
		ServiceChargeRate: dec("5"),
	}
	items := []domain.LineItem{pricedItem(t, "a", in), pricedItem(t, "b", in)}
	taxes := []domain.AdditionalCharge{{ID: "t1", Kind: domain.ChargeKindTax, Name: "Levy", Rate: dec("2")}}

	totals := Aggregate(items, taxes, nil)

	assertDecimal(t, "360", totals.Subtotal, "subtotal")
	require.Len(t, totals.AdditionalTaxes, 1)
	assertDecimal(t, "7.2", totals.AdditionalTaxes[0].Amount, "additional tax")
	assertDecimal(t, "36", totals.TotalTaxAmount, "total tax")
	assertDecimal(t, "18", totals.TotalServiceChargeAmount, "total service charge")
	assertDecimal(t, "414", totals.TotalAmount, "total")
}

func TestAggregate_ServiceChargesUseSubtotal(t *testing.T) {
	items := []domain.LineItem{pricedItem(t, "a", domain.ItemInput{Quantity: 4, UnitPrice: dec("25")})}
	charges := []domain.AdditionalCharge{
		{ID: "s1", Kind: domain.ChargeKindService, Name: "Delivery", Rate: dec("3")},
		{ID: "s2", Kind: domain.ChargeKindService, Name: "Installation", Rate: dec("7")},
	}

	totals := Aggregate(items, nil, charges)

	require.Len(t, totals.AdditionalServiceCharges, 2)
	assertDecimal(t, "3", totals.AdditionalServiceCharges[0].Amount, "delivery")
	assertDecimal(t, "7", totals.AdditionalServiceCharges[1].Amount, "installation")
	assertDecimal(t, "10", totals.TotalServiceChargeAmount, "total service charge")
	assertDecimal(t, "110", totals.TotalAmount, "total")
}

func TestAggregate_DoesNotModifyInputs(t *testing.T) {
	taxes := []domain.AdditionalCharge{{ID: "t1", Kind: domain.ChargeKindTax, Rate: dec("5")}}
	items := []domain.LineItem{pricedItem(t, "a", domain.ItemInput{Quantity: 1, UnitPrice: dec("10")})}

	_ = Aggregate(items, taxes, nil)

	assert.True(t, taxes[0].Amount.IsZero())
}

func TestAggregate_OrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	items := make([]domain.LineItem, 25)
	for i := range items {
		items[i] = pricedItem(t, string(rune('a'+i)), randomInput(r))
	}
	taxes := []domain.AdditionalCharge{{ID: "t1", Kind: domain.ChargeKindTax, Rate: dec("2.5")}}
	charges := []domain.AdditionalCharge{{ID: "s1", Kind: domain.ChargeKindService, Rate: dec("1.75")}}

	want := Aggregate(items, taxes, charges)

	for round := 0; round < 50; round++ {
		shuffled := append([]domain.LineItem(nil), items...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := Aggregate(shuffled, taxes, charges)
		require.True(t, want.Subtotal.Equal(got.Subtotal))
		require.True(t, want.TotalTaxAmount.Equal(got.TotalTaxAmount))
		require.True(t, want.TotalServiceChargeAmount.Equal(got.TotalServiceChargeAmount))
		require.True(t, want.TotalAmount.Equal(got.TotalAmount))
	}
}
