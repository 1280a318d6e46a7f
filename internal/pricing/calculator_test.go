package pricing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andy/invoicedesk/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func randomInput(r *rand.Rand) domain.ItemInput {
	return domain.ItemInput{
		Quantity:          1 + r.Intn(500),
		UnitPrice:         decimal.New(r.Int63n(10_000_000), -2),
		DiscountRate:      decimal.New(r.Int63n(10_001), -2),
		TaxRate:           decimal.New(r.Int63n(10_001), -2),
		ServiceChargeRate: decimal.New(r.Int63n(10_001), -2),
	}
}

func TestPriceItem_Scenario(t *testing.T) {
	amounts, err := PriceItem(domain.ItemInput{
		Quantity:          2,
		UnitPrice:         dec("100"),
		DiscountRate:      dec("10"),
		TaxRate:           dec("8"),
		ServiceChargeRate: dec("5"),
	})
	require.NoError(t, err)

	assertDecimal(t, "20", amounts.DiscountAmount, "discount")
	assertDecimal(t, "14.4", amounts.TaxAmount, "tax")
	assertDecimal(t, "9", amounts.ServiceChargeAmount, "service charge")
	assertDecimal(t, "203.4", amounts.TotalPrice, "total")
}

func TestPriceItem_TaxAndServiceUseDiscountedBase(t *testing.T) {
	amounts, err := PriceItem(domain.ItemInput{
		Quantity:          1,
		UnitPrice:         dec("1000"),
		DiscountRate:      dec("50"),
		TaxRate:           dec("10"),
		ServiceChargeRate: dec("10"),
	})
	require.NoError(t, err)

	// 10% of the discounted 500, not of the gross 1000 or of net+tax
	assertDecimal(t, "50", amounts.TaxAmount, "tax")
	assertDecimal(t, "50", amounts.ServiceChargeAmount, "service charge")
	assertDecimal(t, "600", amounts.TotalPrice, "total")
}

func TestPriceItem_KeepsFullPrecision(t *testing.T) {
	amounts, err := PriceItem(domain.ItemInput{
		Quantity:          3,
		UnitPrice:         dec("0.333"),
		DiscountRate:      dec("12.5"),
		TaxRate:           dec("7.25"),
		ServiceChargeRate: dec("0"),
	})
	require.NoError(t, err)

	// gross 0.999, discount 0.124875, net 0.874125
	assertDecimal(t, "0.124875", amounts.DiscountAmount, "discount")
	assertDecimal(t, "0.0633740625", amounts.TaxAmount, "tax")
	assertDecimal(t, "0.9374990625", amounts.TotalPrice, "total")
}

func TestPriceItem_TotalIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		in := randomInput(r)
		amounts, err := PriceItem(in)
		require.NoError(t, err)

		want := in.Gross().Sub(amounts.DiscountAmount).Add(amounts.TaxAmount).Add(amounts.ServiceChargeAmount)
		require.Truef(t, want.Equal(amounts.TotalPrice), "input %+v: total %s != %s", in, amounts.TotalPrice, want)
	}
}

func TestPriceItem_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		in := randomInput(r)
		first, err := PriceItem(in)
		require.NoError(t, err)
		second, err := PriceItem(in)
		require.NoError(t, err)

		assert.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
		assert.True(t, first.TaxAmount.Equal(second.TaxAmount))
		assert.True(t, first.ServiceChargeAmount.Equal(second.ServiceChargeAmount))
		assert.True(t, first.TotalPrice.Equal(second.TotalPrice))
	}
}

func TestPriceItem_InvalidInput(t *testing.T) {
	valid := domain.ItemInput{Quantity: 1, UnitPrice: dec("10")}

	tests := []struct {
		name  string
		input func(domain.ItemInput) domain.ItemInput
		field string
	}{
		{"zero quantity", func(in domain.ItemInput) domain.ItemInput { in.Quantity = 0; return in }, "quantity"},
		{"negative quantity", func(in domain.ItemInput) domain.ItemInput { in.Quantity = -4; return in }, "quantity"},
		{"negative price", func(in domain.ItemInput) domain.ItemInput { in.UnitPrice = dec("-0.01"); return in }, "unit_price"},
		{"discount over 100", func(in domain.ItemInput) domain.ItemInput { in.DiscountRate = dec("100.5"); return in }, "discount_rate"},
		{"negative tax", func(in domain.ItemInput) domain.ItemInput { in.TaxRate = dec("-1"); return in }, "tax_rate"},
		{"service over 100", func(in domain.ItemInput) domain.ItemInput { in.ServiceChargeRate = dec("101"); return in }, "service_charge_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PriceItem(tt.input(valid))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidItemInput))

			var inputErr *domain.InvalidInputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestPriceItem_BoundaryRatesAreValid(t *testing.T) {
	amounts, err := PriceItem(domain.ItemInput{
		Quantity:          1,
		UnitPrice:         dec("0"),
		DiscountRate:      dec("100"),
		TaxRate:           dec("0"),
		ServiceChargeRate: dec("100"),
	})
	require.NoError(t, err)
	assert.True(t, amounts.TotalPrice.IsZero())
}
