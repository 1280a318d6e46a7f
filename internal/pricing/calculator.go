// Package pricing computes line item amounts and invoice totals.
//
// All arithmetic is exact decimal arithmetic: a percentage is applied by
// shifting the rate two places, so nothing is rounded here. Rounding for
// display belongs to the presentation layer.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PriceItem derives discount, tax, service charge and total from the raw
// item fields. Discount comes first; tax and service charge are both taken
// off the discounted base, never off each other.
func PriceItem(in domain.ItemInput) (domain.ItemAmounts, error) {
	if err := ValidateInput(in); err != nil {
		return domain.ItemAmounts{}, err
	}

	gross := in.Gross()
	discount := percentOf(gross, in.DiscountRate)
	net := gross.Sub(discount)
	tax := percentOf(net, in.TaxRate)
	service := percentOf(net, in.ServiceChargeRate)

	return domain.ItemAmounts{
		DiscountAmount:      discount,
		TaxAmount:           tax,
		ServiceChargeAmount: service,
		TotalPrice:          net.Add(tax).Add(service),
	}, nil
}

// ValidateInput checks the raw fields and names the first offending one
func ValidateInput(in domain.ItemInput) error {
	if in.Quantity < 1 {
		return &domain.InvalidInputError{
			Field:  "quantity",
			Value:  decimal.NewFromInt(int64(in.Quantity)).String(),
			Reason: "must be at least 1",
		}
	}
	if in.UnitPrice.IsNegative() {
		return &domain.InvalidInputError{Field: "unit_price", Value: in.UnitPrice.String(), Reason: "cannot be negative"}
	}
	rates := []struct {
		field string
		rate  decimal.Decimal
	}{
		{"discount_rate", in.DiscountRate},
		{"tax_rate", in.TaxRate},
		{"service_charge_rate", in.ServiceChargeRate},
	}
	for _, r := range rates {
		if err := ValidateRate(r.field, r.rate); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRate checks that a percentage lies in [0,100]
func ValidateRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return &domain.InvalidInputError{Field: field, Value: rate.String(), Reason: "must be between 0 and 100"}
	}
	return nil
}

// percentOf returns base*rate/100 without any rounding
func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate.Shift(-2))
}
