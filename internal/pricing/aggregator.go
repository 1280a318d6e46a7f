package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
)

// Totals is the document-level result of Aggregate
type Totals struct {
	Subtotal                 decimal.Decimal
	TotalTaxAmount           decimal.Decimal
	TotalServiceChargeAmount decimal.Decimal
	TotalAmount              decimal.Decimal

	// Charges resolved against Subtotal, in input order
	AdditionalTaxes          []domain.AdditionalCharge
	AdditionalServiceCharges []domain.AdditionalCharge
}

// Aggregate folds priced items and invoice-level charges into totals.
// Charge amounts are derived from the subtotal computed here, so they can
// never lag behind the item set. The inputs are not modified.
func Aggregate(items []domain.LineItem, taxes, charges []domain.AdditionalCharge) Totals {
	var t Totals
	var itemTax, itemService decimal.Decimal

	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(it.NetAmount())
		itemTax = itemTax.Add(it.TaxAmount)
		itemService = itemService.Add(it.ServiceChargeAmount)
	}

	var chargeTax, chargeService decimal.Decimal
	t.AdditionalTaxes, chargeTax = resolveCharges(t.Subtotal, taxes)
	t.AdditionalServiceCharges, chargeService = resolveCharges(t.Subtotal, charges)

	t.TotalTaxAmount = itemTax.Add(chargeTax)
	t.TotalServiceChargeAmount = itemService.Add(chargeService)
	t.TotalAmount = t.Subtotal.Add(t.TotalTaxAmount).Add(t.TotalServiceChargeAmount)
	return t
}

// ChargeAmount is the amount an additional charge contributes on a subtotal
func ChargeAmount(subtotal, rate decimal.Decimal) decimal.Decimal {
	return percentOf(subtotal, rate)
}

func resolveCharges(subtotal decimal.Decimal, in []domain.AdditionalCharge) ([]domain.AdditionalCharge, decimal.Decimal) {
	var sum decimal.Decimal
	out := make([]domain.AdditionalCharge, len(in))
	for i, c := range in {
		c.Amount = ChargeAmount(subtotal, c.Rate)
		sum = sum.Add(c.Amount)
		out[i] = c
	}
	return out, sum
}
