// Package stock checks requested quantities against the stock snapshot
// taken when each line item was added. It never changes stock levels.
package stock

import "github.com/andy/invoicedesk/internal/domain"

// Result collects every violation found by Validate
type Result struct {
	Violations []domain.StockViolation
}

// OK reports whether no violations were found
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Err returns an *domain.InsufficientStockError carrying all violations,
// or nil when the items validate.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &domain.InsufficientStockError{Violations: r.Violations}
}

// Validate reports each stock-tracked item whose quantity exceeds its
// available stock. Untracked items are never reported. Each line is judged
// on its own, so a product split over several lines that each fit can
// still overdraw stock in total; ValidateCombined covers that case.
func Validate(items []domain.LineItem) Result {
	var res Result
	for _, it := range items {
		if !it.IsStockTracked || it.Quantity <= it.StockAvailable {
			continue
		}
		res.Violations = append(res.Violations, domain.StockViolation{
			ItemID:      it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Requested:   it.Quantity,
			Available:   it.StockAvailable,
		})
	}
	return res
}

// ValidateCombined reports tracked products that appear on more than one
// line where every line fits but the summed quantity exceeds the stock
// available. Each line of such a product gets a violation carrying the
// combined request and the lowest snapshot among its lines.
func ValidateCombined(items []domain.LineItem) Result {
	type total struct {
		lines     []int
		requested int
		available int
		overLine  bool
	}
	byProduct := map[int64]*total{}
	var order []int64
	for i, it := range items {
		if !it.IsStockTracked {
			continue
		}
		t, ok := byProduct[it.ProductID]
		if !ok {
			t = &total{available: it.StockAvailable}
			byProduct[it.ProductID] = t
			order = append(order, it.ProductID)
		}
		t.lines = append(t.lines, i)
		t.requested += it.Quantity
		t.available = min(t.available, it.StockAvailable)
		if it.Quantity > it.StockAvailable {
			t.overLine = true
		}
	}

	var res Result
	for _, id := range order {
		t := byProduct[id]
		if len(t.lines) < 2 || t.overLine || t.requested <= t.available {
			continue
		}
		for _, i := range t.lines {
			res.Violations = append(res.Violations, domain.StockViolation{
				ItemID:      items[i].ID,
				ProductID:   id,
				ProductName: items[i].ProductName,
				Requested:   t.requested,
				Available:   t.available,
			})
		}
	}
	return res
}

// Check runs Validate and ValidateCombined and merges their violations
func Check(items []domain.LineItem) Result {
	res := Validate(items)
	res.Violations = append(res.Violations, ValidateCombined(items).Violations...)
	return res
}
