package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/repository"
)

// resolveCustomerID resolves a customer by ID or name
func resolveCustomerID(ctx context.Context, idOrName string) (int64, error) {
	if id, err := strconv.ParseInt(idOrName, 10, 64); err == nil {
		customer, err := appInstance.CustomerRepo.GetByID(ctx, id)
		if err != nil {
			return 0, err
		}
		return customer.ID, nil
	}

	customer, err := appInstance.CustomerRepo.GetByName(ctx, idOrName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("customer named '%s' not found", idOrName)
		}
		return 0, err
	}
	return customer.ID, nil
}

// resolveProduct resolves a product by ID or SKU
func resolveProduct(ctx context.Context, idOrSKU string) (*domain.Product, error) {
	if product, err := appInstance.ProductRepo.GetBySKU(ctx, idOrSKU); err == nil {
		return product, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	id, err := strconv.ParseInt(idOrSKU, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("no product with SKU '%s'", idOrSKU)
	}
	return appInstance.ProductRepo.GetByID(ctx, id)
}

// parseID parses a positional numeric ID argument
func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, s)
	}
	return id, nil
}

// parseOptionalID treats "none" and "" as clearing the reference
func parseOptionalID(s, what string) (*int64, error) {
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	id, err := parseID(s, what)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseAmount parses a money amount or percentage; a trailing % is allowed
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number '%s'", s)
	}
	return d, nil
}

// parseDate parses a date string in various formats
func parseDate(s string) (time.Time, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch s {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	default:
		t, err := time.ParseInLocation("2006-01-02", s, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("expected format: YYYY-MM-DD, 'today', or 'yesterday'")
		}
		return t, nil
	}
}

// money formats an amount with two decimals for display only
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortID shortens generated item and charge IDs for tables; any unique
// prefix is accepted back by findItemID and findChargeID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func findItemID(m *draft.Manager, prefix string) (string, error) {
	ids := make([]string, 0)
	for _, item := range m.Items() {
		ids = append(ids, item.ID)
	}
	return matchPrefix(ids, prefix, domain.ErrItemNotFound)
}

func findChargeID(m *draft.Manager, prefix string) (string, error) {
	totals := m.Totals()
	ids := make([]string, 0)
	for _, c := range append(totals.AdditionalTaxes, totals.AdditionalServiceCharges...) {
		ids = append(ids, c.ID)
	}
	return matchPrefix(ids, prefix, domain.ErrChargeNotFound)
}

func matchPrefix(ids []string, prefix string, notFound error) (string, error) {
	match := ""
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("'%s' is ambiguous", prefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", notFound, prefix)
	}
	return match, nil
}
