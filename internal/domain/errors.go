package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the invoicing engine. Every one of them is a
// user-correctable condition; match with errors.Is.
var (
	ErrInvalidItemInput  = errors.New("invalid item input")
	ErrItemNotFound      = errors.New("line item not found")
	ErrChargeNotFound    = errors.New("additional charge not found")
	ErrMissingCustomer   = errors.New("customer is required")
	ErrEmptyInvoice      = errors.New("invoice has no items")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InvalidInputError names the raw item field that failed validation
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s %s (got %s)", ErrInvalidItemInput.Error(), e.Field, e.Reason, e.Value)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidItemInput
}

// StockViolation describes one item whose requested quantity exceeds the
// stock available when it was added.
type StockViolation struct {
	ItemID      string
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (v StockViolation) String() string {
	return fmt.Sprintf("%s: requested %d, available %d", v.ProductName, v.Requested, v.Available)
}

// InsufficientStockError carries every violation found, not just the first
type InsufficientStockError struct {
	Violations []StockViolation
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientStock.Error(), strings.Join(parts, "; "))
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
