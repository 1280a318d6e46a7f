package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog record. Invoices copy its reference fields onto
// line items and never hold on to the product itself.
type Product struct {
	ID               int64
	Name             string
	SKU              string
	MainCategoryName string
	SubCategoryName  string
	Manufacturer     string
	ModelNumber      string
	SellingPrice     decimal.Decimal
	CurrentStock     int
	IsSerialTracked  bool
	IsBatchTracked   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewProduct creates a new catalog product
func NewProduct(name, sku string, sellingPrice decimal.Decimal) *Product {
	now := time.Now()
	return &Product{
		Name:         strings.TrimSpace(name),
		SKU:          strings.TrimSpace(sku),
		SellingPrice: sellingPrice,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsStockTracked reports whether availability must be enforced before an
// invoice referencing the product can be committed.
func (p *Product) IsStockTracked() bool {
	return p.IsSerialTracked || p.IsBatchTracked
}

// Validate returns an error if the product is invalid
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	if strings.TrimSpace(p.SKU) == "" {
		return errors.New("product SKU is required")
	}
	if p.SellingPrice.IsNegative() {
		return errors.New("selling price cannot be negative")
	}
	if p.CurrentStock < 0 {
		return errors.New("current stock cannot be negative")
	}
	return nil
}
