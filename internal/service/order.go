package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Order is a complete invoice described in a YAML file. Items reference
// products by SKU; omitted rates fall back to the configured defaults.
type Order struct {
	Customer      string `yaml:"customer" validate:"required"`
	Project       string `yaml:"project"`
	Quotation     string `yaml:"quotation"`
	PaymentTerms  string `yaml:"payment_terms"`
	DeliveryTerms string `yaml:"delivery_terms"`
	WarrantyTerms string `yaml:"warranty_terms"`
	Notes         string `yaml:"notes"`

	Items                    []OrderItem   `yaml:"items" validate:"required,min=1,dive"`
	AdditionalTaxes          []OrderCharge `yaml:"additional_taxes" validate:"dive"`
	AdditionalServiceCharges []OrderCharge `yaml:"additional_service_charges" validate:"dive"`
}

type OrderItem struct {
	SKU               string           `yaml:"sku" validate:"required"`
	Quantity          int              `yaml:"quantity" validate:"gte=1"`
	UnitPrice         *decimal.Decimal `yaml:"unit_price"`
	DiscountRate      *decimal.Decimal `yaml:"discount_rate"`
	TaxRate           *decimal.Decimal `yaml:"tax_rate"`
	ServiceChargeRate *decimal.Decimal `yaml:"service_charge_rate"`
}

type OrderCharge struct {
	Name string          `yaml:"name" validate:"required"`
	Rate decimal.Decimal `yaml:"rate"`
}

// ParseOrder decodes and structurally validates an order document. Value
// ranges (rates, prices) are checked later by the pricing rules.
func ParseOrder(data []byte) (*Order, error) {
	var order Order
	if err := yaml.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to parse order: %w", err)
	}
	if err := validator.New().Struct(&order); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}
	return &order, nil
}
