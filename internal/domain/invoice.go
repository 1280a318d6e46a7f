package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusFinalized InvoiceStatus = "finalized"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
)

// ItemInput holds the raw, caller-controlled fields of a line item.
// Rates are percentages in [0,100].
type ItemInput struct {
	Quantity          int             `yaml:"quantity"`
	UnitPrice         decimal.Decimal `yaml:"unit_price"`
	DiscountRate      decimal.Decimal `yaml:"discount_rate"`
	TaxRate           decimal.Decimal `yaml:"tax_rate"`
	ServiceChargeRate decimal.Decimal `yaml:"service_charge_rate"`
}

// Gross is unitPrice*quantity
func (in ItemInput) Gross() decimal.Decimal {
	return in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
}

// ItemAmounts are the amounts derived from an ItemInput. They are only
// ever produced by pricing.PriceItem.
type ItemAmounts struct {
	DiscountAmount      decimal.Decimal `yaml:"-"`
	TaxAmount           decimal.Decimal `yaml:"-"`
	ServiceChargeAmount decimal.Decimal `yaml:"-"`
	TotalPrice          decimal.Decimal `yaml:"-"`
}

type LineItem struct {
	ID               string `yaml:"id"`
	ProductID        int64  `yaml:"product_id"`
	ProductName      string `yaml:"product_name"`
	SKU              string `yaml:"sku"`
	MainCategoryName string `yaml:"main_category_name,omitempty"`
	SubCategoryName  string `yaml:"sub_category_name,omitempty"`
	Manufacturer     string `yaml:"manufacturer,omitempty"`
	ModelNumber      string `yaml:"model_number,omitempty"`

	ItemInput `yaml:",inline"`

	StockAvailable int  `yaml:"stock_available"`
	IsStockTracked bool `yaml:"is_stock_tracked"`

	// Derived, recomputed on every change to ItemInput
	ItemAmounts `yaml:"-"`
}

// NetAmount is the post-discount, pre-tax base of the item
func (li LineItem) NetAmount() decimal.Decimal {
	return li.Gross().Sub(li.DiscountAmount)
}

type ChargeKind string

const (
	ChargeKindTax     ChargeKind = "tax"
	ChargeKindService ChargeKind = "service"
)

// ParseChargeKind converts user input into a ChargeKind
func ParseChargeKind(s string) (ChargeKind, error) {
	switch ChargeKind(s) {
	case ChargeKindTax, ChargeKindService:
		return ChargeKind(s), nil
	}
	return "", fmt.Errorf("unknown charge kind %q (want tax or service)", s)
}

// AdditionalCharge is an invoice-level tax or service charge applied to
// the whole subtotal. Rate is the source of truth; Amount always reflects
// the subtotal of the last aggregation.
type AdditionalCharge struct {
	ID     string          `yaml:"id"`
	Kind   ChargeKind      `yaml:"kind"`
	Name   string          `yaml:"name"`
	Rate   decimal.Decimal `yaml:"rate"`
	Amount decimal.Decimal `yaml:"-"`
}

type Invoice struct {
	ID            int64
	InvoiceNumber string

	CustomerID    int64
	CustomerName  string
	ProjectID     *int64
	ProjectName   string
	QuotationID   *int64
	QuotationRef  string
	PaymentTerms  string
	DeliveryTerms string
	WarrantyTerms string
	Notes         string

	Items                    []LineItem
	AdditionalTaxes          []AdditionalCharge
	AdditionalServiceCharges []AdditionalCharge

	Subtotal                 decimal.Decimal
	TotalTaxAmount           decimal.Decimal
	TotalServiceChargeAmount decimal.Decimal
	TotalAmount              decimal.Decimal
	PaidAmount               decimal.Decimal
	RemainingAmount          decimal.Decimal

	Status    InvoiceStatus
	IssueDate time.Time
	DueDate   time.Time
	PaidDate  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FormatInvoiceNumber renders the "PREFIX-YEAR-SEQUENCE" invoice number format
func FormatInvoiceNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}

// CanEdit returns true if the invoice header can still be modified
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// IsFinalized returns true if the invoice is finalized or later
func (i *Invoice) IsFinalized() bool {
	return i.Status != InvoiceStatusDraft
}

// Finalize locks the invoice and prevents further edits
func (i *Invoice) Finalize() {
	if i.Status == InvoiceStatusDraft {
		i.Status = InvoiceStatusFinalized
		i.UpdatedAt = time.Now()
	}
}

// RecordPayment applies a payment against the remaining amount. The
// invoice becomes paid once nothing remains.
func (i *Invoice) RecordPayment(amount decimal.Decimal, paidAt time.Time) error {
	if !amount.IsPositive() {
		return errors.New("payment amount must be positive")
	}
	if i.Status == InvoiceStatusDraft {
		return errors.New("cannot record payment on a draft invoice - finalize first")
	}
	if amount.GreaterThan(i.RemainingAmount) {
		return fmt.Errorf("payment %s exceeds remaining amount %s", amount.String(), i.RemainingAmount.String())
	}

	i.PaidAmount = i.PaidAmount.Add(amount)
	i.RemainingAmount = i.TotalAmount.Sub(i.PaidAmount)
	if i.RemainingAmount.IsZero() {
		i.Status = InvoiceStatusPaid
		i.PaidDate = &paidAt
	}
	i.UpdatedAt = time.Now()
	return nil
}

// IsOverdue returns true if a sent invoice is unpaid past its due date
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoiceStatusSent && !i.DueDate.IsZero() && now.After(i.DueDate)
}

// Validate returns an error if the invoice is invalid
func (i *Invoice) Validate() error {
	if i.InvoiceNumber == "" {
		return errors.New("invoice number is required")
	}
	if i.CustomerID <= 0 {
		return errors.New("customer ID is required")
	}
	if len(i.Items) == 0 {
		return errors.New("invoice must have at least one item")
	}
	if i.IssueDate.IsZero() {
		return errors.New("issue date is required")
	}
	if !i.DueDate.IsZero() && i.DueDate.Before(i.IssueDate) {
		return errors.New("due date must not be before issue date")
	}
	return nil
}
