package domain

import (
	"errors"
	"strings"
	"time"
)

type Customer struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	Address    string
	Notes      string
	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewCustomer creates a new customer with required fields
func NewCustomer(name string) *Customer {
	now := time.Now()
	return &Customer{
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayName is the label denormalized onto invoice headers
func (c *Customer) DisplayName() string {
	return c.Name
}

// Validate returns an error if the customer is invalid
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("customer name is required")
	}
	return nil
}

// Project groups invoices for one customer engagement
type Project struct {
	ID         int64
	CustomerID int64
	Name       string
	CreatedAt  time.Time
}

func (p *Project) DisplayName() string {
	return p.Name
}

// Validate returns an error if the project is invalid
func (p *Project) Validate() error {
	if p.CustomerID <= 0 {
		return errors.New("customer ID is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("project name is required")
	}
	return nil
}

// Quotation is a previously issued offer an invoice can refer back to
type Quotation struct {
	ID         int64
	CustomerID int64
	Reference  string
	CreatedAt  time.Time
}

func (q *Quotation) DisplayName() string {
	return q.Reference
}

// Validate returns an error if the quotation is invalid
func (q *Quotation) Validate() error {
	if q.CustomerID <= 0 {
		return errors.New("customer ID is required")
	}
	if strings.TrimSpace(q.Reference) == "" {
		return errors.New("quotation reference is required")
	}
	return nil
}
