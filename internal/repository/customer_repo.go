package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andy/invoicedesk/internal/db"
	"github.com/andy/invoicedesk/internal/domain"
)

const customerColumns = `id, name, email, phone, address, notes, is_archived, created_at, updated_at`

// CustomerRepo is a SQLite implementation of CustomerRepository
type CustomerRepo struct {
	db *db.DB
}

// NewCustomerRepo creates a new CustomerRepo
func NewCustomerRepo(database *db.DB) *CustomerRepo {
	return &CustomerRepo{db: database}
}

// Create inserts a new customer into the database
func (r *CustomerRepo) Create(ctx context.Context, customer *domain.Customer) error {
	if err := customer.Validate(); err != nil {
		return fmt.Errorf("invalid customer: %w", err)
	}

	query := `
		INSERT INTO customers (name, email, phone, address, notes, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.Notes,
		customer.IsArchived,
		customer.CreatedAt.Format(timeLayout),
		customer.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get customer ID: %w", err)
	}

	customer.ID = id
	return nil
}

// GetByID retrieves a customer by ID
func (r *CustomerRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	return r.getOne(row)
}

// GetByName retrieves a customer by exact name
func (r *CustomerRepo) GetByName(ctx context.Context, name string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE name = ?`, name)
	return r.getOne(row)
}

func (r *CustomerRepo) getOne(row *sql.Row) (*domain.Customer, error) {
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// List retrieves all customers, optionally including archived ones
func (r *CustomerRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE is_archived = 0 OR ? = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]*domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, nil
}

// Update updates an existing customer
func (r *CustomerRepo) Update(ctx context.Context, customer *domain.Customer) error {
	if err := customer.Validate(); err != nil {
		return fmt.Errorf("invalid customer: %w", err)
	}

	customer.UpdatedAt = time.Now()

	query := `
		UPDATE customers
		SET name = ?, email = ?, phone = ?, address = ?, notes = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.Notes,
		customer.IsArchived,
		customer.UpdatedAt.Format(timeLayout),
		customer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return affectedOne(result, "customer")
}

// Archive hides a customer from pickers without touching its invoices
func (r *CustomerRepo) Archive(ctx context.Context, id int64) error {
	return r.setArchived(ctx, id, true)
}

// Unarchive marks a customer as active again
func (r *CustomerRepo) Unarchive(ctx context.Context, id int64) error {
	return r.setArchived(ctx, id, false)
}

func (r *CustomerRepo) setArchived(ctx context.Context, id int64, archived bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE customers SET is_archived = ?, updated_at = ? WHERE id = ?`,
		archived, formatTime(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer archive flag: %w", err)
	}
	return affectedOne(result, "customer")
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	customer := &domain.Customer{}
	var email, phone, address, notes sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&customer.ID,
		&customer.Name,
		&email,
		&phone,
		&address,
		&notes,
		&customer.IsArchived,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	customer.Email = email.String
	customer.Phone = phone.String
	customer.Address = address.String
	customer.Notes = notes.String

	if customer.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if customer.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return customer, nil
}
