package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andy/invoicedesk/internal/db"
	"github.com/andy/invoicedesk/internal/domain"
)

// ProjectRepo is a SQLite implementation of ProjectRepository
type ProjectRepo struct {
	db *db.DB
}

// NewProjectRepo creates a new ProjectRepo
func NewProjectRepo(database *db.DB) *ProjectRepo {
	return &ProjectRepo{db: database}
}

// Create inserts a new project for a customer
func (r *ProjectRepo) Create(ctx context.Context, project *domain.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (customer_id, name, created_at) VALUES (?, ?, ?)`,
		project.CustomerID, project.Name, project.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get project ID: %w", err)
	}

	project.ID = id
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	p := &domain.Project{}
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, name, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.CustomerID, &p.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return p, nil
}

// List retrieves projects, optionally for one customer
func (r *ProjectRepo) List(ctx context.Context, customerID *int64) ([]*domain.Project, error) {
	query := `SELECT id, customer_id, name, created_at FROM projects`
	args := make([]any, 0)
	if customerID != nil {
		query += " WHERE customer_id = ?"
		args = append(args, *customerID)
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*domain.Project, 0)
	for rows.Next() {
		p := &domain.Project{}
		var createdAt string
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// QuotationRepo is a SQLite implementation of QuotationRepository
type QuotationRepo struct {
	db *db.DB
}

// NewQuotationRepo creates a new QuotationRepo
func NewQuotationRepo(database *db.DB) *QuotationRepo {
	return &QuotationRepo{db: database}
}

// Create inserts a new quotation reference
func (r *QuotationRepo) Create(ctx context.Context, quotation *domain.Quotation) error {
	if err := quotation.Validate(); err != nil {
		return fmt.Errorf("invalid quotation: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO quotations (customer_id, reference, created_at) VALUES (?, ?, ?)`,
		quotation.CustomerID, quotation.Reference, quotation.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create quotation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get quotation ID: %w", err)
	}

	quotation.ID = id
	return nil
}

// GetByID retrieves a quotation by ID
func (r *QuotationRepo) GetByID(ctx context.Context, id int64) (*domain.Quotation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, reference, created_at FROM quotations WHERE id = ?`, id)
	return scanQuotationRow(row)
}

// GetByReference retrieves a quotation by its reference
func (r *QuotationRepo) GetByReference(ctx context.Context, reference string) (*domain.Quotation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, reference, created_at FROM quotations WHERE reference = ?`, reference)
	return scanQuotationRow(row)
}

// List retrieves quotations, optionally for one customer
func (r *QuotationRepo) List(ctx context.Context, customerID *int64) ([]*domain.Quotation, error) {
	query := `SELECT id, customer_id, reference, created_at FROM quotations`
	args := make([]any, 0)
	if customerID != nil {
		query += " WHERE customer_id = ?"
		args = append(args, *customerID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	defer rows.Close()

	quotations := make([]*domain.Quotation, 0)
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		quotations = append(quotations, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotations: %w", err)
	}
	return quotations, nil
}

func scanQuotationRow(row *sql.Row) (*domain.Quotation, error) {
	q, err := scanQuotation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("quotation %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return q, nil
}

func scanQuotation(row rowScanner) (*domain.Quotation, error) {
	q := &domain.Quotation{}
	var createdAt string
	if err := row.Scan(&q.ID, &q.CustomerID, &q.Reference, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return q, nil
}
