package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/andy/invoicedesk/internal/db"
	"github.com/andy/invoicedesk/internal/draft"
)

// DraftRepo is a SQLite implementation of DraftRepository. The snapshot
// is stored as a YAML document so it stays readable in a SQL shell.
type DraftRepo struct {
	db *db.DB
}

// NewDraftRepo creates a new DraftRepo
func NewDraftRepo(database *db.DB) *DraftRepo {
	return &DraftRepo{db: database}
}

// Get retrieves the draft in progress, or returns nil if there is none
func (r *DraftRepo) Get(ctx context.Context) (*draft.Snapshot, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT snapshot FROM active_draft WHERE id = 1`).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active draft: %w", err)
	}

	var snapshot draft.Snapshot
	if err := yaml.Unmarshal([]byte(doc), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode active draft: %w", err)
	}
	return &snapshot, nil
}

// Save stores the draft (insert or replace)
func (r *DraftRepo) Save(ctx context.Context, snapshot draft.Snapshot) error {
	doc, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO active_draft (id, snapshot, updated_at) VALUES (1, ?, ?)`,
		string(doc), formatTime(),
	)
	if err != nil {
		return fmt.Errorf("failed to save active draft: %w", err)
	}
	return nil
}

// Delete removes the draft in progress
func (r *DraftRepo) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM active_draft WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to delete active draft: %w", err)
	}
	return nil
}
