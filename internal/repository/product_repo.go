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

const productColumns = `id, name, sku, main_category_name, sub_category_name, manufacturer, model_number,
	selling_price, current_stock, is_serial_tracked, is_batch_tracked, created_at, updated_at`

// ProductRepo is a SQLite implementation of ProductRepository
type ProductRepo struct {
	db *db.DB
}

// NewProductRepo creates a new ProductRepo
func NewProductRepo(database *db.DB) *ProductRepo {
	return &ProductRepo{db: database}
}

// Create inserts a new product into the catalog
func (r *ProductRepo) Create(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return fmt.Errorf("invalid product: %w", err)
	}

	query := `
		INSERT INTO products (
			name, sku, main_category_name, sub_category_name, manufacturer, model_number,
			selling_price, current_stock, is_serial_tracked, is_batch_tracked, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		product.Name,
		product.SKU,
		product.MainCategoryName,
		product.SubCategoryName,
		product.Manufacturer,
		product.ModelNumber,
		product.SellingPrice,
		product.CurrentStock,
		product.IsSerialTracked,
		product.IsBatchTracked,
		product.CreatedAt.Format(timeLayout),
		product.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get product ID: %w", err)
	}

	product.ID = id
	return nil
}

// GetByID retrieves a product by ID
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return r.getOne(row)
}

// GetBySKU retrieves a product by its stock keeping unit
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)
	return r.getOne(row)
}

func (r *ProductRepo) getOne(row *sql.Row) (*domain.Product, error) {
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// List retrieves the whole catalog ordered by name
func (r *ProductRepo) List(ctx context.Context) ([]*domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, sku`)
}

// LowStock lists stock-tracked products at or below the threshold
func (r *ProductRepo) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE (is_serial_tracked = 1 OR is_batch_tracked = 1) AND current_stock <= ?
		ORDER BY current_stock, name
	`
	return r.query(ctx, query, threshold)
}

func (r *ProductRepo) query(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Update updates catalog fields. Stock changes go through AdjustStock.
func (r *ProductRepo) Update(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return fmt.Errorf("invalid product: %w", err)
	}

	product.UpdatedAt = time.Now()

	query := `
		UPDATE products
		SET name = ?, sku = ?, main_category_name = ?, sub_category_name = ?, manufacturer = ?,
		    model_number = ?, selling_price = ?, is_serial_tracked = ?, is_batch_tracked = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		product.Name,
		product.SKU,
		product.MainCategoryName,
		product.SubCategoryName,
		product.Manufacturer,
		product.ModelNumber,
		product.SellingPrice,
		product.IsSerialTracked,
		product.IsBatchTracked,
		product.UpdatedAt.Format(timeLayout),
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return affectedOne(result, "product")
}

// AdjustStock adds delta (negative to remove) to the product's stock.
// Stock never goes below zero.
func (r *ProductRepo) AdjustStock(ctx context.Context, id int64, delta int) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return adjustStock(ctx, tx, id, delta)
	})
}

func adjustStock(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET current_stock = current_stock + ?, updated_at = ?
		WHERE id = ? AND current_stock + ? >= 0
	`, delta, formatTime(), id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var current int
	err = tx.QueryRowContext(ctx, `SELECT current_stock FROM products WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %d %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read stock: %w", err)
	}
	return fmt.Errorf("%w: product %d has %d, change of %d", ErrStockConflict, id, current, delta)
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var mainCategory, subCategory, manufacturer, model sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.SKU,
		&mainCategory,
		&subCategory,
		&manufacturer,
		&model,
		&product.SellingPrice,
		&product.CurrentStock,
		&product.IsSerialTracked,
		&product.IsBatchTracked,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.MainCategoryName = mainCategory.String
	product.SubCategoryName = subCategory.String
	product.Manufacturer = manufacturer.String
	product.ModelNumber = model.String

	if product.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if product.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return product, nil
}
