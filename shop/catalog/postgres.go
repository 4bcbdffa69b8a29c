package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/shopbot/core/logger"
	"log/slog"
)

// PostgresStore persists the catalog in a products table. It satisfies the
// same Store contract as FileStore; each mutating statement commits before the
// call returns.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already connected pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type productRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Price       string         `db:"price"`
	Description string         `db:"description"`
	Stock       pq.StringArray `db:"stock"`
	Currency    string         `db:"currency"`
}

func (r productRow) toProduct() *Product {
	return &Product{
		ID:          r.ID,
		Title:       r.Title,
		Price:       r.Price,
		Description: r.Description,
		Stock:       append([]string(nil), r.Stock...),
		Currency:    r.Currency,
	}
}

// Create inserts a new product row.
func (s *PostgresStore) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, title, price, description, stock, currency)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Title, p.Price, p.Description, pq.StringArray(p.Stock), p.Currency,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateTitle
		}
		return fmt.Errorf("catalog: insert product: %w", err)
	}

	logger.Info(ctx, "service.catalog", "catalog.create",
		slog.String("product_id", p.ID),
		slog.String("title", logger.SanitizeLimit(p.Title, 64)),
		slog.Int("count", len(p.Stock)),
	)
	return nil
}

// Get returns the product stored under title.
func (s *PostgresStore) Get(ctx context.Context, title string) (*Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, title, price, description, stock, currency FROM products WHERE title = $1`, title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: select product: %w", err)
	}
	return row.toProduct(), nil
}

// GetByID returns the product carrying the given identifier.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, title, price, description, stock, currency FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: select product: %w", err)
	}
	return row.toProduct(), nil
}

// UpdateField applies a single-field update. Validation happens before any
// statement runs so an invalid value never reaches the table.
func (s *PostgresStore) UpdateField(ctx context.Context, title string, field Field, value string) (*Product, error) {
	current, err := s.Get(ctx, title)
	if err != nil {
		return nil, err
	}
	if err := current.Apply(field, value); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET price = $2, description = $3, stock = $4 WHERE title = $1`,
		title, current.Price, current.Description, pq.StringArray(current.Stock),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	logger.Info(ctx, "service.catalog", "catalog.update",
		slog.String("product_id", current.ID),
		slog.String("title", logger.SanitizeLimit(title, 64)),
		slog.String("field", string(field)),
	)
	return current, nil
}

// Delete removes the product stored under title.
func (s *PostgresStore) Delete(ctx context.Context, title string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE title = $1`, title)
	if err != nil {
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	logger.Info(ctx, "service.catalog", "catalog.delete",
		slog.String("title", logger.SanitizeLimit(title, 64)),
	)
	return nil
}

// List returns all titles sorted for stable menu ordering.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	var titles []string
	if err := s.db.SelectContext(ctx, &titles, `SELECT title FROM products ORDER BY title`); err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	return titles, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
