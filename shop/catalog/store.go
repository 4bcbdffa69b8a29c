package catalog

import "context"

// Store owns the product catalog. Mutating calls persist synchronously before
// returning, so a crash after a successful call can never be observed as a
// state a reader did not already see.
type Store interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, title string) (*Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	UpdateField(ctx context.Context, title string, field Field, value string) (*Product, error)
	Delete(ctx context.Context, title string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}
