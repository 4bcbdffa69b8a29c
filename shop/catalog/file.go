package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/m3rciful/shopbot/core/logger"
	"log/slog"
)

// FileStore keeps the catalog in memory and mirrors every mutation into a
// single JSON snapshot keyed by product title. The snapshot is replaced
// atomically (temp file + rename); a partially written file is never left
// readable at the target path.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	products map[string]*Product
}

// NewFileStore loads the snapshot at path. A missing or corrupt file is not
// fatal: the store starts empty and the condition is logged.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		products: make(map[string]*Product),
	}

	ctx := context.Background()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info(ctx, "service.catalog", "catalog.load",
			slog.String("status", "skip"),
			slog.String("cause", "missing_file"),
		)
	case err != nil:
		return nil, fmt.Errorf("catalog: read snapshot: %w", err)
	default:
		if jsonErr := json.Unmarshal(data, &s.products); jsonErr != nil {
			logger.Warn(ctx, "service.catalog", "catalog.load",
				slog.String("status", "fail"),
				slog.String("err", jsonErr.Error()),
			)
			s.products = make(map[string]*Product)
		}
	}

	logger.Info(ctx, "service.catalog", "catalog.load",
		slog.String("status", "ok"),
		slog.Int("count", len(s.products)),
	)
	return s, nil
}

// Create inserts a new product and persists the snapshot.
func (s *FileStore) Create(ctx context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.Title]; exists {
		return ErrDuplicateTitle
	}
	stored := p.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.products[stored.Title] = stored
	if err := s.persistLocked(); err != nil {
		delete(s.products, stored.Title)
		return err
	}
	p.ID = stored.ID

	logger.Info(ctx, "service.catalog", "catalog.create",
		slog.String("product_id", stored.ID),
		slog.String("title", logger.SanitizeLimit(stored.Title, 64)),
		slog.Int("count", len(stored.Stock)),
	)
	return nil
}

// Get returns the product stored under title.
func (s *FileStore) Get(_ context.Context, title string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[title]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// GetByID returns the product carrying the given identifier.
func (s *FileStore) GetByID(_ context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// UpdateField applies a single-field update and persists the snapshot. On a
// validation failure nothing is mutated.
func (s *FileStore) UpdateField(ctx context.Context, title string, field Field, value string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[title]
	if !ok {
		return nil, ErrNotFound
	}
	updated := current.Clone()
	if err := updated.Apply(field, value); err != nil {
		return nil, err
	}
	s.products[title] = updated
	if err := s.persistLocked(); err != nil {
		s.products[title] = current
		return nil, err
	}

	logger.Info(ctx, "service.catalog", "catalog.update",
		slog.String("product_id", updated.ID),
		slog.String("title", logger.SanitizeLimit(title, 64)),
		slog.String("field", string(field)),
	)
	return updated.Clone(), nil
}

// Delete removes the product stored under title and persists the snapshot.
func (s *FileStore) Delete(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[title]
	if !ok {
		return ErrNotFound
	}
	delete(s.products, title)
	if err := s.persistLocked(); err != nil {
		s.products[title] = current
		return err
	}

	logger.Info(ctx, "service.catalog", "catalog.delete",
		slog.String("product_id", current.ID),
		slog.String("title", logger.SanitizeLimit(title, 64)),
	)
	return nil
}

// List returns all titles sorted for stable menu ordering.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make([]string, 0, len(s.products))
	for title := range s.products {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// Close flushes a final snapshot.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// persistLocked rewrites the full snapshot. Callers hold the write lock, so
// the write is synchronous relative to the triggering mutation.
func (s *FileStore) persistLocked() error {
	b, err := json.MarshalIndent(s.products, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("catalog: create snapshot dir: %w", err)
		}
	}
	f, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("catalog: create temp snapshot: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return fmt.Errorf("catalog: write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("catalog: close snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("catalog: replace snapshot: %w", err)
	}
	return nil
}
