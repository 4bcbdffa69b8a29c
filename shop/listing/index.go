package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/shop/flow"
	"log/slog"
)

// Index records which published message carries which product, persisted as a
// JSON sidecar keyed "chatID:messageID" → product id. It backs the id-based
// resolution of pasted message links, replacing the fragile re-parsing of
// rendered listing text.
type Index struct {
	mu      sync.RWMutex
	path    string
	entries map[string]string
}

// NewIndex loads the sidecar at path. Absence or corruption is logged and the
// index starts empty.
func NewIndex(path string) (*Index, error) {
	idx := &Index{
		path:    path,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("listing: read index: %w", err)
	default:
		if jsonErr := json.Unmarshal(data, &idx.entries); jsonErr != nil {
			logger.Warn(context.Background(), "service.listing", "listing.load",
				slog.String("status", "fail"),
				slog.String("err", jsonErr.Error()),
			)
			idx.entries = make(map[string]string)
		}
	}
	return idx, nil
}

func refKey(ref flow.MessageRef) string {
	return fmt.Sprintf("%d:%d", ref.ChatID, ref.MessageID)
}

// Record remembers that ref carries the listing of productID.
func (i *Index) Record(ref flow.MessageRef, productID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[refKey(ref)] = productID
	return i.persistLocked()
}

// ResolveLink maps a pasted message link to the product id it lists.
func (i *Index) ResolveLink(raw string) (string, flow.MessageRef, error) {
	ref, err := ParseMessageLink(raw)
	if err != nil {
		return "", flow.MessageRef{}, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	productID, ok := i.entries[refKey(ref)]
	if !ok {
		return "", flow.MessageRef{}, flow.ErrListingNotFound
	}
	return productID, ref, nil
}

// Forget drops all recorded listings of a product.
func (i *Index) Forget(productID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	changed := false
	for key, id := range i.entries {
		if id == productID {
			delete(i.entries, key)
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := i.persistLocked(); err != nil {
		logger.Warn(context.Background(), "service.listing", "listing.persist",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

func (i *Index) persistLocked() error {
	b, err := json.MarshalIndent(i.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("listing: encode index: %w", err)
	}
	if dir := filepath.Dir(i.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("listing: create index dir: %w", err)
		}
	}
	f, err := os.CreateTemp(filepath.Dir(i.path), filepath.Base(i.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("listing: create temp index: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return fmt.Errorf("listing: write index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("listing: close index: %w", err)
	}
	if err := os.Rename(tmp, i.path); err != nil {
		return fmt.Errorf("listing: replace index: %w", err)
	}
	return nil
}
