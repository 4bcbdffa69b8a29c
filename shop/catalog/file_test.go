package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s, path
}

func TestFileStoreCreateAndReload(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	p := &Product{
		Title:       "Steam Key",
		Price:       "19.99",
		Description: "A game",
		Stock:       []string{"AAAA-BBBB", "CCCC-DDDD"},
		Currency:    "BRL",
	}
	if err := s.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("Create did not assign an id")
	}

	// Reopening the snapshot reproduces the catalog.
	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, err := reloaded.Get(ctx, "Steam Key")
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if got.ID != p.ID || got.Price != "19.99" || !reflect.DeepEqual(got.Stock, p.Stock) {
		t.Fatalf("reloaded product differs: %+v", got)
	}

	byID, err := reloaded.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Title != "Steam Key" {
		t.Fatalf("GetByID returned %q", byID.Title)
	}
}

func TestFileStoreDuplicateTitle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	first := &Product{Title: "Game", Price: "10", Stock: []string{"k1"}}
	if err := s.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create(ctx, &Product{Title: "Game", Price: "99"})
	if !errors.Is(err, ErrDuplicateTitle) {
		t.Fatalf("Create duplicate = %v, expected ErrDuplicateTitle", err)
	}

	// The existing product is untouched.
	got, err := s.Get(ctx, "Game")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Price != "10" || got.ID != first.ID {
		t.Fatalf("existing product mutated: %+v", got)
	}
}

func TestFileStoreUpdateField(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p := &Product{Title: "Game", Price: "19.99", Stock: []string{"k1", "k2"}}
	if err := s.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := s.UpdateField(ctx, "Game", FieldPrice, "9.99")
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if updated.Price != "9.99" {
		t.Fatalf("updated price = %q", updated.Price)
	}

	// Invalid input never mutates the stored product. ParseFloat would accept
	// "NaN", so it gets its own case.
	for _, raw := range []string{"banana", "NaN", "Inf"} {
		if _, err := s.UpdateField(ctx, "Game", FieldPrice, raw); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("UpdateField(%q) = %v, expected ErrInvalidValue", raw, err)
		}
	}
	got, _ := s.Get(ctx, "Game")
	if got.Price != "9.99" {
		t.Fatalf("price mutated by rejected update: %q", got.Price)
	}

	if _, err := s.UpdateField(ctx, "Missing", FieldPrice, "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateField missing = %v, expected ErrNotFound", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if err := s.Create(ctx, &Product{Title: "Game", Price: "1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, "Game"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "Game"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, expected ErrNotFound", err)
	}
	if err := s.Delete(ctx, "Game"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete again = %v, expected ErrNotFound", err)
	}
}

func TestFileStoreList(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, title := range []string{"Zeta", "Alpha", "Mid"} {
		if err := s.Create(ctx, &Product{Title: title, Price: "1"}); err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}
	titles, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"Alpha", "Mid", "Zeta"}
	if !reflect.DeepEqual(titles, want) {
		t.Fatalf("List = %v, want %v", titles, want)
	}
}

func TestFileStoreToleratesMissingAndCorruptSnapshots(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("NewFileStore missing: %v", err)
	}
	if titles, _ := s.List(context.Background()); len(titles) != 0 {
		t.Fatalf("missing snapshot produced products: %v", titles)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	s, err = NewFileStore(corrupt)
	if err != nil {
		t.Fatalf("NewFileStore corrupt: %v", err)
	}
	if titles, _ := s.List(context.Background()); len(titles) != 0 {
		t.Fatalf("corrupt snapshot produced products: %v", titles)
	}
}
