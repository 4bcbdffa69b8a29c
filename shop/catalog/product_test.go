package catalog

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidatePrice(t *testing.T) {
	for _, raw := range []string{"0", "19.99", " 42 ", "0.01"} {
		if err := ValidatePrice(raw); err != nil {
			t.Fatalf("ValidatePrice(%q) = %v, expected nil", raw, err)
		}
	}
	for _, raw := range []string{"", "abc", "-1", "1,99", "NaN", "nan", "Inf", "+Inf", "-Inf", "inf"} {
		if err := ValidatePrice(raw); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("ValidatePrice(%q) = %v, expected ErrInvalidValue", raw, err)
		}
	}
}

func TestSplitKeys(t *testing.T) {
	got := SplitKeys(" KEY-1 ;KEY-2; ;; KEY-3")
	want := []string{"KEY-1", "KEY-2", "KEY-3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitKeys = %v, want %v", got, want)
	}
	if got := SplitKeys(""); len(got) != 0 {
		t.Fatalf("SplitKeys(\"\") = %v, expected empty", got)
	}
}

func TestApplyRejectsUnknownField(t *testing.T) {
	p := &Product{Title: "Game", Price: "10"}
	if err := p.Apply(Field("title"), "Other"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Apply(title) = %v, expected ErrInvalidValue", err)
	}
	if p.Title != "Game" || p.Price != "10" {
		t.Fatalf("product mutated by rejected apply: %+v", p)
	}
}

func TestApplyInvalidPriceLeavesProductUntouched(t *testing.T) {
	p := &Product{Title: "Game", Price: "10"}
	if err := p.Apply(FieldPrice, "not-a-number"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Apply = %v, expected ErrInvalidValue", err)
	}
	if p.Price != "10" {
		t.Fatalf("price mutated to %q", p.Price)
	}
}

func TestParseField(t *testing.T) {
	if f, ok := ParseField(" Price "); !ok || f != FieldPrice {
		t.Fatalf("ParseField(Price) = %v %v", f, ok)
	}
	if _, ok := ParseField("title"); ok {
		t.Fatal("ParseField(title) accepted an immutable field")
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := &Product{Title: "Game", Stock: []string{"a", "b"}}
	cp := p.Clone()
	cp.Stock[0] = "mutated"
	if p.Stock[0] != "a" {
		t.Fatal("clone shares the stock slice")
	}
}
