package catalog

import (
	"math"
	"strconv"
	"strings"
)

// KeyDelimiter separates individual stock keys in raw operator input.
const KeyDelimiter = ";"

// Field names a mutable product attribute.
type Field string

const (
	// FieldPrice is the decimal price of the product.
	FieldPrice Field = "price"
	// FieldDescription is the free-form product description.
	FieldDescription Field = "description"
	// FieldStock is the list of secret keys available for sale.
	FieldStock Field = "stock"
)

// ParseField maps raw input to a known Field.
func ParseField(raw string) (Field, bool) {
	switch Field(strings.ToLower(strings.TrimSpace(raw))) {
	case FieldPrice:
		return FieldPrice, true
	case FieldDescription:
		return FieldDescription, true
	case FieldStock:
		return FieldStock, true
	}
	return "", false
}

// Product is one catalog entry. The title is the catalog key and immutable
// once created; stock holds opaque secret keys that are never rendered, only
// counted.
type Product struct {
	ID          string   `json:"id" db:"id"`
	Title       string   `json:"title" db:"title"`
	Price       string   `json:"price" db:"price"`
	Description string   `json:"description" db:"description"`
	Stock       []string `json:"stock"`
	Currency    string   `json:"currency" db:"currency"`
}

// ValidatePrice verifies that raw parses as a non-negative decimal number.
// ParseFloat also accepts "NaN" and "Inf" spellings; neither is a price.
func ValidatePrice(raw string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ErrInvalidValue
	}
	return nil
}

// SplitKeys splits raw operator input into trimmed stock keys, dropping empty
// segments. An empty input yields an empty stock.
func SplitKeys(raw string) []string {
	parts := strings.Split(raw, KeyDelimiter)
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Apply updates the given field from raw operator input, validating price and
// splitting stock keys. The title is immutable and never a valid field here.
func (p *Product) Apply(field Field, raw string) error {
	switch field {
	case FieldPrice:
		raw = strings.TrimSpace(raw)
		if err := ValidatePrice(raw); err != nil {
			return err
		}
		p.Price = raw
	case FieldDescription:
		p.Description = strings.TrimSpace(raw)
	case FieldStock:
		p.Stock = SplitKeys(raw)
	default:
		return ErrInvalidValue
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored state in place.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Stock = append([]string(nil), p.Stock...)
	return &cp
}
