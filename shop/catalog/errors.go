package catalog

import "errors"

var (
	// ErrDuplicateTitle is returned when creating a product whose title is taken.
	ErrDuplicateTitle = errors.New("catalog: duplicate title")
	// ErrNotFound is returned when the requested product does not exist.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrInvalidValue is returned when a field value fails validation.
	ErrInvalidValue = errors.New("catalog: invalid value")
)
