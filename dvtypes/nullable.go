// Package dvtypes holds the nullable domain value types, column bindings,
// and compiled-query shapes that the rest of the compiler passes around.
package dvtypes

import (
	"fmt"
	"time"
)

// Nullable wraps a scalar domain value with a validity flag, mirroring the
// nullable-propagating semantics spec.md requires for every SQL scalar type.
type Nullable[T any] struct {
	Value T
	Valid bool
}

// Some returns a populated Nullable.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Value: v, Valid: true}
}

// Null returns an empty Nullable of the given type.
func Null[T any]() Nullable[T] {
	return Nullable[T]{}
}

func (n Nullable[T]) String() string {
	if !n.Valid {
		return "NULL"
	}
	return fmt.Sprintf("%v", n.Value)
}

type (
	NullInt      = Nullable[int64]
	NullDecimal  = Nullable[Decimal]
	NullFloat    = Nullable[float64]
	NullBool     = Nullable[bool]
	NullGuid     = Nullable[Guid]
	NullDateTime = Nullable[time.Time]
	NullOptionSet = Nullable[int64]
)
