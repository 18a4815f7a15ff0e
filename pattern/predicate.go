package pattern

import (
	"math"

	"github.com/sarchlab/tilecc/ir"
)

// Predicate constrains a value embedded in a node. It sees the values the
// pattern captured so far.
type Predicate[T any] func(v T, m *Match) bool

// Any accepts every value.
func Any[T any]() Predicate[T] {
	return func(T, *Match) bool { return true }
}

// Is accepts exactly want.
func Is[T comparable](want T) Predicate[T] {
	return func(v T, _ *Match) bool { return v == want }
}

// IsAnyOf accepts any of the listed values.
func IsAnyOf[T comparable](want ...T) Predicate[T] {
	return func(v T, _ *Match) bool {
		for _, w := range want {
			if v == w {
				return true
			}
		}
		return false
	}
}

// IsZero accepts the constant 0.
func IsZero() Predicate[int64] {
	return Is[int64](0)
}

// SameAs accepts the register that p captured earlier in the same match.
func SameAs(p Pattern) Predicate[ir.Register] {
	return func(v ir.Register, m *Match) bool {
		captured, ok := m.values[p]
		return ok && captured == v
	}
}

// SameAsWritten accepts the register written by the enclosing
// RegisterWrite pattern.
func SameAsWritten() Predicate[ir.Register] {
	return func(v ir.Register, m *Match) bool {
		return m.written != nil && m.written == v
	}
}

// FitsInt32 accepts constants that sign-extend from 32 bits.
func FitsInt32() Predicate[int64] {
	return func(v int64, _ *Match) bool {
		return v >= math.MinInt32 && v <= math.MaxInt32
	}
}
