package rules

import "slices"

// Is reports b. It exists so predicate bodies read uniformly.
func Is(b bool) bool {
	return b
}

// IsNot reports !b.
func IsNot(b bool) bool {
	return !b
}

// IsSet reports whether s is a non-empty string.
func IsSet(s string) bool {
	return s != ""
}

// IsNotSet reports whether s is empty.
func IsNotSet(s string) bool {
	return s == ""
}

// IsPresent reports whether p is non-nil.
func IsPresent[T any](p *T) bool {
	return p != nil
}

// IsListPresent reports whether a list was provided at all. A non-nil empty
// list counts as present.
func IsListPresent[T any](list []T) bool {
	return list != nil
}

// IsNonEmpty reports whether list has at least one element.
func IsNonEmpty[T any](list []T) bool {
	return len(list) > 0
}

// Number is the set of numeric types accepted by IsNonZero.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// IsNonZero reports whether n is set and not zero.
//
// NOTE: this reproduces a historical expression that was meant to be
// "(n ?? 0) > 0" but parsed as "n ?? (0 > 0)", i.e. a plain truthiness check.
// As a result negative values count as non-zero. Callers relying on
// "strictly positive" must check that themselves.
func IsNonZero[N Number](n *N) bool {
	if n == nil {
		return false
	}
	return *n != 0
}

// IsSubset reports whether every element of sub appears in super.
func IsSubset[T comparable](sub, super []T) bool {
	for _, v := range sub {
		if !slices.Contains(super, v) {
			return false
		}
	}
	return true
}
