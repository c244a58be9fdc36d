// Package numeric holds the single safety predicate applied to every derived
// number. A value that is not a number, is NaN, or is infinite never reaches
// an analysis record; the field degrades to nil and renders as "N/A".
package numeric

import (
	"math"
	"strconv"
)

// NA is how a nil field is rendered in reports.
const NA = "N/A"

// IsUnsafe reports whether x is not of a numeric type, is NaN, or is non-finite.
func IsUnsafe(x any) bool {
	switch v := x.(type) {
	case float64:
		return math.IsNaN(v) || math.IsInf(v, 0)
	case float32:
		f := float64(v)
		return math.IsNaN(f) || math.IsInf(f, 0)
	case *float64:
		return v == nil || IsUnsafe(*v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return false
	default:
		return true
	}
}

// Float returns a pointer to v, or nil when v is unsafe.
func Float(v float64) *float64 {
	if IsUnsafe(v) {
		return nil
	}
	return &v
}

// Ready returns nil when the producing accumulator is not ready or v is unsafe.
func Ready(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return Float(v)
}

// Div divides a by b. ok is false when b is zero or the quotient is unsafe.
func Div(a, b float64) (q float64, ok bool) {
	if b == 0 {
		return 0, false
	}
	q = a / b
	if IsUnsafe(q) {
		return 0, false
	}
	return q, true
}

// Format renders v with the given number of decimals, or NA for nil.
func Format(v *float64, digits int) string {
	if v == nil || IsUnsafe(*v) {
		return NA
	}
	return strconv.FormatFloat(*v, 'f', digits, 64)
}
