// Package safeconv provides checked integer conversions for node indices,
// subtree sizes and byte counts. They panic on overflow.
package safeconv

import "math"

// MaxUint32 is the maximum value for uint32 type, and so the largest node
// index or subtree size a store can hold.
const MaxUint32 = uint32(math.MaxUint32)

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || v > int(MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// MustInt64ToUint64 converts int64 to uint64, panics if negative.
func MustInt64ToUint64(v int64) uint64 {
	if v < 0 {
		panic("safeconv: negative int64 to uint64 conversion")
	}

	return uint64(v)
}

// MustUint64ToInt64 converts uint64 to int64, panics on overflow.
func MustUint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		panic("safeconv: uint64 to int64 overflow")
	}

	return int64(v)
}
