package common

import "math/bits"

// AlignUp64 returns the smallest multiple of align that is not below v.
// An alignment of 0 or 1 means no constraint. Alignments do not have to be
// powers of two. The second result is false if the aligned value overflows.
func AlignUp64(v, align uint64) (uint64, bool) {
	if align <= 1 {
		return v, true
	}
	rem := v % align
	if rem == 0 {
		return v, true
	}
	return CheckedAdd64(v, align-rem)
}

// CheckedAdd64 returns a + b, and false if the sum does not fit into uint64.
func CheckedAdd64(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// CheckedSub64 returns a - b, and false if b > a.
func CheckedSub64(a, b uint64) (uint64, bool) {
	diff, borrow := bits.Sub64(a, b, 0)
	return diff, borrow == 0
}

// CheckedAddSigned64 returns a + delta, and false if the result leaves the
// uint64 range.
func CheckedAddSigned64(a uint64, delta int64) (uint64, bool) {
	if delta >= 0 {
		return CheckedAdd64(a, uint64(delta))
	}
	// -(MinInt64) does not fit into int64, but its magnitude fits into uint64.
	return CheckedSub64(a, uint64(-(delta+1))+1)
}

// StrictSignedDiff computes a - b as a signed value. The second result is false
// when the difference does not fit into int64.
func StrictSignedDiff(a, b uint64) (int64, bool) {
	res := int64(a - b)
	overflow := (a >= b) == (res < 0)
	return res, !overflow
}
