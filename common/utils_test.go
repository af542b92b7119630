package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlignUp64(t *testing.T) {
	testcases := []struct {
		v, align, want uint64
	}{
		{155, 0, 155},
		{155, 1, 155},
		{155, 16, 160},
		{160, 16, 160},
		{164, 4, 164},
		{165, 4, 168},
		{7, 3, 9},
		{0, 64, 0},
	}
	for _, tc := range testcases {
		got, ok := AlignUp64(tc.v, tc.align)
		require.True(t, ok)
		require.Equal(t, tc.want, got, "AlignUp64(%d, %d)", tc.v, tc.align)
	}

	_, ok := AlignUp64(math.MaxUint64, 16)
	require.False(t, ok)
}

func TestStrictSignedDiff(t *testing.T) {
	d, ok := StrictSignedDiff(27, 24)
	require.True(t, ok)
	require.Equal(t, int64(3), d)

	d, ok = StrictSignedDiff(24, 40)
	require.True(t, ok)
	require.Equal(t, int64(-16), d)

	d, ok = StrictSignedDiff(math.MaxInt64, 0)
	require.True(t, ok)
	require.Equal(t, int64(math.MaxInt64), d)

	_, ok = StrictSignedDiff(math.MaxUint64, 0)
	require.False(t, ok)

	_, ok = StrictSignedDiff(0, math.MaxUint64)
	require.False(t, ok)

	d, ok = StrictSignedDiff(0, 1<<63)
	require.True(t, ok)
	require.Equal(t, int64(math.MinInt64), d)
}

func TestCheckedArithmetic(t *testing.T) {
	_, ok := CheckedAdd64(math.MaxUint64, 1)
	require.False(t, ok)

	v, ok := CheckedSub64(10, 3)
	require.True(t, ok)
	require.Equal(t, uint64(7), v)

	_, ok = CheckedSub64(3, 10)
	require.False(t, ok)

	v, ok = CheckedAddSigned64(24, -16)
	require.True(t, ok)
	require.Equal(t, uint64(8), v)

	_, ok = CheckedAddSigned64(8, -16)
	require.False(t, ok)

	v, ok = CheckedAddSigned64(math.MaxUint64, math.MinInt64)
	require.True(t, ok)
	require.Equal(t, uint64(math.MaxInt64), v)

	_, ok = CheckedAddSigned64(math.MaxUint64, 1)
	require.False(t, ok)
}
