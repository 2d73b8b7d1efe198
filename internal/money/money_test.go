package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCeilMinutes(t *testing.T) {
	cases := []struct {
		seconds int64
		want    int64
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{59, 1},
		{60, 1},
		{61, 2},
		{90, 2},
		{120, 2},
		{121, 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CeilMinutes(c.seconds), "seconds=%d", c.seconds)
	}
}

func TestPlatformFeeHalfEven(t *testing.T) {
	// 300 cents at 30% = 90 exactly, no rounding needed.
	assert.Equal(t, int64(90), PlatformFeeHalfEven(300, 30))

	// Exact ties round to even: 150 * 1 / 100 = 1.5 -> rounds to 2 (even).
	assert.Equal(t, int64(2), PlatformFeeHalfEven(150, 1))
	// 50 * 1 / 100 = 0.5 -> rounds to 0 (even).
	assert.Equal(t, int64(0), PlatformFeeHalfEven(50, 1))
}

func TestSplitPreservesTotal(t *testing.T) {
	for _, total := range []int64{0, 1, 99, 100, 150, 301, 999999} {
		fee, earnings := Split(total, 30)
		assert.Equal(t, total, fee+earnings, "total=%d", total)
		assert.GreaterOrEqual(t, fee, int64(0))
		assert.GreaterOrEqual(t, earnings, int64(0))
	}
}

func TestMin(t *testing.T) {
	assert.Equal(t, int64(3), Min(3, 7))
	assert.Equal(t, int64(3), Min(7, 3))
	assert.Equal(t, int64(-2), Min(-2, 5))
}
