package parbench

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCacheObliviousMatMul checks the recursive multiply against gonum
func TestCacheObliviousMatMul(t *testing.T) {
	tol := Tolerance{Abs: 1e-9, Rel: 1e-9}
	sizes := []struct {
		m, n, k int
	}{
		{16, 16, 16},
		{64, 64, 64},
		{127, 129, 128}, // Non-power-of-2
		{3, 200, 5},     // Skewed
	}

	for _, size := range sizes {
		for _, base := range []int{0, 8, 32} {
			t.Run(fmt.Sprintf("%dx%dx%d/base%d", size.m, size.n, size.k, base), func(t *testing.T) {
				a, b := randomMatrices(size.m, size.n, size.k)
				want := gonumProduct(a, b, size.m, size.n, size.k)

				c := make([]float64, size.m*size.n)
				NewCacheObliviousMatMul(base).Compute(a, b, c, size.m, size.n, size.k)
				o := VerifyBuffer(c, want, tol)
				assert.True(t, o.Pass, o.String())
			})
		}
	}
}

func TestCacheObliviousRowRanges(t *testing.T) {
	const m, n, k = 50, 40, 30
	a, b := randomMatrices(m, n, k)
	co := NewCacheObliviousMatMul(8)

	whole := make([]float64, m*n)
	co.Compute(a, b, whole, m, n, k)

	split := make([]float64, m*n)
	for _, r := range [][2]int{{0, 13}, {13, 14}, {14, 50}} {
		co.ComputeRows(a, b, split, m, n, k, r[0], r[1])
	}
	assert.True(t, VerifyBuffer(split, whole, Tolerance{Abs: 1e-12, Rel: 1e-12}).Pass)

	// Empty ranges are a no-op
	co.ComputeRows(a, b, split, m, n, k, 5, 5)
}
