package parbench

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// randomMatrices returns A (m x k) and B (k x n) filled from a fixed seed
func randomMatrices(m, n, k int) (a, b []float64) {
	rng := rand.New(rand.NewSource(int64(m*1_000_003 + n*1009 + k)))
	a = make([]float64, m*k)
	b = make([]float64, k*n)
	for i := range a {
		a[i] = rng.Float64()*2 - 1
	}
	for i := range b {
		b[i] = rng.Float64()*2 - 1
	}
	return a, b
}

// gonumProduct computes A*B with gonum as an independent oracle
func gonumProduct(a, b []float64, m, n, k int) []float64 {
	var c mat.Dense
	c.Mul(mat.NewDense(m, k, a), mat.NewDense(k, n, b))
	return c.RawMatrix().Data
}

func TestMatMulVariantsAgree(t *testing.T) {
	tol := Tolerance{Abs: 1e-9, Rel: 1e-9}
	sizes := []struct{ m, n, k int }{
		{1, 1, 1},
		{7, 5, 3},
		{33, 17, 65},
		{100, 100, 100},
		{130, 127, 129},
	}

	for _, s := range sizes {
		t.Run(fmt.Sprintf("%dx%dx%d", s.m, s.n, s.k), func(t *testing.T) {
			a, b := randomMatrices(s.m, s.n, s.k)
			want := gonumProduct(a, b, s.m, s.n, s.k)

			naive := make([]float64, s.m*s.n)
			MatMulNaiveKernel(a, b, naive, s.m, s.n, s.k)
			assert.True(t, VerifyBuffer(naive, want, tol).Pass, "naive")

			inter := make([]float64, s.m*s.n)
			MatMulInterchangedKernel(a, b, inter, s.m, s.n, s.k)
			assert.True(t, VerifyBuffer(inter, naive, tol).Pass, "interchanged")

			for _, tile := range TileSizes {
				blocked := make([]float64, s.m*s.n)
				MatMulBlockedKernel(a, b, blocked, s.m, s.n, s.k, tile)
				o := VerifyBuffer(blocked, naive, tol)
				assert.True(t, o.Pass, "blocked tile=%d: %s", tile, o)
			}
		})
	}
}

func TestMatMulAccumulates(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{5, 6, 7, 8}
	c := []float64{1, 1, 1, 1}
	MatMulInterchangedKernel(a, b, c, 2, 2, 2)
	assert.Equal(t, []float64{20, 23, 44, 51}, c)
}

func TestMatMulBlockedPartialTiles(t *testing.T) {
	// Tile rows split the work: running them in two halves must equal one pass
	const m, n, k, tile = 70, 45, 33, 16
	a, b := randomMatrices(m, n, k)
	whole := make([]float64, m*n)
	MatMulBlockedKernel(a, b, whole, m, n, k, tile)

	split := make([]float64, m*n)
	tiles := (m + tile - 1) / tile
	matMulBlockedTileRows(a, b, split, m, n, k, tile, 0, 2)
	matMulBlockedTileRows(a, b, split, m, n, k, tile, 2, tiles)
	assert.Equal(t, whole, split)
}

func TestMatMulModel(t *testing.T) {
	assert.Equal(t, 2.0*8*8*8, MatMulFlops(8, 8, 8))
	assert.Greater(t, MatMulBytes(MatMulNaive, 64, 64, 64), MatMulBytes(MatMulBlocked, 64, 64, 64))

	for _, v := range []MatMulVariant{MatMulNaive, MatMulInterchanged, MatMulBlocked, MatMulRecursive} {
		parsed, err := ParseMatMulVariant(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}
	_, err := ParseMatMulVariant("strassen")
	assert.True(t, IsInvalidArgError(err))
}
