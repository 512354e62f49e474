// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parbench

import "fmt"

// Matrix multiply kernels. All of them accumulate C += A*B over row-major
// storage:
//   - A is m x k
//   - B is k x n
//   - C is m x n
//
// The variants differ only in loop order and blocking. C must be zeroed by
// the caller when a plain product is wanted.

// MatMulVariant selects the loop structure of a matrix multiply.
type MatMulVariant int

const (
	// ijk order; the inner loop strides down a column of B
	MatMulNaive MatMulVariant = iota
	// ikj order; the inner loop streams a row of B and a row of C
	MatMulInterchanged
	// ikj order inside square tiles of edge Tile, clipped at the boundary
	MatMulBlocked
	// recursive subdivision down to RecursiveBaseSize
	MatMulRecursive
)

// String returns the variant name used in reports and on the command line
func (v MatMulVariant) String() string {
	switch v {
	case MatMulNaive:
		return "naive"
	case MatMulInterchanged:
		return "interchanged"
	case MatMulBlocked:
		return "blocked"
	case MatMulRecursive:
		return "recursive"
	default:
		return fmt.Sprintf("MatMulVariant(%d)", int(v))
	}
}

// ParseMatMulVariant is the inverse of MatMulVariant.String
func ParseMatMulVariant(s string) (MatMulVariant, error) {
	for _, v := range []MatMulVariant{MatMulNaive, MatMulInterchanged, MatMulBlocked, MatMulRecursive} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, NewInvalidArgError("ParseMatMulVariant", fmt.Sprintf("unknown matmul variant %q", s))
}

// MatMulNaiveKernel computes C += A*B with the textbook triple loop
func MatMulNaiveKernel(a, b, c []float64, m, n, k int) {
	matMulNaiveCells(a, b, c, n, k, 0, m*n)
}

// matMulNaiveCells computes the C cells with flat index in [start, end).
// Each cell is an independent dot product, so disjoint ranges can run in
// parallel without synchronization.
func matMulNaiveCells(a, b, c []float64, n, k, start, end int) {
	for idx := start; idx < end; idx++ {
		i, j := idx/n, idx%n
		sum := c[idx]
		row := a[i*k : i*k+k]
		for p, av := range row {
			sum += av * b[p*n+j]
		}
		c[idx] = sum
	}
}

// MatMulInterchangedKernel computes C += A*B in ikj order, hoisting A[i][p]
// out of the inner loop
func MatMulInterchangedKernel(a, b, c []float64, m, n, k int) {
	matMulInterchangedRows(a, b, c, n, k, 0, m)
}

func matMulInterchangedRows(a, b, c []float64, n, k, rowStart, rowEnd int) {
	for i := rowStart; i < rowEnd; i++ {
		cRow := c[i*n : i*n+n]
		for p := 0; p < k; p++ {
			r := a[i*k+p]
			bRow := b[p*n : p*n+n]
			for j, bv := range bRow {
				cRow[j] += r * bv
			}
		}
	}
}

// MatMulBlockedKernel computes C += A*B in square tiles of edge tile. The last
// tile in each dimension is clipped to the matrix boundary.
func MatMulBlockedKernel(a, b, c []float64, m, n, k, tile int) {
	matMulBlockedTileRows(a, b, c, m, n, k, tile, 0, (m+tile-1)/tile)
}

// matMulBlockedTileRows processes the tile rows [tStart, tEnd). Tile rows own
// disjoint rows of C.
func matMulBlockedTileRows(a, b, c []float64, m, n, k, tile, tStart, tEnd int) {
	for t := tStart; t < tEnd; t++ {
		i0 := t * tile
		iEnd := min(i0+tile, m)
		for j0 := 0; j0 < n; j0 += tile {
			jEnd := min(j0+tile, n)
			for k0 := 0; k0 < k; k0 += tile {
				kEnd := min(k0+tile, k)
				for i := i0; i < iEnd; i++ {
					cRow := c[i*n+j0 : i*n+jEnd]
					for p := k0; p < kEnd; p++ {
						av := a[i*k+p]
						bRow := b[p*n+j0 : p*n+jEnd]
						for j, bv := range bRow {
							cRow[j] += av * bv
						}
					}
				}
			}
		}
	}
}

// MatMulBytes returns the memory traffic model of a variant, in bytes.
// The naive and interchanged figures count every operand access of the inner
// loop; the blocked figure assumes tiles stay resident, so A and B are read
// once and C is read and written once.
func MatMulBytes(v MatMulVariant, m, n, k int) float64 {
	fm, fn, fk := float64(m), float64(n), float64(k)
	switch v {
	case MatMulNaive:
		return (2*fm*fn*fk + 2*fm*fn) * 8
	case MatMulInterchanged:
		return (3*fm*fn*fk + fm*fn) * 8
	default:
		return (fm*fk + fk*fn + 2*fm*fn) * 8
	}
}

// MatMulFlops returns the floating-point operation count, one multiply and
// one add per inner iteration
func MatMulFlops(m, n, k int) float64 {
	return 2 * float64(m) * float64(n) * float64(k)
}
