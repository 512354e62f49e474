package parbench

// CacheObliviousMatMul implements a cache-oblivious matrix multiplication
// using recursive subdivision. This approach adapts to any cache hierarchy
// without needing to know cache sizes.
//
// The algorithm splits the largest dimension in half until every dimension
// fits the base size, so each level of recursion eventually works on blocks
// that fit some level of cache.
type CacheObliviousMatMul struct {
	// Threshold for switching to the base kernel
	baseSize int
}

// NewCacheObliviousMatMul creates a recursive matrix multiply. A non-positive
// base size selects RecursiveBaseSize.
func NewCacheObliviousMatMul(baseSize int) *CacheObliviousMatMul {
	if baseSize <= 0 {
		baseSize = RecursiveBaseSize
	}
	return &CacheObliviousMatMul{baseSize: baseSize}
}

// view is a sub-block of a row-major matrix with leading dimension ld
type view struct {
	data       []float64
	ld         int
	row, col   int
	rows, cols int
}

func (v view) at(i, j int) int {
	return (v.row+i)*v.ld + v.col + j
}

// Compute performs C += A*B for A (m x k), B (k x n), C (m x n)
func (co *CacheObliviousMatMul) Compute(a, b, c []float64, m, n, k int) {
	co.ComputeRows(a, b, c, m, n, k, 0, m)
}

// ComputeRows performs the product for rows [rowStart, rowEnd) of C only.
// Row ranges are disjoint in C, so a team can split them without locking.
func (co *CacheObliviousMatMul) ComputeRows(a, b, c []float64, m, n, k, rowStart, rowEnd int) {
	rows := rowEnd - rowStart
	if rows <= 0 || n == 0 || k == 0 {
		return
	}
	co.recursiveMultiply(
		view{a, k, rowStart, 0, rows, k},
		view{b, n, 0, 0, k, n},
		view{c, n, rowStart, 0, rows, n},
	)
}

// recursiveMultiply performs the recursive subdivision
func (co *CacheObliviousMatMul) recursiveMultiply(a, b, c view) {
	// Base case
	if a.rows <= co.baseSize && a.cols <= co.baseSize && b.cols <= co.baseSize {
		co.baseCase(a, b, c)
		return
	}

	// Split the largest dimension to maintain balance
	switch {
	case a.rows >= max(a.cols, b.cols):
		// Split A and C horizontally
		mid := a.rows / 2
		aTop, aBottom := a, a
		aTop.rows = mid
		aBottom.row += mid
		aBottom.rows -= mid
		cTop, cBottom := c, c
		cTop.rows = mid
		cBottom.row += mid
		cBottom.rows -= mid

		co.recursiveMultiply(aTop, b, cTop)
		co.recursiveMultiply(aBottom, b, cBottom)

	case b.cols >= max(a.rows, a.cols):
		// Split B and C vertically
		mid := b.cols / 2
		bLeft, bRight := b, b
		bLeft.cols = mid
		bRight.col += mid
		bRight.cols -= mid
		cLeft, cRight := c, c
		cLeft.cols = mid
		cRight.col += mid
		cRight.cols -= mid

		co.recursiveMultiply(a, bLeft, cLeft)
		co.recursiveMultiply(a, bRight, cRight)

	default:
		// Split along the inner dimension; both halves accumulate into C
		mid := a.cols / 2
		aLeft, aRight := a, a
		aLeft.cols = mid
		aRight.col += mid
		aRight.cols -= mid
		bTop, bBottom := b, b
		bTop.rows = mid
		bBottom.row += mid
		bBottom.rows -= mid

		co.recursiveMultiply(aLeft, bTop, c)
		co.recursiveMultiply(aRight, bBottom, c)
	}
}

// baseCase multiplies blocks that fit the base size in ikj order
func (co *CacheObliviousMatMul) baseCase(a, b, c view) {
	for i := 0; i < a.rows; i++ {
		cOff := c.at(i, 0)
		cRow := c.data[cOff : cOff+b.cols]
		for p := 0; p < a.cols; p++ {
			av := a.data[a.at(i, p)]
			bOff := b.at(p, 0)
			bRow := b.data[bOff : bOff+b.cols]
			for j, bv := range bRow {
				cRow[j] += av * bv
			}
		}
	}
}
