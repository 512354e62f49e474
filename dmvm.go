package parbench

// Dense matrix-vector multiply, lhs += mat * rhs.
//
// mat is stored column-major with m rows and n columns, so column c is the
// contiguous run mat[c*m : c*m+m]. Parallelizing over columns makes every
// worker contribute to every element of lhs, which is what turns this kernel
// into a reduction over a buffer.

// DMVM computes lhs += mat * rhs over all n columns
func DMVM(lhs, rhs, mat []float64, n, m int) {
	dmvmColumns(lhs, rhs, mat, m, 0, n)
}

// dmvmColumns accumulates columns [cStart, cEnd) into lhs
func dmvmColumns(lhs, rhs, mat []float64, m, cStart, cEnd int) {
	lhs = lhs[:m]
	for c := cStart; c < cEnd; c++ {
		col := mat[c*m : c*m+m]
		x := rhs[c]
		for r, v := range col {
			lhs[r] += v * x
		}
	}
}

// DMVMFlops returns 2*n*m: one multiply and one add per matrix element
func DMVMFlops(n, m int) float64 {
	return 2 * float64(n) * float64(m)
}

// DMVMBytes counts the matrix and rhs read once and lhs read and written once
func DMVMBytes(n, m int) float64 {
	return (float64(n)*float64(m) + float64(n) + 2*float64(m)) * 8
}
