package parbench

import (
	"fmt"
	"strings"
)

// KernelKind tags the computation a benchmark runs. Every kind is dispatched
// by newWorkload; adding one means adding a case there.
type KernelKind int

const (
	// Sum of N elements with a configurable unroll factor
	KernelSum KernelKind = iota
	// Max of N elements
	KernelMax
	// Midpoint integration of 4/(1+x^2) over N steps
	KernelPi
	// Dense matrix-vector multiply, N columns by M rows
	KernelDMVM
	// Matrix multiply in the selected loop variant
	KernelMatMul
	// Standard deviation in two phases: the mean, then the squared
	// deviations from it
	KernelStdDev
	// N tasks of light, moderate and heavy cost laid out in that order, for
	// comparing schedules on uneven work
	KernelTasks
)

var kernelNames = [...]string{
	KernelSum:    "sum",
	KernelMax:    "max",
	KernelPi:     "pi",
	KernelDMVM:   "dmvm",
	KernelMatMul: "matmul",
	KernelStdDev: "stddev",
	KernelTasks:  "tasks",
}

// String returns the kernel name used in reports and on the command line
func (k KernelKind) String() string {
	if k >= 0 && int(k) < len(kernelNames) {
		return kernelNames[k]
	}
	return fmt.Sprintf("KernelKind(%d)", int(k))
}

// ParseKernelKind is the inverse of KernelKind.String
func ParseKernelKind(s string) (KernelKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kernelNames {
		if name == s {
			return KernelKind(k), nil
		}
	}
	return 0, NewInvalidArgError("ParseKernelKind", fmt.Sprintf("unknown kernel %q", s))
}

// KernelSpec describes one benchmark problem. Zero values of the optional
// fields select the defaults noted on each field.
type KernelSpec struct {
	// Report label; defaults to the kind, plus the variant for matmul
	Name string

	Kind KernelKind

	// Matmul loop variant
	Variant MatMulVariant

	// Element type of the sum input; other kernels use Float64
	Elem ElemType

	// Problem size: elements for sum, max and stddev, steps for pi, columns
	// for dmvm, inner dimension for matmul, task count for tasks
	N int

	// Rows of the dmvm matrix. For matmul, A is M x N, B is N x M and C is
	// M x M; zero makes all three N x N.
	M int

	// Unroll factor of the sum kernel, one of UnrollFactors; defaults to 1
	Unroll int

	// Tile edge of the blocked matmul, or base size of the recursive one;
	// defaults to MatrixTileSize and RecursiveBaseSize
	Tile int

	// Init returns the value of element i of every input buffer; nil
	// selects a kernel-specific deterministic pattern
	Init func(i int) float64
}

// Label returns the name reported for the kernel
func (s KernelSpec) Label() string {
	if s.Name != "" {
		return s.Name
	}
	switch s.Kind {
	case KernelMatMul:
		return s.Kind.String() + "/" + s.Variant.String()
	case KernelSum:
		if s.Elem != Float64 {
			return s.Kind.String() + "/" + s.Elem.String()
		}
	}
	return s.Kind.String()
}

// Validate rejects degenerate sizes and options the kind does not support
func (s KernelSpec) Validate() error {
	if s.Kind < KernelSum || s.Kind > KernelTasks {
		return NewInvalidArgError("KernelSpec", fmt.Sprintf("unknown kernel kind %d", int(s.Kind)))
	}
	if s.N <= 0 {
		return NewDegenerateInputError("KernelSpec", fmt.Sprintf("%s: problem size must be positive, got %d", s.Label(), s.N))
	}
	if s.Kind == KernelDMVM && s.M <= 0 {
		return NewDegenerateInputError("KernelSpec", fmt.Sprintf("%s: row count must be positive, got %d", s.Label(), s.M))
	}
	if s.M < 0 {
		return NewDegenerateInputError("KernelSpec", fmt.Sprintf("%s: row count must not be negative, got %d", s.Label(), s.M))
	}
	if s.Kind != KernelSum && s.Elem != Float64 {
		return NewInvalidArgError("KernelSpec", fmt.Sprintf("%s supports float64 only, got %s", s.Kind, s.Elem))
	}
	if s.Unroll != 0 {
		if s.Kind != KernelSum {
			return NewInvalidArgError("KernelSpec", fmt.Sprintf("%s has no unroll factor", s.Kind))
		}
		supported := false
		for _, u := range UnrollFactors {
			supported = supported || u == s.Unroll
		}
		if !supported {
			return NewInvalidArgError("KernelSpec", fmt.Sprintf("unsupported unroll factor %d", s.Unroll))
		}
	}
	if s.Tile < 0 {
		return NewInvalidArgError("KernelSpec", fmt.Sprintf("negative tile size %d", s.Tile))
	}
	if s.Kind == KernelMatMul && (s.Variant < MatMulNaive || s.Variant > MatMulRecursive) {
		return NewInvalidArgError("KernelSpec", fmt.Sprintf("unknown matmul variant %d", int(s.Variant)))
	}
	return nil
}

func (s KernelSpec) unroll() int {
	if s.Unroll == 0 {
		return 1
	}
	return s.Unroll
}

// rows returns the row count of the matmul operands
func (s KernelSpec) rows() int {
	if s.M > 0 {
		return s.M
	}
	return s.N
}

func (s KernelSpec) tile() int {
	if s.Tile > 0 {
		return s.Tile
	}
	if s.Variant == MatMulRecursive {
		return RecursiveBaseSize
	}
	return MatrixTileSize
}

// Output is what one kernel call produces: a scalar for reductions, a buffer
// for matrix kernels.
type Output struct {
	Scalar float64   `json:"scalar"`
	Buffer []float64 `json:"-"`
}

// IsBuffer reports whether the output is a buffer rather than a scalar
func (o Output) IsBuffer() bool {
	return o.Buffer != nil
}
