// Package parbench tolerance-based verification for floating-point comparisons
package parbench

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Tolerance defines how far a parallel result may drift from the sequential
// reference. A value passes when it is within Abs of the reference, or within
// Rel times the larger magnitude of the two.
//
// Unrolled and parallel variants regroup floating-point additions, so results
// are compared within a tolerance and never bit for bit.
type Tolerance struct {
	// Abs is the absolute tolerance for values near zero
	Abs float64

	// Rel is the relative tolerance as a fraction of the larger value
	Rel float64
}

// DefaultTolerance returns the package default tolerance
func DefaultTolerance() Tolerance {
	return Tolerance{Abs: DefaultAbsTolerance, Rel: DefaultRelTolerance}
}

// Within reports whether a and b agree under the tolerance
func (t Tolerance) Within(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return scalar.EqualWithinAbsOrRel(a, b, t.Abs, t.Rel)
}

// Outcome is the result of comparing a parallel result against the reference
type Outcome struct {
	Pass          bool    `json:"pass"`
	MaxDiff       float64 `json:"max_diff"`
	Mismatches    int     `json:"mismatches,omitempty"`
	Compared      int     `json:"compared"`
	FirstMismatch int     `json:"first_mismatch"` // -1 if none
}

// VerifyScalar compares two scalars
func VerifyScalar(got, want float64, tol Tolerance) Outcome {
	o := Outcome{
		Pass:          tol.Within(got, want),
		MaxDiff:       math.Abs(got - want),
		Compared:      1,
		FirstMismatch: -1,
	}
	if !o.Pass {
		o.Mismatches = 1
		o.FirstMismatch = 0
	}
	return o
}

// VerifyBuffer compares two buffers element-wise. Every element must be within
// tolerance; the maximum absolute difference is reported either way. Buffers
// of different lengths never pass.
func VerifyBuffer(got, want []float64, tol Tolerance) Outcome {
	o := Outcome{
		Compared:      len(want),
		FirstMismatch: -1,
	}
	if len(got) != len(want) {
		o.Mismatches = len(want)
		o.MaxDiff = math.Inf(1)
		o.FirstMismatch = min(len(got), len(want))
		return o
	}
	if len(want) == 0 {
		o.Pass = true
		return o
	}

	o.MaxDiff = floats.Distance(got, want, math.Inf(1))
	for i := range want {
		if !tol.Within(got[i], want[i]) {
			o.Mismatches++
			if o.FirstMismatch == -1 {
				o.FirstMismatch = i
			}
		}
	}
	o.Pass = o.Mismatches == 0
	return o
}

// Verify compares two kernel outputs of the same shape
func Verify(got, want Output, tol Tolerance) Outcome {
	if got.IsBuffer() || want.IsBuffer() {
		return VerifyBuffer(got.Buffer, want.Buffer, tol)
	}
	return VerifyScalar(got.Scalar, want.Scalar, tol)
}

// Err returns a ToleranceExceeded error describing a failed outcome, or nil
func (o Outcome) Err(op string) error {
	if o.Pass {
		return nil
	}
	return NewToleranceError(op, o.String(), o)
}

// String formats the verification result for display
func (o Outcome) String() string {
	if o.Pass {
		return fmt.Sprintf("PASS: %d values within tolerance (max diff %e)", o.Compared, o.MaxDiff)
	}

	return fmt.Sprintf("FAIL: %d/%d values differ, max abs diff %e, first at index %d",
		o.Mismatches, o.Compared, o.MaxDiff, o.FirstMismatch)
}
