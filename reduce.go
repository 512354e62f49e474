package parbench

import (
	"fmt"
	"math"
)

// Reduction kernels. Each unrolled variant folds U elements into one
// expression per iteration and then finishes the N mod U trailing elements in
// a remainder loop, so every element is added exactly once. The grouping
// differs between factors, which is why floating-point results may differ in
// the last bits.

// Sum adds every element of a
func Sum[T Element](a []T) T {
	return sumU1(a)
}

// SumUnrolled adds every element of a with the loop unrolled u times.
// u must be one of UnrollFactors.
func SumUnrolled[T Element](a []T, u int) (T, error) {
	switch u {
	case 1:
		return sumU1(a), nil
	case 2:
		return sumU2(a), nil
	case 4:
		return sumU4(a), nil
	case 8:
		return sumU8(a), nil
	case 16:
		return sumU16(a), nil
	case 32:
		return sumU32(a), nil
	default:
		return 0, NewInvalidArgError("SumUnrolled", fmt.Sprintf("unsupported unroll factor %d", u))
	}
}

func sumU1[T Element](a []T) T {
	var sum T
	for _, v := range a {
		sum += v
	}
	return sum
}

func sumU2[T Element](a []T) T {
	var sum T
	i := 0
	for ; i+2 <= len(a); i += 2 {
		s := a[i : i+2 : i+2]
		sum += s[0] + s[1]
	}
	for ; i < len(a); i++ {
		sum += a[i]
	}
	return sum
}

func sumU4[T Element](a []T) T {
	var sum T
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s := a[i : i+4 : i+4]
		sum += s[0] + s[1] + s[2] + s[3]
	}
	for ; i < len(a); i++ {
		sum += a[i]
	}
	return sum
}

func sumU8[T Element](a []T) T {
	var sum T
	i := 0
	for ; i+8 <= len(a); i += 8 {
		s := a[i : i+8 : i+8]
		sum += s[0] + s[1] + s[2] + s[3] +
			s[4] + s[5] + s[6] + s[7]
	}
	for ; i < len(a); i++ {
		sum += a[i]
	}
	return sum
}

func sumU16[T Element](a []T) T {
	var sum T
	i := 0
	for ; i+16 <= len(a); i += 16 {
		s := a[i : i+16 : i+16]
		sum += s[0] + s[1] + s[2] + s[3] +
			s[4] + s[5] + s[6] + s[7] +
			s[8] + s[9] + s[10] + s[11] +
			s[12] + s[13] + s[14] + s[15]
	}
	for ; i < len(a); i++ {
		sum += a[i]
	}
	return sum
}

func sumU32[T Element](a []T) T {
	var sum T
	i := 0
	for ; i+32 <= len(a); i += 32 {
		s := a[i : i+32 : i+32]
		sum += s[0] + s[1] + s[2] + s[3] +
			s[4] + s[5] + s[6] + s[7] +
			s[8] + s[9] + s[10] + s[11] +
			s[12] + s[13] + s[14] + s[15] +
			s[16] + s[17] + s[18] + s[19] +
			s[20] + s[21] + s[22] + s[23] +
			s[24] + s[25] + s[26] + s[27] +
			s[28] + s[29] + s[30] + s[31]
	}
	for ; i < len(a); i++ {
		sum += a[i]
	}
	return sum
}

// Max returns the largest element of a, or -Inf if a is empty
func Max(a []float64) float64 {
	m := math.Inf(-1)
	for _, v := range a {
		if v > m {
			m = v
		}
	}
	return m
}

// PiPartial integrates 4/(1+x²) with the midpoint rule over steps
// [start, end) of a grid with the given number of steps. Summing the
// partials of a full cover of [0, steps) approximates π.
func PiPartial(start, end, steps int) float64 {
	step := 1.0 / float64(steps)
	sum := 0.0
	for i := start; i < end; i++ {
		x := (float64(i) + 0.5) * step
		sum += 4.0 / (1.0 + x*x)
	}
	return sum * step
}

// Pi integrates over the whole grid sequentially
func Pi(steps int) float64 {
	return PiPartial(0, steps, steps)
}

// StdDev returns the population standard deviation of a in two passes: the
// mean first, then the squared deviations from it.
func StdDev(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	n := float64(len(a))
	mean := Sum(a) / n
	return math.Sqrt(SquaredDeviation(a, mean) / n)
}

// SquaredDeviation returns the sum of (v-mean)^2 over a
func SquaredDeviation(a []float64, mean float64) float64 {
	var sum float64
	for _, v := range a {
		d := v - mean
		sum += d * d
	}
	return sum
}
