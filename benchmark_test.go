package parbench

import (
	"fmt"
	"runtime"
	"testing"
)

// Benchmark the sum at every unroll factor
func BenchmarkSumUnrolled(b *testing.B) {
	const n = 1 << 20
	a := make([]float64, n)
	for i := range a {
		a[i] = 1
	}

	for _, u := range UnrollFactors {
		b.Run(fmt.Sprintf("U%d", u), func(b *testing.B) {
			b.SetBytes(n * 8)
			for i := 0; i < b.N; i++ {
				if _, err := SumUnrolled(a, u); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// Benchmark the reduction strategies on a memory-bound sum
func BenchmarkReduceStrategies(b *testing.B) {
	const n = 1 << 22
	a := make([]float64, n)
	for i := range a {
		a[i] = 1
	}
	partial := func(c Chunk) float64 { return Sum(a[c.Start:c.End]) }
	threads := runtime.GOMAXPROCS(0)

	strategies := []Strategy{{SharedReduction, Barrier}, {LocalMerge, Barrier}, {LocalMerge, NoWait}}
	for _, s := range strategies {
		for _, p := range []Policy{Static(0), Dynamic(4096), Guided(1024)} {
			b.Run(fmt.Sprintf("%s/%s", s, p), func(b *testing.B) {
				team, err := NewTeam(threads)
				if err != nil {
					b.Fatal(err)
				}
				b.SetBytes(n * 8)
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := team.Reduce(n, p, s, OpSum, partial); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// Benchmark the matmul variants sequentially, reporting MFLOP/s
func BenchmarkMatMul(b *testing.B) {
	const n = 256
	ma, mb := randomMatrices(n, n, n)
	mc := make([]float64, n*n)
	co := NewCacheObliviousMatMul(0)

	kernels := []struct {
		name string
		fn   func()
	}{
		{"Naive", func() { MatMulNaiveKernel(ma, mb, mc, n, n, n) }},
		{"Interchanged", func() { MatMulInterchangedKernel(ma, mb, mc, n, n, n) }},
		{"Blocked64", func() { MatMulBlockedKernel(ma, mb, mc, n, n, n, 64) }},
		{"Recursive", func() { co.Compute(ma, mb, mc, n, n, n) }},
	}
	for _, k := range kernels {
		b.Run(k.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				k.fn()
			}
			b.ReportMetric(MFLOPS(MatMulFlops(n, n, n)*float64(b.N), b.Elapsed().Seconds()), "MFLOP/s")
		})
	}
}
