package parbench

import (
	"fmt"
	"math"
)

// workload binds a KernelSpec to its buffers and to the sequential and
// parallel forms of its kernel.
type workload struct {
	counts Counts

	// Size of the parallel iteration space, which differs from N for the
	// matmul variants that split rows, cells or tile rows.
	space int

	// Zeroes the accumulation target; nil for kernels without one
	reset func()

	sequential func() (Output, error)
	parallel   func(team *Team, p Policy, s Strategy) (Output, error)

	release func()
}

// newWorkload allocates and initializes the buffers of spec. It is the one
// place a KernelKind is dispatched.
func newWorkload(spec KernelSpec) (*workload, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	switch spec.Kind {
	case KernelSum:
		switch spec.Elem {
		case Float32:
			return newSumWorkload[float32](spec)
		case Int32:
			return newSumWorkload[int32](spec)
		default:
			return newSumWorkload[float64](spec)
		}
	case KernelMax:
		return newMaxWorkload(spec)
	case KernelPi:
		return newPiWorkload(spec), nil
	case KernelDMVM:
		return newDMVMWorkload(spec)
	case KernelMatMul:
		return newMatMulWorkload(spec)
	case KernelStdDev:
		return newStdDevWorkload(spec)
	case KernelTasks:
		return newTasksWorkload(spec), nil
	default:
		return nil, NewInvalidArgError("newWorkload", fmt.Sprintf("unknown kernel kind %d", int(spec.Kind)))
	}
}

// initFunc returns spec.Init or the default input pattern of the kind
func initFunc(spec KernelSpec) func(int) float64 {
	if spec.Init != nil {
		return spec.Init
	}
	switch spec.Kind {
	case KernelMax, KernelStdDev:
		// A multiplicative hash spreads the maximum away from the ends
		return func(i int) float64 {
			return float64(uint32(i)*2654435761%1000003) / 1000003
		}
	case KernelMatMul:
		return func(i int) float64 { return float64(i%13) * 0.25 }
	default:
		return func(int) float64 { return 1.0 }
	}
}

func fill[T Element](data []T, init func(int) float64) {
	for i := range data {
		data[i] = T(init(i))
	}
}

// area returns a*b, or an allocation error if the product overflows int
func area(op string, a, b int) (int, error) {
	if b != 0 && a > math.MaxInt/b {
		return 0, NewAllocationError(op, fmt.Sprintf("%d x %d elements overflows the address space", a, b), nil)
	}
	return a * b, nil
}

func newSumWorkload[T Element](spec KernelSpec) (*workload, error) {
	buf, err := NewBuffer[T](spec.N)
	if err != nil {
		return nil, err
	}
	data := buf.Data()
	fill(data, initFunc(spec))
	u := spec.unroll()

	return &workload{
		counts: Counts{Bytes: float64(spec.N) * float64(spec.Elem.Size()), Flops: float64(spec.N)},
		space:  spec.N,
		sequential: func() (Output, error) {
			s, err := SumUnrolled(data, u)
			return Output{Scalar: float64(s)}, err
		},
		parallel: func(team *Team, p Policy, s Strategy) (Output, error) {
			v, err := team.Reduce(len(data), p, s, OpSum, func(c Chunk) float64 {
				// u was checked by Validate
				part, _ := SumUnrolled(data[c.Start:c.End], u)
				return float64(part)
			})
			return Output{Scalar: v}, err
		},
		release: buf.Release,
	}, nil
}

func newMaxWorkload(spec KernelSpec) (*workload, error) {
	buf, err := NewBuffer[float64](spec.N)
	if err != nil {
		return nil, err
	}
	data := buf.Data()
	fill(data, initFunc(spec))

	return &workload{
		counts: Counts{Bytes: float64(spec.N) * 8, Flops: float64(spec.N)},
		space:  spec.N,
		sequential: func() (Output, error) {
			return Output{Scalar: Max(data)}, nil
		},
		parallel: func(team *Team, p Policy, s Strategy) (Output, error) {
			v, err := team.Reduce(len(data), p, s, OpMax, func(c Chunk) float64 {
				return Max(data[c.Start:c.End])
			})
			return Output{Scalar: v}, err
		},
		release: buf.Release,
	}, nil
}

// newPiWorkload integrates over N midpoint steps. There is no input buffer;
// each step costs six floating-point operations.
func newPiWorkload(spec KernelSpec) *workload {
	steps := spec.N
	return &workload{
		counts: Counts{Bytes: 0, Flops: 6 * float64(steps)},
		space:  steps,
		sequential: func() (Output, error) {
			return Output{Scalar: Pi(steps)}, nil
		},
		parallel: func(team *Team, p Policy, s Strategy) (Output, error) {
			v, err := team.Reduce(steps, p, s, OpSum, func(c Chunk) float64 {
				return PiPartial(c.Start, c.End, steps)
			})
			return Output{Scalar: v}, err
		},
		release: func() {},
	}
}

// newDMVMWorkload parallelizes over the n columns. Every column touches every
// element of lhs, so the parallel form is a buffer reduction.
func newDMVMWorkload(spec KernelSpec) (*workload, error) {
	n, m := spec.N, spec.M
	size, err := area("newDMVMWorkload", n, m)
	if err != nil {
		return nil, err
	}
	matBuf, err := NewBuffer[float64](size)
	if err != nil {
		return nil, err
	}
	rhsBuf, err := NewBuffer[float64](n)
	if err != nil {
		return nil, err
	}
	lhsBuf, err := NewBuffer[float64](m)
	if err != nil {
		return nil, err
	}
	init := initFunc(spec)
	fill(matBuf.Data(), init)
	fill(rhsBuf.Data(), init)
	mat, rhs, lhs := matBuf.Data(), rhsBuf.Data(), lhsBuf.Data()

	return &workload{
		counts: Counts{Bytes: DMVMBytes(n, m), Flops: DMVMFlops(n, m)},
		space:  n,
		reset:  lhsBuf.Zero,
		sequential: func() (Output, error) {
			DMVM(lhs, rhs, mat, n, m)
			return Output{Buffer: lhs}, nil
		},
		parallel: func(team *Team, p Policy, s Strategy) (Output, error) {
			err := team.ReduceInto(n, p, s, lhs, func(acc []float64, c Chunk) {
				dmvmColumns(acc, rhs, mat, m, c.Start, c.End)
			})
			return Output{Buffer: lhs}, err
		},
		release: func() {
			matBuf.Release()
			rhsBuf.Release()
			lhsBuf.Release()
		},
	}, nil
}

// newMatMulWorkload multiplies A (M x N) by B (N x M) into C (M x M), with
// M defaulting to N. Each variant splits C into disjoint pieces, so the
// parallel form needs no reduction:
//   - naive: individual cells, M*M of them
//   - interchanged and recursive: rows
//   - blocked: rows of tiles
func newMatMulWorkload(spec KernelSpec) (*workload, error) {
	m, k := spec.rows(), spec.N
	n := m
	operand, err := area("newMatMulWorkload", m, k)
	if err != nil {
		return nil, err
	}
	size, err := area("newMatMulWorkload", m, n)
	if err != nil {
		return nil, err
	}
	bufs := make([]*Buffer[float64], 3)
	for i, elems := range []int{operand, operand, size} {
		if bufs[i], err = NewBuffer[float64](elems); err != nil {
			return nil, err
		}
	}
	init := initFunc(spec)
	fill(bufs[0].Data(), init)
	fill(bufs[1].Data(), init)
	ma, mb, mc := bufs[0].Data(), bufs[1].Data(), bufs[2].Data()

	tile := spec.tile()
	co := NewCacheObliviousMatMul(tile)

	var (
		space int
		seq   func()
		rows  func(start, end int)
	)
	switch spec.Variant {
	case MatMulNaive:
		space = size
		seq = func() { MatMulNaiveKernel(ma, mb, mc, m, n, k) }
		rows = func(start, end int) { matMulNaiveCells(ma, mb, mc, n, k, start, end) }
	case MatMulInterchanged:
		space = m
		seq = func() { MatMulInterchangedKernel(ma, mb, mc, m, n, k) }
		rows = func(start, end int) { matMulInterchangedRows(ma, mb, mc, n, k, start, end) }
	case MatMulBlocked:
		space = (m + tile - 1) / tile
		seq = func() { MatMulBlockedKernel(ma, mb, mc, m, n, k, tile) }
		rows = func(start, end int) { matMulBlockedTileRows(ma, mb, mc, m, n, k, tile, start, end) }
	case MatMulRecursive:
		space = m
		seq = func() { co.Compute(ma, mb, mc, m, n, k) }
		rows = func(start, end int) { co.ComputeRows(ma, mb, mc, m, n, k, start, end) }
	default:
		return nil, NewInvalidArgError("newMatMulWorkload", fmt.Sprintf("unknown matmul variant %d", int(spec.Variant)))
	}

	return &workload{
		counts: Counts{Bytes: MatMulBytes(spec.Variant, m, n, k), Flops: MatMulFlops(m, n, k)},
		space:  space,
		reset:  bufs[2].Zero,
		sequential: func() (Output, error) {
			seq()
			return Output{Buffer: mc}, nil
		},
		parallel: func(team *Team, p Policy, _ Strategy) (Output, error) {
			err := team.For(space, p, func(_ int, c Chunk) {
				rows(c.Start, c.End)
			})
			return Output{Buffer: mc}, err
		},
		release: func() {
			for _, b := range bufs {
				b.Release()
			}
		},
	}, nil
}

// newStdDevWorkload reduces twice. The join that ends the first region
// publishes the mean to every worker of the second, so the deviation pass
// never starts before the sum is complete.
func newStdDevWorkload(spec KernelSpec) (*workload, error) {
	buf, err := NewBuffer[float64](spec.N)
	if err != nil {
		return nil, err
	}
	data := buf.Data()
	fill(data, initFunc(spec))
	n := float64(len(data))

	return &workload{
		counts: Counts{Bytes: 2 * n * 8, Flops: 4 * n},
		space:  spec.N,
		sequential: func() (Output, error) {
			return Output{Scalar: StdDev(data)}, nil
		},
		parallel: func(team *Team, p Policy, s Strategy) (Output, error) {
			sum, err := team.Reduce(len(data), p, s, OpSum, func(c Chunk) float64 {
				return Sum(data[c.Start:c.End])
			})
			if err != nil {
				return Output{}, err
			}
			mean := sum / n
			dev, err := team.Reduce(len(data), p, s, OpSum, func(c Chunk) float64 {
				return SquaredDeviation(data[c.Start:c.End], mean)
			})
			return Output{Scalar: math.Sqrt(dev / n)}, err
		},
		release: buf.Release,
	}, nil
}

// newTasksWorkload runs N tasks of growing cost. It has no input buffer.
func newTasksWorkload(spec KernelSpec) *workload {
	n := spec.N
	return &workload{
		counts: Counts{Bytes: 0, Flops: taskStepFlops * TaskSteps(n)},
		space:  n,
		sequential: func() (Output, error) {
			return Output{Scalar: RunTasks(0, n, n)}, nil
		},
		parallel: func(team *Team, p Policy, s Strategy) (Output, error) {
			v, err := team.Reduce(n, p, s, OpSum, func(c Chunk) float64 {
				return RunTasks(c.Start, c.End, n)
			})
			return Output{Scalar: v}, err
		},
		release: func() {},
	}
}
