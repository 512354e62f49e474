package parbench

import (
	"fmt"
	"unsafe"
)

// Element is the set of numeric types a Buffer can hold.
type Element interface {
	~float32 | ~float64 | ~int32
}

// ElemType tags the element type of a benchmark's input buffers.
type ElemType int

const (
	Float64 ElemType = iota
	Float32
	Int32
)

// String returns the Go name of the element type
func (e ElemType) String() string {
	switch e {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("ElemType(%d)", int(e))
	}
}

// Size returns the element size in bytes
func (e ElemType) Size() int {
	switch e {
	case Float32, Int32:
		return 4
	default:
		return 8
	}
}

// Buffer is an owned, fixed-length, contiguous run of elements. It is
// allocated once per benchmark and reused across trials.
type Buffer[T Element] struct {
	data []T
}

// NewBuffer allocates a zeroed buffer of n elements. Sizes that are negative,
// exceed MaxBufferBytes, or that the runtime refuses are reported as
// allocation failures rather than panics.
func NewBuffer[T Element](n int) (buf *Buffer[T], err error) {
	if n < 0 {
		return nil, NewAllocationError("NewBuffer", fmt.Sprintf("negative length %d", n), nil)
	}
	var zero T
	size := uint64(unsafe.Sizeof(zero))
	if uint64(n) > MaxBufferBytes/size {
		return nil, NewAllocationError("NewBuffer",
			fmt.Sprintf("%d elements of %d bytes exceeds the %d byte limit", n, size, uint64(MaxBufferBytes)), nil)
	}

	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = NewAllocationError("NewBuffer", fmt.Sprintf("cannot allocate %d elements", n), fmt.Errorf("%v", r))
		}
	}()
	return &Buffer[T]{data: make([]T, n)}, nil
}

// Len returns the number of elements
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// Data exposes the backing slice. Kernels read and write it directly.
func (b *Buffer[T]) Data() []T {
	return b.data
}

// Bytes returns the buffer size in bytes
func (b *Buffer[T]) Bytes() int {
	var zero T
	return len(b.data) * int(unsafe.Sizeof(zero))
}

// Zero resets every element. Mutable targets are zeroed before each trial.
func (b *Buffer[T]) Zero() {
	clear(b.data)
}

// Fill sets every element to v
func (b *Buffer[T]) Fill(v T) {
	for i := range b.data {
		b.data[i] = v
	}
}

// Release drops the backing storage. The buffer has length zero afterwards.
func (b *Buffer[T]) Release() {
	b.data = nil
}

// Float64s returns a float64 copy of the contents
func (b *Buffer[T]) Float64s() []float64 {
	out := make([]float64, len(b.data))
	for i, v := range b.data {
		out[i] = float64(v)
	}
	return out
}
