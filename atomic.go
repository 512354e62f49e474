package parbench

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Atomic float64 updates. The value is held as its IEEE-754 bits and updated
// with a compare-and-swap loop, which is what an atomic add compiles to on
// hardware without a native floating-point fetch-and-add.

func float64Bits(addr *float64) *uint64 {
	return (*uint64)(unsafe.Pointer(addr))
}

// atomicCombine replaces *addr with combine(*addr, v) atomically
func atomicCombine(addr *float64, v float64, combine func(a, b float64) float64) {
	bits := float64Bits(addr)
	for {
		old := atomic.LoadUint64(bits)
		next := math.Float64bits(combine(math.Float64frombits(old), v))
		if atomic.CompareAndSwapUint64(bits, old, next) {
			return
		}
	}
}

// atomicAdd adds v to *addr atomically
func atomicAdd(addr *float64, v float64) {
	bits := float64Bits(addr)
	for {
		old := atomic.LoadUint64(bits)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(bits, old, next) {
			return
		}
	}
}

// tornCombine reads, combines and writes back as three separate steps. Each
// access is atomic so the memory model stays defined, but the update as a
// whole is not: concurrent callers can overwrite each other and lose
// contributions.
func tornCombine(addr *float64, v float64, combine func(a, b float64) float64) {
	bits := float64Bits(addr)
	cur := math.Float64frombits(atomic.LoadUint64(bits))
	atomic.StoreUint64(bits, math.Float64bits(combine(cur, v)))
}

// tornAdd is tornCombine with addition
func tornAdd(addr *float64, v float64) {
	bits := float64Bits(addr)
	cur := math.Float64frombits(atomic.LoadUint64(bits))
	atomic.StoreUint64(bits, math.Float64bits(cur+v))
}
