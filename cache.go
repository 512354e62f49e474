package parbench

import "fmt"

// CacheFlusher evicts the CPU caches by writing a buffer several times the
// size of the last-level cache, one store per cache line. Timing a kernel
// right after Flush measures it against cold caches.
type CacheFlusher struct {
	data []byte
	pass byte
}

// NewCacheFlusher allocates the eviction buffer. size <= 0 selects
// CacheFlushSize.
func NewCacheFlusher(size int) (*CacheFlusher, error) {
	if size <= 0 {
		size = CacheFlushSize
	}
	if uint64(size) > MaxBufferBytes {
		return nil, NewAllocationError("NewCacheFlusher",
			fmt.Sprintf("%d bytes exceeds the %d byte limit", size, uint64(MaxBufferBytes)), nil)
	}
	return &CacheFlusher{data: make([]byte, size)}, nil
}

// Flush touches every cache line of the buffer twice with different
// patterns so that both passes have to miss. It returns a checksum that
// keeps the stores observable.
func (f *CacheFlusher) Flush() byte {
	f.pass++
	for i := 0; i < len(f.data); i += CacheLineSize {
		f.data[i] = byte(i) ^ f.pass
	}
	var sum byte
	for i := 0; i < len(f.data); i += CacheLineSize {
		f.data[i] = byte(i*7) + f.pass
		sum ^= f.data[i]
	}
	return sum
}

// Size returns the number of bytes touched per flush
func (f *CacheFlusher) Size() int {
	return len(f.data)
}
