package ringbuffer

import (
	"errors"
	"sync/atomic"
)

var (
	ErrInsufficientSpace = errors.New("insufficient space in ring buffer")
	ErrInsufficientData  = errors.New("insufficient data in ring buffer")
)

// RingBuffer is a lock-free single-producer single-consumer ring buffer
// for interleaved PCM byte data.
//
// Thread safety requirements:
//   - Write() and Clear() must only be called by the producer goroutine
//   - Read() must only be called by the consumer (the audio callback)
//
// The consumer advances its position with a compare-and-swap so that a
// producer-side Clear cannot race it into replaying samples that were
// already discarded.
type RingBuffer struct {
	buffer   []byte
	size     uint64 // must be power of 2
	mask     uint64 // size - 1, for efficient modulo
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

// New creates a new ring buffer with the given size.
// Size will be rounded up to the next power of 2 for efficiency.
func New(size uint64) *RingBuffer {
	size = nextPowerOf2(size)

	return &RingBuffer{
		buffer: make([]byte, size),
		size:   size,
		mask:   size - 1,
	}
}

// Write writes data to the ring buffer, implementing io.Writer.
// It writes all of len(data) bytes or returns an error.
//
// Unlike some io.Writer implementations, this method does not perform partial
// writes. It will either write all data successfully or return
// ErrInsufficientSpace without writing any data.
//
// This method must only be called by the producer goroutine.
func (rb *RingBuffer) Write(data []byte) (int, error) {
	dataLen := uint64(len(data))
	if dataLen == 0 {
		return 0, nil
	}

	available := rb.AvailableWrite()
	if dataLen > available {
		return 0, ErrInsufficientSpace
	}

	writePos := rb.writePos.Load()

	start := writePos & rb.mask
	end := (writePos + dataLen) & rb.mask

	if end > start {
		// Single contiguous write
		copy(rb.buffer[start:end], data)
	} else {
		// Write wraps around the buffer
		firstChunk := rb.size - start
		copy(rb.buffer[start:], data[:firstChunk])
		copy(rb.buffer[:end], data[firstChunk:])
	}

	rb.writePos.Store(writePos + dataLen)

	return int(dataLen), nil
}

// Read reads up to len(data) bytes from the ring buffer into data.
//
// Read will read as many bytes as are available, up to len(data). If fewer
// bytes are available than requested, it reads what's available and returns
// the count without error. If the buffer is empty, it returns
// (0, ErrInsufficientData).
//
// If a Clear lands between the copy and the position advance, the bytes that
// were copied belong to the discarded region; Read reports 0 so the caller
// substitutes silence instead of playing them.
//
// This method must only be called by the consumer goroutine.
func (rb *RingBuffer) Read(data []byte) (int, error) {
	dataLen := uint64(len(data))
	if dataLen == 0 {
		return 0, nil
	}

	readPos := rb.readPos.Load()
	writePos := rb.writePos.Load()
	available := writePos - readPos
	if available == 0 {
		return 0, ErrInsufficientData
	}

	toRead := min(dataLen, available)

	start := readPos & rb.mask
	end := (readPos + toRead) & rb.mask

	if end > start {
		// Single contiguous read
		copy(data[:toRead], rb.buffer[start:end])
	} else {
		// Read wraps around the buffer
		firstChunk := rb.size - start
		copy(data[:firstChunk], rb.buffer[start:])
		copy(data[firstChunk:toRead], rb.buffer[:end])
	}

	if !rb.readPos.CompareAndSwap(readPos, readPos+toRead) {
		// Cleared under us, the copied bytes are stale
		return 0, ErrInsufficientData
	}

	return int(toRead), nil
}

// Clear discards all buffered data by jumping the read position forward to
// the current write position. Safe to call while the consumer is reading.
//
// This method must only be called by the producer goroutine.
func (rb *RingBuffer) Clear() {
	for {
		readPos := rb.readPos.Load()
		writePos := rb.writePos.Load()
		if readPos == writePos {
			return
		}
		if rb.readPos.CompareAndSwap(readPos, writePos) {
			return
		}
	}
}

// AvailableWrite returns the number of bytes available for writing
func (rb *RingBuffer) AvailableWrite() uint64 {
	writePos := rb.writePos.Load()
	readPos := rb.readPos.Load()
	return rb.size - (writePos - readPos)
}

// AvailableRead returns the number of bytes available for reading
func (rb *RingBuffer) AvailableRead() uint64 {
	writePos := rb.writePos.Load()
	readPos := rb.readPos.Load()
	return writePos - readPos
}

// Size returns the total size of the ring buffer
func (rb *RingBuffer) Size() uint64 {
	return rb.size
}

// nextPowerOf2 rounds up to the next power of 2
func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
