package protocol

import (
	"bytes"
	"fmt"
)

// Buffer accumulates raw socket bytes ahead of parsing. Consumed bytes are
// skipped by advancing a read position and reclaimed by Compact.
type Buffer struct {
	data  []byte
	pos   int
	limit int
}

// NewBuffer creates a Buffer that reports overflow once more than limit
// unread bytes are held. A limit <= 0 selects DefaultMaxBufferSize.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultMaxBufferSize
	}

	return &Buffer{
		data:  make([]byte, 0, SocketBufferSize),
		limit: limit,
	}
}

// Extend appends data to the buffer.
func (b *Buffer) Extend(data []byte) {
	if len(data) == 0 {
		return
	}

	if cap(b.data)-len(b.data) < len(data) && b.pos > 0 {
		b.Compact()
	}

	b.data = append(b.data, data...)
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.data) - b.pos
}

// Bytes returns the unread bytes. The slice is only valid until the next
// mutation of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[b.pos:]
}

// Advance consumes n unread bytes.
func (b *Buffer) Advance(n int) error {
	if n < 0 || n > b.Len() {
		return NewError(ErrKindProtocol,
			fmt.Sprintf("cannot advance %d bytes with %d buffered", n, b.Len()), nil)
	}

	b.pos += n
	b.resetIfDrained()

	return nil
}

// Find returns the offset of the first occurrence of pattern in the unread
// bytes, or -1.
func (b *Buffer) Find(pattern []byte) int {
	if len(pattern) == 0 {
		return -1
	}

	return bytes.Index(b.Bytes(), pattern)
}

// ExtractUntil removes and returns the bytes before the first occurrence of
// pattern, consuming the pattern as well. It returns false and leaves the
// buffer untouched when the pattern is absent.
func (b *Buffer) ExtractUntil(pattern []byte) ([]byte, bool) {
	idx := b.Find(pattern)
	if idx < 0 {
		return nil, false
	}

	out := make([]byte, idx)
	copy(out, b.Bytes()[:idx])
	b.pos += idx + len(pattern)
	b.resetIfDrained()

	return out, true
}

// ExtractBytes removes and returns exactly n bytes, or returns false when
// fewer are buffered.
func (b *Buffer) ExtractBytes(n int) ([]byte, bool) {
	if n < 0 || n > b.Len() {
		return nil, false
	}

	out := make([]byte, n)
	copy(out, b.Bytes()[:n])
	b.pos += n
	b.resetIfDrained()

	return out, true
}

// Peek returns the next n bytes without consuming them.
func (b *Buffer) Peek(n int) ([]byte, bool) {
	if n < 0 || n > b.Len() {
		return nil, false
	}

	return b.Bytes()[:n], true
}

// Compact moves the unread bytes to the start of the backing array.
func (b *Buffer) Compact() {
	if b.pos == 0 {
		return
	}

	n := copy(b.data, b.data[b.pos:])
	b.data = b.data[:n]
	b.pos = 0
}

// Reset discards everything.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.pos = 0
}

// CheckSizeLimit reports ErrBufferOverflow once the unread bytes exceed the limit.
func (b *Buffer) CheckSizeLimit() error {
	if b.Len() > b.limit {
		return NewError(ErrKindBufferOverflow,
			fmt.Sprintf("%d bytes buffered, limit is %d", b.Len(), b.limit), nil)
	}

	return nil
}

func (b *Buffer) resetIfDrained() {
	if b.pos == len(b.data) {
		b.data = b.data[:0]
		b.pos = 0
	}
}
