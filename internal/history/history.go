// Package history keeps a bounded, insertion ordered window of the most
// recent track points.
package history

import (
	"sync"

	"github.com/curbz/skyscope/internal/model"
)

// DefaultCapacity matches the reference deployment window.
const DefaultCapacity = 80000

// Buffer is a fixed capacity FIFO of track points backed by a ring. One
// writer appends; any number of readers take snapshots. Both paths share a
// single mutex and neither does I/O or serialization while holding it.
type Buffer struct {
	mu   sync.Mutex
	buf  []model.TrackPoint
	head int // index of the oldest entry
	size int
}

// New returns a buffer holding at most capacity points. Zero or negative
// capacity falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{buf: make([]model.TrackPoint, capacity)}
}

// Append inserts p at the tail. When the buffer is full the oldest entry is
// evicted so the post-append size never exceeds the capacity.
func (b *Buffer) Append(p model.TrackPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == len(b.buf) {
		b.buf[b.head] = p
		b.head = (b.head + 1) % len(b.buf)
		return
	}
	b.buf[(b.head+b.size)%len(b.buf)] = p
	b.size++
}

// Len reports the number of stored points.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Snapshot returns an ordered copy of the contents, oldest first. The copy
// is independent of the buffer: it reflects a single consistent state and is
// safe to serialize or filter without further locking.
func (b *Buffer) Snapshot() []model.TrackPoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.TrackPoint, b.size)
	n := copy(out, b.buf[b.head:min(b.head+b.size, len(b.buf))])
	copy(out[n:], b.buf[:b.size-n])
	return out
}
