// Package watch implements a single slot, latest value broadcast. One writer
// publishes an unbounded sequence of values; each reader sees only the newest
// value as of whenever it next waits. A slow reader skips the intermediate
// values instead of queueing them and never holds the writer up.
package watch

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/curbz/skyscope/internal/model"
)

// ErrClosed is returned from Cursor.Next once the broadcaster is torn down.
var ErrClosed = errors.New("watch: broadcaster closed")

// Broadcaster holds the most recently published point plus a version counter.
// Publish is O(1) on broadcaster state and wakes waiters by closing the
// notify channel, so it never blocks regardless of subscriber count.
type Broadcaster struct {
	mu      sync.Mutex
	value   model.TrackPoint
	version uint64
	notify  chan struct{}
	closed  bool
}

// New returns a broadcaster seeded with a sentinel value (empty ident, NaN
// coordinates) at version 0. Cursors start at the version current at
// subscribe time, so the sentinel can never be delivered.
func New() *Broadcaster {
	return &Broadcaster{
		value:  model.TrackPoint{Lat: float32(math.NaN()), Lon: float32(math.NaN())},
		notify: make(chan struct{}),
	}
}

// Publish replaces the current value, bumps the version and wakes every
// waiting cursor. Publishing on a closed broadcaster is a no-op.
func (b *Broadcaster) Publish(p model.TrackPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.value = p
	b.version++
	close(b.notify)
	b.notify = make(chan struct{})
}

// Close tears the broadcaster down. Every current and future Next call
// returns ErrClosed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}

// Subscribe returns a cursor that observes only values published after this
// call. There is no replay of earlier values.
func (b *Broadcaster) Subscribe() *Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Cursor{b: b, seen: b.version}
}

// Cursor is one subscriber's read position. Cursors are independent: a slow
// cursor affects nobody else, and an abandoned one holds nothing beyond its
// own memory.
type Cursor struct {
	b    *Broadcaster
	seen uint64
}

// Next blocks until a value newer than the last one seen by this cursor has
// been published, then returns it and advances the cursor. If several values
// were published since the previous call only the newest one is returned.
// Next returns ctx.Err() on cancellation and ErrClosed after Close.
func (c *Cursor) Next(ctx context.Context) (model.TrackPoint, error) {
	for {
		c.b.mu.Lock()
		if c.b.version > c.seen {
			c.seen = c.b.version
			p := c.b.value
			c.b.mu.Unlock()
			return p, nil
		}
		if c.b.closed {
			c.b.mu.Unlock()
			return model.TrackPoint{}, ErrClosed
		}
		wait := c.b.notify
		c.b.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return model.TrackPoint{}, ctx.Err()
		}
	}
}
