package store

import (
	"context"
	"sync"
	"time"

	"github.com/tilinna/clock"
)

// stampClock issues strictly increasing epoch-millisecond timestamps.
//
// Wall time comes from the clock carried in the context, so tests can pin it
// with a mock. When wall time stalls or goes backwards the clock keeps
// counting from its last stamp instead, which guarantees that every accepted
// write advances date_modified and that "modified before the start of this
// batch" is unambiguous.
//
// Thread-safety: stampClock is safe for concurrent use.
type stampClock struct {
	mu   sync.Mutex
	last int64
}

func newStampClock(last int64) *stampClock {
	return &stampClock{last: last}
}

// Next returns the next timestamp.
func (c *stampClock) Next(ctx context.Context) int64 {
	now := clock.FromContext(ctx).Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
