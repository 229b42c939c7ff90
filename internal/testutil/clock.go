package testutil

import (
	"context"
	"time"

	"github.com/tilinna/clock"
)

// Epoch is the wall time every test clock starts at.
var Epoch = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

// NewClock returns a mock clock frozen at Epoch.
//
// Time only moves when the test calls Add or Set, so timestamps written
// during a test are reproducible and golden output stays stable.
func NewClock() *clock.Mock {
	return clock.NewMock(Epoch)
}

// Context returns a background context carrying a new mock clock, and the
// clock itself.
func Context() (context.Context, *clock.Mock) {
	mock := NewClock()
	return clock.Context(context.Background(), mock), mock
}
