// Package clock provides a mockable time source. Stores and savers take a
// Clock so tests can pin timestamps; everything else uses Now.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the interface for time operations.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock provides the actual system time.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a test clock with controllable time.
type MockClock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewMockClock creates a mock clock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{current: t}
}

// Now returns the mock time.
func (c *MockClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Set sets the mock time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Advance advances the mock time by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

type holder struct{ c Clock }

var current atomic.Pointer[holder]

func init() {
	current.Store(&holder{RealClock{}})
}

// Default returns the process clock.
func Default() Clock { return current.Load().c }

// SetDefault replaces the process clock and returns a function that puts
// the previous one back. Intended for tests.
func SetDefault(c Clock) (restore func()) {
	prev := current.Swap(&holder{c})
	return func() { current.Store(prev) }
}

// Now returns the time of the process clock.
func Now() time.Time { return Default().Now() }

// Since returns the time elapsed since t on the process clock.
func Since(t time.Time) time.Duration { return Default().Since(t) }
