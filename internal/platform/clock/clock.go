// Package clock abstracts the wall clock so time-dependent scheduling rules
// can be tested deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time { return time.Now() }

// Frozen is a settable clock for tests.
type Frozen struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFrozen returns a Frozen clock pinned to t.
func NewFrozen(t time.Time) *Frozen {
	return &Frozen{now: t}
}

// Now returns the pinned instant.
func (f *Frozen) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set moves the clock to t.
func (f *Frozen) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the clock forward by d.
func (f *Frozen) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
