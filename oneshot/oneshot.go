// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package oneshot provides a relative, monotonic, one-shot timer.
//
// A Timer fires exactly once per Arm call. Periodic behavior is built by
// re-arming the timer from inside its own callback, which lets the delay
// change on every firing:
//
//	var tick func()
//	tick = func() {
//		// ... do O(1) work ...
//		t.Arm(next, tick)
//	}
//	t.Arm(first, tick)
package oneshot

import (
	"sync"
	"time"
)

// Timer is the scheduling primitive used by the motor engines.
type Timer interface {
	// Arm schedules f to run once, d after the call. Arming again before the
	// previous arming fired replaces it.
	Arm(d time.Duration, f func())
	// Cancel disarms the timer. When Cancel returns, any firing that was
	// already running has completed and no further firing will happen.
	// Later Arm calls are ignored.
	Cancel()
}

// Clock implements Timer on top of the Go runtime timers, which use the
// monotonic clock.
//
// Callbacks run on their own goroutine. Firings never overlap: a firing that
// comes due while the previous callback is still running waits for it.
type Clock struct {
	// run is held for the whole callback.
	run      sync.Mutex
	mu       sync.Mutex
	t        *time.Timer
	gen      uint64
	canceled bool
	inflight sync.WaitGroup
}

// New returns an idle Clock.
func New() *Clock {
	return &Clock{}
}

// Arm implements Timer.
func (c *Clock) Arm(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.canceled {
		return
	}
	if c.t != nil {
		c.t.Stop()
	}
	c.gen++
	gen := c.gen
	c.t = time.AfterFunc(d, func() { c.fire(gen, f) })
}

// Cancel implements Timer.
//
// Cancel must not be called from the timer callback, it would wait for
// itself.
func (c *Clock) Cancel() {
	c.mu.Lock()
	c.canceled = true
	if c.t != nil {
		c.t.Stop()
		c.t = nil
	}
	c.mu.Unlock()
	c.inflight.Wait()
}

func (c *Clock) String() string {
	return "oneshot"
}

func (c *Clock) fire(gen uint64, f func()) {
	c.run.Lock()
	defer c.run.Unlock()
	c.mu.Lock()
	// A stale arming can still fire if Stop lost the race with expiry.
	if c.canceled || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()
	f()
}

var _ Timer = &Clock{}
