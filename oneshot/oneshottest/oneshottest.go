// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package oneshottest is meant to be used to test drivers using a
// oneshot.Timer without waiting on wall clock time.
package oneshottest

import (
	"sync"
	"time"

	"github.com/GermanBionicSystems/motors/oneshot"
)

// Timer is a manually driven oneshot.Timer.
//
// Every Arm call is recorded. The pending callback only runs when Fire is
// called.
type Timer struct {
	sync.Mutex
	delays   []time.Duration
	pending  func()
	canceled bool
}

// Arm implements oneshot.Timer.
func (t *Timer) Arm(d time.Duration, f func()) {
	t.Lock()
	defer t.Unlock()
	if t.canceled {
		return
	}
	t.delays = append(t.delays, d)
	t.pending = f
}

// Cancel implements oneshot.Timer.
func (t *Timer) Cancel() {
	t.Lock()
	defer t.Unlock()
	t.canceled = true
	t.pending = nil
}

// Fire runs the pending callback synchronously, like the timer expiring.
//
// It returns false if the timer is not armed.
func (t *Timer) Fire() bool {
	t.Lock()
	f := t.pending
	t.pending = nil
	t.Unlock()
	if f == nil {
		return false
	}
	f()
	return true
}

// FireN calls Fire n times and returns the number of callbacks that ran.
func (t *Timer) FireN(n int) int {
	i := 0
	for ; i < n; i++ {
		if !t.Fire() {
			break
		}
	}
	return i
}

// Delays returns a copy of all the delays armed so far.
func (t *Timer) Delays() []time.Duration {
	t.Lock()
	defer t.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

// Last returns the most recently armed delay, or 0.
func (t *Timer) Last() time.Duration {
	t.Lock()
	defer t.Unlock()
	if len(t.delays) == 0 {
		return 0
	}
	return t.delays[len(t.delays)-1]
}

// Pending reports whether a callback is armed.
func (t *Timer) Pending() bool {
	t.Lock()
	defer t.Unlock()
	return t.pending != nil
}

// Canceled reports whether Cancel was called.
func (t *Timer) Canceled() bool {
	t.Lock()
	defer t.Unlock()
	return t.canceled
}

// Reset forgets the recorded delays.
func (t *Timer) Reset() {
	t.Lock()
	defer t.Unlock()
	t.delays = nil
}

var _ oneshot.Timer = &Timer{}
