// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake is a deterministic Clock for tests. Time only moves when the
// test calls Advance or Set. After channels fire when the fake time
// passes their deadline; Sleep returns immediately (the fake never
// blocks a test goroutine on wall time).
type Fake struct {
	mu      sync.Mutex
	current time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewFake returns a Fake clock starting at a fixed, arbitrary instant.
// Using a constant start time keeps test output stable across runs.
func NewFake() *Fake {
	return &Fake{current: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// After returns a channel that fires once the fake time reaches
// now + d. If d <= 0 the channel fires immediately.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	deadline := f.current.Add(d)
	if d <= 0 {
		ch <- f.current
		return ch
	}
	f.waiters = append(f.waiters, fakeWaiter{deadline: deadline, ch: ch})
	return ch
}

// Sleep returns immediately. Tests that need ordering around sleeps
// should use After with Advance instead.
func (f *Fake) Sleep(time.Duration) {}

// Advance moves the fake time forward by d and fires any waiters whose
// deadline has passed.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
	f.fireLocked()
}

// Set moves the fake time to an absolute instant. The instant must not
// be earlier than the current fake time.
func (f *Fake) Set(instant time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if instant.Before(f.current) {
		panic("clock: Fake.Set would move time backwards")
	}
	f.current = instant
	f.fireLocked()
}

func (f *Fake) fireLocked() {
	remaining := f.waiters[:0]
	for _, waiter := range f.waiters {
		if !waiter.deadline.After(f.current) {
			waiter.ch <- f.current
			continue
		}
		remaining = append(remaining, waiter)
	}
	f.waiters = remaining
}
