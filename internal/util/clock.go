// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"sync"
	"time"
)

// Clock supplies timestamps. Stores and the orchestrator take a Clock so
// tests can pin time.
type Clock interface {
	Now() time.Time
}

// MonotonicClock returns UTC wall-clock time that never repeats or goes
// backwards within the process: if the system clock has not advanced past
// the previous reading, the previous reading plus one nanosecond is used.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewMonotonicClock creates a clock backed by time.Now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

// NewMonotonicClockFrom creates a clock backed by the given source.
func NewMonotonicClockFrom(source func() time.Time) *MonotonicClock {
	return &MonotonicClock{now: source}
}

// Now returns the next timestamp. The monotonic reading is stripped so the
// value round-trips through storage unchanged.
func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Round(0)
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

var (
	defaultClock     *MonotonicClock
	defaultClockOnce sync.Once
)

// DefaultClock returns the process-wide monotonic clock.
func DefaultClock() *MonotonicClock {
	defaultClockOnce.Do(func() {
		defaultClock = NewMonotonicClock()
	})
	return defaultClock
}
