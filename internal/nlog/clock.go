/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package nlog

import "sync"

// SequenceClock has a counter protected by a Mutex.
// Every log entry takes the next value, so the lines of different subsystem files can be ordered against each other.
type SequenceClock struct {
	counter uint64
	mutex   sync.Mutex
}

// NewSequenceClock Creates and returns a new, empty, sequence clock
func NewSequenceClock() *SequenceClock {
	return &SequenceClock{}
}

// Next increments the clock and returns its value
func (c *SequenceClock) Next() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.counter++
	return c.counter
}

// Snapshot returns the current value of the clock.
// Useful for reading without modifying
func (c *SequenceClock) Snapshot() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.counter
}
