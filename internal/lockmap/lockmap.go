/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package lockmap provides one mutex per key, created on demand and released when nobody holds it.
package lockmap

import "sync"

type entry struct {
	mutex sync.Mutex
	refs  int // Goroutines holding or waiting on mutex
}

// Map of keyed mutexes. The map lock is only held while looking up an entry, never while waiting on one.
type Map struct {
	lock    sync.Mutex
	entries map[string]*entry
}

func New() *Map {
	return &Map{entries: make(map[string]*entry)}
}

// Lock acquires the mutex of key and returns the function that releases it
func (m *Map) Lock(key string) func() {
	m.lock.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	m.lock.Unlock()

	e.mutex.Lock()
	return func() {
		e.mutex.Unlock()

		m.lock.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.entries, key)
		}
		m.lock.Unlock()
	}
}

// Len returns how many keys are currently held or waited on
func (m *Map) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.entries)
}
