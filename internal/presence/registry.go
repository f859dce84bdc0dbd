/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package presence

import (
	"slices"
	"sync"
)

// Handle is one live connection of a user
type Handle interface {
	ID() string               // Unique identifier of the connection
	Send(payload []byte) bool // Enqueues an already encoded event, false if it could not be queued
	Close()                   // Terminates the connection
}

// Registry keeps track of which users are online, and through which connections.
// A user is online iff it has at least one registered handle. The registry is passive:
// it does not notify anybody, callers observe transitions through the returned booleans.
type Registry struct {
	lock     sync.RWMutex
	byUser   map[string][]Handle // User uuid -> handles, in registration order
	byHandle map[string]string   // Handle id -> user uuid
}

// NewRegistry creates and returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[string][]Handle),
		byHandle: make(map[string]string),
	}
}

// Register adds handle to the handles of userID.
// Returns true when the user just came online. Registering the same handle twice is a no-op.
func (r *Registry) Register(userID string, handle Handle) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byHandle[handle.ID()]; ok {
		return false
	}
	r.byHandle[handle.ID()] = userID
	r.byUser[userID] = append(r.byUser[userID], handle)
	return len(r.byUser[userID]) == 1
}

// Unregister removes handle from the registry, returning its owner and whether the owner just went offline.
// Unknown handles are ignored.
func (r *Registry) Unregister(handle Handle) (string, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	userID, ok := r.byHandle[handle.ID()]
	if !ok {
		return "", false
	}
	delete(r.byHandle, handle.ID())

	handles := slices.DeleteFunc(r.byUser[userID], func(h Handle) bool { return h.ID() == handle.ID() })
	if len(handles) == 0 {
		delete(r.byUser, userID)
		return userID, true
	}
	r.byUser[userID] = handles
	return userID, false
}

// HandlesFor returns a copy of the handles of userID, in registration order
func (r *Registry) HandlesFor(userID string) []Handle {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return slices.Clone(r.byUser[userID])
}

// IsOnline tells whether userID has at least one handle
func (r *Registry) IsOnline(userID string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.byUser[userID]) > 0
}

// OnlineUsers returns the uuids of the users currently online, sorted
func (r *Registry) OnlineUsers() []string {
	r.lock.RLock()
	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	r.lock.RUnlock()

	slices.Sort(users)
	return users
}

// Counts returns how many users are online and how many handles are registered
func (r *Registry) Counts() (int, int) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.byUser), len(r.byHandle)
}

// All returns every registered handle
func (r *Registry) All() []Handle {
	r.lock.RLock()
	defer r.lock.RUnlock()

	handles := make([]Handle, 0, len(r.byHandle))
	for _, userHandles := range r.byUser {
		handles = append(handles, userHandles...)
	}
	return handles
}
