/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package gateway

import (
	"gateway/internal/nlog"
	"gateway/internal/presence"
)

// Hub pushes encoded events to the live connections of the presence registry.
// It implements fanout.Broadcaster: nobody else ranges over the handles of the registry.
type Hub struct {
	registry *presence.Registry
	logger   nlog.Logger
}

func NewHub(registry *presence.Registry, logger nlog.Logger) *Hub {
	return &Hub{registry: registry, logger: logger}
}

func (h *Hub) IsOnline(userUUID string) bool {
	return h.registry.IsOnline(userUUID)
}

// SendTo queues event on every connection of userUUID. Offline users are skipped.
func (h *Hub) SendTo(userUUID, event string, payload any) int {
	handles := h.registry.HandlesFor(userUUID)
	if len(handles) == 0 {
		return 0
	}
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		h.logger.Logf("Could not encode {%s}: %v", event, err)
		return 0
	}
	return h.push(handles, frame)
}

// SendToMany queues event on every connection of each user in userUUIDs, encoding it once
func (h *Hub) SendToMany(userUUIDs []string, event string, payload any) int {
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		h.logger.Logf("Could not encode {%s}: %v", event, err)
		return 0
	}
	sent := 0
	for _, userUUID := range userUUIDs {
		sent += h.push(h.registry.HandlesFor(userUUID), frame)
	}
	return sent
}

// SendAll queues event on every registered connection
func (h *Hub) SendAll(event string, payload any) int {
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		h.logger.Logf("Could not encode {%s}: %v", event, err)
		return 0
	}
	return h.push(h.registry.All(), frame)
}

// Reply queues event on one single connection
func (h *Hub) Reply(handle presence.Handle, event string, payload any) bool {
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		h.logger.Logf("Could not encode {%s}: %v", event, err)
		return false
	}
	return handle.Send(frame)
}

func (h *Hub) push(handles []presence.Handle, frame []byte) int {
	sent := 0
	for _, handle := range handles {
		if handle.Send(frame) {
			sent++
		} else {
			h.logger.Logf("Dropped frame for connection {%s}", handle.ID())
		}
	}
	return sent
}
