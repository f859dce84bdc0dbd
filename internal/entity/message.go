/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// Represents a message sent in a channel. It's never modified once stored:
// redaction for blocked senders happens when a view is rendered.
type Message struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`        // Unique identifier, increasing with submission order
	ChannelUUID string    `gorm:"not null;index" json:"channel"`             // Channel the message was sent in
	AuthorUUID  string    `gorm:"not null;index" json:"author"`              // User that sent the message
	Content     string    `gorm:"not null" json:"content"`                   // Actual content of the message
	CreatedAt   time.Time `gorm:"not null;index" json:"created-at"`          // Time of creation
}
