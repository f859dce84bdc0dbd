/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// ChannelKind tells how a channel can be joined
type ChannelKind string

const (
	ChannelPublic    ChannelKind = "public"    // Anyone can join
	ChannelPM        ChannelKind = "pm"        // Private conversation between exactly two users, fixed at creation
	ChannelProtected ChannelKind = "protected" // Anyone knowing the password can join
	ChannelPrivate   ChannelKind = "private"   // Members are added by an admin
)

// IsValid checks that k is one of the known kinds
func (k ChannelKind) IsValid() bool {
	switch k {
	case ChannelPublic, ChannelPM, ChannelProtected, ChannelPrivate:
		return true
	}
	return false
}

// Channel of the chat system
type Channel struct {
	UUID         string      `gorm:"primaryKey" json:"id"`               // Unique identifier
	Name         string      `gorm:"not null;index" json:"name"`         // Name of the channel. For PMs it's <user1-uuid>/<user2-uuid>
	Kind         ChannelKind `gorm:"not null;index" json:"type"`         // Kind of the channel
	PasswordHash string      `gorm:"not null;default:''" json:"-"`       // BCrypt hash of the password, empty when there is none
	Avatar       string      `gorm:"not null;default:''" json:"avatar"`  // Avatar reference, opaque to the gateway
	PairKey      *string     `gorm:"uniqueIndex" json:"-"`               // Sorted pair of member uuids for PMs, nil otherwise
	CreatorUUID  string      `gorm:"not null;index" json:"creator"`      // UUID of the user that created the channel
	CreatedAt    time.Time   `gorm:"not null;index" json:"created-at"`   // Time of creation

	Members []Membership `gorm:"foreignKey:ChannelUUID;references:UUID" json:"-"` // Memberships, with roles and mutes
	Bans    []ChannelBan `gorm:"foreignKey:ChannelUUID;references:UUID" json:"-"` // Ban set
}

// HasPassword is true when joining requires a password
func (c *Channel) HasPassword() bool {
	return c.PasswordHash != ""
}

// IsBanned checks whether userUUID is inside the (preloaded) ban set
func (c *Channel) IsBanned(userUUID string) bool {
	for _, ban := range c.Bans {
		if ban.UserUUID == userUUID {
			return true
		}
	}
	return false
}
