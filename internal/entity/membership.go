/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// Role of a member inside a channel. The numeric value is the rank: Owner > Admin > Member.
type Role uint8

const (
	RoleNone   Role = 0 // Not a member, ranks below everyone
	RoleMember Role = 1
	RoleAdmin  Role = 2
	RoleOwner  Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	}
	return "none"
}

// Membership is the (channel, user) relation carrying role and mute state
type Membership struct {
	ChannelUUID string     `gorm:"primaryKey" json:"channel"`
	UserUUID    string     `gorm:"primaryKey;index" json:"id"`
	Role        Role       `gorm:"not null;default:1" json:"role"`
	MutedUntil  *time.Time `json:"muted-until,omitempty"` // Absent or in the past means not muted
	JoinedAt    time.Time  `gorm:"not null;index" json:"joined-at"`
}
