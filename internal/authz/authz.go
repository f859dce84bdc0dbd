/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package authz holds the decisions about who can do what inside a channel.
// Every function is pure: it reads a snapshot and never touches storage.
package authz

import (
	"gateway/internal/entity"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// JoinDecision is the outcome of a join request
type JoinDecision uint8

const (
	Allowed       JoinDecision = iota // The user can become (or already is) a member
	WrongPassword                     // The channel is protected and the password does not match
	Banned                            // The user is in the ban set
	Refused                           // The channel cannot be joined on request (private or pm)
)

func (d JoinDecision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case WrongPassword:
		return "wrongPassword"
	case Banned:
		return "banned"
	}
	return "refused"
}

// Action is a moderation action one member performs on another
type Action uint8

const (
	ActionMute Action = iota
	ActionUnmute
	ActionBan
	ActionUnban
	ActionPromote
)

func (a Action) String() string {
	switch a {
	case ActionMute:
		return "mute"
	case ActionUnmute:
		return "unmute"
	case ActionBan:
		return "ban"
	case ActionUnban:
		return "unban"
	}
	return "promote"
}

// CanJoin decides whether userID can join channel.
// The ban set is checked first, so a banned user is refused even with the right password.
// isMember makes joining idempotent for those already in.
func CanJoin(channel *entity.Channel, userID string, isMember bool, password string) JoinDecision {
	if channel.IsBanned(userID) {
		return Banned
	}
	if isMember {
		return Allowed
	}

	switch channel.Kind {
	case entity.ChannelPublic:
		return Allowed
	case entity.ChannelProtected:
		if !CheckPassword(channel.PasswordHash, password) {
			return WrongPassword
		}
		return Allowed
	}
	return Refused
}

// CanModerate decides whether actor can perform action on target, given their roles in the channel.
// A user who is not a member has RoleNone: it can be banned or unbanned, never promoted.
func CanModerate(actorID, targetID string, actorRole, targetRole entity.Role, action Action) bool {
	if actorID == targetID {
		return false
	}
	if action == ActionPromote {
		return actorRole == entity.RoleOwner && targetRole == entity.RoleMember
	}
	return actorRole >= entity.RoleAdmin && actorRole > targetRole
}

// CanEdit decides whether a member with role can edit the channel settings
func CanEdit(role entity.Role) bool {
	return role >= entity.RoleAdmin
}

// CanInvite decides whether a member with role can add users to a private channel
func CanInvite(role entity.Role) bool {
	return role >= entity.RoleAdmin
}

// CanDelete decides whether a member with role can delete the channel
func CanDelete(role entity.Role) bool {
	return role == entity.RoleOwner
}

// IsMuted tells whether membership is muted at now. A deadline equal to now is already expired.
func IsMuted(membership *entity.Membership, now time.Time) bool {
	return membership.MutedUntil != nil && membership.MutedUntil.After(now)
}

// HashPassword hashes a channel password with BCrypt, default cost
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash in constant time
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
