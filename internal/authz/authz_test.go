/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package authz

import (
	"gateway/internal/entity"
	"testing"
	"time"
)

func protectedChannel(t *testing.T, password string) *entity.Channel {
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Could not hash: %v", err)
	}
	return &entity.Channel{UUID: "c-1", Kind: entity.ChannelProtected, PasswordHash: hash}
}

func TestBanBeatsCorrectPassword(t *testing.T) {
	c := protectedChannel(t, "secret")
	c.Bans = []entity.ChannelBan{{ChannelUUID: "c-1", UserUUID: "bob"}}

	if got := CanJoin(c, "bob", false, "secret"); got != Banned {
		t.Errorf("Expected banned, got %s", got)
	}
}

func TestProtectedChannelPassword(t *testing.T) {
	c := protectedChannel(t, "secret")

	if got := CanJoin(c, "bob", false, "nope"); got != WrongPassword {
		t.Errorf("Expected wrongPassword, got %s", got)
	}
	if got := CanJoin(c, "bob", false, "secret"); got != Allowed {
		t.Errorf("Expected allowed, got %s", got)
	}
}

func TestJoinByKind(t *testing.T) {
	cases := []struct {
		kind     entity.ChannelKind
		member   bool
		expected JoinDecision
	}{
		{entity.ChannelPublic, false, Allowed},
		{entity.ChannelPrivate, false, Refused},
		{entity.ChannelPM, false, Refused},
		{entity.ChannelPrivate, true, Allowed},
		{entity.ChannelPM, true, Allowed},
	}

	for _, c := range cases {
		channel := &entity.Channel{UUID: "c", Kind: c.kind}
		if got := CanJoin(channel, "bob", c.member, ""); got != c.expected {
			t.Errorf("kind %s, member %v: expected %s, got %s", c.kind, c.member, c.expected, got)
		}
	}
}

func TestModerationRanks(t *testing.T) {
	cases := []struct {
		actor, target entity.Role
		action        Action
		expected      bool
	}{
		{entity.RoleOwner, entity.RoleAdmin, ActionBan, true},
		{entity.RoleOwner, entity.RoleMember, ActionMute, true},
		{entity.RoleAdmin, entity.RoleMember, ActionMute, true},
		{entity.RoleAdmin, entity.RoleAdmin, ActionMute, false},
		{entity.RoleAdmin, entity.RoleOwner, ActionBan, false},
		{entity.RoleMember, entity.RoleMember, ActionMute, false},
		{entity.RoleAdmin, entity.RoleNone, ActionBan, true},
		{entity.RoleAdmin, entity.RoleNone, ActionUnban, true},
		{entity.RoleOwner, entity.RoleMember, ActionPromote, true},
		{entity.RoleOwner, entity.RoleAdmin, ActionPromote, false},
		{entity.RoleAdmin, entity.RoleMember, ActionPromote, false},
		{entity.RoleOwner, entity.RoleNone, ActionPromote, false},
	}

	for _, c := range cases {
		if got := CanModerate("actor", "target", c.actor, c.target, c.action); got != c.expected {
			t.Errorf("%s %s on %s: expected %v, got %v", c.actor, c.action, c.target, c.expected, got)
		}
	}
}

func TestNoSelfModeration(t *testing.T) {
	for _, action := range []Action{ActionMute, ActionUnmute, ActionBan, ActionUnban, ActionPromote} {
		if CanModerate("owner", "owner", entity.RoleOwner, entity.RoleOwner, action) {
			t.Errorf("Self %s should never be allowed", action)
		}
	}
}

func TestIsMuted(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(30 * time.Second)
	m := &entity.Membership{MutedUntil: &until}

	if !IsMuted(m, now.Add(29*time.Second)) {
		t.Errorf("Should be muted before the deadline")
	}
	if IsMuted(m, until) {
		t.Errorf("Deadline equal to now is already expired")
	}
	if IsMuted(&entity.Membership{}, now) {
		t.Errorf("No deadline means not muted")
	}
}
