/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package gateway

import (
	"gateway/internal/entity"
	"gateway/internal/fanout"
	"time"
)

// Names of the events pushed to clients
const (
	EventChannelCreated       = "channelCreated"
	EventErrorChannelCreation = "errorChannelCreation"
	EventJoinAccepted         = "joinAccepted"
	EventWrongPassword        = "wrongPassword"
	EventYouAreBanned         = "youAreBanned"
	EventJoinRefused          = "joinRefused"
	EventLeftChannel          = "leftChannel"
	EventUserChannelModif     = "userChannelModif"
	EventChannelEdited        = "channelEdited"
	EventChannelDeleted       = "channelDeleted"
	EventBlockChange          = "blockChange"
	EventUserMuted            = "UserMuted"
	EventMuted                = "muted"
	EventUserUnmuted          = "UserUnmuted"
	EventUnmuted              = "unmuted"
	EventUserBanned           = "UserBanned"
	EventBanned               = "banned"
	EventUserUnbanned         = "UserUnbanned"
	EventUnbanned             = "unBanned"
	EventAdminGranted         = "adminGranted"
	EventAdminRights          = "adminRights"
	EventUsersList            = "usersList"
	EventUserStatus           = "userStatus"
	EventChannelList          = "channelList"
	EventChannelUsers         = "channelUsers"
	EventAccessRefused        = "AccessRefused"
	EventChannelMessages      = "channelMessages"
	EventJoinableChannels     = "joinableChannels"
	EventConnectedUsers       = "connectedUsers"
	EventFindUser             = "findUser"
	EventAlreadyInPM          = "alreadyInPm"
	EventNotAllowed           = "notAllowed"
	EventNotFound             = "notFound"
	EventInvalidRequest       = "invalidRequest"
	EventError                = "error"
)

type ChannelRef struct {
	ID string `json:"id"`
}

type JoinAccepted struct {
	ID   string `json:"id"`
	IsPM bool   `json:"isPm"`
}

type ChannelInfo struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Kind    entity.ChannelKind `json:"type"`
	Avatar  string             `json:"avatar,omitempty"`
	Blocked bool               `json:"blocked,omitempty"` // Only for PMs, the caller blocks the peer
}

func channelInfo(c *entity.Channel) ChannelInfo {
	return ChannelInfo{ID: c.UUID, Name: c.Name, Kind: c.Kind, Avatar: c.Avatar}
}

type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Online   bool   `json:"online"`
}

type MemberInfo struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Muted bool   `json:"muted"`
}

type ChannelUsers struct {
	ID    string       `json:"id"`
	Users []MemberInfo `json:"users"`
}

type ChannelMessages struct {
	ID       string               `json:"id"`
	Messages []fanout.MessageView `json:"messages"`
}

type ModerationNotice struct {
	ChannelID string     `json:"channelId"`
	TargetID  string     `json:"targetId"`
	Until     *time.Time `json:"until,omitempty"`
}

type BlockChange struct {
	TargetID string `json:"targetId"`
	Block    bool   `json:"block"`
}

type UserStatus struct {
	ID     string `json:"id"`
	Online bool   `json:"online"`
}

type AlreadyInPM struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Failure struct {
	Event   string `json:"event"`   // Request that failed
	Message string `json:"message"` // Human readable reason
}
