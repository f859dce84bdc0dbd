/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"gateway/internal/entity"
	"gateway/internal/service"
)

// Envelope is the frame exchanged on the connection, in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Request is one decoded client action. Each event name has its own type.
type Request interface {
	Event() string
	Validate() error
}

func missing(field string) error {
	return fmt.Errorf("The field {%s} is required: %w", field, service.ErrValidation)
}

type CreateChannelRequest struct {
	Name     string             `json:"name"`
	Kind     entity.ChannelKind `json:"kind"`
	Password string             `json:"password"`
}

func (*CreateChannelRequest) Event() string { return "createChannel" }
func (r *CreateChannelRequest) Validate() error {
	if r.Name == "" {
		return missing("name")
	}
	if r.Kind == "" {
		r.Kind = entity.ChannelPublic
	}
	return nil
}

type JoinChannelRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

func (*JoinChannelRequest) Event() string { return "joinChannel" }
func (r *JoinChannelRequest) Validate() error {
	if r.ID == "" {
		return missing("id")
	}
	return nil
}

type LeaveChannelRequest struct {
	ID string `json:"id"`
}

func (*LeaveChannelRequest) Event() string { return "leaveChannel" }
func (r *LeaveChannelRequest) Validate() error {
	if r.ID == "" {
		return missing("id")
	}
	return nil
}

type DeleteChannelRequest struct {
	ID string `json:"id"`
}

func (*DeleteChannelRequest) Event() string { return "deleteChannel" }
func (r *DeleteChannelRequest) Validate() error {
	if r.ID == "" {
		return missing("id")
	}
	return nil
}

type EditChannelRequest struct {
	ID       string              `json:"id"`
	Kind     *entity.ChannelKind `json:"type"`
	Password *string             `json:"password"`
	Avatar   *string             `json:"avatar"`
}

func (*EditChannelRequest) Event() string { return "editChannel" }
func (r *EditChannelRequest) Validate() error {
	if r.ID == "" {
		return missing("id")
	}
	return nil
}

type MessageRequest struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

func (*MessageRequest) Event() string { return "message" }
func (r *MessageRequest) Validate() error {
	if r.ChannelID == "" {
		return missing("channelId")
	}
	return nil
}

// ModerationRequest is shared by the actions one member performs on another
type ModerationRequest struct {
	event     string
	ChannelID string `json:"channelId"`
	TargetID  string `json:"targetId"`
	Time      *int64 `json:"time"` // Seconds, only read by muteUser
}

func (r *ModerationRequest) Event() string { return r.event }
func (r *ModerationRequest) Validate() error {
	if r.ChannelID == "" {
		return missing("channelId")
	}
	if r.TargetID == "" {
		return missing("targetId")
	}
	if r.Time != nil && *r.Time < 0 {
		return fmt.Errorf("The mute time must not be negative, got %d: %w", *r.Time, service.ErrValidation)
	}
	return nil
}

type BlockUserRequest struct {
	TargetID string `json:"targetId"`
	Block    bool   `json:"block"`
}

func (*BlockUserRequest) Event() string { return "blockUserControl" }
func (r *BlockUserRequest) Validate() error {
	if r.TargetID == "" {
		return missing("targetId")
	}
	return nil
}

type PrivateConversationRequest struct {
	TargetID string `json:"targetId"`
}

func (*PrivateConversationRequest) Event() string { return "createPrivateConversation" }
func (r *PrivateConversationRequest) Validate() error {
	if r.TargetID == "" {
		return missing("targetId")
	}
	return nil
}

type ChannelUsersRequest struct {
	ID string `json:"id"`
}

func (*ChannelUsersRequest) Event() string { return "getChannelUsers" }
func (r *ChannelUsersRequest) Validate() error {
	if r.ID == "" {
		return missing("id")
	}
	return nil
}

type ChannelMessagesRequest struct {
	ID     string `json:"id"`
	Before uint64 `json:"before"`
	Limit  int    `json:"limit"`
}

func (*ChannelMessagesRequest) Event() string { return "getChannelMessages" }
func (r *ChannelMessagesRequest) Validate() error {
	if r.ID == "" {
		return missing("id")
	}
	if r.Limit < 0 {
		return fmt.Errorf("The limit must not be negative, got %d: %w", r.Limit, service.ErrValidation)
	}
	return nil
}

type FindUserRequest struct {
	Name string `json:"name"`
}

func (*FindUserRequest) Event() string { return "getFindUser" }
func (r *FindUserRequest) Validate() error {
	if r.Name == "" {
		return missing("name")
	}
	return nil
}

// ListRequest covers the queries that carry no payload
type ListRequest struct {
	event string
}

func (r *ListRequest) Event() string { return r.event }
func (*ListRequest) Validate() error { return nil }

// requestTypes maps an event name to the constructor of its request
var requestTypes = map[string]func() Request{
	"createChannel":             func() Request { return &CreateChannelRequest{} },
	"joinChannel":               func() Request { return &JoinChannelRequest{} },
	"leaveChannel":              func() Request { return &LeaveChannelRequest{} },
	"deleteChannel":             func() Request { return &DeleteChannelRequest{} },
	"editChannel":               func() Request { return &EditChannelRequest{} },
	"message":                   func() Request { return &MessageRequest{} },
	"muteUser":                  func() Request { return &ModerationRequest{event: "muteUser"} },
	"unmuteUser":                func() Request { return &ModerationRequest{event: "unmuteUser"} },
	"banUser":                   func() Request { return &ModerationRequest{event: "banUser"} },
	"unBanUser":                 func() Request { return &ModerationRequest{event: "unBanUser"} },
	"giveAdminRights":           func() Request { return &ModerationRequest{event: "giveAdminRights"} },
	"inviteUser":                func() Request { return &ModerationRequest{event: "inviteUser"} },
	"blockUserControl":          func() Request { return &BlockUserRequest{} },
	"createPrivateConversation": func() Request { return &PrivateConversationRequest{} },
	"getChannelUsers":           func() Request { return &ChannelUsersRequest{} },
	"getChannelMessages":        func() Request { return &ChannelMessagesRequest{} },
	"getFindUser":               func() Request { return &FindUserRequest{} },
	"emitMyChannels":            func() Request { return &ListRequest{event: "emitMyChannels"} },
	"getJoinableChannels":       func() Request { return &ListRequest{event: "getJoinableChannels"} },
	"getConnectedUsers":         func() Request { return &ListRequest{event: "getConnectedUsers"} },
	"getUsersList":              func() Request { return &ListRequest{event: "getUsersList"} },
}

// DecodeRequest parses a client frame into its typed request, validated.
// Every error wraps service.ErrValidation.
func DecodeRequest(frame []byte) (Request, error) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, fmt.Errorf("Malformed frame: %v: %w", err, service.ErrValidation)
	}

	build, ok := requestTypes[envelope.Event]
	if !ok {
		return nil, fmt.Errorf("Unknown event {%s}: %w", envelope.Event, service.ErrValidation)
	}
	request := build()

	data := bytes.TrimSpace(envelope.Data)
	if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if err := json.Unmarshal(data, request); err != nil {
			return nil, fmt.Errorf("Malformed payload of {%s}: %v: %w", envelope.Event, err, service.ErrValidation)
		}
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	return request, nil
}

// EncodeEvent builds the frame of an outbound event
func EncodeEvent(event string, payload any) ([]byte, error) {
	frame := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{event, payload}
	return json.Marshal(frame)
}
