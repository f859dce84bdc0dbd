/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package fanout delivers channel messages to the online members of the channel.
// The content a recipient sees depends on its block set, and is computed for every delivery.
package fanout

import (
	"errors"
	"fmt"
	"gateway/internal/authz"
	"gateway/internal/entity"
	"gateway/internal/lockmap"
	"gateway/internal/nlog"
	"gateway/internal/repository"
	"gateway/internal/service"
	"slices"
	"time"

	"gorm.io/gorm"
)

// EventNewMessage is the name of the event carrying a delivered message
const EventNewMessage = "newMessage"

// Broadcaster pushes events to the live connections of users. It's the only way the router reaches them.
type Broadcaster interface {
	IsOnline(userUUID string) bool
	SendTo(userUUID, event string, payload any) int // Returns how many connections the event was queued on
}

// MessageView is the content of a message as seen by one recipient
type MessageView struct {
	ID      uint64    `json:"id"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`   // Always the true send time, even when the content is redacted
	UserID  string    `json:"userId"` // Author
}

// NewMessagePayload is the payload of EventNewMessage
type NewMessagePayload struct {
	ChannelID string      `json:"id"`
	Message   MessageView `json:"message"`
}

// Result of a send request
type Result struct {
	Message    *entity.Message // Stored message, nil when the sender was muted
	Muted      bool            // The sender was muted, nothing was stored or delivered
	Delivered  int             // Recipients that got the original content
	Redacted   int             // Recipients that got the placeholder
	Suppressed int             // Online recipients that got nothing, blocking the sender in a PM
}

// Router persists messages and fans them out. Sends on the same channel are serialized on the channel lock,
// so every recipient observes the messages of a channel in submission order.
type Router struct {
	channels    repository.ChannelRepository
	messages    repository.MessageRepository
	users       repository.UserRepository
	broadcaster Broadcaster
	locks       *lockmap.Map
	now         service.Clock
	placeholder string
	maxLength   int
	logger      nlog.Logger
}

func NewRouter(channels repository.ChannelRepository, messages repository.MessageRepository, users repository.UserRepository,
	broadcaster Broadcaster, locks *lockmap.Map, now service.Clock, placeholder string, maxLength int, logger nlog.Logger) *Router {
	return &Router{
		channels:    channels,
		messages:    messages,
		users:       users,
		broadcaster: broadcaster,
		locks:       locks,
		now:         now,
		placeholder: placeholder,
		maxLength:   maxLength,
		logger:      logger,
	}
}

func (r *Router) Logf(format string, v ...any) {
	r.logger.Logf(format, v...)
}

// Recipient of a message, with what it must see
type Recipient struct {
	UserUUID string
	View     *MessageView // nil means the recipient must not observe the message at all
	Redacted bool
}

// Render computes the view of message for every member, given who among them blocks the author.
// It does not look at presence.
func Render(kind entity.ChannelKind, message *entity.Message, members []string, blockers []string, placeholder string) []Recipient {
	recipients := make([]Recipient, 0, len(members))
	for _, member := range members {
		view := MessageView{ID: message.ID, Content: message.Content, Date: message.CreatedAt, UserID: message.AuthorUUID}
		recipient := Recipient{UserUUID: member}

		switch {
		case !slices.Contains(blockers, member):
			recipient.View = &view
		case kind == entity.ChannelPM:
			// No trace at all for the blocking party
		default:
			view.Content = placeholder
			recipient.View = &view
			recipient.Redacted = true
		}
		recipients = append(recipients, recipient)
	}
	return recipients
}

// Send validates, persists and delivers a message from sender on channelUUID
func (r *Router) Send(senderUUID, channelUUID, content string) (*Result, error) {
	if content == "" || len(content) > r.maxLength {
		return nil, fmt.Errorf("The content must be 1 to %d bytes, got %d: %w", r.maxLength, len(content), service.ErrValidation)
	}

	unlock := r.locks.Lock(channelUUID)
	defer unlock()

	channel, err := r.channels.GetByUUID(channelUUID)
	if err != nil {
		return nil, notFound(err, "Channel {%s}", channelUUID)
	}
	membership, err := r.channels.GetMembership(channelUUID, senderUUID)
	if err != nil {
		return nil, notFound(err, "Membership of {%s} in {%s}", senderUUID, channelUUID)
	}

	now := r.now()
	if authz.IsMuted(membership, now) {
		r.Logf("{%s} is muted in {%s} until {%s}, dropping", senderUUID, channelUUID, membership.MutedUntil.Format(time.RFC3339))
		return &Result{Muted: true}, nil
	}

	message := &entity.Message{
		ChannelUUID: channelUUID,
		AuthorUUID:  senderUUID,
		Content:     content,
		CreatedAt:   now,
	}
	if err := r.messages.Create(message); err != nil {
		r.Logf("Could not store message of {%s} in {%s}: %v", senderUUID, channelUUID, err)
		return nil, err
	}

	members, err := r.channels.MemberUUIDs(channelUUID)
	if err != nil {
		return nil, err
	}
	blockers, err := r.users.BlockersOf(senderUUID, members)
	if err != nil {
		return nil, err
	}

	result := &Result{Message: message}
	for _, recipient := range Render(channel.Kind, message, members, blockers, r.placeholder) {
		if !r.broadcaster.IsOnline(recipient.UserUUID) {
			continue
		}
		if recipient.View == nil {
			result.Suppressed++
			continue
		}
		r.broadcaster.SendTo(recipient.UserUUID, EventNewMessage, NewMessagePayload{ChannelID: channelUUID, Message: *recipient.View})
		if recipient.Redacted {
			result.Redacted++
		} else {
			result.Delivered++
		}
	}

	r.Logf("Message {%d} in {%s}: delivered {%d}, redacted {%d}, suppressed {%d}", message.ID, channelUUID, result.Delivered, result.Redacted, result.Suppressed)
	return result, nil
}

// History returns a page of channelUUID as seen by userUUID, oldest first.
// The block rules of delivery apply: in a PM the messages of a blocked author are left out, elsewhere redacted.
func (r *Router) History(userUUID, channelUUID string, beforeID uint64, limit int) ([]MessageView, error) {
	channel, err := r.channels.GetByUUID(channelUUID)
	if err != nil {
		return nil, notFound(err, "Channel {%s}", channelUUID)
	}
	if _, err := r.channels.GetMembership(channelUUID, userUUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("Only members can read the channel: %w", service.ErrNotAllowed)
		}
		return nil, err
	}

	page, err := r.messages.GetPage(channelUUID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	blocked, err := r.users.GetBlocked(userUUID)
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, 0, len(page))
	for _, message := range page {
		var blockers []string
		if slices.Contains(blocked, message.AuthorUUID) {
			blockers = []string{userUUID}
		}
		recipient := Render(channel.Kind, message, []string{userUUID}, blockers, r.placeholder)[0]
		if recipient.View != nil {
			views = append(views, *recipient.View)
		}
	}
	return views, nil
}

func notFound(err error, format string, v ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, v...), service.ErrNotFound)
	}
	return err
}
