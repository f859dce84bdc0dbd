/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package gateway

import (
	"errors"
	"gateway/internal/authz"
	"gateway/internal/entity"
	"gateway/internal/eventfeed"
	"gateway/internal/service"
	"slices"
	"strings"
	"time"
)

// handle runs request on behalf of the user of s
func (g *Gateway) handle(s *Session, request Request) {
	switch r := request.(type) {
	case *CreateChannelRequest:
		g.createChannel(s, r)
	case *JoinChannelRequest:
		g.joinChannel(s, r)
	case *LeaveChannelRequest:
		g.leaveChannel(s, r)
	case *DeleteChannelRequest:
		g.deleteChannel(s, r)
	case *EditChannelRequest:
		g.editChannel(s, r)
	case *MessageRequest:
		g.message(s, r)
	case *ModerationRequest:
		g.moderate(s, r)
	case *BlockUserRequest:
		g.blockUser(s, r)
	case *PrivateConversationRequest:
		g.privateConversation(s, r)
	case *ChannelUsersRequest:
		g.channelUsers(s, r)
	case *ChannelMessagesRequest:
		g.channelMessages(s, r)
	case *FindUserRequest:
		g.findUser(s, r)
	case *ListRequest:
		g.list(s, r)
	}
}

func (g *Gateway) createChannel(s *Session, r *CreateChannelRequest) {
	channel, err := g.Channels.CreateChannel(s.ctx.User.UUID, r.Name, r.Kind, r.Password)
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}
	g.Hub.SendTo(s.ctx.User.UUID, EventChannelCreated, channelInfo(channel))
}

func (g *Gateway) joinChannel(s *Session, r *JoinChannelRequest) {
	channel, decision, err := g.Channels.JoinChannel(s.ctx.User.UUID, r.ID, r.Password)
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}

	switch decision {
	case authz.Allowed:
		g.Hub.SendTo(s.ctx.User.UUID, EventJoinAccepted, JoinAccepted{ID: channel.UUID, IsPM: channel.Kind == entity.ChannelPM})
		g.toMembers(channel.UUID, EventUserChannelModif, ChannelRef{ID: channel.UUID})
	case authz.WrongPassword:
		g.reply(s, EventWrongPassword, ChannelRef{ID: r.ID})
	case authz.Banned:
		g.reply(s, EventYouAreBanned, ChannelRef{ID: r.ID})
	default:
		g.reply(s, EventJoinRefused, ChannelRef{ID: r.ID})
	}
}

func (g *Gateway) leaveChannel(s *Session, r *LeaveChannelRequest) {
	_, outcome, err := g.Channels.LeaveChannel(s.ctx.User.UUID, r.ID)
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}

	g.Hub.SendTo(s.ctx.User.UUID, EventLeftChannel, ChannelRef{ID: r.ID})
	if outcome.ChannelDeleted {
		return
	}
	g.toMembers(r.ID, EventUserChannelModif, ChannelRef{ID: r.ID})
	if outcome.Successor != "" {
		g.Hub.SendTo(outcome.Successor, EventAdminRights, ChannelRef{ID: r.ID})
	}
}

func (g *Gateway) deleteChannel(s *Session, r *DeleteChannelRequest) {
	members, err := g.Channels.DeleteChannel(s.ctx.User.UUID, r.ID)
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}
	g.Hub.SendToMany(members, EventChannelDeleted, ChannelRef{ID: r.ID})
}

func (g *Gateway) editChannel(s *Session, r *EditChannelRequest) {
	edit := service.ChannelEdit{Kind: r.Kind, Password: r.Password, Avatar: r.Avatar}
	channel, changed, err := g.Channels.EditChannel(s.ctx.User.UUID, r.ID, edit)
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}
	if !changed {
		return
	}
	// Private channels are only visible to their members
	if channel.Kind == entity.ChannelPrivate {
		g.toMembers(channel.UUID, EventChannelEdited, channelInfo(channel))
		return
	}
	g.Hub.SendAll(EventChannelEdited, channelInfo(channel))
}

func (g *Gateway) message(s *Session, r *MessageRequest) {
	result, err := g.Router.Send(s.ctx.User.UUID, r.ChannelID, r.Content)
	if errors.Is(err, service.ErrNotFound) {
		g.Logf("Message of {%s} to {%s} dropped: %v", s.ctx.User.UUID, r.ChannelID, err)
		return
	}
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}
	if result.Muted {
		g.Logf("Message of muted {%s} in {%s} dropped", s.ctx.User.UUID, r.ChannelID)
	}
}

// moderationEvents are the notifications of an action: to the target, and to the members of the channel
var moderationEvents = map[string][2]string{
	"muteUser":        {EventMuted, EventUserMuted},
	"unmuteUser":      {EventUnmuted, EventUserUnmuted},
	"banUser":         {EventBanned, EventUserBanned},
	"unBanUser":       {EventUnbanned, EventUserUnbanned},
	"giveAdminRights": {EventAdminRights, EventAdminGranted},
}

func (g *Gateway) moderate(s *Session, r *ModerationRequest) {
	actor := s.ctx.User.UUID
	notice := ModerationNotice{ChannelID: r.ChannelID, TargetID: r.TargetID}

	var err error
	switch r.Event() {
	case "muteUser":
		var until time.Time
		until, err = g.Channels.MuteUser(actor, r.ChannelID, r.TargetID, r.Time)
		notice.Until = &until
	case "unmuteUser":
		err = g.Channels.UnmuteUser(actor, r.ChannelID, r.TargetID)
	case "banUser":
		_, err = g.Channels.BanUser(actor, r.ChannelID, r.TargetID)
		if errors.Is(err, service.ErrNotFound) {
			g.Logf("Ban of unknown {%s} in {%s} ignored", r.TargetID, r.ChannelID)
			return
		}
	case "unBanUser":
		err = g.Channels.UnbanUser(actor, r.ChannelID, r.TargetID)
	case "giveAdminRights":
		err = g.Channels.GiveAdminRights(actor, r.ChannelID, r.TargetID)
	case "inviteUser":
		g.invite(s, r)
		return
	}
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}

	events := moderationEvents[r.Event()]
	g.Hub.SendTo(r.TargetID, events[0], notice)
	g.toMembers(r.ChannelID, events[1], notice)
	g.Feed.Publish(eventfeed.TopicModeration, struct {
		Action string `json:"action"`
		Actor  string `json:"actor"`
		ModerationNotice
	}{r.Event(), actor, notice})
}

func (g *Gateway) invite(s *Session, r *ModerationRequest) {
	channel, created, err := g.Channels.InviteUser(s.ctx.User.UUID, r.ChannelID, r.TargetID)
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}
	if !created {
		return
	}
	g.Hub.SendTo(r.TargetID, EventJoinAccepted, JoinAccepted{ID: channel.UUID})
	g.toMembers(channel.UUID, EventUserChannelModif, ChannelRef{ID: channel.UUID})
}

func (g *Gateway) blockUser(s *Session, r *BlockUserRequest) {
	if _, err := g.Users.SetBlocked(s.ctx.User.UUID, r.TargetID, r.Block); err != nil {
		g.fail(s, r.Event(), err)
		return
	}
	g.Hub.SendTo(s.ctx.User.UUID, EventBlockChange, BlockChange{TargetID: r.TargetID, Block: r.Block})
}

func (g *Gateway) privateConversation(s *Session, r *PrivateConversationRequest) {
	channel, created, err := g.Channels.CreatePrivateConversation(s.ctx.User.UUID, r.TargetID)
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}
	if !created {
		g.reply(s, EventAlreadyInPM, AlreadyInPM{ID: channel.UUID, Name: channel.Name})
		return
	}
	g.Hub.SendToMany([]string{s.ctx.User.UUID, r.TargetID}, EventJoinAccepted, JoinAccepted{ID: channel.UUID, IsPM: true})
}

func (g *Gateway) channelUsers(s *Session, r *ChannelUsersRequest) {
	members, err := g.Channels.GetMembers(s.ctx.User.UUID, r.ID)
	if errors.Is(err, service.ErrNotAllowed) {
		g.reply(s, EventAccessRefused, ChannelRef{ID: r.ID})
		return
	}
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}

	now := g.Now()
	users := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		users = append(users, MemberInfo{ID: m.UserUUID, Role: m.Role.String(), Muted: authz.IsMuted(m, now)})
	}
	g.reply(s, EventChannelUsers, ChannelUsers{ID: r.ID, Users: users})
}

func (g *Gateway) channelMessages(s *Session, r *ChannelMessagesRequest) {
	limit := r.Limit
	if limit == 0 || limit > g.HistoryPage {
		limit = g.HistoryPage
	}

	messages, err := g.Router.History(s.ctx.User.UUID, r.ID, r.Before, limit)
	if errors.Is(err, service.ErrNotAllowed) {
		g.reply(s, EventAccessRefused, ChannelRef{ID: r.ID})
		return
	}
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}
	g.reply(s, EventChannelMessages, ChannelMessages{ID: r.ID, Messages: messages})
}

func (g *Gateway) findUser(s *Session, r *FindUserRequest) {
	users, err := g.Users.FindUsers(r.Name)
	if err != nil {
		g.fail(s, r.Event(), err)
		return
	}
	g.reply(s, EventFindUser, g.userInfos(users, ""))
}

func (g *Gateway) list(s *Session, r *ListRequest) {
	self := s.ctx.User.UUID

	switch r.Event() {
	case "emitMyChannels":
		channels, err := g.Channels.GetChannelsOf(self)
		if err != nil {
			g.fail(s, r.Event(), err)
			return
		}
		blocked, err := g.Users.GetBlocked(self)
		if err != nil {
			g.fail(s, r.Event(), err)
			return
		}
		infos := make([]ChannelInfo, 0, len(channels))
		for _, c := range channels {
			info := channelInfo(c)
			if c.Kind == entity.ChannelPM {
				info.Blocked = slices.Contains(blocked, peerOf(c.Name, self))
			}
			infos = append(infos, info)
		}
		g.reply(s, EventChannelList, infos)

	case "getJoinableChannels":
		channels, err := g.Channels.GetJoinable(self)
		if err != nil {
			g.fail(s, r.Event(), err)
			return
		}
		infos := make([]ChannelInfo, 0, len(channels))
		for _, c := range channels {
			infos = append(infos, channelInfo(c))
		}
		g.reply(s, EventJoinableChannels, infos)

	case "getConnectedUsers":
		online := slices.DeleteFunc(g.Registry.OnlineUsers(), func(u string) bool { return u == self })
		users, err := g.Users.GetUsersIn(online)
		if err != nil {
			g.fail(s, r.Event(), err)
			return
		}
		g.reply(s, EventConnectedUsers, g.userInfos(users, self))

	case "getUsersList":
		users, err := g.Users.GetUsers()
		if err != nil {
			g.fail(s, r.Event(), err)
			return
		}
		g.reply(s, EventUsersList, g.userInfos(users, ""))
	}
}

// userInfos converts users, with their online status, leaving out skip
func (g *Gateway) userInfos(users []*entity.User, skip string) []UserInfo {
	infos := make([]UserInfo, 0, len(users))
	for _, u := range users {
		if u.UUID == skip {
			continue
		}
		infos = append(infos, UserInfo{ID: u.UUID, Username: u.Username, Nickname: u.Nickname, Online: g.Registry.IsOnline(u.UUID)})
	}
	return infos
}

// peerOf returns the other member of a PM named <first>/<second>
func peerOf(pmName, self string) string {
	first, second, _ := strings.Cut(pmName, "/")
	if first == self {
		return second
	}
	return first
}
