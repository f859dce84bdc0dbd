/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"errors"
	"fmt"
	"gateway/internal/authz"
	"gateway/internal/entity"
	"gateway/internal/lockmap"
	"gateway/internal/nlog"
	"gateway/internal/repository"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var channelNamePattern = regexp.MustCompile(`^[\p{L}\p{N} _-]{1,32}$`)

// MaxMuteSeconds is the longest mute whose deadline can be represented
const MaxMuteSeconds = math.MaxInt64 / int64(time.Second)

// ChannelEdit carries the settings to change, nil fields are left untouched
type ChannelEdit struct {
	Kind     *entity.ChannelKind
	Password *string
	Avatar   *string
}

// Service used for the lifecycle of channels: creation, membership, moderation, deletion.
// Every mutation of a channel is serialized on that channel's lock.
type ChannelService interface {
	CreateChannel(creatorUUID, name string, kind entity.ChannelKind, password string) (*entity.Channel, error) // Creates a channel, the creator becomes its owner
	CreatePrivateConversation(userUUID, targetUUID string) (*entity.Channel, bool, error)                      // Creates the PM channel of the pair, false if it already existed
	DeleteChannel(actorUUID, channelUUID string) ([]string, error)                                             // Deletes the channel, returning who its members were

	JoinChannel(userUUID, channelUUID, password string) (*entity.Channel, authz.JoinDecision, error) // Joins a channel; a decision other than Allowed leaves the state untouched
	LeaveChannel(userUUID, channelUUID string) (*entity.Channel, *repository.LeaveOutcome, error)    // Leaves a channel, moving ownership when needed
	EditChannel(actorUUID, channelUUID string, edit ChannelEdit) (*entity.Channel, bool, error)      // Changes the settings of a channel, true when something changed
	InviteUser(actorUUID, channelUUID, targetUUID string) (*entity.Channel, bool, error)             // Adds a user to a private channel, false if it already was a member

	MuteUser(actorUUID, channelUUID, targetUUID string, seconds *int64) (time.Time, error) // Mutes a member, nil seconds means the default duration
	UnmuteUser(actorUUID, channelUUID, targetUUID string) error                            // Clears the mute of a member
	BanUser(actorUUID, channelUUID, targetUUID string) (bool, error)                       // Bans a user and removes its membership, true if it was a member
	UnbanUser(actorUUID, channelUUID, targetUUID string) error                             // Removes a user from the ban set
	GiveAdminRights(actorUUID, channelUUID, targetUUID string) error                       // Promotes a member to admin

	GetChannel(channelUUID string) (*entity.Channel, error)                // Returns the channel with its ban set
	GetChannelsOf(userUUID string) ([]*entity.Channel, error)              // Returns the channels the user is in
	GetJoinable(userUUID string) ([]*entity.Channel, error)                // Returns the channels the user could join on request
	GetMembers(userUUID, channelUUID string) ([]*entity.Membership, error) // Returns the members of a channel, only to one of its members
	MemberUUIDs(channelUUID string) ([]string, error)                      // Returns the uuids of the members of a channel
}

type localChannelService struct {
	channels    repository.ChannelRepository // Repository for channels, memberships and bans
	users       repository.UserRepository    // Repository for users, to check targets exist
	locks       *lockmap.Map                 // One lock per channel, shared with the fan-out router
	now         Clock                        // Time source for mutes and creation
	defaultMute time.Duration                // Mute duration when none is given
	logger      nlog.Logger                  // Logs a format string
}

func NewChannelService(channels repository.ChannelRepository, users repository.UserRepository, locks *lockmap.Map, now Clock, defaultMute time.Duration, logger nlog.Logger) ChannelService {
	return &localChannelService{
		channels:    channels,
		users:       users,
		locks:       locks,
		now:         now,
		defaultMute: defaultMute,
		logger:      logger,
	}
}

func (c *localChannelService) Logf(format string, v ...any) {
	c.logger.Logf(format, v...)
}

// role returns the role of userUUID in channelUUID, RoleNone when it's not a member
func (c *localChannelService) role(channelUUID, userUUID string) (entity.Role, error) {
	m, err := c.channels.GetMembership(channelUUID, userUUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.RoleNone, nil
	}
	if err != nil {
		return entity.RoleNone, err
	}
	return m.Role, nil
}

func validateChannelName(name string) error {
	if strings.TrimSpace(name) == "" || !channelNamePattern.MatchString(name) {
		return fmt.Errorf("The name {%s} must be 1 to 32 letters, digits, spaces, '-' or '_': %w", name, ErrInvalidChannel)
	}
	return nil
}

func (c *localChannelService) CreateChannel(creatorUUID, name string, kind entity.ChannelKind, password string) (*entity.Channel, error) {
	c.Logf("Creating channel {%s} of kind {%s} for {%s}", name, kind, creatorUUID)

	if err := validateChannelName(name); err != nil {
		return nil, err
	}
	if !kind.IsValid() || kind == entity.ChannelPM {
		return nil, fmt.Errorf("The kind {%s} cannot be created directly: %w", kind, ErrInvalidChannel)
	}

	channel := &entity.Channel{
		UUID:        uuid.New().String(),
		Name:        name,
		Kind:        kind,
		CreatorUUID: creatorUUID,
		CreatedAt:   c.now(),
	}
	if kind == entity.ChannelProtected {
		if password == "" {
			return nil, fmt.Errorf("A protected channel needs a password: %w", ErrInvalidChannel)
		}
		hash, err := authz.HashPassword(password)
		if err != nil {
			return nil, err
		}
		channel.PasswordHash = hash
	}

	if err := c.channels.CreateWithOwner(channel, creatorUUID); err != nil {
		c.Logf("Could not store channel {%s}: %v", name, err)
		return nil, err
	}
	c.Logf("Channel {%s} created as {%s}", name, channel.UUID)
	return channel, nil
}

// PairKey returns the name shared by the PM channel of two users, independent of their order
func PairKey(first, second string) string {
	pair := []string{first, second}
	slices.Sort(pair)
	return pair[0] + "/" + pair[1]
}

func (c *localChannelService) CreatePrivateConversation(userUUID, targetUUID string) (*entity.Channel, bool, error) {
	c.Logf("Private conversation between {%s} and {%s}", userUUID, targetUUID)

	if userUUID == targetUUID {
		return nil, false, fmt.Errorf("A private conversation needs two different users: %w", ErrValidation)
	}
	if _, err := c.users.GetByUUID(targetUUID); err != nil {
		return nil, false, storeError(err, "User {%s}", targetUUID)
	}

	key := PairKey(userUUID, targetUUID)
	unlock := c.locks.Lock(key)
	defer unlock()

	if existing, err := c.channels.GetByPairKey(key); err == nil {
		c.Logf("Private conversation {%s} already is {%s}", key, existing.UUID)
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	channel := &entity.Channel{
		UUID:        uuid.New().String(),
		Name:        key,
		Kind:        entity.ChannelPM,
		PairKey:     &key,
		CreatorUUID: userUUID,
		CreatedAt:   c.now(),
	}
	stored, created, err := c.channels.CreatePrivate(channel, userUUID, targetUUID)
	if err != nil {
		c.Logf("Could not store private conversation {%s}: %v", key, err)
		return nil, false, err
	}
	c.Logf("Private conversation {%s} is {%s}, created {%v}", key, stored.UUID, created)
	return stored, created, nil
}

func (c *localChannelService) DeleteChannel(actorUUID, channelUUID string) ([]string, error) {
	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	if _, err := c.channels.GetByUUID(channelUUID); err != nil {
		return nil, storeError(err, "Channel {%s}", channelUUID)
	}
	role, err := c.role(channelUUID, actorUUID)
	if err != nil {
		return nil, err
	}
	if !authz.CanDelete(role) {
		return nil, fmt.Errorf("Only the owner can delete the channel: %w", ErrNotAllowed)
	}

	members, err := c.channels.MemberUUIDs(channelUUID)
	if err != nil {
		return nil, err
	}
	if err := c.channels.Delete(channelUUID); err != nil {
		c.Logf("Could not delete channel {%s}: %v", channelUUID, err)
		return nil, err
	}
	c.Logf("Channel {%s} deleted by {%s}", channelUUID, actorUUID)
	return members, nil
}

func (c *localChannelService) JoinChannel(userUUID, channelUUID, password string) (*entity.Channel, authz.JoinDecision, error) {
	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	channel, err := c.channels.GetByUUID(channelUUID)
	if err != nil {
		return nil, authz.Refused, storeError(err, "Channel {%s}", channelUUID)
	}
	role, err := c.role(channelUUID, userUUID)
	if err != nil {
		return nil, authz.Refused, err
	}

	decision := authz.CanJoin(channel, userUUID, role != entity.RoleNone, password)
	c.Logf("Join of {%s} in {%s}: %s", userUUID, channelUUID, decision)
	if decision != authz.Allowed || role != entity.RoleNone {
		return channel, decision, nil
	}

	m := &entity.Membership{
		ChannelUUID: channelUUID,
		UserUUID:    userUUID,
		Role:        entity.RoleMember,
		JoinedAt:    c.now(),
	}
	if _, err := c.channels.AddMember(m); err != nil {
		c.Logf("Could not add {%s} to {%s}: %v", userUUID, channelUUID, err)
		return nil, authz.Refused, err
	}
	return channel, decision, nil
}

func (c *localChannelService) LeaveChannel(userUUID, channelUUID string) (*entity.Channel, *repository.LeaveOutcome, error) {
	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	channel, err := c.channels.GetByUUID(channelUUID)
	if err != nil {
		return nil, nil, storeError(err, "Channel {%s}", channelUUID)
	}
	if channel.Kind == entity.ChannelPM {
		return nil, nil, fmt.Errorf("A private conversation cannot be left: %w", ErrNotAllowed)
	}

	outcome, err := c.channels.Leave(channelUUID, userUUID)
	if err != nil {
		return nil, nil, storeError(err, "Membership of {%s} in {%s}", userUUID, channelUUID)
	}
	c.Logf("{%s} left {%s}, successor {%s}, deleted {%v}", userUUID, channelUUID, outcome.Successor, outcome.ChannelDeleted)
	return channel, outcome, nil
}

func (c *localChannelService) EditChannel(actorUUID, channelUUID string, edit ChannelEdit) (*entity.Channel, bool, error) {
	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	channel, err := c.channels.GetByUUID(channelUUID)
	if err != nil {
		return nil, false, storeError(err, "Channel {%s}", channelUUID)
	}
	if channel.Kind == entity.ChannelPM {
		return nil, false, fmt.Errorf("A private conversation cannot be edited: %w", ErrNotAllowed)
	}
	role, err := c.role(channelUUID, actorUUID)
	if err != nil {
		return nil, false, err
	}
	if !authz.CanEdit(role) {
		return nil, false, fmt.Errorf("Only owner and admins can edit the channel: %w", ErrNotAllowed)
	}

	changed := false
	kind := channel.Kind
	if edit.Kind != nil && *edit.Kind != channel.Kind {
		if !edit.Kind.IsValid() || *edit.Kind == entity.ChannelPM {
			return nil, false, fmt.Errorf("The kind {%s} cannot be set: %w", *edit.Kind, ErrInvalidChannel)
		}
		kind = *edit.Kind
	}

	switch {
	case kind == entity.ChannelProtected && edit.Password != nil && *edit.Password != "":
		hash, err := authz.HashPassword(*edit.Password)
		if err != nil {
			return nil, false, err
		}
		channel.PasswordHash = hash
		changed = true
	case kind == entity.ChannelProtected && !channel.HasPassword():
		return nil, false, fmt.Errorf("A protected channel needs a password: %w", ErrInvalidChannel)
	case kind != entity.ChannelProtected && channel.HasPassword():
		channel.PasswordHash = ""
		changed = true
	}

	if kind != channel.Kind {
		channel.Kind = kind
		changed = true
	}
	if edit.Avatar != nil && *edit.Avatar != channel.Avatar {
		channel.Avatar = *edit.Avatar
		changed = true
	}
	if !changed {
		return channel, false, nil
	}

	if err := c.channels.Update(channel); err != nil {
		c.Logf("Could not update channel {%s}: %v", channelUUID, err)
		return nil, false, err
	}
	c.Logf("Channel {%s} edited by {%s}", channelUUID, actorUUID)
	return channel, true, nil
}

func (c *localChannelService) InviteUser(actorUUID, channelUUID, targetUUID string) (*entity.Channel, bool, error) {
	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	channel, err := c.channels.GetByUUID(channelUUID)
	if err != nil {
		return nil, false, storeError(err, "Channel {%s}", channelUUID)
	}
	if channel.Kind != entity.ChannelPrivate {
		return nil, false, fmt.Errorf("Only private channels take invitations: %w", ErrNotAllowed)
	}
	role, err := c.role(channelUUID, actorUUID)
	if err != nil {
		return nil, false, err
	}
	if !authz.CanInvite(role) {
		return nil, false, fmt.Errorf("Only owner and admins can invite: %w", ErrNotAllowed)
	}
	if channel.IsBanned(targetUUID) {
		return nil, false, fmt.Errorf("The user {%s} is banned from the channel: %w", targetUUID, ErrNotAllowed)
	}
	if _, err := c.users.GetByUUID(targetUUID); err != nil {
		return nil, false, storeError(err, "User {%s}", targetUUID)
	}

	m := &entity.Membership{
		ChannelUUID: channelUUID,
		UserUUID:    targetUUID,
		Role:        entity.RoleMember,
		JoinedAt:    c.now(),
	}
	created, err := c.channels.AddMember(m)
	if err != nil {
		return nil, false, err
	}
	c.Logf("{%s} invited {%s} in {%s}, created {%v}", actorUUID, targetUUID, channelUUID, created)
	return channel, created, nil
}

// moderate loads the channel and both roles, checking that actor can perform action on target.
// Must be called with the channel lock held.
func (c *localChannelService) moderate(actorUUID, channelUUID, targetUUID string, action authz.Action) (*entity.Channel, entity.Role, error) {
	channel, err := c.channels.GetByUUID(channelUUID)
	if err != nil {
		return nil, entity.RoleNone, storeError(err, "Channel {%s}", channelUUID)
	}
	if channel.Kind == entity.ChannelPM {
		return nil, entity.RoleNone, fmt.Errorf("Nobody moderates a private conversation: %w", ErrNotAllowed)
	}

	actorRole, err := c.role(channelUUID, actorUUID)
	if err != nil {
		return nil, entity.RoleNone, err
	}
	targetRole, err := c.role(channelUUID, targetUUID)
	if err != nil {
		return nil, entity.RoleNone, err
	}

	if !authz.CanModerate(actorUUID, targetUUID, actorRole, targetRole, action) {
		return nil, entity.RoleNone, fmt.Errorf("{%s} as %s cannot %s {%s} as %s: %w", actorUUID, actorRole, action, targetUUID, targetRole, ErrNotAllowed)
	}
	return channel, targetRole, nil
}

func (c *localChannelService) MuteUser(actorUUID, channelUUID, targetUUID string, seconds *int64) (time.Time, error) {
	duration := c.defaultMute
	if seconds != nil {
		if *seconds < 0 {
			return time.Time{}, fmt.Errorf("The mute duration must not be negative, got %d: %w", *seconds, ErrValidation)
		}
		if *seconds > MaxMuteSeconds {
			return time.Time{}, fmt.Errorf("The mute duration must be at most %d seconds, got %d: %w", MaxMuteSeconds, *seconds, ErrValidation)
		}
		duration = time.Duration(*seconds) * time.Second
	}

	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	_, targetRole, err := c.moderate(actorUUID, channelUUID, targetUUID, authz.ActionMute)
	if err != nil {
		return time.Time{}, err
	}
	if targetRole == entity.RoleNone {
		return time.Time{}, fmt.Errorf("Membership of {%s} in {%s}: %w", targetUUID, channelUUID, ErrNotFound)
	}

	until := c.now().Add(duration)
	if err := c.channels.SetMute(channelUUID, targetUUID, &until); err != nil {
		return time.Time{}, storeError(err, "Membership of {%s} in {%s}", targetUUID, channelUUID)
	}
	c.Logf("{%s} muted {%s} in {%s} until {%s}", actorUUID, targetUUID, channelUUID, until.Format(time.RFC3339))
	return until, nil
}

func (c *localChannelService) UnmuteUser(actorUUID, channelUUID, targetUUID string) error {
	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	_, targetRole, err := c.moderate(actorUUID, channelUUID, targetUUID, authz.ActionUnmute)
	if err != nil {
		return err
	}
	if targetRole == entity.RoleNone {
		return fmt.Errorf("Membership of {%s} in {%s}: %w", targetUUID, channelUUID, ErrNotFound)
	}

	if err := c.channels.SetMute(channelUUID, targetUUID, nil); err != nil {
		return storeError(err, "Membership of {%s} in {%s}", targetUUID, channelUUID)
	}
	c.Logf("{%s} unmuted {%s} in {%s}", actorUUID, targetUUID, channelUUID)
	return nil
}

func (c *localChannelService) BanUser(actorUUID, channelUUID, targetUUID string) (bool, error) {
	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	if _, err := c.users.GetByUUID(targetUUID); err != nil {
		return false, storeError(err, "User {%s}", targetUUID)
	}
	if _, _, err := c.moderate(actorUUID, channelUUID, targetUUID, authz.ActionBan); err != nil {
		return false, err
	}

	removed, err := c.channels.BanAndRemove(channelUUID, targetUUID, actorUUID)
	if err != nil {
		c.Logf("Could not ban {%s} from {%s}: %v", targetUUID, channelUUID, err)
		return false, err
	}
	c.Logf("{%s} banned {%s} from {%s}, was member {%v}", actorUUID, targetUUID, channelUUID, removed)
	return removed, nil
}

func (c *localChannelService) UnbanUser(actorUUID, channelUUID, targetUUID string) error {
	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	channel, _, err := c.moderate(actorUUID, channelUUID, targetUUID, authz.ActionUnban)
	if err != nil {
		return err
	}
	if !channel.IsBanned(targetUUID) {
		return fmt.Errorf("Ban of {%s} in {%s}: %w", targetUUID, channelUUID, ErrNotFound)
	}

	if _, err := c.channels.Unban(channelUUID, targetUUID); err != nil {
		return err
	}
	c.Logf("{%s} unbanned {%s} from {%s}", actorUUID, targetUUID, channelUUID)
	return nil
}

func (c *localChannelService) GiveAdminRights(actorUUID, channelUUID, targetUUID string) error {
	unlock := c.locks.Lock(channelUUID)
	defer unlock()

	targetRole, err := c.role(channelUUID, targetUUID)
	if err != nil {
		return err
	}
	if targetRole == entity.RoleNone {
		return fmt.Errorf("Membership of {%s} in {%s}: %w", targetUUID, channelUUID, ErrNotFound)
	}
	if _, _, err := c.moderate(actorUUID, channelUUID, targetUUID, authz.ActionPromote); err != nil {
		return err
	}

	if err := c.channels.SetRole(channelUUID, targetUUID, entity.RoleAdmin); err != nil {
		return storeError(err, "Membership of {%s} in {%s}", targetUUID, channelUUID)
	}
	c.Logf("{%s} promoted {%s} in {%s}", actorUUID, targetUUID, channelUUID)
	return nil
}

func (c *localChannelService) GetChannel(channelUUID string) (*entity.Channel, error) {
	channel, err := c.channels.GetByUUID(channelUUID)
	if err != nil {
		return nil, storeError(err, "Channel {%s}", channelUUID)
	}
	return channel, nil
}

func (c *localChannelService) GetChannelsOf(userUUID string) ([]*entity.Channel, error) {
	return c.channels.GetChannelsOf(userUUID)
}

func (c *localChannelService) GetJoinable(userUUID string) ([]*entity.Channel, error) {
	return c.channels.GetJoinable(userUUID)
}

func (c *localChannelService) GetMembers(userUUID, channelUUID string) ([]*entity.Membership, error) {
	role, err := c.role(channelUUID, userUUID)
	if err != nil {
		return nil, err
	}
	if role == entity.RoleNone {
		return nil, fmt.Errorf("Only members can list the channel: %w", ErrNotAllowed)
	}
	return c.channels.GetMembers(channelUUID)
}

func (c *localChannelService) MemberUUIDs(channelUUID string) ([]string, error) {
	return c.channels.MemberUUIDs(channelUUID)
}
