/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package repository

import (
	"errors"
	"gateway/internal/entity"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaveOutcome describes what happened to a channel after one of its members left
type LeaveOutcome struct {
	Removed        entity.Membership // Membership that was removed
	Successor      string            // UUID of the member that became owner, empty if ownership did not move
	ChannelDeleted bool              // True when the last member left and the channel is gone
}

// This repository is used to manipulate the channels, their memberships and their ban sets.
// Operations that touch more than one table run inside one transaction.
type ChannelRepository interface {
	CreateWithOwner(channel *entity.Channel, ownerUUID string) error                            // Inserts a channel and its owner membership
	CreatePrivate(channel *entity.Channel, first, second string) (*entity.Channel, bool, error) // Inserts a PM channel with both members, or returns the existing one (false)
	Update(channel *entity.Channel) error                                                       // Saves name, kind, password and avatar of the channel
	Delete(uuid string) error                                                                   // Deletes the channel with memberships, bans and messages

	GetByUUID(uuid string) (*entity.Channel, error)                         // Retrieves the channel with the given uuid, WITH its ban set
	GetByPairKey(pairKey string) (*entity.Channel, error)                   // Retrieves the PM channel of a pair
	GetChannelsOf(userUUID string) ([]*entity.Channel, error)               // Retrieves the channels the user is a member of
	GetJoinable(userUUID string) ([]*entity.Channel, error)                 // Retrieves public and protected channels the user is neither in nor banned from
	GetMembership(channelUUID, userUUID string) (*entity.Membership, error) // Retrieves one membership
	GetMembers(channelUUID string) ([]*entity.Membership, error)            // Retrieves the memberships of a channel, earliest joined first
	MemberUUIDs(channelUUID string) ([]string, error)                       // Retrieves only the uuids of the members of a channel

	AddMember(membership *entity.Membership) (bool, error)             // Adds a member. False if it already was one
	Leave(channelUUID, userUUID string) (*LeaveOutcome, error)         // Removes a member, moving ownership or deleting the channel when needed
	SetRole(channelUUID, userUUID string, role entity.Role) error      // Changes the role of a member
	SetMute(channelUUID, userUUID string, until *time.Time) error      // Changes the mute deadline of a member, nil unmutes
	BanAndRemove(channelUUID, userUUID, bannedBy string) (bool, error) // Adds the user to the ban set and removes its membership. True if a membership was removed
	Unban(channelUUID, userUUID string) (bool, error)                  // Removes the user from the ban set. False if it was not banned
}

// Implementation of the repository using a SQLite DB
type SQLiteChannelRepository struct {
	db *gorm.DB
}

func NewSQLiteChannelRepository(db *gorm.DB) ChannelRepository {
	return &SQLiteChannelRepository{db}
}

func (repo *SQLiteChannelRepository) CreateWithOwner(channel *entity.Channel, ownerUUID string) error {
	return repo.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members", "Bans").Create(channel).Error; err != nil {
			return err
		}
		owner := &entity.Membership{
			ChannelUUID: channel.UUID,
			UserUUID:    ownerUUID,
			Role:        entity.RoleOwner,
			JoinedAt:    channel.CreatedAt,
		}
		return tx.Create(owner).Error
	})
}

func (repo *SQLiteChannelRepository) CreatePrivate(channel *entity.Channel, first, second string) (*entity.Channel, bool, error) {
	created := false
	result := channel

	err := repo.db.Transaction(func(tx *gorm.DB) error {
		var existing entity.Channel
		err := tx.Where("pair_key = ?", *channel.PairKey).First(&existing).Error
		if err == nil {
			result = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Omit("Members", "Bans").Create(channel).Error; err != nil {
			return err
		}
		for _, member := range []string{first, second} {
			m := &entity.Membership{
				ChannelUUID: channel.UUID,
				UserUUID:    member,
				Role:        entity.RoleMember,
				JoinedAt:    channel.CreatedAt,
			}
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (repo *SQLiteChannelRepository) Update(channel *entity.Channel) error {
	return repo.db.Model(channel).Select("name", "kind", "password_hash", "avatar").Updates(channel).Error
}

func (repo *SQLiteChannelRepository) Delete(uuid string) error {
	return repo.db.Transaction(func(tx *gorm.DB) error {
		return deleteChannel(tx, uuid)
	})
}

// deleteChannel removes every row related to the channel, inside an already opened transaction
func deleteChannel(tx *gorm.DB, uuid string) error {
	if err := tx.Where("channel_uuid = ?", uuid).Delete(&entity.Membership{}).Error; err != nil {
		return err
	}
	if err := tx.Where("channel_uuid = ?", uuid).Delete(&entity.ChannelBan{}).Error; err != nil {
		return err
	}
	if err := tx.Where("channel_uuid = ?", uuid).Delete(&entity.Message{}).Error; err != nil {
		return err
	}
	return tx.Where("uuid = ?", uuid).Delete(&entity.Channel{}).Error
}

func (repo *SQLiteChannelRepository) GetByUUID(uuid string) (*entity.Channel, error) {
	var channel entity.Channel
	if err := repo.db.Preload("Bans").Where("uuid = ?", uuid).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

func (repo *SQLiteChannelRepository) GetByPairKey(pairKey string) (*entity.Channel, error) {
	var channel entity.Channel
	if err := repo.db.Where("pair_key = ?", pairKey).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

func (repo *SQLiteChannelRepository) GetChannelsOf(userUUID string) ([]*entity.Channel, error) {
	var channels []*entity.Channel
	err := repo.db.Joins("JOIN memberships ON memberships.channel_uuid = channels.uuid").
		Where("memberships.user_uuid = ?", userUUID).
		Order("channels.created_at ASC").
		Find(&channels).Error
	return channels, err
}

func (repo *SQLiteChannelRepository) GetJoinable(userUUID string) ([]*entity.Channel, error) {
	var channels []*entity.Channel

	joined := repo.db.Model(&entity.Membership{}).Select("channel_uuid").Where("user_uuid = ?", userUUID)
	banned := repo.db.Model(&entity.ChannelBan{}).Select("channel_uuid").Where("user_uuid = ?", userUUID)

	err := repo.db.Where("kind IN ?", []entity.ChannelKind{entity.ChannelPublic, entity.ChannelProtected}).
		Where("uuid NOT IN (?)", joined).
		Where("uuid NOT IN (?)", banned).
		Order("name ASC").
		Find(&channels).Error
	return channels, err
}

func (repo *SQLiteChannelRepository) GetMembership(channelUUID, userUUID string) (*entity.Membership, error) {
	var membership entity.Membership
	if err := repo.db.Where("channel_uuid = ? AND user_uuid = ?", channelUUID, userUUID).First(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

func (repo *SQLiteChannelRepository) GetMembers(channelUUID string) ([]*entity.Membership, error) {
	var members []*entity.Membership
	err := repo.db.Where("channel_uuid = ?", channelUUID).Order("joined_at ASC, user_uuid ASC").Find(&members).Error
	return members, err
}

func (repo *SQLiteChannelRepository) MemberUUIDs(channelUUID string) ([]string, error) {
	var uuids []string
	err := repo.db.Model(&entity.Membership{}).Where("channel_uuid = ?", channelUUID).Order("joined_at ASC, user_uuid ASC").Pluck("user_uuid", &uuids).Error
	return uuids, err
}

func (repo *SQLiteChannelRepository) AddMember(membership *entity.Membership) (bool, error) {
	result := repo.db.Clauses(clause.OnConflict{DoNothing: true}).Create(membership)
	return result.RowsAffected > 0, result.Error
}

func (repo *SQLiteChannelRepository) Leave(channelUUID, userUUID string) (*LeaveOutcome, error) {
	outcome := &LeaveOutcome{}

	err := repo.db.Transaction(func(tx *gorm.DB) error {
		var leaving entity.Membership
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("channel_uuid = ? AND user_uuid = ?", channelUUID, userUUID).
			First(&leaving).Error; err != nil {
			return err
		}
		outcome.Removed = leaving

		if err := tx.Where("channel_uuid = ? AND user_uuid = ?", channelUUID, userUUID).Delete(&entity.Membership{}).Error; err != nil {
			return err
		}

		// Admins come before members, then the earliest joined wins
		var successor entity.Membership
		err := tx.Where("channel_uuid = ?", channelUUID).Order("role DESC, joined_at ASC, user_uuid ASC").First(&successor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome.ChannelDeleted = true
			return deleteChannel(tx, channelUUID)
		}
		if err != nil {
			return err
		}

		if leaving.Role != entity.RoleOwner {
			return nil
		}
		outcome.Successor = successor.UserUUID
		return tx.Model(&entity.Membership{}).
			Where("channel_uuid = ? AND user_uuid = ?", channelUUID, successor.UserUUID).
			Update("role", entity.RoleOwner).Error
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (repo *SQLiteChannelRepository) SetRole(channelUUID, userUUID string, role entity.Role) error {
	result := repo.db.Model(&entity.Membership{}).
		Where("channel_uuid = ? AND user_uuid = ?", channelUUID, userUUID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (repo *SQLiteChannelRepository) SetMute(channelUUID, userUUID string, until *time.Time) error {
	var value any
	if until != nil {
		value = *until
	}
	result := repo.db.Model(&entity.Membership{}).
		Where("channel_uuid = ? AND user_uuid = ?", channelUUID, userUUID).
		Update("muted_until", value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (repo *SQLiteChannelRepository) BanAndRemove(channelUUID, userUUID, bannedBy string) (bool, error) {
	removed := false
	err := repo.db.Transaction(func(tx *gorm.DB) error {
		ban := &entity.ChannelBan{
			ChannelUUID: channelUUID,
			UserUUID:    userUUID,
			BannedBy:    bannedBy,
			CreatedAt:   time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ban).Error; err != nil {
			return err
		}

		result := tx.Where("channel_uuid = ? AND user_uuid = ?", channelUUID, userUUID).Delete(&entity.Membership{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected > 0
		return nil
	})
	return removed, err
}

func (repo *SQLiteChannelRepository) Unban(channelUUID, userUUID string) (bool, error) {
	result := repo.db.Where("channel_uuid = ? AND user_uuid = ?", channelUUID, userUUID).Delete(&entity.ChannelBan{})
	return result.RowsAffected > 0, result.Error
}
