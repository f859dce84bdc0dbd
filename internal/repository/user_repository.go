/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package repository

import (
	"gateway/internal/entity"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// This repository is used to manipulate the users and their block sets.
type UserRepository interface {
	Create(user *entity.User) error // Inserts a user, with its secret, in the repository

	GetForLogin(username string) (*entity.User, error) // Retrieves the user with given username, WITH its hashed password. Used for login.
	GetByUUID(uuid string) (*entity.User, error)       // Retrieves the user with the given uuid.
	GetByUUIDs(uuids []string) ([]*entity.User, error) // Retrieves the users with the given uuids, unknown ones are skipped
	GetAll() ([]*entity.User, error)                   // Retrieves all the users, WITHOUT their secret
	Search(fragment string) ([]*entity.User, error)    // Retrieves the users whose username or nickname contains fragment

	Block(blocker, blocked string) (bool, error)                 // Adds blocked to the block set of blocker. False if it already was there
	Unblock(blocker, blocked string) (bool, error)               // Removes blocked from the block set of blocker. False if it was not there
	GetBlocked(blocker string) ([]string, error)                 // Retrieves the block set of blocker
	BlockersOf(blocked string, among []string) ([]string, error) // Retrieves which of the users in among have blocked the given user
}

// Implementation of the repository using a SQLite DB
type SQLiteUserRepository struct {
	db *gorm.DB
}

func NewSQLiteUserRepository(db *gorm.DB) UserRepository {
	return &SQLiteUserRepository{db}
}

func (repo *SQLiteUserRepository) Create(user *entity.User) error {
	return repo.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
}

func (repo *SQLiteUserRepository) GetForLogin(username string) (*entity.User, error) {
	var user entity.User
	if err := repo.db.Preload("Secret").Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (repo *SQLiteUserRepository) GetByUUID(uuid string) (*entity.User, error) {
	var user entity.User
	if err := repo.db.Where("uuid = ?", uuid).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (repo *SQLiteUserRepository) GetByUUIDs(uuids []string) ([]*entity.User, error) {
	var users []*entity.User
	if len(uuids) == 0 {
		return users, nil
	}
	err := repo.db.Where("uuid IN ?", uuids).Order("username ASC").Find(&users).Error
	return users, err
}

func (repo *SQLiteUserRepository) GetAll() ([]*entity.User, error) {
	var users []*entity.User
	err := repo.db.Order("username ASC").Find(&users).Error
	return users, err
}

func (repo *SQLiteUserRepository) Search(fragment string) ([]*entity.User, error) {
	var users []*entity.User
	like := "%" + fragment + "%"
	err := repo.db.Where("username LIKE ? OR nickname LIKE ?", like, like).Order("username ASC").Find(&users).Error
	return users, err
}

func (repo *SQLiteUserRepository) Block(blocker, blocked string) (bool, error) {
	block := &entity.UserBlock{BlockerUUID: blocker, BlockedUUID: blocked, CreatedAt: time.Now()}
	result := repo.db.Clauses(clause.OnConflict{DoNothing: true}).Create(block)
	return result.RowsAffected > 0, result.Error
}

func (repo *SQLiteUserRepository) Unblock(blocker, blocked string) (bool, error) {
	result := repo.db.Where("blocker_uuid = ? AND blocked_uuid = ?", blocker, blocked).Delete(&entity.UserBlock{})
	return result.RowsAffected > 0, result.Error
}

func (repo *SQLiteUserRepository) GetBlocked(blocker string) ([]string, error) {
	var blocked []string
	err := repo.db.Model(&entity.UserBlock{}).Where("blocker_uuid = ?", blocker).Order("blocked_uuid ASC").Pluck("blocked_uuid", &blocked).Error
	return blocked, err
}

func (repo *SQLiteUserRepository) BlockersOf(blocked string, among []string) ([]string, error) {
	var blockers []string
	if len(among) == 0 {
		return blockers, nil
	}
	err := repo.db.Model(&entity.UserBlock{}).Where("blocked_uuid = ? AND blocker_uuid IN ?", blocked, among).Pluck("blocker_uuid", &blockers).Error
	return blockers, err
}
