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
	"slices"

	"gorm.io/gorm"
)

// This repository is used to store and read the messages of the channels. Messages are never updated.
type MessageRepository interface {
	Create(message *entity.Message) error                                              // Inserts a message, its ID is assigned by the DB
	GetPage(channelUUID string, beforeID uint64, limit int) ([]*entity.Message, error) // Retrieves up to limit messages older than beforeID (0 means newest), oldest first
}

// Implementation of the repository using a SQLite DB
type SQLiteMessageRepository struct {
	db *gorm.DB
}

func NewSQLiteMessageRepository(db *gorm.DB) MessageRepository {
	return &SQLiteMessageRepository{db}
}

func (repo *SQLiteMessageRepository) Create(message *entity.Message) error {
	return repo.db.Create(message).Error
}

func (repo *SQLiteMessageRepository) GetPage(channelUUID string, beforeID uint64, limit int) ([]*entity.Message, error) {
	var messages []*entity.Message

	query := repo.db.Where("channel_uuid = ?", channelUUID)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}
	if err := query.Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Newest page was read backwards
	slices.Reverse(messages)
	return messages, nil
}
