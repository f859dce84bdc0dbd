/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import (
	"fmt"
	"gateway/internal/entity"
	"gateway/internal/repository"

	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage manager gathers all the repositories needed for the gateway in a single container.
type StorageManager struct {
	db *gorm.DB // Under the hood we use the SQLite implementation

	// Repositories
	userRepo    repository.UserRepository
	channelRepo repository.ChannelRepository
	messageRepo repository.MessageRepository
}

// OpenStorage opens (or creates) the SQLite database at dsn, migrates it and wraps it in a StorageManager
func OpenStorage(dsn string) (*StorageManager, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("Database could not be opened correctly: %v", err)
	}

	// SQLite serializes writers anyway, one connection avoids SQLITE_BUSY between them
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(entity.Models()...); err != nil {
		return nil, multierr.Append(fmt.Errorf("Database could not be migrated: %v", err), sqlDB.Close())
	}
	return NewStorageManager(db), nil
}

func NewStorageManager(db *gorm.DB) *StorageManager {
	return &StorageManager{
		db:          db,
		userRepo:    repository.NewSQLiteUserRepository(db),
		channelRepo: repository.NewSQLiteChannelRepository(db),
		messageRepo: repository.NewSQLiteMessageRepository(db),
	}
}

func (s *StorageManager) GetUserRepository() repository.UserRepository {
	return s.userRepo
}

func (s *StorageManager) GetChannelRepository() repository.ChannelRepository {
	return s.channelRepo
}

func (s *StorageManager) GetMessageRepository() repository.MessageRepository {
	return s.messageRepo
}

// Close releases the underlying database connection
func (s *StorageManager) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
