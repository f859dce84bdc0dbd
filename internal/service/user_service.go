/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"fmt"
	"gateway/internal/entity"
	"gateway/internal/nlog"
	"gateway/internal/repository"
)

// Service used to read users and change block sets
type UserService interface {
	GetUser(uuid string) (*entity.User, error)                    // Returns the user with the given uuid
	GetUsers() ([]*entity.User, error)                            // Returns every user
	GetUsersIn(uuids []string) ([]*entity.User, error)            // Returns the users among uuids that exist, by username
	FindUsers(fragment string) ([]*entity.User, error)            // Returns the users whose username or nickname contains fragment
	GetBlocked(uuid string) ([]string, error)                     // Returns the block set of the user
	SetBlocked(uuid, targetUUID string, block bool) (bool, error) // Adds or removes target from the block set, true when the set changed
}

type localUserService struct {
	userRepository repository.UserRepository // Repository for users
	logger         nlog.Logger               // Logs a format string
}

func NewUserService(userRepo repository.UserRepository, logger nlog.Logger) UserService {
	return &localUserService{
		userRepository: userRepo,
		logger:         logger,
	}
}

func (u *localUserService) Logf(format string, v ...any) {
	u.logger.Logf(format, v...)
}

func (u *localUserService) GetUser(uuid string) (*entity.User, error) {
	user, err := u.userRepository.GetByUUID(uuid)
	if err != nil {
		return nil, storeError(err, "User {%s}", uuid)
	}
	return user, nil
}

func (u *localUserService) GetUsers() ([]*entity.User, error) {
	return u.userRepository.GetAll()
}

func (u *localUserService) GetUsersIn(uuids []string) ([]*entity.User, error) {
	return u.userRepository.GetByUUIDs(uuids)
}

func (u *localUserService) FindUsers(fragment string) ([]*entity.User, error) {
	if fragment == "" {
		return nil, fmt.Errorf("The search needs at least one character: %w", ErrValidation)
	}
	return u.userRepository.Search(fragment)
}

func (u *localUserService) GetBlocked(uuid string) ([]string, error) {
	return u.userRepository.GetBlocked(uuid)
}

func (u *localUserService) SetBlocked(uuid, targetUUID string, block bool) (bool, error) {
	if uuid == targetUUID {
		return false, fmt.Errorf("A user cannot block itself: %w", ErrValidation)
	}
	if _, err := u.userRepository.GetByUUID(targetUUID); err != nil {
		return false, storeError(err, "User {%s}", targetUUID)
	}

	var changed bool
	var err error
	if block {
		changed, err = u.userRepository.Block(uuid, targetUUID)
	} else {
		changed, err = u.userRepository.Unblock(uuid, targetUUID)
	}
	if err != nil {
		u.Logf("Could not change block set of {%s}: %v", uuid, err)
		return false, err
	}

	u.Logf("Block set of {%s}, target {%s}, block {%v}, changed {%v}", uuid, targetUUID, block, changed)
	return changed, nil
}
