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
	"gateway/internal/entity"
	"gateway/internal/nlog"
	"gateway/internal/repository"
	"regexp"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,24}$`)

// Service used for the user registration and login phases
type AuthService interface {
	Register(username, nickname, password string) (*entity.User, error) // Tries to create a new user in the system, returing it if successful
	Login(username, password string) (*entity.User, error)              // Tries to authenticate a user via its credentials, returing the user entity if successful.
}

type localAuthService struct {
	userRepository repository.UserRepository // Repository for users
	now            Clock                     // Time of registration
	logger         nlog.Logger               // Logs a format string
}

func NewAuthService(userRepo repository.UserRepository, now Clock, logger nlog.Logger) AuthService {
	return &localAuthService{
		userRepository: userRepo,
		now:            now,
		logger:         logger,
	}
}

func (a *localAuthService) Logf(format string, v ...any) {
	a.logger.Logf(format, v...)
}

func (a *localAuthService) Register(username, nickname, password string) (*entity.User, error) {
	a.Logf("Registering {%s}", username)

	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("The username must be 3 to 24 letters, digits, '.', '_' or '-': %w", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("The password must be set: %w", ErrValidation)
	}
	if nickname == "" {
		nickname = username
	}

	if _, err := a.userRepository.GetForLogin(username); err == nil {
		return nil, fmt.Errorf("The username {%s} is already taken: %w", username, ErrValidation)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		a.Logf("Could not calculate hash{%v}", err)
		return nil, err
	}

	id := uuid.New().String()
	u := &entity.User{
		UUID:      id,
		Username:  username,
		Nickname:  nickname,
		CreatedAt: a.now(),

		Secret: entity.UserSecret{
			UserUUID: id,
			Hash:     string(hash),
		},
	}
	if err := a.userRepository.Create(u); err != nil {
		a.Logf("Could not store user {%s}: %v", username, err)
		return nil, err
	}

	a.Logf("User {%s} registered as {%s}", username, id)
	return u, nil
}

func (a *localAuthService) Login(username, password string) (*entity.User, error) {
	a.Logf("Login of {%s}", username)

	u, err := a.userRepository.GetForLogin(username)
	if err != nil {
		return nil, fmt.Errorf("User was not found: %w", ErrAuth)
	}
	if err = bcrypt.CompareHashAndPassword([]byte(u.Secret.Hash), []byte(password)); err != nil {
		return nil, fmt.Errorf("Wrong credentials: %w", ErrAuth)
	}

	u.Secret = entity.UserSecret{}
	return u, nil
}
