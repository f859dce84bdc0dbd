/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package identity

import (
	"fmt"
	"gateway/internal/entity"
	"gateway/internal/nlog"
	"gateway/internal/service"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	SessionName = "auth-session" // Cookie written at login
	KeyUserUUID = "user_uuid"
	KeyUsername = "username"
)

// SessionIdentityProvider identifies the user of a websocket handshake through the login cookie
type SessionIdentityProvider struct {
	store  *sessions.CookieStore
	users  service.UserService
	logger nlog.Logger
}

func NewSessionIdentityProvider(store *sessions.CookieStore, users service.UserService, logger nlog.Logger) *SessionIdentityProvider {
	return &SessionIdentityProvider{store, users, logger}
}

// Identify reads the user uuid from the session cookie and loads that user.
// Every failure wraps service.ErrAuth.
func (p *SessionIdentityProvider) Identify(handshake *http.Request) (*entity.User, error) {
	session, err := p.store.Get(handshake, SessionName)
	if err != nil {
		return nil, fmt.Errorf("Unreadable session: %v: %w", err, service.ErrAuth)
	}

	userUUID, ok := session.Values[KeyUserUUID].(string)
	if !ok || userUUID == "" {
		return nil, fmt.Errorf("No user in session: %w", service.ErrAuth)
	}

	user, err := p.users.GetUser(userUUID)
	if err != nil {
		p.logger.Logf("Session of unknown user {%s}: %v", userUUID, err)
		return nil, fmt.Errorf("User {%s} could not be loaded: %w", userUUID, service.ErrAuth)
	}
	return user, nil
}
