/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"encoding/json"
	"fmt"
	"gateway/internal/entity"
	"gateway/internal/identity"
	"gateway/internal/middleware"
	"gateway/internal/presence"
	"gateway/internal/service"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
)

type MockAuthService struct {
	registered []string
}

func (a *MockAuthService) Register(username, nickname, password string) (*entity.User, error) {
	if username == "" {
		return nil, fmt.Errorf("The username must be set: %w", service.ErrValidation)
	}
	a.registered = append(a.registered, username)
	return &entity.User{UUID: "u-" + username, Username: username, Nickname: nickname}, nil
}

func (a *MockAuthService) Login(username, password string) (*entity.User, error) {
	if password != "right" {
		return nil, fmt.Errorf("Wrong credentials: %w", service.ErrAuth)
	}
	return &entity.User{UUID: "u-" + username, Username: username}, nil
}

type MockUserService struct{}

func (MockUserService) GetUser(uuid string) (*entity.User, error) {
	return &entity.User{UUID: uuid, Username: strings.TrimPrefix(uuid, "u-")}, nil
}
func (MockUserService) GetUsers() ([]*entity.User, error)             { return nil, nil }
func (MockUserService) GetUsersIn([]string) ([]*entity.User, error)   { return nil, nil }
func (MockUserService) FindUsers(string) ([]*entity.User, error)      { return nil, nil }
func (MockUserService) GetBlocked(string) ([]string, error)           { return nil, nil }
func (MockUserService) SetBlocked(string, string, bool) (bool, error) { return false, nil }

type MockHandle struct{ id string }

func (m MockHandle) ID() string       { return m.id }
func (m MockHandle) Send([]byte) bool { return true }
func (m MockHandle) Close()           {}

func TestRegisterWithForm(t *testing.T) {
	auth := &MockAuthService{}
	h := NewAuthHandler(auth, sessions.NewCookieStore([]byte("k")))

	form := url.Values{"username": {"alice"}, "nickname": {"Alice"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	h.Register(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rr.Code)
	}
	var user entity.User
	json.NewDecoder(rr.Body).Decode(&user)
	if user.UUID != "u-alice" || user.Nickname != "Alice" {
		t.Errorf("Unexpected user %+v", user)
	}
}

func TestRegisterInvalid(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{}, sessions.NewCookieStore([]byte("k")))

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Register(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestLoginSetsSessionReadByMiddleware(t *testing.T) {
	store := sessions.NewCookieStore([]byte("k"))
	h := NewAuthHandler(&MockAuthService{}, store)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"right"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Login(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != identity.SessionName {
		t.Fatalf("Expected the %s cookie, got %v", identity.SessionName, cookies)
	}

	me := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		me.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	middleware.AuthMiddleware(store, NewUserHandler(MockUserService{}).Me)(rr, me)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var user entity.User
	json.NewDecoder(rr.Body).Decode(&user)
	if user.UUID != "u-alice" {
		t.Errorf("Expected u-alice, got %s", user.UUID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{}, sessions.NewCookieStore([]byte("k")))

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	h.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Errorf("No session must be created on failure")
	}
}

func TestLogoutExpiresCookie(t *testing.T) {
	h := NewAuthHandler(&MockAuthService{}, sessions.NewCookieStore([]byte("k")))
	rr := httptest.NewRecorder()

	h.Logout(rr, httptest.NewRequest(http.MethodGet, "/logout", nil))

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("The session cookie should be expired, got %v", cookies)
	}
}

func TestMeWithoutSession(t *testing.T) {
	rr := httptest.NewRecorder()
	middleware.AuthMiddleware(sessions.NewCookieStore([]byte("k")), NewUserHandler(MockUserService{}).Me)(rr, httptest.NewRequest(http.MethodGet, "/me", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}
}

func TestHealthCounts(t *testing.T) {
	registry := presence.NewRegistry()
	registry.Register("alice", MockHandle{"c-1"})
	registry.Register("alice", MockHandle{"c-2"})
	rr := httptest.NewRecorder()

	Health(registry)(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var h health
	json.NewDecoder(rr.Body).Decode(&h)
	if h.Status != "ok" || h.OnlineUsers != 1 || h.Connections != 2 {
		t.Errorf("Unexpected health %+v", h)
	}
}
