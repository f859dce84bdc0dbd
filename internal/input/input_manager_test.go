/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package input

import (
	"context"
	"fmt"
	"gateway/internal/entity"
	"gateway/internal/presence"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
)

type MockLogger struct{}

func (m *MockLogger) Logf(format string, v ...any) {}

type MockAuthService struct{}

func (a *MockAuthService) Register(username, nickname, password string) (*entity.User, error) {
	return &entity.User{UUID: "a", Username: username, Nickname: nickname}, nil
}
func (a *MockAuthService) Login(username, password string) (*entity.User, error) {
	return &entity.User{UUID: "a", Username: username}, nil
}

type MockUserService struct{}

func (MockUserService) GetUser(uuid string) (*entity.User, error)     { return &entity.User{UUID: uuid}, nil }
func (MockUserService) GetUsers() ([]*entity.User, error)             { return nil, nil }
func (MockUserService) GetUsersIn([]string) ([]*entity.User, error)   { return nil, nil }
func (MockUserService) FindUsers(string) ([]*entity.User, error)      { return nil, nil }
func (MockUserService) GetBlocked(string) ([]string, error)           { return nil, nil }
func (MockUserService) SetBlocked(string, string, bool) (bool, error) { return false, nil }

func readyManager(ws http.HandlerFunc) *InputManager {
	i := NewInputManager()
	i.SetLogger(&MockLogger{})
	i.SetCookieStore(sessions.NewCookieStore([]byte("k")))
	i.SetAuthService(&MockAuthService{})
	i.SetUserService(MockUserService{})
	i.SetRegistry(presence.NewRegistry())
	i.SetWebsocketHandler(ws)
	return i
}

func TestPauseMiddlewareOn(t *testing.T) {
	i := NewInputManager()

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Called despite being paused!")
	})

	toTest := i.PauseMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()

	i.SetPause(true)

	toTest.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rr.Code)
	}
}

func TestPauseMiddlewareOff(t *testing.T) {
	i := NewInputManager()

	var x int = 10
	y := &x

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*y = 4
	})

	toTest := i.PauseMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()

	toTest.ServeHTTP(rr, req)

	if rr.Code == http.StatusServiceUnavailable {
		t.Errorf("Got 503, expected 200")
	}

	switch x {
	case 10:
		t.Errorf("Pause middleware was executed despite not being paused")
	case 4:
		// Ok
	default:
		t.Errorf("This case should not even be possible")
	}
}

func TestRoutes(t *testing.T) {
	upgraded := false
	router := readyManager(func(w http.ResponseWriter, r *http.Request) { upgraded = true }).Router()

	cases := []struct {
		method, path string
		expected     int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/me", http.StatusUnauthorized},
		{"GET", "/login", http.StatusMethodNotAllowed},
		{"POST", "/register", http.StatusCreated},
		{"GET", "/nothing", http.StatusNotFound},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(c.method, c.path, strings.NewReader(`{"username":"alice","password":"pw"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rr, req)
		if rr.Code != c.expected {
			t.Errorf("%s %s: expected %d, got %d", c.method, c.path, c.expected, rr.Code)
		}
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ws", nil))
	if !upgraded {
		t.Errorf("/ws should reach the websocket handler")
	}
}

func TestPausedRouter(t *testing.T) {
	i := readyManager(func(w http.ResponseWriter, r *http.Request) {})
	i.SetPause(true)

	rr := httptest.NewRecorder()
	i.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rr.Code)
	}
}

func TestServeNotReady(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Could not listen: %v", err)
	}

	err = NewInputManager().Serve(context.Background(), listener, &IptConfig{})
	if err == nil {
		t.Fatalf("Expected error...")
	}
	expected := "The Input manager is not ready... Missing components"
	if err.Error() != expected {
		t.Errorf("Another error was supposed to happen. GOT[%s], EXPECTED[%s]", err.Error(), expected)
	}
}

func TestServeUntilCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Could not listen: %v", err)
	}
	i := readyManager(func(w http.ResponseWriter, r *http.Request) {})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- i.Serve(ctx, listener, &IptConfig{ReadTimeout: 5, WriteTimeout: 5}) }()

	var resp *http.Response
	for attempt := 0; attempt < 50; attempt++ {
		resp, err = http.Get(fmt.Sprintf("http://%s/health", listener.Addr()))
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Expected a clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Server did not stop")
	}
	if i.IsRunning() {
		t.Errorf("Manager should not be running anymore")
	}
}
