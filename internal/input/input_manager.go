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
	"errors"
	"fmt"
	"gateway/internal/handler"
	"gateway/internal/middleware"
	"gateway/internal/nlog"
	"gateway/internal/presence"
	"gateway/internal/service"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

type IptConfig struct {
	ServerPort   uint16
	ReadTimeout  int64
	WriteTimeout int64
}

type InputManager struct { // Manages the HTTP input of the gateway
	running atomic.Bool
	paused  atomic.Bool

	logger nlog.Logger
	server *http.Server

	cookieStore *sessions.CookieStore
	authService service.AuthService
	userService service.UserService
	registry    *presence.Registry
	websocket   http.HandlerFunc
}

func NewInputManager() *InputManager {
	return &InputManager{
		running: atomic.Bool{},
		paused:  atomic.Bool{},
	}
}

func (i *InputManager) IsReady() bool {
	return i.logger != nil && i.cookieStore != nil && i.authService != nil && i.userService != nil && i.registry != nil && i.websocket != nil
}

func (i *InputManager) IsRunning() bool {
	return i.running.Load()
}

func (i *InputManager) SetLogger(l nlog.Logger) {
	i.logger = l
}

func (i *InputManager) SetCookieStore(store *sessions.CookieStore) {
	i.cookieStore = store
}

func (i *InputManager) SetAuthService(as service.AuthService) {
	i.authService = as
}

func (i *InputManager) SetUserService(us service.UserService) {
	i.userService = us
}

func (i *InputManager) SetRegistry(r *presence.Registry) {
	i.registry = r
}

// SetWebsocketHandler sets the handler upgrading /ws requests
func (i *InputManager) SetWebsocketHandler(h http.HandlerFunc) {
	i.websocket = h
}

func (i *InputManager) Logf(format string, a ...any) {
	i.logger.Logf(format, a...)
}

func (i *InputManager) SetPause(paused bool) {
	i.paused.Store(paused)
}

func (i *InputManager) IsPaused() bool {
	return i.paused.Load()
}

// PauseMiddleware answers 503 while the manager is paused
func (i *InputManager) PauseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if i.IsPaused() {
			http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Router returns the routes of the gateway
func (i *InputManager) Router() http.Handler {
	authHandler := handler.NewAuthHandler(i.authService, i.cookieStore)
	userHandler := handler.NewUserHandler(i.userService)

	r := mux.NewRouter()

	// Authentication routes
	r.HandleFunc("/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("GET", "POST")
	r.HandleFunc("/me", middleware.AuthMiddleware(i.cookieStore, userHandler.Me)).Methods("GET")

	// Realtime
	r.HandleFunc("/ws", i.websocket).Methods("GET")
	r.HandleFunc("/health", handler.Health(i.registry)).Methods("GET")

	r.Use(i.PauseMiddleware)
	return r
}

// Run serves HTTP on cfg.ServerPort until ctx is done
func (i *InputManager) Run(ctx context.Context, cfg *IptConfig) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ServerPort))
	if err != nil {
		return err
	}
	return i.Serve(ctx, listener, cfg)
}

// Serve runs the HTTP server on listener until ctx is done
func (i *InputManager) Serve(ctx context.Context, listener net.Listener, cfg *IptConfig) error {
	if !i.IsReady() {
		listener.Close()
		return fmt.Errorf("The Input manager is not ready... Missing components")
	}

	i.server = &http.Server{
		Handler:        i.Router(),
		ReadTimeout:    time.Duration(cfg.ReadTimeout * int64(time.Second)),
		WriteTimeout:   time.Duration(cfg.WriteTimeout * int64(time.Second)),
		MaxHeaderBytes: 1 << 20,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		i.Logf("Received stop signal. Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := i.server.Shutdown(shutdownCtx); err != nil {
			i.Logf("Error during shutdown... %v", err)
		}
	}()

	i.running.Store(true)
	defer i.running.Store(false)
	i.Logf("Http server started on {%s}", listener.Addr())

	if err := i.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		i.Logf("FATAL: HTTP Server error{%v}", err)
		return err
	}
	<-done
	return nil
}
