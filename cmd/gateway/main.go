/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"gateway/internal"
	"gateway/internal/admin"
	"gateway/internal/data"
	"gateway/internal/eventfeed"
	"gateway/internal/fanout"
	"gateway/internal/gateway"
	"gateway/internal/identity"
	"gateway/internal/input"
	"gateway/internal/lockmap"
	"gateway/internal/nlog"
	"gateway/internal/presence"
	"gateway/internal/service"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const feedQueue = 1024

var subsystems = []string{"main", "auth", "users", "channels", "fanout", "hub", "gateway", "identity", "input", "admin", "feed"}

func main() {
	folder := flag.String("config", ".", "Folder holding the .cfg file")
	flag.Parse()

	if err := run(*folder); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run(folder string) (err error) {
	cfg, err := internal.LoadConfig(folder)
	if err != nil {
		return err
	}

	logger, err := nlog.NewGatewayLogger(filepath.Join(cfg.FolderPath, cfg.LogDirectory), cfg.EnableLogging)
	if err != nil {
		return err
	}
	logs := make(map[string]nlog.Logger, len(subsystems))
	for _, name := range subsystems {
		if logs[name], err = logger.RegisterSubsystem(name); err != nil {
			return err
		}
	}

	logCtx, stopLogging := context.WithCancel(context.Background())
	loggerDone := make(chan struct{})
	go func() {
		logger.Run(logCtx)
		close(loggerDone)
	}()
	defer func() {
		stopLogging()
		<-loggerDone
	}()

	storage, err := data.OpenStorage(filepath.Join(cfg.FolderPath, cfg.DBName))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, storage.Close())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	group, groupCtx := errgroup.WithContext(ctx)

	var feed eventfeed.Publisher = eventfeed.Nop{}
	if cfg.EventFeedAddr != "" {
		zmqFeed, err := eventfeed.Bind(cfg.EventFeedAddr, feedQueue, logs["feed"])
		if err != nil {
			return err
		}
		group.Go(func() error { return zmqFeed.Run(groupCtx) })
		feed = zmqFeed
	}

	locks := lockmap.New()
	registry := presence.NewRegistry()
	hub := gateway.NewHub(registry, logs["hub"])

	users := storage.GetUserRepository()
	authService := service.NewAuthService(users, time.Now, logs["auth"])
	userService := service.NewUserService(users, logs["users"])
	channelService := service.NewChannelService(storage.GetChannelRepository(), users, locks, time.Now,
		time.Duration(cfg.DefaultMuteSeconds)*time.Second, logs["channels"])
	router := fanout.NewRouter(storage.GetChannelRepository(), storage.GetMessageRepository(), users,
		hub, locks, time.Now, cfg.BlockedPlaceholder, cfg.MaxMessageLength, logs["fanout"])

	cookieStore := sessions.NewCookieStore([]byte(cfg.SecretKey))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(7 * 24 * time.Hour.Seconds()),
	}

	gw := gateway.NewGateway(gateway.Dependencies{
		Identity:    identity.NewSessionIdentityProvider(cookieStore, userService, logs["identity"]),
		Registry:    registry,
		Hub:         hub,
		Channels:    channelService,
		Users:       userService,
		Router:      router,
		Feed:        feed,
		HistoryPage: cfg.HistoryPageSize,
		Now:         time.Now,
		Logger:      logs["gateway"],
		SendBuffer:  cfg.SendBuffer,
		Origins:     cfg.AllowedOrigins,
	})

	inputManager := input.NewInputManager()
	inputManager.SetLogger(logs["input"])
	inputManager.SetCookieStore(cookieStore)
	inputManager.SetAuthService(authService)
	inputManager.SetUserService(userService)
	inputManager.SetRegistry(registry)
	inputManager.SetWebsocketHandler(gw.ServeWS)
	group.Go(func() error {
		return inputManager.Run(groupCtx, &input.IptConfig{
			ServerPort:   cfg.HTTPServerPort,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	})

	if cfg.AdminPort != 0 {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.AdminPort))
		if err != nil {
			stop()
			return multierr.Append(err, group.Wait())
		}
		adminServer := admin.NewServer(registry, channelService, logs["admin"])
		group.Go(func() error { return adminServer.Serve(groupCtx, listener) })
	}

	logs["main"].Logf("Gateway started, http on {%d}, admin on {%d}", cfg.HTTPServerPort, cfg.AdminPort)
	err = group.Wait()
	for _, handle := range registry.All() {
		handle.Close()
	}
	logs["main"].Logf("Gateway stopped: %v", err)
	return err
}
