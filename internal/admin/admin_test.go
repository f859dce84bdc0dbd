/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package admin

import (
	"context"
	"fmt"
	"gateway/internal/data"
	"gateway/internal/entity"
	"gateway/internal/lockmap"
	"gateway/internal/presence"
	"gateway/internal/service"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type MockLogger struct{}

func (MockLogger) Logf(string, ...any) {}

type MockHandle struct{ id string }

func (m MockHandle) ID() string       { return m.id }
func (m MockHandle) Send([]byte) bool { return true }
func (m MockHandle) Close()           {}

func startAdmin(t *testing.T) (*AdminClient, *presence.Registry, service.ChannelService) {
	storage, err := data.OpenStorage(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("Could not open storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	registry := presence.NewRegistry()
	channels := service.NewChannelService(storage.GetChannelRepository(), storage.GetUserRepository(), lockmap.New(), time.Now, time.Minute, MockLogger{})

	listener := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(registry, channels, MockLogger{}).Serve(ctx, listener) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return listener.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Could not dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewAdminClient(conn), registry, channels
}

func TestIsOnline(t *testing.T) {
	client, registry, _ := startAdmin(t)
	registry.Register("alice", MockHandle{"c-1"})

	online, err := client.IsOnline(context.Background(), "alice")
	if err != nil || !online {
		t.Errorf("alice should be online, got %v %v", online, err)
	}
	online, err = client.IsOnline(context.Background(), "bob")
	if err != nil || online {
		t.Errorf("bob should be offline, got %v %v", online, err)
	}
}

func TestChannelMembers(t *testing.T) {
	client, _, channels := startAdmin(t)
	channel, err := channels.CreateChannel("owner", "room", entity.ChannelPublic, "")
	if err != nil {
		t.Fatalf("Could not create channel: %v", err)
	}
	if _, _, err := channels.JoinChannel("alice", channel.UUID, ""); err != nil {
		t.Fatalf("Could not join: %v", err)
	}

	members, err := client.ChannelMembers(context.Background(), channel.UUID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(members) != 2 || members[0] != "owner" || members[1] != "alice" {
		t.Errorf("Expected [owner alice], got %v", members)
	}

	_, err = client.ChannelMembers(context.Background(), "nowhere")
	if status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestStats(t *testing.T) {
	client, registry, _ := startAdmin(t)
	registry.Register("alice", MockHandle{"c-1"})
	registry.Register("alice", MockHandle{"c-2"})
	registry.Register("bob", MockHandle{"c-3"})

	stats, err := client.Stats(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	fields := stats.GetFields()
	if fields["online_users"].GetNumberValue() != 2 || fields["connections"].GetNumberValue() != 3 {
		t.Errorf("Unexpected stats %v", stats)
	}
}
