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
	"errors"
	"gateway/internal/nlog"
	"gateway/internal/presence"
	"gateway/internal/service"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "gateway.admin.v1.Admin"

// AdminServer is the read-only introspection service of a gateway
type AdminServer interface {
	// Whether the user has at least one connection
	IsOnline(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	// Member uuids of a channel
	ChannelMembers(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	// Presence counters
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type Server struct {
	registry *presence.Registry
	channels service.ChannelService
	logger   nlog.Logger
}

func NewServer(registry *presence.Registry, channels service.ChannelService, logger nlog.Logger) *Server {
	return &Server{registry, channels, logger}
}

func (s *Server) Logf(format string, v ...any) {
	s.logger.Logf(format, v...)
}

func (s *Server) IsOnline(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.registry.IsOnline(req.GetValue())), nil
}

func (s *Server) ChannelMembers(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if _, err := s.channels.GetChannel(req.GetValue()); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "Channel {%s} does not exist", req.GetValue())
		}
		s.Logf("Could not read channel {%s}: %v", req.GetValue(), err)
		return nil, status.Error(codes.Internal, err.Error())
	}

	members, err := s.channels.MemberUUIDs(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	values := make([]*structpb.Value, 0, len(members))
	for _, m := range members {
		values = append(values, structpb.NewStringValue(m))
	}
	return &structpb.ListValue{Values: values}, nil
}

func (s *Server) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	users, handles := s.registry.Counts()
	return structpb.NewStruct(map[string]any{
		"online_users": users,
		"connections":  handles,
	})
}

// Serve runs the admin service on listener until ctx is done
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	grpcServer := grpc.NewServer()
	RegisterAdminServer(grpcServer, s)

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	s.Logf("Admin service listening on {%s}", listener.Addr())
	if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
