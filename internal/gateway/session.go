/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package gateway

import (
	"errors"
	"fmt"
	"gateway/internal/entity"
	"gateway/internal/eventfeed"
	"gateway/internal/fanout"
	"gateway/internal/nlog"
	"gateway/internal/presence"
	"gateway/internal/service"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// State of a session
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	}
	return "closed"
}

// IdentityProvider verifies who is opening a connection
type IdentityProvider interface {
	Identify(handshake *http.Request) (*entity.User, error)
}

// Conn is the transport of one session
type Conn interface {
	presence.Handle
	ReadMessage() ([]byte, error) // Blocks until the next inbound frame
}

// ConnectionContext is created once the user is identified and never changed afterwards
type ConnectionContext struct {
	User     entity.User
	JoinedAt time.Time
}

// Session is one connection going through Connecting -> Authenticated -> Active -> Closed
type Session struct {
	state atomic.Int32
	conn  Conn
	ctx   *ConnectionContext
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// Context returns the identity of the session, nil before authentication
func (s *Session) Context() *ConnectionContext {
	return s.ctx
}

// Dependencies of a gateway
type Dependencies struct {
	Identity    IdentityProvider
	Registry    *presence.Registry
	Hub         *Hub
	Channels    service.ChannelService
	Users       service.UserService
	Router      *fanout.Router
	Feed        eventfeed.Publisher
	HistoryPage int           // Default and maximum page of history
	Now         service.Clock // Time source of connection contexts
	Logger      nlog.Logger
	SendBuffer  int      // Outbound queue of a websocket connection
	Origins     []string // Origins allowed to open a websocket, empty means same host only
}

// Gateway runs the sessions, dispatching client actions to services and router
type Gateway struct {
	Dependencies
	upgrader websocket.Upgrader
}

func NewGateway(deps Dependencies) *Gateway {
	if deps.Feed == nil {
		deps.Feed = eventfeed.Nop{}
	}
	return &Gateway{Dependencies: deps, upgrader: newUpgrader(deps.Origins)}
}

func (g *Gateway) Logf(format string, v ...any) {
	g.Logger.Logf(format, v...)
}

// Serve runs a session on conn until the transport closes.
// Once registered, the unregistration and the status broadcast happen on every exit path.
func (g *Gateway) Serve(handshake *http.Request, conn Conn) *Session {
	s := &Session{conn: conn}
	s.setState(StateConnecting)

	user, err := g.Identity.Identify(handshake)
	if err != nil {
		g.Logf("Connection {%s} refused: %v", conn.ID(), err)
		s.setState(StateClosed)
		conn.Close()
		return s
	}
	s.ctx = &ConnectionContext{User: *user, JoinedAt: g.Now()}
	s.setState(StateAuthenticated)

	if g.Registry.Register(user.UUID, conn) {
		g.broadcastStatus(user.UUID, true)
	}
	defer func() {
		s.setState(StateClosed)
		conn.Close()
		if _, offline := g.Registry.Unregister(conn); offline {
			g.broadcastStatus(user.UUID, false)
		}
		g.Logf("Connection {%s} of {%s} closed", conn.ID(), user.UUID)
	}()

	s.setState(StateActive)
	g.Logf("Connection {%s} of {%s} active", conn.ID(), user.UUID)

	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			return s
		}
		g.dispatch(s, frame)
	}
}

func (g *Gateway) broadcastStatus(userUUID string, online bool) {
	status := UserStatus{ID: userUUID, Online: online}
	g.Hub.SendAll(EventUserStatus, status)
	g.Feed.Publish(eventfeed.TopicPresence, status)
}

// dispatch decodes and runs one client action. A panicking handler fails the action, not the session.
func (g *Gateway) dispatch(s *Session, frame []byte) {
	request, err := DecodeRequest(frame)
	if err != nil {
		g.fail(s, "", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			g.Logf("Handler of {%s} panicked: %v", request.Event(), r)
			g.fail(s, request.Event(), fmt.Errorf("%v", r))
		}
	}()
	g.handle(s, request)
}

// fail maps err to the failure event sent to the requesting connection
func (g *Gateway) fail(s *Session, event string, err error) {
	reply := EventError
	switch {
	case errors.Is(err, service.ErrNotAllowed):
		reply = EventNotAllowed
	case errors.Is(err, service.ErrNotFound):
		reply = EventNotFound
	case errors.Is(err, service.ErrValidation) && event == "createChannel":
		reply = EventErrorChannelCreation
	case errors.Is(err, service.ErrValidation):
		reply = EventInvalidRequest
	}
	g.Logf("Request {%s} failed with {%s}: %v", event, reply, err)
	g.Hub.Reply(s.conn, reply, Failure{Event: event, Message: err.Error()})
}

func (g *Gateway) reply(s *Session, event string, payload any) {
	g.Hub.Reply(s.conn, event, payload)
}

// toMembers sends event to the online members of channelUUID
func (g *Gateway) toMembers(channelUUID, event string, payload any) {
	members, err := g.Channels.MemberUUIDs(channelUUID)
	if err != nil {
		g.Logf("Could not read members of {%s}: %v", channelUUID, err)
		return
	}
	g.Hub.SendToMany(members, event, payload)
}
