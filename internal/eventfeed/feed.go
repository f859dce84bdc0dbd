/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package eventfeed publishes presence and moderation events on a ZeroMQ PUB socket.
// Publishing never blocks the caller: when the queue is full the event is dropped.
package eventfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"gateway/internal/nlog"

	zmq "github.com/pebbe/zmq4"
)

// Topics of the feed, sent as first frame
const (
	TopicPresence   = "presence"
	TopicModeration = "moderation"
)

// Publisher accepts events for the feed
type Publisher interface {
	Publish(topic string, event any)
}

// Nop is the publisher used when the feed is disabled
type Nop struct{}

func (Nop) Publish(string, any) {}

// frameSender is the part of a zmq socket the feed writes to
type frameSender interface {
	SendMessage(parts ...interface{}) (int, error)
}

type frame struct {
	topic   string
	payload []byte
}

// Feed queues events and writes them from a single goroutine, zmq sockets are not safe to share
type Feed struct {
	sender frameSender
	queue  chan frame
	logger nlog.Logger

	ctx    *zmq.Context
	socket *zmq.Socket
}

// Bind creates the PUB socket and binds it on address (e.g. tcp://*:5556)
func Bind(address string, queue int, logger nlog.Logger) (*Feed, error) {
	zctx, err := zmq.NewContext()
	if err != nil {
		return nil, err
	}

	socket, err := zctx.NewSocket(zmq.Type(zmq.PUB))
	if err != nil {
		zctx.Term()
		return nil, fmt.Errorf("Error during the creation of the publisher ZMQ4 socket")
	}
	socket.SetLinger(0)
	if err := socket.Bind(address); err != nil {
		socket.Close()
		zctx.Term()
		return nil, fmt.Errorf("Could not bind the event feed on %s", address)
	}

	f := newFeed(socket, queue, logger)
	f.ctx = zctx
	f.socket = socket
	return f, nil
}

func newFeed(sender frameSender, queue int, logger nlog.Logger) *Feed {
	return &Feed{
		sender: sender,
		queue:  make(chan frame, queue),
		logger: logger,
	}
}

// Publish encodes event as JSON and queues it under topic
func (f *Feed) Publish(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.Logf("Could not encode event of {%s}: %v", topic, err)
		return
	}
	select {
	case f.queue <- frame{topic, payload}:
	default:
		f.logger.Logf("Feed queue is full, dropping event of {%s}", topic)
	}
}

// Run writes queued events until ctx is done, then releases the socket
func (f *Feed) Run(ctx context.Context) error {
	defer f.Destroy()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fr := <-f.queue:
			if _, err := f.sender.SendMessage(fr.topic, fr.payload); err != nil {
				f.logger.Logf("Could not publish event of {%s}: %v", fr.topic, err)
			}
		}
	}
}

// Destroy closes the socket and its context, if the feed owns them
func (f *Feed) Destroy() {
	if f.socket != nil {
		f.socket.Close()
		f.ctx.Term()
		f.socket = nil
	}
}
