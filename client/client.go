/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package client speaks the native moviematch websocket protocol.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Seednode/moviematch/protocol"
)

var ErrClosed = errors.New("client: connection closed")

// ServerError carries the error string of a failed request.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "moviematch: " + e.Message
}

// Options tunes Dial. A nil *Options is valid.
type Options struct {
	// Header is sent with the handshake, e.g. to carry a visitor cookie.
	Header http.Header
	// EventBuffer sizes the Events channel. Defaults to 64.
	EventBuffer int
}

// Client is one websocket connection. Requests may be issued concurrently.
// Broadcasts arrive on Events, which must be drained.
type Client struct {
	conn   *websocket.Conn
	cancel context.CancelFunc

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan protocol.Envelope
	err     error

	events chan protocol.Envelope
	done   chan struct{}
}

func Dial(ctx context.Context, url string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: opts.Header})
	if err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	c := &Client{
		conn:    conn,
		cancel:  cancel,
		pending: make(map[int64]chan protocol.Envelope),
		events:  make(chan protocol.Envelope, opts.EventBuffer),
		done:    make(chan struct{}),
	}

	go c.readLoop(loopCtx)

	return c, nil
}

// Events delivers user-joined, user-left and match frames. It is closed
// when the connection ends.
func (c *Client) Events() <-chan protocol.Envelope {
	return c.events
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.events)
	defer close(c.done)

	for {
		var env protocol.Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			c.fail(err)

			return
		}

		if env.ID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			delete(c.pending, env.ID)
			c.mu.Unlock()

			if ok {
				ch <- env

				continue
			}
		}

		select {
		case c.events <- env:
		case <-ctx.Done():
			c.fail(ctx.Err())

			return
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err == nil {
		c.err = err
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) request(ctx context.Context, req protocol.Request) (protocol.Envelope, error) {
	req.ID = c.nextID.Add(1)
	ch := make(chan protocol.Envelope, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()

		return protocol.Envelope{}, ErrClosed
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	if err := wsjson.Write(ctx, c.conn, req); err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()

		return protocol.Envelope{}, err
	}

	select {
	case env, ok := <-ch:
		if !ok {
			return protocol.Envelope{}, ErrClosed
		}
		if env.Error != "" {
			return env, &ServerError{Message: env.Error}
		}

		return env, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()

		return protocol.Envelope{}, ctx.Err()
	}
}

// CreateRoom opens a room and takes slot 0. An empty visitorID lets the
// server fall back to the handshake cookie.
func (c *Client) CreateRoom(ctx context.Context, visitorID string) (protocol.Envelope, error) {
	return c.request(ctx, protocol.Request{Type: protocol.TypeCreateRoom, VisitorID: visitorID})
}

func (c *Client) JoinRoom(ctx context.Context, code, visitorID string) (protocol.Envelope, error) {
	return c.request(ctx, protocol.Request{Type: protocol.TypeJoinRoom, Code: code, VisitorID: visitorID})
}

func (c *Client) Movies(ctx context.Context) (protocol.Envelope, error) {
	return c.request(ctx, protocol.Request{Type: protocol.TypeGetMovies})
}

// Swipe is fire and forget; a resulting match arrives on Events.
func (c *Client) Swipe(ctx context.Context, movieID int64, direction string, movieData json.RawMessage) error {
	return wsjson.Write(ctx, c.conn, protocol.Request{
		Type:      protocol.TypeSwipe,
		MovieID:   movieID,
		Direction: direction,
		MovieData: movieData,
	})
}

func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.cancel()
	<-c.done

	return err
}
