/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"
	"sync"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"go.uber.org/zap"

	"github.com/Seednode/moviematch/protocol"
	"github.com/Seednode/moviematch/rooms"
)

type outbound struct {
	event string
	msg   any
}

// sioConn adapts a socket.io connection to rooms.Conn. Emits go through
// a buffered queue so Notify never blocks the room.
type sioConn struct {
	s   socketio.Conn
	log *zap.Logger

	mu     sync.Mutex
	send   chan outbound
	closed bool
}

func newSioConn(s socketio.Conn, log *zap.Logger) *sioConn {
	c := &sioConn{
		s:    s,
		log:  log,
		send: make(chan outbound, sendBuffer),
	}

	go c.pump()

	return c
}

func (c *sioConn) ID() string {
	return "sio:" + c.s.ID()
}

func (c *sioConn) Notify(ev rooms.Event) {
	name, msg := eventMessage(ev)
	if msg == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- outbound{event: name, msg: msg}:
	default:
		c.log.Warn("send buffer full, dropping connection", zap.String("conn", c.ID()))
		c.closed = true
		close(c.send)
		go c.s.Close()
	}
}

func (c *sioConn) pump() {
	for out := range c.send {
		c.s.Emit(out.event, out.msg)
	}
}

func (c *sioConn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// sioState is stored as the socket.io connection context.
type sioState struct {
	conn *sioConn
	sess *session
}

func visitorFromHeader(h http.Header) string {
	r := http.Request{Header: h}
	if c, err := r.Cookie(visitorCookieName); err == nil {
		return c.Value
	}

	return ""
}

func stateOf(s socketio.Conn) *sioState {
	st, _ := s.Context().(*sioState)

	return st
}

func newSocketServer(ctx context.Context, cfg *Config, reg *rooms.Registry, log *zap.Logger) *socketio.Server {
	check := originChecker(cfg.allowedOrigins)

	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&polling.Transport{CheckOrigin: check},
			&websocket.Transport{CheckOrigin: check},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		conn := newSioConn(s, log)
		s.SetContext(&sioState{
			conn: conn,
			sess: newSession(reg, conn, visitorFromHeader(s.RemoteHeader()), log),
		})

		log.Debug("connected", zap.String("conn", conn.ID()), zap.String("remote", s.RemoteAddr().String()))

		return nil
	})

	server.OnEvent("/", protocol.TypeCreateRoom, func(s socketio.Conn, visitorID string) protocol.RoomReply {
		st := stateOf(s)
		if st == nil {
			return protocol.RoomReply{Error: protocol.ErrInternal}
		}

		return st.sess.create(ctx, visitorID)
	})

	server.OnEvent("/", protocol.TypeJoinRoom, func(s socketio.Conn, req protocol.JoinRequest) protocol.RoomReply {
		st := stateOf(s)
		if st == nil {
			return protocol.RoomReply{Error: protocol.ErrInternal}
		}

		return st.sess.join(req.Code, req.VisitorID)
	})

	server.OnEvent("/", protocol.TypeGetMovies, func(s socketio.Conn) protocol.MoviesReply {
		st := stateOf(s)
		if st == nil {
			return protocol.MoviesReply{Error: protocol.ErrInternal}
		}

		return st.sess.movies()
	})

	server.OnEvent("/", protocol.TypeSwipe, func(s socketio.Conn, req protocol.SwipeRequest) {
		if st := stateOf(s); st != nil {
			st.sess.swipe(req)
		}
	})

	server.OnError("/", func(s socketio.Conn, err error) {
		log.Debug("socket.io error", zap.Error(err))
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		st := stateOf(s)
		if st == nil {
			return
		}

		st.sess.close()
		st.conn.shutdown()

		log.Debug("disconnected", zap.String("conn", st.conn.ID()), zap.String("reason", reason))
	})

	return server
}
