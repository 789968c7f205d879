/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Seednode/moviematch/protocol"
	"github.com/Seednode/moviematch/rooms"
)

const (
	visitorCookieName = "moviematch_id"

	sendBuffer = 32
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 64 << 10
)

// Client is one native websocket connection.
type Client struct {
	id   string
	conn *websocket.Conn
	log  *zap.Logger

	mu     sync.Mutex
	send   chan any
	closed bool
}

func newClient(conn *websocket.Conn, log *zap.Logger) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		log:  log,
		send: make(chan any, sendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Notify queues a room event. A client whose buffer is full is cut off
// rather than stalling the room.
func (c *Client) Notify(ev rooms.Event) {
	_, msg := eventMessage(ev)
	if msg == nil {
		return
	}

	c.enqueue(msg)
}

func (c *Client) enqueue(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		c.log.Warn("send buffer full, dropping connection", zap.String("conn", c.id))
		c.closed = true
		close(c.send)
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// originChecker accepts any origin when allowed is empty, and otherwise
// same-host requests plus the listed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}

		return slices.Contains(allowed, origin)
	}
}

func getOrSetVisitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(visitorCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func serveWebsocket(cfg *Config, reg *rooms.Registry, log *zap.Logger) httprouter.Handle {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		visitor := getOrSetVisitorID(w, r)

		var header http.Header
		if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
			header = http.Header{"Set-Cookie": cookies}
		}

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			log.Debug("upgrade failed", zap.String("remote", realIP(r)), zap.Error(err))

			return
		}

		client := newClient(conn, log)
		sess := newSession(reg, client, visitor, log)

		log.Debug("connected", zap.String("conn", client.id), zap.String("remote", realIP(r)))

		var limiter *rate.Limiter
		if cfg.messageRate > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.messageRate), max(cfg.messageBurst, 1))
		}

		go client.writePump()
		client.readPump(r.Context(), sess, limiter)
	}
}

func (c *Client) readPump(ctx context.Context, sess *session, limiter *rate.Limiter) {
	defer func() {
		sess.close()
		c.shutdown()
		_ = c.conn.Close()

		c.log.Debug("disconnected", zap.String("conn", c.id))
	}()

	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		// Over-limit frames wait for a token; none are dropped.
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.enqueue(protocol.ErrorMessage{Type: protocol.TypeError, Error: "malformed message"})

			continue
		}

		c.handle(ctx, sess, req)
	}
}

func (c *Client) handle(ctx context.Context, sess *session, req protocol.Request) {
	switch req.Type {
	case protocol.TypeCreateRoom:
		reply := sess.create(ctx, req.VisitorID)
		reply.ID = req.ID
		c.enqueue(reply)
	case protocol.TypeJoinRoom:
		reply := sess.join(req.Code, req.VisitorID)
		reply.ID = req.ID
		c.enqueue(reply)
	case protocol.TypeGetMovies:
		reply := sess.movies()
		reply.ID = req.ID
		c.enqueue(reply)
	case protocol.TypeSwipe:
		sess.swipe(protocol.SwipeRequest{
			MovieID:   req.MovieID,
			Direction: req.Direction,
			MovieData: req.MovieData,
		})
	default:
		c.enqueue(protocol.ErrorMessage{Type: protocol.TypeError, ID: req.ID, Error: "unknown message type"})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
