/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Seednode/moviematch/protocol"
	"github.com/Seednode/moviematch/rooms"
)

// session is the room membership of one connection, whichever gateway
// it arrived through. A connection is seated in at most one room.
type session struct {
	reg  *rooms.Registry
	conn rooms.Conn
	log  *zap.Logger

	// visitor is used when a request carries no visitor id.
	visitor string

	mu   sync.Mutex
	code string
}

func newSession(reg *rooms.Registry, conn rooms.Conn, visitor string, log *zap.Logger) *session {
	return &session{
		reg:     reg,
		conn:    conn,
		log:     log.With(zap.String("conn", conn.ID())),
		visitor: visitor,
	}
}

func (s *session) visitorOr(id string) string {
	if id != "" {
		return id
	}

	return s.visitor
}

func (s *session) leaveLocked() {
	if s.code == "" {
		return
	}

	s.reg.Leave(s.code, s.conn.ID())
	s.code = ""
}

func (s *session) create(ctx context.Context, visitorID string) protocol.RoomReply {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leaveLocked()

	res, err := s.reg.Create(ctx, s.conn, s.visitorOr(visitorID))
	if err != nil {
		s.log.Error("create room failed", zap.Error(err))

		return protocol.RoomReply{Type: protocol.TypeCreateRoom, Error: errorText(err)}
	}

	s.code = res.Code

	return roomReply(protocol.TypeCreateRoom, res)
}

func (s *session) join(code, visitorID string) protocol.RoomReply {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code != s.code {
		s.leaveLocked()
	}

	res, err := s.reg.Join(code, s.conn, s.visitorOr(visitorID))
	if err != nil {
		return protocol.RoomReply{Type: protocol.TypeJoinRoom, Error: errorText(err)}
	}

	s.code = res.Code

	return roomReply(protocol.TypeJoinRoom, res)
}

func (s *session) movies() protocol.MoviesReply {
	s.mu.Lock()
	code := s.code
	s.mu.Unlock()

	if code == "" {
		return protocol.MoviesReply{Type: protocol.TypeGetMovies, Error: protocol.ErrNotInRoom}
	}

	movies, err := s.reg.Candidates(code)
	if err != nil {
		return protocol.MoviesReply{Type: protocol.TypeGetMovies, Error: errorText(err)}
	}

	return protocol.MoviesReply{Type: protocol.TypeGetMovies, Movies: movies}
}

// swipe has no reply. Malformed or out-of-room swipes are dropped.
func (s *session) swipe(req protocol.SwipeRequest) {
	s.mu.Lock()
	code := s.code
	s.mu.Unlock()

	if code == "" {
		s.log.Debug("swipe outside a room ignored")

		return
	}

	decision, err := rooms.ParseDecision(req.Direction)
	if err != nil {
		s.log.Debug("swipe ignored", zap.Error(err))

		return
	}

	if _, err := s.reg.Swipe(code, s.conn.ID(), req.MovieID, decision, req.MovieData); err != nil {
		s.log.Debug("swipe rejected", zap.String("code", code), zap.Error(err))
	}
}

// close gives up the seat, if any.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leaveLocked()
}

func (s *session) room() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.code
}

func errorText(err error) string {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		return protocol.ErrRoomNotFound
	case errors.Is(err, rooms.ErrSeatReserved):
		return protocol.ErrSeatReserved
	case errors.Is(err, rooms.ErrRoomFull):
		return protocol.ErrRoomFull
	case errors.Is(err, rooms.ErrNotSeated):
		return protocol.ErrNotInRoom
	}

	return protocol.ErrInternal
}

func roomReply(typ string, res rooms.JoinResult) protocol.RoomReply {
	reply := protocol.RoomReply{
		Type:       typ,
		Code:       res.Code,
		PlayerSlot: res.Slot,
		UserCount:  res.Occupants,
		Movies:     res.Candidates,
	}

	if len(res.Matches) > 0 {
		reply.Matches = make([]int64, 0, len(res.Matches))
		reply.MatchData = make(map[int64]json.RawMessage, len(res.Matches))

		for _, m := range res.Matches {
			reply.Matches = append(reply.Matches, m.CandidateID)
			reply.MatchData[m.CandidateID] = m.Payload
		}
	}

	return reply
}

// eventMessage renders a room event as its wire name and payload.
func eventMessage(ev rooms.Event) (string, any) {
	switch e := ev.(type) {
	case rooms.UserJoined:
		return protocol.TypeUserJoined, protocol.UserJoinedMessage{
			Type:      protocol.TypeUserJoined,
			UserCount: e.Occupants,
			Movies:    e.Candidates,
		}
	case rooms.UserLeft:
		return protocol.TypeUserLeft, protocol.UserLeftMessage{
			Type:      protocol.TypeUserLeft,
			UserCount: e.Occupants,
		}
	case rooms.Matched:
		return protocol.TypeMatch, protocol.MatchMessage{
			Type:      protocol.TypeMatch,
			MovieID:   e.CandidateID,
			MovieData: e.Payload,
		}
	}

	return "", nil
}
