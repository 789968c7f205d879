/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package protocol defines the messages exchanged between browser or Go
// clients and the moviematch gateways. Field names match the socket.io
// browser client, and both gateways emit identical payloads.
package protocol

import (
	"encoding/json"

	"github.com/Seednode/moviematch/catalog"
)

const (
	TypeCreateRoom = "create-room"
	TypeJoinRoom   = "join-room"
	TypeGetMovies  = "get-movies"
	TypeSwipe      = "swipe"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypeMatch      = "match"
	TypeError      = "error"
)

// User-facing error strings.
const (
	ErrRoomNotFound = "Room not found"
	ErrRoomFull     = "Room is full"
	ErrSeatReserved = "Seat is reserved for another player"
	ErrNotInRoom    = "Not in a room"
	ErrInternal     = "Something went wrong, please try again"
)

// Request is a client frame on the native websocket. Requests that carry
// an ID receive a reply with the same ID.
type Request struct {
	Type      string          `json:"type"`
	ID        int64           `json:"id,omitempty"`
	VisitorID string          `json:"visitorId,omitempty"`
	Code      string          `json:"code,omitempty"`
	MovieID   int64           `json:"movieId,omitempty"`
	Direction string          `json:"direction,omitempty"`
	MovieData json.RawMessage `json:"movieData,omitempty"`
}

// JoinRequest is the socket.io join-room argument.
type JoinRequest struct {
	Code      string `json:"code"`
	VisitorID string `json:"visitorId"`
}

// SwipeRequest is the socket.io swipe argument.
type SwipeRequest struct {
	MovieID   int64           `json:"movieId"`
	Direction string          `json:"direction"`
	MovieData json.RawMessage `json:"movieData,omitempty"`
}

// RoomReply answers create-room and join-room.
type RoomReply struct {
	Type       string                    `json:"type,omitempty"`
	ID         int64                     `json:"id,omitempty"`
	Code       string                    `json:"code,omitempty"`
	PlayerSlot int                       `json:"playerSlot"`
	UserCount  int                       `json:"userCount"`
	Movies     []catalog.Movie           `json:"movies,omitempty"`
	Matches    []int64                   `json:"matches,omitempty"`
	MatchData  map[int64]json.RawMessage `json:"matchData,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// MoviesReply answers get-movies.
type MoviesReply struct {
	Type   string          `json:"type,omitempty"`
	ID     int64           `json:"id,omitempty"`
	Movies []catalog.Movie `json:"movies,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type UserJoinedMessage struct {
	Type      string          `json:"type,omitempty"`
	UserCount int             `json:"userCount"`
	Movies    []catalog.Movie `json:"movies"`
}

type UserLeftMessage struct {
	Type      string `json:"type,omitempty"`
	UserCount int    `json:"userCount"`
}

type MatchMessage struct {
	Type      string          `json:"type,omitempty"`
	MovieID   int64           `json:"movieId"`
	MovieData json.RawMessage `json:"movieData"`
}

// ErrorMessage reports a malformed frame.
type ErrorMessage struct {
	Type  string `json:"type"`
	ID    int64  `json:"id,omitempty"`
	Error string `json:"error"`
}

// Envelope decodes any server frame.
type Envelope struct {
	Type       string                    `json:"type"`
	ID         int64                     `json:"id"`
	Code       string                    `json:"code"`
	PlayerSlot int                       `json:"playerSlot"`
	UserCount  int                       `json:"userCount"`
	Movies     []catalog.Movie           `json:"movies"`
	Matches    []int64                   `json:"matches"`
	MatchData  map[int64]json.RawMessage `json:"matchData"`
	MovieID    int64                     `json:"movieId"`
	MovieData  json.RawMessage           `json:"movieData"`
	Error      string                    `json:"error"`
}
