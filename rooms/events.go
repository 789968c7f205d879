/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rooms

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/moviematch/catalog"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrCodesExhausted = errors.New("no free room codes")
	ErrNotSeated      = errors.New("connection holds no seat in this room")

	// ErrSeatReserved wraps ErrRoomFull: the only free seat is held for the
	// visitor who last sat in it.
	ErrSeatReserved = fmt.Errorf("%w: vacant seat is reserved for its previous visitor", ErrRoomFull)
)

// Decision is a swipe direction.
type Decision int

const (
	Pass Decision = iota
	Like
)

func (d Decision) String() string {
	if d == Like {
		return "like"
	}

	return "pass"
}

// ParseDecision accepts like/pass as well as the right/left directions
// sent by older browser clients.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "like", "right":
		return Like, nil
	case "pass", "left":
		return Pass, nil
	}

	return Pass, fmt.Errorf("unknown swipe direction %q", s)
}

// Conn is a live client channel seated in a room. Notify must not block
// and must not call back into the registry: it runs under the room lock.
type Conn interface {
	ID() string
	Notify(Event)
}

// Event is a room-wide notification.
type Event interface {
	event()
}

// UserJoined is sent to every seated connection after a join.
type UserJoined struct {
	Occupants  int
	Candidates []catalog.Movie
}

// UserLeft is sent to the remaining connection after a disconnect.
type UserLeft struct {
	Occupants int
}

// Matched is sent once per candidate liked by both slots.
type Matched struct {
	CandidateID int64
	Payload     json.RawMessage
}

func (UserJoined) event() {}
func (UserLeft) event()   {}
func (Matched) event()    {}

// Match is a recorded match, replayed to late joiners.
type Match struct {
	CandidateID int64
	Payload     json.RawMessage
}

// JoinResult describes the seat a connection received.
type JoinResult struct {
	Code       string
	Slot       int
	Occupants  int
	Candidates []catalog.Movie
	Matches    []Match
}

// Status is a point-in-time summary of a room.
type Status struct {
	Code       string
	Occupants  int
	Candidates int
	Matches    int
	CreatedAt  time.Time
}
