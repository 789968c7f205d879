/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rooms

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/moviematch/catalog"
)

const slots = 2

// SeatPolicy decides which vacant slot a new connection takes.
type SeatPolicy int

const (
	// SeatByVisitor returns a visitor to the slot it held before and
	// keeps a vacated slot reserved for its previous visitor.
	SeatByVisitor SeatPolicy = iota
	// SeatByVacancy fills slot 1 then slot 0 regardless of who held
	// them before.
	SeatByVacancy
)

func ParseSeatPolicy(s string) (SeatPolicy, error) {
	switch strings.ToLower(s) {
	case "visitor":
		return SeatByVisitor, nil
	case "vacancy":
		return SeatByVacancy, nil
	}

	return SeatByVisitor, fmt.Errorf("unknown seat policy %q (want visitor or vacancy)", s)
}

func (p SeatPolicy) String() string {
	if p == SeatByVacancy {
		return "vacancy"
	}

	return "visitor"
}

// Room is one two-seat swiping session. The candidate list is fixed at
// creation; every other field is guarded by mu.
type Room struct {
	code       string
	createdAt  time.Time
	candidates []catalog.Movie
	byID       map[int64]int

	mu       sync.Mutex
	seats    [slots]Conn
	visitors [slots]string
	ledgers  [slots]map[int64]Decision
	matched  map[int64]struct{}
	matches  []Match
	closed   bool

	// idleEpoch moves every time the room empties or is repopulated,
	// so a pending reap can tell whether the emptiness it was scheduled
	// for is the one it observes.
	idleEpoch uint64
	stopReap  func() bool
}

func newRoom(code string, candidates []catalog.Movie, now time.Time) *Room {
	r := &Room{
		code:       code,
		createdAt:  now,
		candidates: candidates,
		byID:       make(map[int64]int, len(candidates)),
		matched:    make(map[int64]struct{}),
	}

	for i, m := range candidates {
		r.byID[m.ID] = i
	}
	for i := range r.ledgers {
		r.ledgers[i] = make(map[int64]Decision)
	}

	return r
}

func (r *Room) Code() string {
	return r.code
}

// Candidates returns the room's candidate list. Callers must not modify it.
func (r *Room) Candidates() []catalog.Movie {
	return r.candidates
}

func (r *Room) Occupants() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.occupantsLocked()
}

func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Status{
		Code:       r.code,
		Occupants:  r.occupantsLocked(),
		Candidates: len(r.candidates),
		Matches:    len(r.matches),
		CreatedAt:  r.createdAt,
	}
}

func (r *Room) occupantsLocked() int {
	n := 0
	for _, c := range r.seats {
		if c != nil {
			n++
		}
	}

	return n
}

func (r *Room) slotOfLocked(connID string) int {
	for i, c := range r.seats {
		if c != nil && c.ID() == connID {
			return i
		}
	}

	return -1
}

func (r *Room) assignableLocked(policy SeatPolicy, slot int, visitorID string) bool {
	if r.seats[slot] != nil {
		return false
	}
	if policy == SeatByVacancy {
		return true
	}

	prev := r.visitors[slot]
	return prev == "" || visitorID == "" || prev == visitorID
}

func (r *Room) seatLocked(policy SeatPolicy, conn Conn, visitorID string) (int, error) {
	slot := -1

	if policy == SeatByVisitor && visitorID != "" {
		for i := range r.seats {
			if r.seats[i] == nil && r.visitors[i] == visitorID {
				slot = i
				break
			}
		}
	}

	if slot < 0 {
		switch {
		case r.assignableLocked(policy, 1, visitorID):
			slot = 1
		case r.assignableLocked(policy, 0, visitorID):
			slot = 0
		case r.occupantsLocked() < slots:
			return -1, ErrSeatReserved
		default:
			return -1, ErrRoomFull
		}
	}

	r.seats[slot] = conn
	if visitorID != "" {
		r.visitors[slot] = visitorID
	}

	return slot, nil
}

func (r *Room) matchesLocked() []Match {
	out := make([]Match, len(r.matches))
	copy(out, r.matches)

	return out
}

func (r *Room) resultLocked(slot int) JoinResult {
	return JoinResult{
		Code:       r.code,
		Slot:       slot,
		Occupants:  r.occupantsLocked(),
		Candidates: r.candidates,
		Matches:    r.matchesLocked(),
	}
}

func (r *Room) broadcastLocked(ev Event) {
	for _, c := range r.seats {
		if c != nil {
			c.Notify(ev)
		}
	}
}

func (r *Room) cancelReapLocked() {
	if r.stopReap != nil {
		r.stopReap()
		r.stopReap = nil
	}
}

// join seats conn and notifies everyone seated, the joiner included.
func (r *Room) join(policy SeatPolicy, conn Conn, visitorID string) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return JoinResult{}, ErrRoomNotFound
	}

	// Already seated: nothing changed, so nobody is told.
	if slot := r.slotOfLocked(conn.ID()); slot >= 0 {
		return r.resultLocked(slot), nil
	}

	wasEmpty := r.occupantsLocked() == 0

	slot, err := r.seatLocked(policy, conn, visitorID)
	if err != nil {
		return JoinResult{}, err
	}

	if wasEmpty {
		r.idleEpoch++
		r.cancelReapLocked()
	}

	res := r.resultLocked(slot)

	r.broadcastLocked(UserJoined{
		Occupants:  res.Occupants,
		Candidates: r.candidates,
	})

	return res, nil
}

// vacateLocked frees connID's seat. The slot's ledger and visitor are kept.
func (r *Room) vacateLocked(connID string) (slot int, ok bool) {
	slot = r.slotOfLocked(connID)
	if slot < 0 {
		return -1, false
	}

	r.seats[slot] = nil

	if n := r.occupantsLocked(); n > 0 {
		r.broadcastLocked(UserLeft{Occupants: n})
	} else {
		r.idleEpoch++
	}

	return slot, true
}

// swipe records the decision for connID's slot and reports whether it
// completed a match.
func (r *Room) swipe(connID string, candidateID int64, decision Decision, payload json.RawMessage) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, ErrRoomNotFound
	}

	slot := r.slotOfLocked(connID)
	if slot < 0 {
		return false, ErrNotSeated
	}

	r.ledgers[slot][candidateID] = decision

	if decision != Like {
		return false, nil
	}
	if r.ledgers[1-slot][candidateID] != Like {
		return false, nil
	}
	if _, done := r.matched[candidateID]; done {
		return false, nil
	}

	if len(payload) == 0 {
		payload = r.candidatePayload(candidateID)
	}

	r.matched[candidateID] = struct{}{}
	r.matches = append(r.matches, Match{CandidateID: candidateID, Payload: payload})

	r.broadcastLocked(Matched{CandidateID: candidateID, Payload: payload})

	return true, nil
}

func (r *Room) candidatePayload(candidateID int64) json.RawMessage {
	i, ok := r.byID[candidateID]
	if !ok {
		return nil
	}

	data, err := json.Marshal(r.candidates[i])
	if err != nil {
		return nil
	}

	return data
}
