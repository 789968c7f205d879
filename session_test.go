/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/Seednode/moviematch/catalog"
	"github.com/Seednode/moviematch/protocol"
	"github.com/Seednode/moviematch/rooms"
)

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []rooms.Event
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Notify(ev rooms.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, ev)
}

func (c *fakeConn) matches() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []int64
	for _, ev := range c.events {
		if m, ok := ev.(rooms.Matched); ok {
			out = append(out, m.CandidateID)
		}
	}

	return out
}

func testMovies() []catalog.Movie {
	return []catalog.Movie{
		{ID: 101, Title: "First", Year: 2001},
		{ID: 102, Title: "Second", Year: 2002},
		{ID: 103, Title: "Third", Year: 2003},
	}
}

func newTestRegistry(t *testing.T) *rooms.Registry {
	t.Helper()

	reg := rooms.New(rooms.Options{
		Source: catalog.Static(testMovies()),
		Logger: zap.NewNop(),
	})
	t.Cleanup(reg.Close)

	return reg
}

func newTestSession(reg *rooms.Registry, id, visitor string) (*session, *fakeConn) {
	conn := &fakeConn{id: id}

	return newSession(reg, conn, visitor, zap.NewNop()), conn
}

func TestSessionCreateJoinAndMatch(t *testing.T) {
	reg := newTestRegistry(t)

	alice, aliceConn := newTestSession(reg, "a", "visitor-a")
	bob, bobConn := newTestSession(reg, "b", "visitor-b")

	created := alice.create(context.Background(), "")
	if created.Error != "" {
		t.Fatalf("unexpected create error: %s", created.Error)
	}
	if created.PlayerSlot != 0 || created.UserCount != 1 || len(created.Movies) != 3 {
		t.Fatalf("unexpected create reply: %+v", created)
	}

	joined := bob.join(created.Code, "")
	if joined.Error != "" {
		t.Fatalf("unexpected join error: %s", joined.Error)
	}
	if joined.PlayerSlot != 1 || joined.UserCount != 2 {
		t.Fatalf("unexpected join reply: %+v", joined)
	}

	alice.swipe(protocol.SwipeRequest{MovieID: 102, Direction: "right"})
	bob.swipe(protocol.SwipeRequest{MovieID: 102, Direction: "like", MovieData: json.RawMessage(`{"id":102}`)})

	for name, conn := range map[string]*fakeConn{"alice": aliceConn, "bob": bobConn} {
		got := conn.matches()
		if len(got) != 1 || got[0] != 102 {
			t.Fatalf("unexpected matches for %s: got %v want [102]", name, got)
		}
	}
}

func TestSessionErrors(t *testing.T) {
	reg := newTestRegistry(t)

	owner, _ := newTestSession(reg, "a", "")
	second, _ := newTestSession(reg, "b", "")
	third, _ := newTestSession(reg, "c", "")
	lost, _ := newTestSession(reg, "d", "")

	if got := lost.join("0000", "").Error; got != protocol.ErrRoomNotFound {
		t.Fatalf("unexpected error: got %q want %q", got, protocol.ErrRoomNotFound)
	}
	if got := lost.movies().Error; got != protocol.ErrNotInRoom {
		t.Fatalf("unexpected error: got %q want %q", got, protocol.ErrNotInRoom)
	}

	code := owner.create(context.Background(), "").Code
	second.join(code, "")

	if got := third.join(code, "").Error; got != protocol.ErrRoomFull {
		t.Fatalf("unexpected error: got %q want %q", got, protocol.ErrRoomFull)
	}
	if third.room() != "" {
		t.Fatalf("rejected session should not hold a room: got %q", third.room())
	}
}

func TestSessionReservedSeat(t *testing.T) {
	reg := newTestRegistry(t)

	alice, _ := newTestSession(reg, "a", "visitor-a")
	bob, _ := newTestSession(reg, "b", "visitor-b")
	carol, _ := newTestSession(reg, "c", "visitor-c")

	code := alice.create(context.Background(), "").Code
	bob.join(code, "")
	bob.close()

	if got := carol.join(code, "").Error; got != protocol.ErrSeatReserved {
		t.Fatalf("unexpected error: got %q want %q", got, protocol.ErrSeatReserved)
	}

	again, _ := newTestSession(reg, "b2", "visitor-b")
	if reply := again.join(code, ""); reply.Error != "" || reply.PlayerSlot != 1 {
		t.Fatalf("unexpected reclaim reply: %+v", reply)
	}
}

func TestSessionMoviesReturnsRoomCandidates(t *testing.T) {
	reg := newTestRegistry(t)

	s, _ := newTestSession(reg, "a", "")
	created := s.create(context.Background(), "")

	reply := s.movies()
	if reply.Error != "" {
		t.Fatalf("unexpected error: %s", reply.Error)
	}
	if len(reply.Movies) != len(created.Movies) {
		t.Fatalf("unexpected movie count: got %d want %d", len(reply.Movies), len(created.Movies))
	}
	for i := range reply.Movies {
		if reply.Movies[i].ID != created.Movies[i].ID {
			t.Fatalf("movie order differs at %d: got %d want %d", i, reply.Movies[i].ID, created.Movies[i].ID)
		}
	}
}

func TestSessionCreatingAgainLeavesPreviousRoom(t *testing.T) {
	reg := newTestRegistry(t)

	s, _ := newTestSession(reg, "a", "")

	first := s.create(context.Background(), "").Code
	second := s.create(context.Background(), "").Code

	if first == second {
		t.Fatalf("expected a fresh room code, got %q twice", first)
	}

	st, err := reg.Status(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Occupants != 0 {
		t.Fatalf("previous room should be empty: got %d occupants", st.Occupants)
	}
}

func TestSessionCloseNotifiesRemainingOccupant(t *testing.T) {
	reg := newTestRegistry(t)

	alice, aliceConn := newTestSession(reg, "a", "")
	bob, _ := newTestSession(reg, "b", "")

	code := alice.create(context.Background(), "").Code
	bob.join(code, "")
	bob.close()

	aliceConn.mu.Lock()
	last := aliceConn.events[len(aliceConn.events)-1]
	aliceConn.mu.Unlock()

	left, ok := last.(rooms.UserLeft)
	if !ok {
		t.Fatalf("unexpected last event: got %T want rooms.UserLeft", last)
	}
	if left.Occupants != 1 {
		t.Fatalf("unexpected occupants: got %d want 1", left.Occupants)
	}
}

func TestSessionRejoinReplaysMatches(t *testing.T) {
	reg := newTestRegistry(t)

	alice, _ := newTestSession(reg, "a", "visitor-a")
	bob, _ := newTestSession(reg, "b", "visitor-b")

	code := alice.create(context.Background(), "").Code
	bob.join(code, "")

	alice.swipe(protocol.SwipeRequest{MovieID: 101, Direction: "like"})
	bob.swipe(protocol.SwipeRequest{MovieID: 101, Direction: "like"})
	bob.close()

	again, _ := newTestSession(reg, "b2", "visitor-b")
	reply := again.join(code, "")

	if reply.PlayerSlot != 1 {
		t.Fatalf("unexpected slot: got %d want 1", reply.PlayerSlot)
	}
	if len(reply.Matches) != 1 || reply.Matches[0] != 101 {
		t.Fatalf("unexpected replayed matches: got %v want [101]", reply.Matches)
	}

	var movie catalog.Movie
	if err := json.Unmarshal(reply.MatchData[101], &movie); err != nil {
		t.Fatalf("unexpected match data error: %v", err)
	}
	if movie.Title != "First" {
		t.Fatalf("unexpected match payload: got %q want %q", movie.Title, "First")
	}
}

func TestSessionIgnoresBadSwipes(t *testing.T) {
	reg := newTestRegistry(t)

	alice, aliceConn := newTestSession(reg, "a", "")
	bob, _ := newTestSession(reg, "b", "")

	alice.swipe(protocol.SwipeRequest{MovieID: 101, Direction: "like"})

	code := alice.create(context.Background(), "").Code
	bob.join(code, "")

	alice.swipe(protocol.SwipeRequest{MovieID: 101, Direction: "sideways"})
	bob.swipe(protocol.SwipeRequest{MovieID: 101, Direction: "like"})

	if got := aliceConn.matches(); len(got) != 0 {
		t.Fatalf("unexpected matches: got %v want none", got)
	}
}

func TestEventMessage(t *testing.T) {
	cases := []struct {
		name string
		ev   rooms.Event
		want string
	}{
		{"joined", rooms.UserJoined{Occupants: 2}, protocol.TypeUserJoined},
		{"left", rooms.UserLeft{Occupants: 1}, protocol.TypeUserLeft},
		{"match", rooms.Matched{CandidateID: 7}, protocol.TypeMatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name, msg := eventMessage(tc.ev)
			if name != tc.want {
				t.Fatalf("unexpected event name: got %q want %q", name, tc.want)
			}

			data, err := json.Marshal(msg)
			if err != nil {
				t.Fatalf("unexpected marshal error: %v", err)
			}

			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("unexpected unmarshal error: %v", err)
			}
			if env.Type != tc.want {
				t.Fatalf("unexpected type field: got %q want %q", env.Type, tc.want)
			}
		})
	}
}
