/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package rooms pairs two connections into a room, records their swipes
// per slot and announces movies both slots liked.
package rooms

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/moviematch/catalog"
)

const (
	codeLength = 4
	// Codes run from 1000 to 9999.
	codeSpace = 9000

	DefaultFetchTimeout = 5 * time.Second
	DefaultReapDelay    = 5 * time.Minute
)

// Options configures a Registry. Zero values fall back to defaults.
type Options struct {
	Source       catalog.Source
	Fallback     func() []catalog.Movie
	FetchTimeout time.Duration
	ReapDelay    time.Duration
	Seating      SeatPolicy
	Logger       *zap.Logger

	// AfterFunc schedules f after d and returns a function that cancels
	// it. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
	// Codes generates candidate room codes. Defaults to a crypto/rand
	// 4-digit generator.
	Codes func() (string, error)
	Now   func() time.Time
}

// Registry owns every live room, keyed by code.
type Registry struct {
	opts Options
	log  *zap.Logger

	mu    sync.Mutex
	rooms map[string]*Room
}

func New(opts Options) *Registry {
	if opts.Fallback == nil {
		opts.Fallback = catalog.Fallback
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.ReapDelay <= 0 {
		opts.ReapDelay = DefaultReapDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	if opts.Codes == nil {
		opts.Codes = randomCode
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Registry{
		opts:  opts,
		log:   opts.Logger,
		rooms: make(map[string]*Room),
	}
}

// randomCode returns a uniformly random code from 1000 to 9999.
func randomCode() (string, error) {
	const max = byte(255 - (256 % 10))

	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if b > max {
				continue
			}

			d := b % 10
			if len(out) == 0 && d == 0 {
				continue
			}

			out = append(out, '0'+d)
			if len(out) == codeLength {
				return string(out), nil
			}
		}
	}
}

// candidates asks the source for a list, bounded by FetchTimeout even
// if the source ignores its context. Any failure yields the fallback.
func (reg *Registry) candidates(ctx context.Context) []catalog.Movie {
	if reg.opts.Source == nil {
		return reg.opts.Fallback()
	}

	ctx, cancel := context.WithTimeout(ctx, reg.opts.FetchTimeout)
	defer cancel()

	type result struct {
		movies []catalog.Movie
		err    error
	}

	ch := make(chan result, 1)
	go func() {
		movies, err := reg.opts.Source.Candidates(ctx)
		ch <- result{movies: movies, err: err}
	}()

	var err error
	select {
	case res := <-ch:
		if res.err == nil && len(res.movies) > 0 {
			return res.movies
		}
		err = res.err
		if err == nil {
			err = catalog.ErrEmpty
		}
	case <-ctx.Done():
		err = ctx.Err()
	}

	reg.log.Warn("candidate source failed, using fallback list", zap.Error(err))

	return reg.opts.Fallback()
}

// Create opens a new room with conn seated in slot 0.
func (reg *Registry) Create(ctx context.Context, conn Conn, visitorID string) (JoinResult, error) {
	movies := reg.candidates(ctx)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if len(reg.rooms) >= codeSpace {
		return JoinResult{}, ErrCodesExhausted
	}

	var code string
	for {
		c, err := reg.opts.Codes()
		if err != nil {
			return JoinResult{}, err
		}

		if _, taken := reg.rooms[c]; !taken {
			code = c
			break
		}
	}

	room := newRoom(code, movies, reg.opts.Now())
	room.seats[0] = conn
	room.visitors[0] = visitorID
	reg.rooms[code] = room

	reg.log.Info("room created",
		zap.String("code", code),
		zap.String("conn", conn.ID()),
		zap.Int("candidates", len(movies)),
	)

	room.mu.Lock()
	defer room.mu.Unlock()

	return room.resultLocked(0), nil
}

func (reg *Registry) Lookup(code string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[code]

	return room, ok
}

// Join seats conn in the room identified by code.
func (reg *Registry) Join(code string, conn Conn, visitorID string) (JoinResult, error) {
	room, ok := reg.Lookup(code)
	if !ok {
		return JoinResult{}, ErrRoomNotFound
	}

	res, err := room.join(reg.opts.Seating, conn, visitorID)
	if err != nil {
		reg.log.Info("join rejected",
			zap.String("code", code),
			zap.String("conn", conn.ID()),
			zap.Error(err),
		)

		return JoinResult{}, err
	}

	reg.log.Info("joined room",
		zap.String("code", code),
		zap.String("conn", conn.ID()),
		zap.Int("slot", res.Slot),
		zap.Int("occupants", res.Occupants),
	)

	return res, nil
}

// Leave frees the seat held by connID. The slot's swipes are kept. An
// emptied room is reaped after ReapDelay unless someone joins first.
func (reg *Registry) Leave(code, connID string) {
	room, ok := reg.Lookup(code)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	slot, ok := room.vacateLocked(connID)
	if !ok {
		return
	}

	occupants := room.occupantsLocked()

	reg.log.Info("left room",
		zap.String("code", code),
		zap.String("conn", connID),
		zap.Int("slot", slot),
		zap.Int("occupants", occupants),
	)

	if occupants == 0 && !room.closed {
		reg.scheduleReapLocked(room)
	}
}

// scheduleReapLocked must be called with room.mu held.
func (reg *Registry) scheduleReapLocked(room *Room) {
	room.cancelReapLocked()

	epoch := room.idleEpoch
	room.stopReap = reg.opts.AfterFunc(reg.opts.ReapDelay, func() {
		reg.reap(room, epoch)
	})
}

// reap deletes room if it is still registered, still empty and has not
// been repopulated since the reap was scheduled.
func (reg *Registry) reap(room *Room, epoch uint64) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.rooms[room.code] != room {
		return false
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.occupantsLocked() > 0 || room.idleEpoch != epoch {
		return false
	}

	room.closed = true
	room.stopReap = nil
	delete(reg.rooms, room.code)

	reg.log.Info("room reaped",
		zap.String("code", room.code),
		zap.Int("matches", len(room.matches)),
	)

	return true
}

// Swipe records a decision for connID's slot and, for a like, checks the
// other slot. It reports whether this swipe produced a match.
func (reg *Registry) Swipe(code, connID string, candidateID int64, decision Decision, payload json.RawMessage) (bool, error) {
	room, ok := reg.Lookup(code)
	if !ok {
		return false, ErrRoomNotFound
	}

	matched, err := room.swipe(connID, candidateID, decision, payload)
	if err != nil {
		return false, err
	}

	reg.log.Debug("swipe",
		zap.String("code", code),
		zap.String("conn", connID),
		zap.Int64("candidate", candidateID),
		zap.Stringer("decision", decision),
	)

	if matched {
		reg.log.Info("match",
			zap.String("code", code),
			zap.Int64("candidate", candidateID),
		)
	}

	return matched, nil
}

func (reg *Registry) Candidates(code string) ([]catalog.Movie, error) {
	room, ok := reg.Lookup(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	return room.Candidates(), nil
}

func (reg *Registry) Status(code string) (Status, error) {
	room, ok := reg.Lookup(code)
	if !ok {
		return Status{}, ErrRoomNotFound
	}

	return room.Status(), nil
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.rooms)
}

// Close cancels pending reaps. Rooms stay readable.
func (reg *Registry) Close() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, room := range reg.rooms {
		room.mu.Lock()
		room.cancelReapLocked()
		room.mu.Unlock()
	}
}
