package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/DoyleJ11/vulture-market/internal/ai"
	"github.com/DoyleJ11/vulture-market/internal/engine"
)

var ErrRoundNotOpen = errors.New("round is not open for bids")
var ErrAlreadyBid = errors.New("seat already bid this round")
var ErrCardNotHeld = errors.New("card not in hand")
var ErrUnknownSeat = errors.New("unknown seat")
var ErrSeatAutoplayed = errors.New("seat is under autoplay")
var ErrSessionFull = errors.New("session is full")
var ErrWrongPhase = errors.New("not allowed in this phase")
var ErrNotEnoughSeats = errors.New("not enough seats to start")
var ErrSessionClosed = errors.New("session closed")
var ErrSessionHalted = errors.New("session halted")
var ErrNotHost = errors.New("only the host can do that")
var ErrNotAISeat = errors.New("seat is not an ai seat")

// Operator acts with host rights. It is for in-process callers such as the
// simulator; transports pass the caller's own seat instead.
const Operator engine.SeatID = -2

// ErrInvariant marks a broken bookkeeping rule. The session stops when it sees one.
var ErrInvariant = errors.New("invariant violated")

type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseBidding   Phase = "bidding"
	PhaseResolving Phase = "resolving"
	PhaseFinished  Phase = "finished"
	PhaseHalted    Phase = "halted"
)

type seat struct {
	id       engine.SeatID
	name     string
	isAI     bool
	hand     engine.Hand
	acquired []engine.Card
	score    int
	params   *ai.Params
	rng      *rand.Rand
}

func (st *seat) view() SeatView {
	v := SeatView{
		ID:       st.id,
		Name:     st.name,
		IsAI:     st.isAI,
		Hand:     st.hand.Values(),
		Acquired: slices.Clone(st.acquired),
		Score:    st.score,
	}
	if st.params != nil {
		v.Level = st.params.Level
	}
	return v
}

// round is the open or resolving round. It is dropped once its outcome is applied.
type round struct {
	index    int
	stock    engine.Card
	bids     map[engine.SeatID]int
	deadline *time.Timer
	thinkers map[engine.SeatID]*time.Timer
	outcome  engine.Outcome
}

func (r *round) locked(id engine.SeatID) bool {
	_, ok := r.bids[id]
	return ok
}

func (r *round) stopTimers() {
	if r.deadline != nil {
		r.deadline.Stop()
		r.deadline = nil
	}
	for id, t := range r.thinkers {
		t.Stop()
		delete(r.thinkers, id)
	}
}

type SeatView struct {
	ID       engine.SeatID
	Name     string
	IsAI     bool
	Level    int
	Hand     []int
	Acquired []engine.Card
	Score    int
}

// View is a copy of the session state, safe to read outside the loop.
type View struct {
	ID          string
	Code        string
	Phase       Phase
	Round       int
	TotalRounds int
	Stock       *engine.Card
	CarriedOver []engine.Card
	Seats       []SeatView
	Host        engine.SeatID // NoSeat when no human is seated
	Locked      []engine.SeatID
	Ranking     []engine.Standing
	Humans      int
	Clients     int
	Halted      string
}

// GameRecord is what a finished game leaves behind.
type GameRecord struct {
	SessionID  string
	Code       string
	Rounds     int
	FinishedAt time.Time
	Standings  []engine.Standing
}

// Recorder archives finished games.
type Recorder interface {
	RecordGame(ctx context.Context, rec GameRecord) error
}
