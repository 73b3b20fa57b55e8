package session

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/engine"
)

type memRecorder struct {
	got chan GameRecord
}

func (m *memRecorder) RecordGame(_ context.Context, rec GameRecord) error {
	m.got <- rec
	return nil
}

func playAIGame(t *testing.T, seed uint64, rec Recorder, levels ...int) (*Session, GameFinished, []Event) {
	t.Helper()
	s, err := New(context.Background(), Config{
		ID:       "sim",
		Code:     "111111",
		Rules:    fastRules(),
		Logger:   zap.NewNop(),
		Rand:     rand.New(rand.NewPCG(seed, seed+1)),
		Recorder: rec,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	out := watch(t, s)
	ctx := context.Background()
	for _, lvl := range levels {
		_, err := s.AddAISeat(ctx, Operator, lvl)
		require.NoError(t, err)
	}
	require.NoError(t, s.RequestStart(ctx, Operator))

	var seen []Event
	for {
		ev := waitFor[Event](t, out)
		seen = append(seen, ev)
		if fin, ok := ev.(GameFinished); ok {
			return s, fin, seen
		}
	}
}

func TestGame_RunsToFinishAndConservesCards(t *testing.T) {
	s, fin, events := playAIGame(t, 30, nil, 1, 4, 7, 10)
	rules := fastRules()

	rounds := 0
	for _, ev := range events {
		if _, ok := ev.(RoundOpened); ok {
			rounds++
		}
	}
	assert.Equal(t, rules.TotalRounds, rounds)

	require.Len(t, fin.Ranking, 4)
	for i := 1; i < len(fin.Ranking); i++ {
		prev, cur := fin.Ranking[i-1], fin.Ranking[i]
		require.GreaterOrEqual(t, prev.Score, cur.Score)
		if prev.Score == cur.Score {
			require.Less(t, prev.Seat, cur.Seat, "ties keep join order")
		}
		require.Equal(t, i+1, cur.Position)
	}

	v := state(t, s)
	deckTotal := 0
	for x := rules.StockMin; x <= rules.StockMax; x++ {
		deckTotal += x
	}
	for x := rules.VultureMin; x <= rules.VultureMax; x++ {
		deckTotal += x
	}
	total := engine.SumValues(v.CarriedOver)
	for _, seat := range v.Seats {
		assert.Empty(t, seat.Hand)
		assert.Equal(t, engine.SumValues(seat.Acquired), seat.Score)
		total += seat.Score
	}
	assert.Equal(t, deckTotal, total, "every drawn card is held by exactly one seat or still carried")
	assert.ErrorIs(t, s.SubmitBid(context.Background(), 0, 1), ErrRoundNotOpen)
	_, err := s.JoinSeat(context.Background(), "late")
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestGame_SameSeedSameResult(t *testing.T) {
	_, a, _ := playAIGame(t, 31, nil, 2, 6, 9)
	_, b, _ := playAIGame(t, 31, nil, 2, 6, 9)
	assert.Equal(t, a.Ranking, b.Ranking)
}

func TestGame_RecordsFinishedGame(t *testing.T) {
	rec := &memRecorder{got: make(chan GameRecord, 1)}
	_, fin, _ := playAIGame(t, 32, rec, 3, 3, 3)

	select {
	case got := <-rec.got:
		assert.Equal(t, "sim", got.SessionID)
		assert.Equal(t, "111111", got.Code)
		assert.Equal(t, fastRules().TotalRounds, got.Rounds)
		assert.Equal(t, fin.Ranking, got.Standings)
	case <-time.After(within):
		t.Fatalf("game was not recorded")
	}
}

// idle builds a session without its loop so handlers can be driven directly.
func idle(t *testing.T) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		rules:   fastRules(),
		log:     zap.NewNop(),
		rng:     rand.New(rand.NewPCG(40, 41)),
		inbox:   make(chan Msg, 64),
		ctx:     ctx,
		cancel:  cancel,
		phase:   PhaseLobby,
		host:    engine.NoSeat,
		clients: map[string]chan Event{},
	}
	t.Cleanup(func() {
		s.stopTimers()
		cancel()
	})
	return s
}

func TestHalt_EmptyDeckMidGame(t *testing.T) {
	s := idle(t)
	out := make(chan Event, 256)
	s.clients["w"] = out

	for _, n := range []string{"a", "b", "c"} {
		_, err := s.join(n)
		require.NoError(t, err)
	}
	require.NoError(t, s.start())

	s.round.stopTimers()
	s.deck = &engine.Deck{}
	s.openRound()

	assert.Equal(t, PhaseHalted, s.phase)
	assert.ErrorIs(t, s.halted, ErrInvariant)
	assert.ErrorIs(t, s.halted, engine.ErrDeckEmpty)
	assert.NotNil(t, waitFor[SessionHalted](t, out))

	assert.ErrorIs(t, s.submitBid(0, 4), ErrSessionHalted)
	assert.ErrorIs(t, s.start(), ErrSessionHalted)
	assert.ErrorIs(t, s.removeSeat(0), ErrSessionHalted)
	assert.NotEmpty(t, s.view().Halted)
}

func TestGame_ShortDeckFinishesEarly(t *testing.T) {
	s := idle(t)
	s.rules.StockMax = 3
	s.rules.VultureMin = -2
	for _, n := range []string{"a", "b", "c"} {
		_, err := s.join(n)
		require.NoError(t, err)
	}
	require.NoError(t, s.start())

	for r := 1; s.phase == PhaseBidding; r++ {
		for id := range 3 {
			require.NoError(t, s.submitBid(engine.SeatID(id), r))
		}
	}

	assert.Equal(t, PhaseFinished, s.phase)
	assert.Equal(t, 5, s.played)
	assert.Len(t, s.carried, 5, "every round batted, so the whole deck is still carried")
	assert.Len(t, s.ranking, 3)
}

func TestHalt_BidNotInHandAtSpendTime(t *testing.T) {
	s := idle(t)
	for _, n := range []string{"a", "b", "c"} {
		_, err := s.join(n)
		require.NoError(t, err)
	}
	require.NoError(t, s.start())

	require.NoError(t, s.submitBid(0, 5))
	require.NoError(t, s.submitBid(1, 6))
	s.seats[1].hand.Remove(6)
	require.NoError(t, s.submitBid(2, 7))

	assert.Equal(t, PhaseHalted, s.phase)
	assert.ErrorIs(t, s.halted, ErrInvariant)
}

func TestStaleTimersAreNoOps(t *testing.T) {
	s := idle(t)
	for _, n := range []string{"a", "b", "c"} {
		_, err := s.join(n)
		require.NoError(t, err)
	}
	require.NoError(t, s.start())
	s.rules.NextRoundDelay = 1 << 62 // hold the game after round 1

	require.NoError(t, s.submitBid(0, 1))
	require.NoError(t, s.submitBid(1, 2))
	require.NoError(t, s.submitBid(2, 3))
	before := s.view()

	s.handle(deadlineFired{round: 1})
	s.handle(thinkFired{round: 1, seat: 0})
	s.handle(revealDone{round: 1})
	s.handle(nextRound{round: 7})

	after := s.view()
	assert.Equal(t, before.Phase, after.Phase)
	assert.Equal(t, before.Seats, after.Seats)
	assert.Equal(t, before.Round, after.Round)
}
