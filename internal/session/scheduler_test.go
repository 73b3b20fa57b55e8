package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/vulture-market/internal/engine"
)

func startHumans(t *testing.T, rules engine.Rules, seed uint64, n int) (*Session, chan Event, []engine.SeatID) {
	t.Helper()
	s := newTestSession(t, rules, seed)
	out := watch(t, s)
	names := []string{"a", "b", "c", "d", "e", "f"}[:n]
	ids := seatHumans(t, s, names...)
	require.NoError(t, s.RequestStart(context.Background(), Operator))
	return s, out, ids
}

func TestBidding_BattedBidsLoseToLowerUniqueBid(t *testing.T) {
	s, out, ids := startHumans(t, fastRules(), 10, 3)
	ctx := context.Background()

	opened := waitFor[RoundOpened](t, out)
	assert.Equal(t, 1, opened.Round)
	assert.Equal(t, 0, opened.CarriedOverCount)

	require.NoError(t, s.SubmitBid(ctx, ids[0], 7))
	require.NoError(t, s.SubmitBid(ctx, ids[1], 7))
	require.NoError(t, s.SubmitBid(ctx, ids[2], 5))

	revealed := waitFor[BidsRevealed](t, out)
	assert.Equal(t, []int{7}, revealed.Batted)
	assert.Equal(t, ids[2], revealed.Winner)
	assert.False(t, revealed.CarriedOver)
	assert.Equal(t, map[engine.SeatID]int{ids[0]: 7, ids[1]: 7, ids[2]: 5}, revealed.Bids)

	awarded := waitFor[CardsAwarded](t, out)
	assert.Equal(t, ids[2], awarded.Seat)
	require.Len(t, awarded.Cards, 1)
	assert.Equal(t, opened.Stock, awarded.Cards[0])
	assert.Equal(t, opened.Stock.Value, awarded.Scores[ids[2]])
	assert.Zero(t, awarded.Scores[ids[0]])

	next := waitFor[RoundOpened](t, out)
	assert.Equal(t, 2, next.Round)

	v := state(t, s)
	for _, seat := range v.Seats {
		assert.Len(t, seat.Hand, 14, "seat %d spent exactly one card", seat.ID)
	}
	assert.NotContains(t, v.Seats[0].Hand, 7)
	assert.NotContains(t, v.Seats[2].Hand, 5)
}

func TestBidding_AllBattedCarriesOver(t *testing.T) {
	s, out, ids := startHumans(t, fastRules(), 11, 3)
	ctx := context.Background()

	first := waitFor[RoundOpened](t, out)
	for _, id := range ids {
		require.NoError(t, s.SubmitBid(ctx, id, 3))
	}

	revealed := waitFor[BidsRevealed](t, out)
	assert.True(t, revealed.CarriedOver)
	assert.Equal(t, engine.NoSeat, revealed.Winner)

	carried := waitFor[CardsCarried](t, out)
	assert.Equal(t, []engine.Card{first.Stock}, carried.Cards)

	second := waitFor[RoundOpened](t, out)
	assert.Equal(t, 1, second.CarriedOverCount)

	v := state(t, s)
	for _, seat := range v.Seats {
		assert.Zero(t, seat.Score)
		assert.Empty(t, seat.Acquired)
	}
	assert.Equal(t, []engine.Card{first.Stock}, v.CarriedOver)

	// The next clean winner takes the pool too.
	require.NoError(t, s.SubmitBid(ctx, ids[0], 1))
	require.NoError(t, s.SubmitBid(ctx, ids[1], 2))
	require.NoError(t, s.SubmitBid(ctx, ids[2], 4))
	awarded := waitFor[CardsAwarded](t, out)
	assert.Len(t, awarded.Cards, 2)
	assert.Equal(t, first.Stock.Value+second.Stock.Value, awarded.Scores[awarded.Seat])
	assert.Empty(t, state(t, s).CarriedOver)
}

func TestBidding_Rejections(t *testing.T) {
	s := newTestSession(t, fastRules(), 12)
	out := watch(t, s)
	ctx := context.Background()
	ids := seatHumans(t, s, "a", "b", "c")

	assert.ErrorIs(t, s.SubmitBid(ctx, ids[0], 5), ErrRoundNotOpen, "lobby takes no bids")

	require.NoError(t, s.RequestStart(ctx, Operator))
	waitFor[RoundOpened](t, out)

	require.NoError(t, s.SubmitBid(ctx, ids[0], 5))
	assert.ErrorIs(t, s.SubmitBid(ctx, ids[0], 6), ErrAlreadyBid)
	assert.ErrorIs(t, s.SubmitBid(ctx, ids[1], 16), ErrCardNotHeld)
	assert.ErrorIs(t, s.SubmitBid(ctx, ids[1], 0), ErrCardNotHeld)
	assert.ErrorIs(t, s.SubmitBid(ctx, 99, 5), ErrUnknownSeat)

	v := state(t, s)
	assert.Equal(t, []engine.SeatID{ids[0]}, v.Locked)

	require.NoError(t, s.SubmitBid(ctx, ids[1], 6))
	require.NoError(t, s.SubmitBid(ctx, ids[2], 8))
	waitFor[RoundOpened](t, out)

	assert.ErrorIs(t, s.SubmitBid(ctx, ids[0], 5), ErrCardNotHeld, "spent cards do not come back")
}

func TestBidding_BidLockedWithholdsValue(t *testing.T) {
	s, out, ids := startHumans(t, fastRules(), 13, 3)
	waitFor[RoundOpened](t, out)

	require.NoError(t, s.SubmitBid(context.Background(), ids[1], 9))
	locked := waitFor[BidLocked](t, out)
	assert.Equal(t, BidLocked{Round: 1, Seat: ids[1]}, locked)
}

func TestBidding_DeadlineFillsSilentHuman(t *testing.T) {
	rules := fastRules()
	rules.BidDeadline = 80 * time.Millisecond
	rules.NextRoundDelay = time.Hour
	s := newTestSession(t, rules, 14)
	out := watch(t, s)
	ctx := context.Background()

	human := seatHumans(t, s, "quiet")[0]
	_, err := s.AddAISeat(ctx, Operator, 5)
	require.NoError(t, err)
	_, err = s.AddAISeat(ctx, Operator, 9)
	require.NoError(t, err)
	require.NoError(t, s.RequestStart(ctx, Operator))

	revealed := waitFor[BidsRevealed](t, out)
	assert.Equal(t, 1, revealed.Round)
	require.Len(t, revealed.Bids, 3)
	assert.Contains(t, revealed.Bids, human)

	v := state(t, s)
	assert.Len(t, v.Seats[0].Hand, 14)
	assert.NotContains(t, v.Seats[0].Hand, revealed.Bids[human])
}

func TestBidding_LateDeadlineIsIgnored(t *testing.T) {
	rules := fastRules()
	rules.BidDeadline = 60 * time.Millisecond
	s, out, ids := startHumans(t, rules, 15, 3)
	ctx := context.Background()
	waitFor[RoundOpened](t, out)

	for i, id := range ids {
		require.NoError(t, s.SubmitBid(ctx, id, i+1))
	}
	require.Equal(t, 1, waitFor[BidsRevealed](t, out).Round)

	// Round 2 stays unanswered; its own deadline closes it. Round 1's timer
	// must not have produced a second reveal in between.
	next := waitFor[BidsRevealed](t, out)
	assert.Equal(t, 2, next.Round)
}

func TestBidding_AIOnlyRoundClosesBeforeDeadline(t *testing.T) {
	rules := fastRules()
	rules.BidDeadline = time.Hour
	s := newTestSession(t, rules, 16)
	out := watch(t, s)
	ctx := context.Background()
	for _, lvl := range []int{1, 5, 10} {
		_, err := s.AddAISeat(ctx, Operator, lvl)
		require.NoError(t, err)
	}
	require.NoError(t, s.RequestStart(ctx, Operator))

	revealed := waitFor[BidsRevealed](t, out)
	assert.Len(t, revealed.Bids, 3)
}
