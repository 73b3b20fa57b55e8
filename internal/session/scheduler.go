package session

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/ai"
	"github.com/DoyleJ11/vulture-market/internal/engine"
)

// openRound enters Bidding: draw, reset bids, arm the AI think timers and the
// round deadline.
func (s *Session) openRound() {
	stock, err := s.deck.Draw()
	if err != nil {
		s.halt(fmt.Errorf("%w: open round %d of %d: %w", ErrInvariant, s.played+1, s.rules.TotalRounds, err))
		return
	}
	s.played++

	r := &round{
		index:    s.played,
		stock:    stock,
		bids:     make(map[engine.SeatID]int, len(s.seats)),
		thinkers: make(map[engine.SeatID]*time.Timer),
	}
	s.round = r
	s.phase = PhaseBidding

	s.log.Debug("round opened",
		zap.Int("round", r.index),
		zap.Int("stock", stock.Value),
		zap.Int("carried", len(s.carried)),
	)
	s.broadcast(RoundOpened{Round: r.index, Stock: stock, CarriedOverCount: len(s.carried)})

	for _, st := range s.seats {
		if st.isAI {
			s.scheduleThink(r, st)
		}
	}
	r.deadline = s.after(s.rules.BidDeadline, deadlineFired{round: r.index})
}

func (s *Session) scheduleThink(r *round, st *seat) {
	delay := s.rules.ThinkMin
	if spread := s.rules.ThinkMax - s.rules.ThinkMin; spread > 0 {
		delay += time.Duration(s.rng.Int64N(int64(spread) + 1))
	}
	r.thinkers[st.id] = s.after(delay, thinkFired{round: r.index, seat: st.id})
}

// open returns the current round if it is still taking bids for index.
func (s *Session) open(index int) *round {
	if s.phase != PhaseBidding || s.round == nil || s.round.index != index {
		return nil
	}
	return s.round
}

func (s *Session) submitBid(id engine.SeatID, value int) error {
	st := s.seat(id)
	if st == nil {
		return ErrUnknownSeat
	}
	if s.phase == PhaseHalted {
		return ErrSessionHalted
	}
	if s.phase != PhaseBidding {
		return ErrRoundNotOpen
	}
	if st.isAI {
		return ErrSeatAutoplayed
	}
	if err := s.lockBid(s.round, st, value); err != nil {
		return err
	}
	s.collectIfComplete()
	return nil
}

// lockBid records a seat's bid. Every bid, human or AI, goes through here.
func (s *Session) lockBid(r *round, st *seat, value int) error {
	if r == nil || s.open(r.index) == nil {
		return ErrRoundNotOpen
	}
	if r.locked(st.id) {
		return ErrAlreadyBid
	}
	if !st.hand.Has(value) {
		return ErrCardNotHeld
	}

	r.bids[st.id] = value
	if t, ok := r.thinkers[st.id]; ok {
		t.Stop()
		delete(r.thinkers, st.id)
	}
	s.broadcast(BidLocked{Round: r.index, Seat: st.id})
	return nil
}

// collectIfComplete closes the round once every seat has a bid.
func (s *Session) collectIfComplete() {
	r := s.round
	if r == nil || s.phase != PhaseBidding || len(r.bids) < len(s.seats) {
		return
	}
	r.stopTimers()
	s.closeRound()
}

func (s *Session) onThink(m thinkFired) {
	r := s.open(m.round)
	if r == nil {
		return
	}
	delete(r.thinkers, m.seat)
	st := s.seat(m.seat)
	if st == nil || !st.isAI || r.locked(st.id) {
		return
	}
	s.playAI(r, st)
	s.collectIfComplete()
}

// onDeadline fills every seat still missing a bid, then closes the round.
func (s *Session) onDeadline(m deadlineFired) {
	r := s.open(m.round)
	if r == nil {
		return
	}
	r.deadline = nil

	for _, st := range s.seats {
		if r.locked(st.id) {
			continue
		}
		if st.isAI {
			if !s.playAI(r, st) {
				return
			}
			continue
		}
		hand := st.hand.Values()
		if len(hand) == 0 {
			s.halt(fmt.Errorf("%w: seat %d has no cards in round %d", ErrInvariant, st.id, r.index))
			return
		}
		value := hand[s.rng.IntN(len(hand))]
		s.log.Debug("deadline fill", zap.Int("round", r.index), zap.Int("seat", int(st.id)))
		if err := s.lockBid(r, st, value); err != nil {
			s.halt(fmt.Errorf("%w: deadline fill for seat %d: %w", ErrInvariant, st.id, err))
			return
		}
	}
	s.collectIfComplete()
}

// playAI asks the strategy for a bid and locks it. It reports false when the
// session had to halt.
func (s *Session) playAI(r *round, st *seat) bool {
	others := make([][]int, 0, len(s.seats)-1)
	for _, o := range s.seats {
		if o.id != st.id {
			others = append(others, o.hand.Values())
		}
	}
	value, ok := ai.Decide(*st.params, ai.Situation{
		Hand:       st.hand.Values(),
		Stock:      r.stock,
		Carried:    s.carried,
		OtherHands: others,
		MaxBid:     s.rules.BidMax,
	}, st.rng)
	if !ok {
		s.halt(fmt.Errorf("%w: ai seat %d has no cards in round %d", ErrInvariant, st.id, r.index))
		return false
	}
	if err := s.lockBid(r, st, value); err != nil {
		s.halt(fmt.Errorf("%w: ai bid for seat %d: %w", ErrInvariant, st.id, err))
		return false
	}
	return true
}
