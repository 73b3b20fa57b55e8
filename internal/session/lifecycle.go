package session

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/engine"
)

func (s *Session) start() error {
	if s.phase == PhaseHalted {
		return ErrSessionHalted
	}
	if s.phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(s.seats) < s.rules.MinSeats {
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughSeats, len(s.seats), s.rules.MinSeats)
	}

	s.deck = engine.NewDeck(s.rules, s.rng)
	for _, st := range s.seats {
		st.hand = engine.NewHand(s.rules.BidMin, s.rules.BidMax)
		st.acquired = nil
		st.score = 0
	}
	s.carried = nil
	s.played = 0

	views := make([]SeatView, 0, len(s.seats))
	for _, st := range s.seats {
		views = append(views, st.view())
	}
	s.log.Info("game started", zap.Int("seats", len(s.seats)), zap.Int("deck", s.deck.Len()))
	s.broadcast(GameStarted{
		Seats:       views,
		Hand:        engine.NewHand(s.rules.BidMin, s.rules.BidMax).Values(),
		TotalRounds: s.rules.TotalRounds,
	})

	s.openRound()
	return nil
}

// closeRound enters Resolving: spend the bid cards, resolve, reveal.
func (s *Session) closeRound() {
	r := s.round
	s.phase = PhaseResolving

	for _, st := range s.seats {
		v, ok := r.bids[st.id]
		if !ok {
			continue
		}
		if !st.hand.Remove(v) {
			s.halt(fmt.Errorf("%w: seat %d bid %d it does not hold", ErrInvariant, st.id, v))
			return
		}
	}

	out := engine.Resolve(r.bids, r.stock, s.carried)
	if err := out.Check(r.stock, s.carried); err != nil {
		s.halt(fmt.Errorf("%w: round %d: %w", ErrInvariant, r.index, err))
		return
	}
	r.outcome = out

	s.log.Debug("round resolved",
		zap.Int("round", r.index),
		zap.Int("winner", int(out.Winner)),
		zap.Ints("batted", out.Batted),
		zap.Bool("carried", out.CarriedOver),
	)
	s.broadcast(BidsRevealed{
		Round:       r.index,
		Bids:        maps.Clone(out.Bids),
		Batted:      slices.Clone(out.Batted),
		Winner:      out.Winner,
		CarriedOver: out.CarriedOver,
	})
	s.later(s.rules.RevealDelay, revealDone{round: r.index})
}

// onRevealDone applies the outcome to scores or to the carried pool.
func (s *Session) onRevealDone(m revealDone) {
	r := s.round
	if s.phase != PhaseResolving || r == nil || r.index != m.round {
		return
	}
	out := r.outcome

	if out.CarriedOver {
		s.carried = append(s.carried, r.stock)
		s.broadcast(CardsCarried{Cards: slices.Clone(s.carried)})
	} else {
		w := s.seat(out.Winner)
		if w == nil {
			s.halt(fmt.Errorf("%w: round %d winner %d has no seat", ErrInvariant, r.index, out.Winner))
			return
		}
		w.acquired = append(w.acquired, out.Awarded...)
		w.score += engine.SumValues(out.Awarded)
		s.carried = nil

		scores := make(map[engine.SeatID]int, len(s.seats))
		for _, st := range s.seats {
			scores[st.id] = st.score
		}
		s.broadcast(CardsAwarded{Seat: w.id, Cards: slices.Clone(out.Awarded), Scores: scores})
	}

	s.round = nil
	s.later(s.rules.NextRoundDelay, nextRound{round: m.round})
}

func (s *Session) onNextRound(m nextRound) {
	if s.phase != PhaseResolving || s.played != m.round {
		return
	}
	if s.played >= s.rules.TotalRounds || s.deck.Len() == 0 {
		s.finish()
		return
	}
	s.openRound()
}

func (s *Session) finish() {
	s.phase = PhaseFinished
	s.stopTimers()

	standings := make([]engine.Standing, 0, len(s.seats))
	for _, st := range s.seats {
		sd := engine.Standing{Seat: st.id, Name: st.name, IsAI: st.isAI, Score: st.score}
		if st.params != nil {
			sd.Level = st.params.Level
		}
		standings = append(standings, sd)
	}
	s.ranking = engine.Rank(standings)

	s.log.Info("game finished", zap.Int("rounds", s.played), zap.Int("winner", int(s.ranking[0].Seat)))
	s.broadcast(GameFinished{Ranking: slices.Clone(s.ranking)})

	if s.recorder == nil {
		return
	}
	rec := GameRecord{
		SessionID:  s.id,
		Code:       s.code,
		Rounds:     s.played,
		FinishedAt: time.Now().UTC(),
		Standings:  slices.Clone(s.ranking),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordWithin)
		defer cancel()
		if err := s.recorder.RecordGame(ctx, rec); err != nil {
			s.log.Error("record game", zap.Error(err))
		}
	}()
}

// halt stops the game after a bookkeeping failure. The state is no longer
// trusted, so everything after this is rejected.
func (s *Session) halt(err error) {
	s.phase = PhaseHalted
	s.halted = err
	s.stopTimers()
	s.log.Error("session halted", zap.Error(err), zap.Int("round", s.played))
	s.broadcast(SessionHalted{Reason: err.Error()})
}
