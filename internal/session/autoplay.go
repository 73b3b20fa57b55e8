package session

import (
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/ai"
	"github.com/DoyleJ11/vulture-market/internal/engine"
)

// removeSeat drops a seat in the lobby. Once a game is under way the seat
// stays and the AI takes it over for good.
func (s *Session) removeSeat(id engine.SeatID) error {
	st := s.seat(id)
	if st == nil {
		return ErrUnknownSeat
	}

	switch s.phase {
	case PhaseLobby:
		s.seats = slices.DeleteFunc(s.seats, func(o *seat) bool { return o.id == id })
		if id == s.host {
			s.passHost()
		}
		s.log.Info("seat left", zap.Int("seat", int(id)))
		s.broadcast(SeatLeft{Seat: id})
		return nil

	case PhaseBidding, PhaseResolving:
		s.autoplay(st)
		return nil

	case PhaseHalted:
		return ErrSessionHalted
	}
	// Finished: nothing left to play for this seat.
	return nil
}

func (s *Session) autoplay(st *seat) {
	if st.isAI {
		return
	}
	st.isAI = true
	if st.id == s.host {
		s.passHost()
	}
	params := ai.NewParams(s.rules.DisconnectAILevel, st.rng)
	st.params = &params

	s.log.Info("seat handed to autoplay", zap.Int("seat", int(st.id)), zap.String("level", ai.Label(params.Level)))
	s.broadcast(SeatAutoplayed{Seat: st.id, Level: params.Level})

	r := s.round
	if s.phase != PhaseBidding || r == nil || r.locked(st.id) {
		return
	}
	if s.playAI(r, st) {
		s.collectIfComplete()
	}
}
