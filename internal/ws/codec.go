package ws

import (
	"fmt"

	"github.com/DoyleJ11/vulture-market/internal/engine"
	"github.com/DoyleJ11/vulture-market/internal/session"
	"github.com/DoyleJ11/vulture-market/pkg/types"
)

// EncodeEvent maps a session event onto its wire message.
func EncodeEvent(ev session.Event) (types.ServerMessage, error) {
	switch e := ev.(type) {
	case session.Welcome:
		return types.ServerMessage{Type: types.TypeSnapshot, Payload: Snapshot(e.State)}, nil
	case session.SeatJoined:
		return types.ServerMessage{Type: types.TypeSeatJoined, Payload: wireSeat(e.Seat)}, nil
	case session.SeatLeft:
		return types.ServerMessage{Type: types.TypeSeatLeft, Payload: types.SeatLeftPayload{SeatID: int(e.Seat)}}, nil
	case session.SeatAutoplayed:
		return types.ServerMessage{Type: types.TypeSeatAutoplayed, Payload: types.SeatAutoplayedPayload{
			SeatID: int(e.Seat), Level: e.Level,
		}}, nil
	case session.GameStarted:
		return types.ServerMessage{Type: types.TypeGameStarted, Payload: types.GameStartedPayload{
			Seats: wireSeats(e.Seats), Hand: nonNil(e.Hand), TotalRounds: e.TotalRounds,
		}}, nil
	case session.RoundOpened:
		return types.ServerMessage{Type: types.TypeRoundOpened, Payload: types.RoundOpenedPayload{
			Round: e.Round, Stock: wireCard(e.Stock), CarriedOverCount: e.CarriedOverCount,
		}}, nil
	case session.BidLocked:
		return types.ServerMessage{Type: types.TypeBidLocked, Payload: types.BidLockedPayload{
			Round: e.Round, SeatID: int(e.Seat),
		}}, nil
	case session.BidsRevealed:
		return types.ServerMessage{Type: types.TypeBidsRevealed, Payload: types.BidsRevealedPayload{
			Round: e.Round, Bids: wireScores(e.Bids), Batted: nonNil(e.Batted),
			WinnerID: int(e.Winner), CarriedOver: e.CarriedOver,
		}}, nil
	case session.CardsAwarded:
		return types.ServerMessage{Type: types.TypeCardsAwarded, Payload: types.CardsAwardedPayload{
			SeatID: int(e.Seat), Cards: wireCards(e.Cards), Scores: wireScores(e.Scores),
		}}, nil
	case session.CardsCarried:
		return types.ServerMessage{Type: types.TypeCardsCarried, Payload: types.CardsCarriedPayload{Cards: wireCards(e.Cards)}}, nil
	case session.GameFinished:
		return types.ServerMessage{Type: types.TypeGameFinished, Payload: types.GameFinishedPayload{Ranking: wireRanking(e.Ranking)}}, nil
	case session.SessionHalted:
		return types.ServerMessage{Type: types.TypeSessionHalted, Payload: types.SessionHaltedPayload{Reason: e.Reason}}, nil
	default:
		return types.ServerMessage{}, fmt.Errorf("unhandled event %T", ev)
	}
}

// Snapshot converts a session view into its wire form.
func Snapshot(v session.View) types.SessionSnapshot {
	snap := types.SessionSnapshot{
		ID:          v.ID,
		Code:        v.Code,
		Phase:       string(v.Phase),
		Round:       v.Round,
		TotalRounds: v.TotalRounds,
		CarriedOver: wireCards(v.CarriedOver),
		Seats:       wireSeats(v.Seats),
		Host:        int(v.Host),
		Locked:      make([]int, 0, len(v.Locked)),
		Halted:      v.Halted,
	}
	if v.Stock != nil {
		c := wireCard(*v.Stock)
		snap.Stock = &c
	}
	for _, id := range v.Locked {
		snap.Locked = append(snap.Locked, int(id))
	}
	if len(v.Ranking) > 0 {
		snap.Ranking = wireRanking(v.Ranking)
	}
	return snap
}

func wireCard(c engine.Card) types.Card {
	return types.Card{Kind: string(c.Kind), Value: c.Value, Name: c.DisplayName}
}

func wireCards(cs []engine.Card) []types.Card {
	out := make([]types.Card, 0, len(cs))
	for _, c := range cs {
		out = append(out, wireCard(c))
	}
	return out
}

func wireSeat(s session.SeatView) types.Seat {
	return types.Seat{
		ID:       int(s.ID),
		Name:     s.Name,
		IsAI:     s.IsAI,
		Level:    s.Level,
		Hand:     nonNil(s.Hand),
		Acquired: wireCards(s.Acquired),
		Score:    s.Score,
	}
}

func wireSeats(ss []session.SeatView) []types.Seat {
	out := make([]types.Seat, 0, len(ss))
	for _, s := range ss {
		out = append(out, wireSeat(s))
	}
	return out
}

func wireRanking(rs []engine.Standing) []types.Standing {
	out := make([]types.Standing, 0, len(rs))
	for _, r := range rs {
		out = append(out, types.Standing{
			Position: r.Position,
			SeatID:   int(r.Seat),
			Name:     r.Name,
			IsAI:     r.IsAI,
			Level:    r.Level,
			Score:    r.Score,
		})
	}
	return out
}

func wireScores(m map[engine.SeatID]int) map[int]int {
	out := make(map[int]int, len(m))
	for id, v := range m {
		out[int(id)] = v
	}
	return out
}

func nonNil(vs []int) []int {
	if vs == nil {
		return []int{}
	}
	return vs
}
