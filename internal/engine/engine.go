package engine

import (
	"errors"
	"fmt"
	"slices"
)

var ErrDeckEmpty = errors.New("stock deck is empty")
var ErrAwardMismatch = errors.New("awarded cards do not match the prize pool")

type SeatID int

// NoSeat marks an outcome with no winner.
const NoSeat SeatID = -1

type Kind string

const (
	KindStock   Kind = "stock"
	KindVulture Kind = "vulture"
)

type Card struct {
	Kind        Kind
	Value       int
	DisplayName string
}

// Outcome is the result of resolving one closed round. Bids holds every
// submitted value; nothing stays private once a round resolves.
type Outcome struct {
	Winner      SeatID
	Awarded     []Card
	Batted      []int
	CarriedOver bool
	Bids        map[SeatID]int
}

// Resolve decides a round from the full bid set. It has no side effects and no
// randomness: the same inputs always produce the same outcome.
func Resolve(bids map[SeatID]int, stock Card, carried []Card) Outcome {
	out := Outcome{
		Winner: NoSeat,
		Batted: []int{},
		Bids:   make(map[SeatID]int, len(bids)),
	}

	bidders := map[int][]SeatID{}
	for id, v := range bids {
		out.Bids[id] = v
		bidders[v] = append(bidders[v], id)
	}

	valid := map[SeatID]int{}
	for v, ids := range bidders {
		if len(ids) > 1 {
			out.Batted = append(out.Batted, v)
			continue
		}
		valid[ids[0]] = v
	}
	slices.Sort(out.Batted)

	if len(valid) == 0 {
		out.CarriedOver = true
		return out
	}

	// Surviving values are distinct, so there is exactly one extreme.
	best := 0
	for id, v := range valid {
		if out.Winner == NoSeat ||
			(stock.Value > 0 && v > best) ||
			(stock.Value < 0 && v < best) {
			out.Winner = id
			best = v
		}
	}

	out.Awarded = make([]Card, 0, len(carried)+1)
	out.Awarded = append(out.Awarded, stock)
	out.Awarded = append(out.Awarded, carried...)
	return out
}

// Check verifies the conservation rule: a clean round awards exactly the drawn
// card plus the carried pool, a carried round awards nothing.
func (o Outcome) Check(stock Card, carried []Card) error {
	if o.CarriedOver {
		if len(o.Awarded) != 0 || o.Winner != NoSeat {
			return fmt.Errorf("carried round awarded %d cards to seat %d: %w", len(o.Awarded), o.Winner, ErrAwardMismatch)
		}
		return nil
	}
	want := stock.Value + SumValues(carried)
	if got := SumValues(o.Awarded); got != want || len(o.Awarded) != len(carried)+1 {
		return fmt.Errorf("awarded %d in %d cards, pool is %d in %d cards: %w",
			got, len(o.Awarded), want, len(carried)+1, ErrAwardMismatch)
	}
	return nil
}

func SumValues(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Value
	}
	return total
}
