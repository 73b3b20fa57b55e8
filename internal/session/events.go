package session

import "github.com/DoyleJ11/vulture-market/internal/engine"

// Event is a notification fanned out to every subscriber.
type Event interface{ isEvent() }

// Welcome is sent to a new subscriber only, before any other event.
type Welcome struct{ State View }

type SeatJoined struct{ Seat SeatView }

type SeatLeft struct{ Seat engine.SeatID }

// SeatAutoplayed reports a seat handed to the AI after its player left.
type SeatAutoplayed struct {
	Seat  engine.SeatID
	Level int
}

type GameStarted struct {
	Seats       []SeatView
	Hand        []int
	TotalRounds int
}

type RoundOpened struct {
	Round            int
	Stock            engine.Card
	CarriedOverCount int
}

// BidLocked withholds the value until the round is revealed.
type BidLocked struct {
	Round int
	Seat  engine.SeatID
}

type BidsRevealed struct {
	Round       int
	Bids        map[engine.SeatID]int
	Batted      []int
	Winner      engine.SeatID
	CarriedOver bool
}

type CardsAwarded struct {
	Seat   engine.SeatID
	Cards  []engine.Card
	Scores map[engine.SeatID]int
}

type CardsCarried struct{ Cards []engine.Card }

type GameFinished struct{ Ranking []engine.Standing }

type SessionHalted struct{ Reason string }

func (Welcome) isEvent()        {}
func (SeatJoined) isEvent()     {}
func (SeatLeft) isEvent()       {}
func (SeatAutoplayed) isEvent() {}
func (GameStarted) isEvent()    {}
func (RoundOpened) isEvent()    {}
func (BidLocked) isEvent()      {}
func (BidsRevealed) isEvent()   {}
func (CardsAwarded) isEvent()   {}
func (CardsCarried) isEvent()   {}
func (GameFinished) isEvent()   {}
func (SessionHalted) isEvent()  {}
