package session

import "github.com/DoyleJ11/vulture-market/internal/engine"

// Msg is everything the session loop accepts. The set is closed: only types in
// this package implement it.
type Msg interface{ isSessionMsg() }

type JoinResult struct {
	Seat engine.SeatID
	Err  error
}

type Join struct {
	DisplayName string
	Reply       chan JoinResult
}

// AddAI, Start and removing someone else's seat are host actions. By names the
// caller's seat, or Operator for in-process callers.
type AddAI struct {
	By    engine.SeatID
	Level int
	Reply chan JoinResult
}

// RemoveSeat deletes a lobby seat, or hands an in-game seat to autoplay. A
// seat may always remove itself; only the host may remove an AI seat.
type RemoveSeat struct {
	By    engine.SeatID
	Seat  engine.SeatID
	Reply chan error
}

type Start struct {
	By    engine.SeatID
	Reply chan error
}

type SubmitBid struct {
	Seat  engine.SeatID
	Value int
	Reply chan error
}

type Subscribe struct {
	ClientID string
	Outbox   chan Event
}

type Unsubscribe struct{ ClientID string }

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

// Timer messages. Each carries the round it was armed for so a late fire can
// be recognised and dropped.
type thinkFired struct {
	round int
	seat  engine.SeatID
}

type deadlineFired struct{ round int }

type revealDone struct{ round int }

type nextRound struct{ round int }

func (Join) isSessionMsg()          {}
func (AddAI) isSessionMsg()         {}
func (RemoveSeat) isSessionMsg()    {}
func (Start) isSessionMsg()         {}
func (SubmitBid) isSessionMsg()     {}
func (Subscribe) isSessionMsg()     {}
func (Unsubscribe) isSessionMsg()   {}
func (GetState) isSessionMsg()      {}
func (Shutdown) isSessionMsg()      {}
func (thinkFired) isSessionMsg()    {}
func (deadlineFired) isSessionMsg() {}
func (revealDone) isSessionMsg()    {}
func (nextRound) isSessionMsg()     {}
