package session

import (
	"context"

	"github.com/DoyleJ11/vulture-market/internal/engine"
)

// send delivers m to the loop unless the session or the caller gives up first.
func (s *Session) send(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, s *Session, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-s.ctx.Done():
		// The loop may have answered just before stopping.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrSessionClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Session) JoinSeat(ctx context.Context, displayName string) (engine.SeatID, error) {
	reply := make(chan JoinResult, 1)
	if err := s.send(ctx, Join{DisplayName: displayName, Reply: reply}); err != nil {
		return engine.NoSeat, err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return engine.NoSeat, err
	}
	return res.Seat, res.Err
}

// AddAISeat adds an AI seat on behalf of by, which must be the host or Operator.
func (s *Session) AddAISeat(ctx context.Context, by engine.SeatID, level int) (engine.SeatID, error) {
	reply := make(chan JoinResult, 1)
	if err := s.send(ctx, AddAI{By: by, Level: level, Reply: reply}); err != nil {
		return engine.NoSeat, err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return engine.NoSeat, err
	}
	return res.Seat, res.Err
}

// RemoveSeat is a seat leaving on its own.
func (s *Session) RemoveSeat(ctx context.Context, id engine.SeatID) error {
	return s.call(ctx, func(reply chan error) Msg { return RemoveSeat{By: id, Seat: id, Reply: reply} })
}

func (s *Session) RemoveAISeat(ctx context.Context, by, id engine.SeatID) error {
	return s.call(ctx, func(reply chan error) Msg { return RemoveSeat{By: by, Seat: id, Reply: reply} })
}

func (s *Session) RequestStart(ctx context.Context, by engine.SeatID) error {
	return s.call(ctx, func(reply chan error) Msg { return Start{By: by, Reply: reply} })
}

// SubmitBid locks a human seat's bid for the open round. The call only waits
// for the session loop, never for other seats.
func (s *Session) SubmitBid(ctx context.Context, id engine.SeatID, value int) error {
	return s.call(ctx, func(reply chan error) Msg { return SubmitBid{Seat: id, Value: value, Reply: reply} })
}

func (s *Session) call(ctx context.Context, build func(chan error) Msg) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, build(reply)); err != nil {
		return err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return err
	}
	return res
}

// Watch registers outbox for events. The first event is always a Welcome with
// the current state. The session closes outbox on Unwatch, on shutdown, when
// the same client watches again, or when the subscriber falls behind.
func (s *Session) Watch(ctx context.Context, clientID string, outbox chan Event) error {
	return s.send(ctx, Subscribe{ClientID: clientID, Outbox: outbox})
}

func (s *Session) Unwatch(ctx context.Context, clientID string) error {
	return s.send(ctx, Unsubscribe{ClientID: clientID})
}

func (s *Session) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, s, reply)
}

func (s *Session) Close() {
	select {
	case s.inbox <- Shutdown{}:
	case <-s.ctx.Done():
	}
}
