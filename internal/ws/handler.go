// Package ws bridges one websocket connection to one session.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/engine"
	"github.com/DoyleJ11/vulture-market/internal/hub"
	"github.com/DoyleJ11/vulture-market/internal/session"
	"github.com/DoyleJ11/vulture-market/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	leaveTimeout = 2 * time.Second
	outboxSize   = 64
)

var ErrNotSeated = errors.New("not seated")
var ErrAlreadySeated = errors.New("already seated")

// Handler upgrades /ws?code= requests. originPatterns lists extra origin hosts
// allowed besides the server's own, e.g. "localhost:*".
func Handler(h *hub.Hub, log *zap.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		s, err := h.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if s == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			id:    uuid.NewString(),
			s:     s,
			conn:  conn,
			seat:  engine.NoSeat,
			out:   make(chan session.Event, outboxSize),
			reply: make(chan types.ServerMessage, 8),
			log:   log.With(zap.String("code", code)),
		}
		c.serve(r.Context())
	}
}

type client struct {
	id    string
	s     *session.Session
	conn  *websocket.Conn
	seat  engine.SeatID // owned by the reader
	out   chan session.Event
	reply chan types.ServerMessage
	log   *zap.Logger
}

func (c *client) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The session sends a Welcome snapshot ahead of every other event.
	if err := c.s.Watch(ctx, c.id, c.out); err != nil {
		return
	}
	defer c.leave()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		c.writeLoop(ctx)
	}()

	c.readLoop(ctx)
	cancel()
	<-writerDone
}

func (c *client) writeLoop(ctx context.Context) {
	for {
		var msg types.ServerMessage
		select {
		case <-ctx.Done():
			return
		case msg = <-c.reply:
		case ev, ok := <-c.out:
			if !ok {
				// The session dropped us or stopped.
				c.conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			var err error
			if msg, err = EncodeEvent(ev); err != nil {
				c.log.Error("encode event", zap.Error(err))
				continue
			}
		}
		if err := c.write(ctx, msg); err != nil {
			return
		}
	}
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(wctx, websocket.MessageText, payload)
}

func (c *client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Debug("read", zap.Error(err))
			}
			return
		}

		cmd, err := types.DecodeCommand(data)
		if err == nil {
			err = c.dispatch(ctx, cmd)
		}
		if err != nil {
			c.push(ctx, types.ErrorMessage(err))
		}
	}
}

func (c *client) push(ctx context.Context, msg types.ServerMessage) {
	select {
	case c.reply <- msg:
	case <-ctx.Done():
	}
}

func (c *client) dispatch(ctx context.Context, cmd types.Command) error {
	switch cmd := cmd.(type) {
	case types.JoinCmd:
		if c.seat != engine.NoSeat {
			return ErrAlreadySeated
		}
		id, err := c.s.JoinSeat(ctx, cmd.DisplayName)
		if err != nil {
			return err
		}
		c.seat = id
		c.log.Info("client seated", zap.String("client", c.id), zap.Int("seat", int(id)))
		c.push(ctx, types.ServerMessage{Type: types.TypeJoined, Payload: types.JoinedPayload{SeatID: int(id)}})
		return nil

	case types.AddAICmd:
		_, err := c.s.AddAISeat(ctx, c.seat, cmd.Level)
		return err

	case types.RemoveAICmd:
		if cmd.SeatID == int(c.seat) {
			return session.ErrNotAISeat
		}
		return c.s.RemoveAISeat(ctx, c.seat, engine.SeatID(cmd.SeatID))

	case types.StartCmd:
		return c.s.RequestStart(ctx, c.seat)

	case types.SubmitBidCmd:
		if c.seat == engine.NoSeat {
			return ErrNotSeated
		}
		return c.s.SubmitBid(ctx, c.seat, cmd.Value)

	case types.LeaveCmd:
		if c.seat == engine.NoSeat {
			return ErrNotSeated
		}
		err := c.s.RemoveSeat(ctx, c.seat)
		c.seat = engine.NoSeat
		return err

	default:
		return fmt.Errorf("%w: %T", types.ErrUnknownType, cmd)
	}
}

// leave frees the seat and the subscription once the socket is gone. In game
// the seat passes to autoplay instead of disappearing.
func (c *client) leave() {
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if c.seat != engine.NoSeat {
		if err := c.s.RemoveSeat(ctx, c.seat); err != nil && !errors.Is(err, session.ErrSessionClosed) {
			c.log.Warn("release seat", zap.Int("seat", int(c.seat)), zap.Error(err))
		}
	}
	_ = c.s.Unwatch(ctx, c.id)
}
