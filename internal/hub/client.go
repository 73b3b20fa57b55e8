package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/vulture-market/internal/session"
)

var ErrHubClosed = errors.New("hub closed")

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, h *Hub, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) Create(ctx context.Context) (*session.Session, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateSession{Reply: reply}); err != nil {
		return nil, err
	}
	res, err := recv(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	return res.Session, res.Err
}

// Get returns nil, nil for an unknown code.
func (h *Hub) Get(ctx context.Context, code string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.send(ctx, GetSession{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	return recv(ctx, h, reply)
}

func (h *Hub) Remove(ctx context.Context, code string) error {
	return h.send(ctx, RemoveSession{Code: code})
}

func (h *Hub) Sweep(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, Sweep{Reply: reply}); err != nil {
		return 0, err
	}
	return recv(ctx, h, reply)
}

func (h *Hub) Len(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, Count{Reply: reply}); err != nil {
		return 0, err
	}
	return recv(ctx, h, reply)
}

// Shutdown stops every session and waits for the hub loop to exit.
func (h *Hub) Shutdown(ctx context.Context) error {
	if err := h.send(ctx, ShutdownHub{}); err != nil && !errors.Is(err, ErrHubClosed) {
		return err
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
