// Package hub owns every live session and hands them out by join code.
package hub

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/engine"
	"github.com/DoyleJ11/vulture-market/internal/session"
)

const (
	codeLength   = 6
	stateTimeout = 250 * time.Millisecond
)

type HubMsg interface{ isHubMsg() }

type Created struct {
	Session *session.Session
	Err     error
}

type CreateSession struct {
	Reply chan Created
}

type GetSession struct {
	Code  string
	Reply chan *session.Session // nil when unknown
}

type RemoveSession struct {
	Code string
}

// Sweep drops sessions that are over or that nobody is watching. Reply, if
// set, receives the count removed.
type Sweep struct {
	Reply chan int
}

type Count struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (Sweep) isHubMsg()         {}
func (Count) isHubMsg()         {}
func (ShutdownHub) isHubMsg()   {}

type Config struct {
	Rules    engine.Rules
	Logger   *zap.Logger
	Recorder session.Recorder
	// SweepEvery zero disables the periodic sweep; Sweep messages still work.
	SweepEvery time.Duration
	// IdleGrace is how long a session is kept before a sweep may remove it,
	// which happens once it is over or nobody is watching it.
	IdleGrace time.Duration
}

type entry struct {
	s       *session.Session
	created time.Time
}

type Hub struct {
	cfg      Config
	log      *zap.Logger
	inbox    chan HubMsg
	sessions map[string]entry
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		cfg:      cfg,
		log:      cfg.Logger.Named("hub"),
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]entry),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

// Done is closed after the hub has stopped every session.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.cfg.SweepEvery > 0 {
		t := time.NewTicker(h.cfg.SweepEvery)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-tick:
			h.sweep()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				s, err := h.create()
				answer(msg.Reply, Created{Session: s, Err: err})

			case GetSession:
				answer(msg.Reply, h.sessions[msg.Code].s)

			case RemoveSession:
				if e, ok := h.sessions[msg.Code]; ok {
					e.s.Close()
					delete(h.sessions, msg.Code)
				}

			case Sweep:
				answer(msg.Reply, h.sweep())

			case Count:
				answer(msg.Reply, len(h.sessions))

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func answer[T any](reply chan T, v T) {
	if reply != nil {
		reply <- v
	}
}

func (h *Hub) create() (*session.Session, error) {
	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		if _, taken := h.sessions[c]; !taken {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}

	seed, err := cryptoSeed()
	if err != nil {
		return nil, fmt.Errorf("seed session: %w", err)
	}
	s, err := session.New(h.ctx, session.Config{
		ID:       uuid.NewString(),
		Code:     code,
		Rules:    h.cfg.Rules,
		Logger:   h.cfg.Logger,
		Rand:     mrand.New(mrand.NewPCG(seed[0], seed[1])),
		Recorder: h.cfg.Recorder,
	})
	if err != nil {
		return nil, err
	}
	h.sessions[code] = entry{s: s, created: time.Now()}
	h.log.Info("session created", zap.String("code", code), zap.String("session", s.ID()))
	return s, nil
}

func (h *Hub) sweep() int {
	removed := 0
	for code, e := range h.sessions {
		if !h.idle(e) {
			continue
		}
		e.s.Close()
		delete(h.sessions, code)
		removed++
		h.log.Info("session swept", zap.String("code", code), zap.String("session", e.s.ID()))
	}
	return removed
}

func (h *Hub) idle(e entry) bool {
	select {
	case <-e.s.Done():
		return true
	default:
	}
	if time.Since(e.created) < h.cfg.IdleGrace {
		return false
	}
	ctx, cancel := context.WithTimeout(h.ctx, stateTimeout)
	defer cancel()
	v, err := e.s.State(ctx)
	if err != nil {
		// A session too busy to answer is not idle.
		return false
	}
	switch v.Phase {
	case session.PhaseFinished, session.PhaseHalted:
		return true
	}
	return v.Clients == 0
}

func (h *Hub) shutdown() {
	for _, e := range h.sessions {
		e.s.Close()
	}
	clear(h.sessions)
	h.cancel()
}

// GenerateCode returns a random six digit join code.
func GenerateCode() (string, error) {
	const charset = "0123456789"

	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func cryptoSeed() ([2]uint64, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return [2]uint64{}, err
	}
	return [2]uint64{binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])}, nil
}
