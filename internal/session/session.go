// Package session runs one game from lobby to final ranking. All state lives
// in a single goroutine; callers and timers talk to it through the inbox.
package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/vulture-market/internal/ai"
	"github.com/DoyleJ11/vulture-market/internal/engine"
)

const (
	maxNameRunes = 16
	defaultName  = "Player"
	recordWithin = 10 * time.Second
)

type Config struct {
	ID       string
	Code     string
	Rules    engine.Rules
	Logger   *zap.Logger
	Rand     *rand.Rand // nil seeds from the clock
	Recorder Recorder   // optional
}

type Session struct {
	id       string
	code     string
	rules    engine.Rules
	log      *zap.Logger
	rng      *rand.Rand
	recorder Recorder

	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc

	phase   Phase
	seats   []*seat
	nextID  engine.SeatID
	host    engine.SeatID
	deck    *engine.Deck
	carried []engine.Card
	played  int
	round   *round
	step    *time.Timer
	ranking []engine.Standing
	halted  error

	clients map[string]chan Event
}

func New(parent context.Context, cfg Config) (*Session, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("session rules: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rng := cfg.Rand
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>7|1))
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:       cfg.ID,
		code:     cfg.Code,
		rules:    cfg.Rules,
		log:      log.With(zap.String("session", cfg.ID), zap.String("code", cfg.Code)),
		rng:      rng,
		recorder: cfg.Recorder,
		inbox:    make(chan Msg, 64),
		ctx:      ctx,
		cancel:   cancel,
		phase:    PhaseLobby,
		host:     engine.NoSeat,
		clients:  make(map[string]chan Event),
	}

	go s.loop()
	return s, nil
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Code() string { return s.code }

// Done is closed once the session loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			if _, ok := m.(Shutdown); ok {
				s.shutdown()
				return
			}
			s.handle(m)
		}
	}
}

func (s *Session) handle(m Msg) {
	switch msg := m.(type) {
	case Join:
		id, err := s.join(msg.DisplayName)
		answer(msg.Reply, JoinResult{Seat: id, Err: err})

	case AddAI:
		id, err := engine.NoSeat, s.authorize(msg.By)
		if err == nil {
			id, err = s.addAI(msg.Level)
		}
		answer(msg.Reply, JoinResult{Seat: id, Err: err})

	case RemoveSeat:
		err := s.canRemove(msg.By, msg.Seat)
		if err == nil {
			err = s.removeSeat(msg.Seat)
		}
		answer(msg.Reply, err)

	case Start:
		err := s.authorize(msg.By)
		if err == nil {
			err = s.start()
		}
		answer(msg.Reply, err)

	case SubmitBid:
		answer(msg.Reply, s.submitBid(msg.Seat, msg.Value))

	case Subscribe:
		s.subscribe(msg.ClientID, msg.Outbox)

	case Unsubscribe:
		if ch, ok := s.clients[msg.ClientID]; ok {
			close(ch)
			delete(s.clients, msg.ClientID)
		}

	case GetState:
		answer(msg.Reply, s.view())

	case thinkFired:
		s.onThink(msg)

	case deadlineFired:
		s.onDeadline(msg)

	case revealDone:
		s.onRevealDone(msg)

	case nextRound:
		s.onNextRound(msg)
	}
}

// answer replies unless the caller did not ask for one.
func answer[T any](reply chan T, v T) {
	if reply != nil {
		reply <- v
	}
}

func (s *Session) authorize(by engine.SeatID) error {
	if by == Operator || (by != engine.NoSeat && by == s.host) {
		return nil
	}
	return ErrNotHost
}

func (s *Session) canRemove(by, id engine.SeatID) error {
	if by == id {
		return nil
	}
	if err := s.authorize(by); err != nil {
		return err
	}
	st := s.seat(id)
	if st == nil {
		return ErrUnknownSeat
	}
	if !st.isAI {
		return ErrNotAISeat
	}
	return nil
}

// subscribe registers outbox and hands it the current state first, so the
// subscriber never misses an event between reading state and watching.
func (s *Session) subscribe(id string, outbox chan Event) {
	if old, ok := s.clients[id]; ok && old != outbox {
		close(old)
	}
	s.clients[id] = outbox
	select {
	case outbox <- Welcome{State: s.view()}:
	default:
		s.log.Warn("dropping slow subscriber", zap.String("client", id))
		close(outbox)
		delete(s.clients, id)
	}
}

// passHost moves the host role to the earliest human seat still present.
func (s *Session) passHost() {
	s.host = engine.NoSeat
	for _, st := range s.seats {
		if !st.isAI {
			s.host = st.id
			return
		}
	}
}

func (s *Session) shutdown() {
	s.stopTimers()
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) stopTimers() {
	if s.round != nil {
		s.round.stopTimers()
	}
	if s.step != nil {
		s.step.Stop()
		s.step = nil
	}
}

func (s *Session) broadcast(ev Event) {
	for id, ch := range s.clients {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop it rather than stall the game.
			s.log.Warn("dropping slow subscriber", zap.String("client", id))
			close(ch)
			delete(s.clients, id)
		}
	}
}

// post is the only way timer goroutines reach the loop.
func (s *Session) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) after(d time.Duration, m Msg) *time.Timer {
	return time.AfterFunc(d, func() { s.post(m) })
}

// later runs a pacing step after d, or right away when d is zero.
func (s *Session) later(d time.Duration, m Msg) {
	if d <= 0 {
		s.handle(m)
		return
	}
	s.step = s.after(d, m)
}

func (s *Session) seat(id engine.SeatID) *seat {
	for _, st := range s.seats {
		if st.id == id {
			return st
		}
	}
	return nil
}

func (s *Session) join(name string) (engine.SeatID, error) {
	if err := s.canSeat(); err != nil {
		return engine.NoSeat, err
	}
	st := s.newSeat(normalizeName(name))
	if s.host == engine.NoSeat {
		s.host = st.id
	}
	s.log.Info("seat joined", zap.Int("seat", int(st.id)), zap.String("name", st.name))
	s.broadcast(SeatJoined{Seat: st.view()})
	return st.id, nil
}

func (s *Session) addAI(level int) (engine.SeatID, error) {
	if err := s.canSeat(); err != nil {
		return engine.NoSeat, err
	}
	used := make([]string, 0, len(s.seats))
	for _, st := range s.seats {
		used = append(used, st.name)
	}
	st := s.newSeat(ai.PickName(used, s.rng))
	st.isAI = true
	params := ai.NewParams(level, st.rng)
	st.params = &params

	s.log.Info("ai seat added",
		zap.Int("seat", int(st.id)),
		zap.String("name", st.name),
		zap.String("level", ai.Label(params.Level)),
		zap.Float64("skill", params.Skill),
		zap.Float64("noise", params.Noise),
		zap.Float64("caution", params.Caution),
		zap.Float64("aggression", params.Aggression),
		zap.Float64("efficiency", params.Efficiency),
		zap.Float64("awareness", params.OpponentAwareness),
	)
	s.broadcast(SeatJoined{Seat: st.view()})
	return st.id, nil
}

func (s *Session) canSeat() error {
	if s.phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(s.seats) >= s.rules.MaxSeats {
		return ErrSessionFull
	}
	return nil
}

func (s *Session) newSeat(name string) *seat {
	st := &seat{
		id:   s.nextID,
		name: name,
		rng:  rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64())),
	}
	s.nextID++
	s.seats = append(s.seats, st)
	return st
}

func normalizeName(name string) string {
	name = strings.TrimSpace(norm.NFKC.String(name))
	if name == "" {
		return defaultName
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = string([]rune(name)[:maxNameRunes])
	}
	return name
}

func (s *Session) view() View {
	v := View{
		ID:          s.id,
		Code:        s.code,
		Phase:       s.phase,
		Round:       s.played,
		TotalRounds: s.rules.TotalRounds,
		CarriedOver: slices.Clone(s.carried),
		Ranking:     slices.Clone(s.ranking),
		Clients:     len(s.clients),
		Host:        s.host,
	}
	for _, st := range s.seats {
		v.Seats = append(v.Seats, st.view())
		if !st.isAI {
			v.Humans++
		}
	}
	if s.round != nil {
		stock := s.round.stock
		v.Stock = &stock
		for _, st := range s.seats {
			if s.round.locked(st.id) {
				v.Locked = append(v.Locked, st.id)
			}
		}
	}
	if s.halted != nil {
		v.Halted = s.halted.Error()
	}
	return v
}
