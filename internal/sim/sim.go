// Package sim plays batches of all-AI games to compare difficulty levels.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/vulture-market/internal/engine"
	"github.com/DoyleJ11/vulture-market/internal/session"
)

var ErrHalted = errors.New("simulated game halted")

type BatchConfig struct {
	Games    int
	Levels   []int // one AI seat per entry
	Seed     uint64
	Parallel int // <= 0 means one game at a time
	Rules    engine.Rules
	Logger   *zap.Logger
}

// FastRules are the defaults with every pacing delay removed.
func FastRules() engine.Rules {
	r := engine.DefaultRules()
	r.ThinkMin = 0
	r.ThinkMax = 0
	r.RevealDelay = 0
	r.NextRoundDelay = 0
	return r
}

type LevelStats struct {
	Level      int
	Seats      int
	TotalScore int
	Wins       int // shared first places count for every seat in them
}

func (l LevelStats) MeanScore() float64 {
	if l.Seats == 0 {
		return 0
	}
	return float64(l.TotalScore) / float64(l.Seats)
}

func (l LevelStats) WinRate() float64 {
	if l.Seats == 0 {
		return 0
	}
	return float64(l.Wins) / float64(l.Seats)
}

type Report struct {
	Games  [][]engine.Standing
	Levels []LevelStats // ascending by level
}

func RunBatch(ctx context.Context, cfg BatchConfig) (Report, error) {
	if cfg.Games <= 0 {
		return Report{}, fmt.Errorf("games must be positive, got %d", cfg.Games)
	}
	if len(cfg.Levels) < cfg.Rules.MinSeats || len(cfg.Levels) > cfg.Rules.MaxSeats {
		return Report{}, fmt.Errorf("%d seats outside %d..%d", len(cfg.Levels), cfg.Rules.MinSeats, cfg.Rules.MaxSeats)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	results := make([][]engine.Standing, cfg.Games)
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Parallel > 0 {
		g.SetLimit(cfg.Parallel)
	} else {
		g.SetLimit(1)
	}
	for i := range cfg.Games {
		g.Go(func() error {
			ranking, err := PlayGame(gctx, cfg, uint64(i))
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			results[i] = ranking
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return Report{Games: results, Levels: tally(results)}, nil
}

// PlayGame runs one all-AI game to the end and returns its ranking.
func PlayGame(ctx context.Context, cfg BatchConfig, game uint64) ([]engine.Standing, error) {
	s, err := session.New(ctx, session.Config{
		ID:     fmt.Sprintf("sim-%d-%d", cfg.Seed, game),
		Code:   "sim",
		Rules:  cfg.Rules,
		Logger: cfg.Logger,
		Rand:   rand.New(rand.NewPCG(cfg.Seed, game)),
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	out := make(chan session.Event, 1024)
	if err := s.Watch(ctx, "sim", out); err != nil {
		return nil, err
	}
	for _, lvl := range cfg.Levels {
		if _, err := s.AddAISeat(ctx, session.Operator, lvl); err != nil {
			return nil, err
		}
	}
	if err := s.RequestStart(ctx, session.Operator); err != nil {
		return nil, err
	}

	// The deadline only matters if a think timer were lost.
	limit := time.Duration(cfg.Rules.TotalRounds+1) * (cfg.Rules.BidDeadline + cfg.Rules.RevealDelay + cfg.Rules.NextRoundDelay)
	timeout := time.NewTimer(limit)
	defer timeout.Stop()
	for {
		select {
		case ev, ok := <-out:
			if !ok {
				return nil, session.ErrSessionClosed
			}
			switch e := ev.(type) {
			case session.GameFinished:
				return e.Ranking, nil
			case session.SessionHalted:
				return nil, fmt.Errorf("%w: %s", ErrHalted, e.Reason)
			}
		case <-timeout.C:
			return nil, fmt.Errorf("game did not finish within %s", limit)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func tally(games [][]engine.Standing) []LevelStats {
	by := map[int]*LevelStats{}
	for _, ranking := range games {
		if len(ranking) == 0 {
			continue
		}
		top := ranking[0].Score
		for _, st := range ranking {
			ls, ok := by[st.Level]
			if !ok {
				ls = &LevelStats{Level: st.Level}
				by[st.Level] = ls
			}
			ls.Seats++
			ls.TotalScore += st.Score
			if st.Score == top {
				ls.Wins++
			}
		}
	}
	out := make([]LevelStats, 0, len(by))
	for _, ls := range by {
		out = append(out, *ls)
	}
	slices.SortFunc(out, func(a, b LevelStats) int { return a.Level - b.Level })
	return out
}
