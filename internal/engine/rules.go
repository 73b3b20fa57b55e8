package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

var ErrInvalidRules = errors.New("invalid rules")

// Rules are the game constants a session is built with. They never change for
// the lifetime of a session.
type Rules struct {
	MinSeats    int `yaml:"min_seats"`
	MaxSeats    int `yaml:"max_seats"`
	TotalRounds int `yaml:"total_rounds"`

	BidMin     int `yaml:"bid_min"`
	BidMax     int `yaml:"bid_max"`
	StockMin   int `yaml:"stock_min"`
	StockMax   int `yaml:"stock_max"`
	VultureMin int `yaml:"vulture_min"`
	VultureMax int `yaml:"vulture_max"`

	BidDeadline    time.Duration `yaml:"bid_deadline"`
	ThinkMin       time.Duration `yaml:"think_min"`
	ThinkMax       time.Duration `yaml:"think_max"`
	RevealDelay    time.Duration `yaml:"reveal_delay"`
	NextRoundDelay time.Duration `yaml:"next_round_delay"`

	// DisconnectAILevel is the difficulty given to a seat taken over by autoplay.
	DisconnectAILevel int `yaml:"disconnect_ai_level"`
}

func DefaultRules() Rules {
	return Rules{
		MinSeats:          3,
		MaxSeats:          6,
		TotalRounds:       15,
		BidMin:            1,
		BidMax:            15,
		StockMin:          1,
		StockMax:          10,
		VultureMin:        -5,
		VultureMax:        -1,
		BidDeadline:       30 * time.Second,
		ThinkMin:          500 * time.Millisecond,
		ThinkMax:          1500 * time.Millisecond,
		RevealDelay:       1500 * time.Millisecond,
		NextRoundDelay:    2 * time.Second,
		DisconnectAILevel: 8,
	}
}

func (r Rules) HandSize() int { return r.BidMax - r.BidMin + 1 }

func (r Rules) DeckSize() int {
	return (r.StockMax - r.StockMin + 1) + (r.VultureMax - r.VultureMin + 1)
}

// Validate reports every broken constraint at once.
func (r Rules) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalidRules}, args...)...))
		}
	}

	check(r.MinSeats >= 1, "min_seats %d must be at least 1", r.MinSeats)
	check(r.MaxSeats >= r.MinSeats, "max_seats %d below min_seats %d", r.MaxSeats, r.MinSeats)
	check(r.TotalRounds >= 1, "total_rounds %d must be at least 1", r.TotalRounds)
	check(r.BidMin >= 1, "bid_min %d must be at least 1", r.BidMin)
	check(r.BidMax > r.BidMin, "bid_max %d must exceed bid_min %d", r.BidMax, r.BidMin)
	check(r.HandSize() >= r.TotalRounds, "hand of %d cards cannot cover %d rounds", r.HandSize(), r.TotalRounds)
	check(r.StockMin > 0 && r.StockMax >= r.StockMin, "stock range %d..%d must be positive", r.StockMin, r.StockMax)
	check(r.VultureMax < 0 && r.VultureMin <= r.VultureMax, "vulture range %d..%d must be negative", r.VultureMin, r.VultureMax)
	check(r.BidDeadline > 0, "bid_deadline %s must be positive", r.BidDeadline)
	check(r.ThinkMin >= 0 && r.ThinkMax >= r.ThinkMin, "think range %s..%s is invalid", r.ThinkMin, r.ThinkMax)
	check(r.RevealDelay >= 0, "reveal_delay %s is negative", r.RevealDelay)
	check(r.NextRoundDelay >= 0, "next_round_delay %s is negative", r.NextRoundDelay)
	check(r.DisconnectAILevel >= 1 && r.DisconnectAILevel <= 10, "disconnect_ai_level %d outside 1..10", r.DisconnectAILevel)
	return err
}
