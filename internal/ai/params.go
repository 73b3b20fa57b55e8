// Package ai picks bids for computer-controlled seats.
package ai

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	MinLevel = 1
	MaxLevel = 10

	// awarenessLevel is the first level allowed to read opponents' hands.
	awarenessLevel = 8
)

// Params shape one AI seat's play. They are rolled once per seat and stay
// fixed for the rest of the game.
type Params struct {
	Level             int
	Skill             float64
	Noise             float64
	Caution           float64
	Aggression        float64
	Efficiency        float64
	OpponentAwareness float64
}

func ClampLevel(level int) int {
	return max(MinLevel, min(MaxLevel, level))
}

// NewParams derives difficulty parameters for a level with per-seat jitter.
// Jitter shrinks as the level rises so strong AIs behave consistently.
func NewParams(level int, rng *rand.Rand) Params {
	level = ClampLevel(level)
	t := float64(level-1) / float64(MaxLevel-1)
	variation := math.Max((1-t)*0.3, 0.08)
	jitter := func() float64 { return rng.Float64()*2 - 1 }
	vary := func(base, v float64) float64 { return base + jitter()*v }

	p := Params{Level: level}
	p.Skill = clamp(vary(t, variation), 0, 1)
	p.Noise = math.Max(0.01, lerp(0.5, 0.08, t)+jitter()*variation*0.5)
	p.Caution = clamp(vary(lerp(0, 0.9, t*t), variation), 0, 1)
	p.Aggression = math.Max(0.3, vary(lerp(1.0, 1.2, t), variation))
	p.Efficiency = clamp(vary(lerp(0, 0.4, t), variation*0.5), 0, 0.6)
	if level >= awarenessLevel {
		p.OpponentAwareness = clamp(float64(level-awarenessLevel+1)/3, 0, 1)
	}
	return p
}

func Label(level int) string { return fmt.Sprintf("Lv.%d", level) }

var names = []string{
	"Tanaka", "Suzuki", "Sato", "Yamamoto", "Watanabe",
	"Ito", "Nakamura", "Kobayashi", "Kato", "Yoshida",
}

// PickName returns a pool name nobody at the table is using yet.
func PickName(used []string, rng *rand.Rand) string {
	taken := make(map[string]bool, len(used))
	for _, n := range used {
		taken[n] = true
	}
	var free []string
	for _, n := range names {
		if !taken[n] {
			free = append(free, n)
		}
	}
	if len(free) == 0 {
		return fmt.Sprintf("AI_%d", rng.IntN(100))
	}
	return free[rng.IntN(len(free))]
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
