package ai

import (
	"math"
	"math/rand/v2"

	"github.com/DoyleJ11/vulture-market/internal/engine"
)

// Situation is what a seat can see when it has to bid.
type Situation struct {
	Hand    []int
	Stock   engine.Card
	Carried []engine.Card
	// OtherHands lists the unspent values of every other seat. Only seats with
	// OpponentAwareness above zero look inside them.
	OtherHands [][]int
	MaxBid     int
}

// Decide returns the hand card with the best blend of strategic and random
// score. Skill 0 plays uniformly at random, skill 1 plays purely on strategy.
func Decide(p Params, s Situation, rng *rand.Rand) (int, bool) {
	if len(s.Hand) == 0 {
		return 0, false
	}

	pool := float64(abs(s.Stock.Value))
	for _, c := range s.Carried {
		pool += 1.5 * float64(abs(c.Value))
	}

	best, bestScore := s.Hand[0], math.Inf(-1)
	for _, v := range s.Hand {
		strategic := evaluate(p, s, v, pool, rng)
		blended := lerp(rng.Float64(), strategic, p.Skill)
		if blended > bestScore {
			best, bestScore = v, blended
		}
	}
	return best, true
}

func evaluate(p Params, s Situation, bid int, pool float64, rng *rand.Rand) float64 {
	maxBid := s.MaxBid
	if maxBid <= 0 {
		maxBid = 15
	}
	ratio := float64(bid) / float64(maxBid)
	vulture := s.Stock.Value < 0

	var position float64
	if vulture {
		// Peak around 60% of the range: low enough not to waste a big card,
		// high enough to stay clear of the bottom.
		safety := ratio * pool * p.Caution
		waste := math.Max(ratio-0.6, 0) * pool * p.Efficiency * 3
		position = safety - waste
	} else {
		position = ratio*pool*p.Aggression - float64(bid)*p.Efficiency
	}

	risk := battingRisk(bid, s.OtherHands, p.OpponentAwareness)

	caution := p.Caution
	if !vulture {
		caution *= 1 - math.Min(pool/10, 1)*0.7
	}

	spread := 1.0
	if vulture {
		spread = 2.5
	}
	noise := (rng.Float64()*2 - 1) * p.Noise * spread * pool

	return position*(1-risk*caution) + noise
}

// battingRisk estimates the chance another seat plays the same value.
func battingRisk(v int, others [][]int, awareness float64) float64 {
	if len(others) == 0 {
		return 0
	}
	guess := 1 / float64(len(others)+1)
	if awareness <= 0 {
		return guess
	}
	holding := 0
	for _, h := range others {
		for _, x := range h {
			if x == v {
				holding++
				break
			}
		}
	}
	return lerp(guess, float64(holding)/float64(len(others)), awareness)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
