package engine

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
)

var stockNames = map[int]string{
	1: "Machine Shop", 2: "Regional Bank", 3: "Food Maker", 4: "Real Estate",
	5: "Automaker", 6: "Electronics", 7: "Pharma", 8: "Telecom",
	9: "Semiconductor", 10: "AI Startup",
}

var vultureNames = map[int]string{
	-1: "Profit Warning", -2: "Accounting Fraud", -3: "Product Recall",
	-4: "Bankruptcy", -5: "Delisting",
}

// MakeCard builds the stock or vulture card for a non-zero value.
func MakeCard(value int) Card {
	if value > 0 {
		name, ok := stockNames[value]
		if !ok {
			name = fmt.Sprintf("Stock %d", value)
		}
		return Card{Kind: KindStock, Value: value, DisplayName: name}
	}
	name, ok := vultureNames[value]
	if !ok {
		name = fmt.Sprintf("Crash %d", value)
	}
	return Card{Kind: KindVulture, Value: value, DisplayName: name}
}

type Deck struct {
	cards []Card
}

// NewDeck builds one card per stock and vulture value and shuffles it.
func NewDeck(r Rules, rng *rand.Rand) *Deck {
	d := &Deck{}
	for v := r.StockMin; v <= r.StockMax; v++ {
		d.cards = append(d.cards, MakeCard(v))
	}
	for v := r.VultureMin; v <= r.VultureMax; v++ {
		d.cards = append(d.cards, MakeCard(v))
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

func (d *Deck) Len() int { return len(d.cards) }

func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckEmpty
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c, nil
}

// Hand is the set of bid values a seat has not spent yet, kept sorted.
type Hand struct {
	values []int
}

func NewHand(min, max int) Hand {
	h := Hand{values: make([]int, 0, max-min+1)}
	for v := min; v <= max; v++ {
		h.values = append(h.values, v)
	}
	return h
}

func (h Hand) Len() int { return len(h.values) }

func (h Hand) Has(v int) bool {
	_, ok := slices.BinarySearch(h.values, v)
	return ok
}

func (h *Hand) Remove(v int) bool {
	i, ok := slices.BinarySearch(h.values, v)
	if !ok {
		return false
	}
	h.values = slices.Delete(h.values, i, i+1)
	return true
}

func (h Hand) Values() []int { return slices.Clone(h.values) }

type Standing struct {
	Seat     SeatID
	Name     string
	IsAI     bool
	Level    int
	Score    int
	Position int
}

// Rank orders standings by score, highest first. Equal scores keep seat order,
// which is join order since seat ids only grow.
func Rank(in []Standing) []Standing {
	out := slices.Clone(in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
