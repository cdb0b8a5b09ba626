package hitbtc

import (
	"math"
	"sort"

	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

// publishedDepth is how many levels per side ever leave the engine.
const publishedDepth = 5

// tickDenominator quantizes prices onto an integer tick grid so two venue
// price strings within 1e-4 of each other land in the same bucket. Keying by
// ticks avoids a float near-equality comparator entirely.
const tickDenominator = 1e4

func priceTicks(price float64) int64 {
	return int64(math.Round(price * tickDenominator))
}

type bookLevel struct {
	ticks int64
	price float64
	size  float64
}

// bookSide is an ordered, deduplicated-by-tick sequence of levels. Bids are
// held descending by price, asks ascending. Depth is unbounded internally;
// only the top of the side is published.
type bookSide struct {
	levels []bookLevel
	desc   bool
}

// apply inserts, replaces or removes the level bucketed at price. A zero
// size removes the matching bucket; a nonzero size replaces its size in
// place or inserts a new level keeping the side sorted.
func (s *bookSide) apply(price, size float64) {
	t := priceTicks(price)
	i := sort.Search(len(s.levels), func(i int) bool {
		if s.desc {
			return s.levels[i].ticks <= t
		}
		return s.levels[i].ticks >= t
	})
	if i < len(s.levels) && s.levels[i].ticks == t {
		if size == 0 {
			s.levels = append(s.levels[:i], s.levels[i+1:]...)
			return
		}
		s.levels[i].size = size
		return
	}
	if size == 0 {
		return
	}
	s.levels = append(s.levels, bookLevel{})
	copy(s.levels[i+1:], s.levels[i:])
	s.levels[i] = bookLevel{ticks: t, price: price, size: size}
}

func (s *bookSide) clear() {
	s.levels = s.levels[:0]
}

func (s *bookSide) best() (float64, bool) {
	if len(s.levels) == 0 {
		return 0, false
	}
	return s.levels[0].price, true
}

func (s *bookSide) top(n int) []types.PriceLevel {
	if n > len(s.levels) {
		n = len(s.levels)
	}
	out := make([]types.PriceLevel, n)
	for i := 0; i < n; i++ {
		out[i] = types.PriceLevel{Price: s.levels[i].price, Size: s.levels[i].size}
	}
	return out
}

// BookEngine merges snapshot and incremental feed messages into a
// consistent, depth-bounded view of one symbol's book. It is owned by a
// single MarketDataSession and is not safe for concurrent use.
type BookEngine struct {
	bids bookSide
	asks bookSide

	// hasSnapshot is the snapshot-processed gate: incrementals are refused
	// until at least one full snapshot has initialized the book for the
	// current session.
	hasSnapshot bool
}

func NewBookEngine() *BookEngine {
	return &BookEngine{bids: bookSide{desc: true}}
}

func validateLevels(levels []types.PriceLevel) error {
	for _, l := range levels {
		if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) ||
			math.IsNaN(l.Size) || math.IsInf(l.Size, 0) || l.Size < 0 {
			return types.TradingError{
				Code:    types.ErrParseFailed,
				Message: "non-finite or negative book level",
			}
		}
	}
	return nil
}

// ApplySnapshot clears both sides, applies the given levels as inserts and
// flips the snapshot-processed gate.
func (e *BookEngine) ApplySnapshot(bids, asks []types.PriceLevel) error {
	if err := validateLevels(bids); err != nil {
		return err
	}
	if err := validateLevels(asks); err != nil {
		return err
	}
	e.bids.clear()
	e.asks.clear()
	for _, l := range bids {
		e.bids.apply(l.Price, l.Size)
	}
	for _, l := range asks {
		e.asks.apply(l.Price, l.Size)
	}
	e.hasSnapshot = true
	return nil
}

// ApplyIncremental mutates the book in place. It reports false without
// touching any state until a snapshot has been applied for the current
// session.
func (e *BookEngine) ApplyIncremental(bids, asks []types.PriceLevel) (bool, error) {
	if !e.hasSnapshot {
		return false, nil
	}
	if err := validateLevels(bids); err != nil {
		return false, err
	}
	if err := validateLevels(asks); err != nil {
		return false, err
	}
	for _, l := range bids {
		e.bids.apply(l.Price, l.Size)
	}
	for _, l := range asks {
		e.asks.apply(l.Price, l.Size)
	}
	return true, nil
}

// HasSnapshot reports whether the snapshot-processed gate is set.
func (e *BookEngine) HasSnapshot() bool {
	return e.hasSnapshot
}

// Reset discards all book state and unsets the gate. A fresh snapshot is
// required before incrementals are trusted again.
func (e *BookEngine) Reset() {
	e.bids.clear()
	e.asks.clear()
	e.hasSnapshot = false
}

func (e *BookEngine) BestBid() (float64, bool) {
	return e.bids.best()
}

func (e *BookEngine) BestAsk() (float64, bool) {
	return e.asks.best()
}

// TopLevels returns the published view: the best levels of each side,
// truncated to the publication depth.
func (e *BookEngine) TopLevels() (bids, asks []types.PriceLevel) {
	return e.bids.top(publishedDepth), e.asks.top(publishedDepth)
}
