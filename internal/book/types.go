// Package book models L2 order-book snapshots and their historical
// playback, the replay-time equivalent of a live exchange feed.
package book

import (
	"time"

	"github.com/shopspring/decimal"
)

// Level is a single price/quantity pair in an order book.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Snapshot is an L2 snapshot of one venue/symbol at a point in time. Bids
// are sorted descending by price, asks ascending, matching what the
// snapshot source guarantees on read.
type Snapshot struct {
	Venue     string
	Symbol    string
	Timestamp time.Time
	Bids      []Level
	Asks      []Level
	Sequence  int64
}

// BestBid returns the highest bid, or false if the book has no bids.
func (s Snapshot) BestBid() (Level, bool) {
	if len(s.Bids) == 0 {
		return Level{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask, or false if the book has no asks.
func (s Snapshot) BestAsk() (Level, bool) {
	if len(s.Asks) == 0 {
		return Level{}, false
	}
	return s.Asks[0], true
}

// Mid returns the midpoint of the best bid and best ask.
func (s Snapshot) Mid() (decimal.Decimal, bool) {
	bid, ok := s.BestBid()
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := s.BestAsk()
	if !ok {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// SpreadBps returns the bid/ask spread in basis points of the mid price.
func (s Snapshot) SpreadBps() (decimal.Decimal, bool) {
	mid, ok := s.Mid()
	if !ok || mid.IsZero() {
		return decimal.Zero, false
	}
	bid, _ := s.BestBid()
	ask, _ := s.BestAsk()
	spread := ask.Price.Sub(bid.Price)
	return spread.Div(mid).Mul(decimal.NewFromInt(10000)), true
}

// DepthAtPrice returns the cumulative quantity available at or better than
// price on the given side.
func (s Snapshot) DepthAtPrice(side Side, price decimal.Decimal) decimal.Decimal {
	levels := s.Bids
	if side == Ask {
		levels = s.Asks
	}

	total := decimal.Zero
	for _, lvl := range levels {
		if side == Bid {
			if lvl.Price.LessThan(price) {
				break
			}
		} else {
			if lvl.Price.GreaterThan(price) {
				break
			}
		}
		total = total.Add(lvl.Quantity)
	}
	return total
}

// TotalDepth sums quantity across the top n levels of the given side.
func (s Snapshot) TotalDepth(side Side, n int) decimal.Decimal {
	levels := s.Bids
	if side == Ask {
		levels = s.Asks
	}
	if n > len(levels) {
		n = len(levels)
	}

	total := decimal.Zero
	for _, lvl := range levels[:n] {
		total = total.Add(lvl.Quantity)
	}
	return total
}

// Side identifies which side of the book a level or depth query refers to.
type Side int

const (
	Bid Side = iota
	Ask
)

// Validate reports whether the snapshot is usable: it must have at least
// one level on each side and must not be crossed (best bid below best
// ask). Crossed or one-sided books happen in real feeds during a
// reconnect or a partial update; callers should skip the snapshot for
// trading decisions rather than treat it as an error.
func (s Snapshot) Validate() bool {
	bid, hasBid := s.BestBid()
	ask, hasAsk := s.BestAsk()
	if !hasBid || !hasAsk {
		return false
	}
	return bid.Price.LessThan(ask.Price)
}
