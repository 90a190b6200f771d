package book

import (
	"testing"

	"github.com/shopspring/decimal"
)

func lvl(price, qty string) Level {
	return Level{Price: decimal.RequireFromString(price), Quantity: decimal.RequireFromString(qty)}
}

func TestSnapshotBestBidAsk(t *testing.T) {
	s := Snapshot{
		Bids: []Level{lvl("100", "1"), lvl("99", "2")},
		Asks: []Level{lvl("101", "1"), lvl("102", "2")},
	}

	bid, ok := s.BestBid()
	if !ok || !bid.Price.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("BestBid: got %+v, ok=%v", bid, ok)
	}

	ask, ok := s.BestAsk()
	if !ok || !ask.Price.Equal(decimal.RequireFromString("101")) {
		t.Fatalf("BestAsk: got %+v, ok=%v", ask, ok)
	}
}

func TestSnapshotEmptySideReturnsFalse(t *testing.T) {
	s := Snapshot{}
	if _, ok := s.BestBid(); ok {
		t.Error("expected no bid on empty book")
	}
	if _, ok := s.Mid(); ok {
		t.Error("expected no mid on empty book")
	}
}

func TestSnapshotSpreadBps(t *testing.T) {
	s := Snapshot{
		Bids: []Level{lvl("100", "1")},
		Asks: []Level{lvl("101", "1")},
	}
	bps, ok := s.SpreadBps()
	if !ok {
		t.Fatal("expected spread")
	}
	// mid = 100.5, spread = 1, bps = 1/100.5*10000 ~ 99.50...
	want := decimal.RequireFromString("1").Div(decimal.RequireFromString("100.5")).Mul(decimal.NewFromInt(10000))
	if !bps.Equal(want) {
		t.Errorf("got %s, want %s", bps, want)
	}
}

func TestSnapshotValidateCrossedBook(t *testing.T) {
	s := Snapshot{
		Bids: []Level{lvl("101", "1")},
		Asks: []Level{lvl("100", "1")},
	}
	if s.Validate() {
		t.Error("crossed book should not validate")
	}
}

func TestSnapshotDepthAtPrice(t *testing.T) {
	s := Snapshot{
		Asks: []Level{lvl("101", "1"), lvl("102", "2"), lvl("103", "3")},
	}
	depth := s.DepthAtPrice(Ask, decimal.RequireFromString("102"))
	want := decimal.RequireFromString("3") // 101 and 102 levels
	if !depth.Equal(want) {
		t.Errorf("got %s, want %s", depth, want)
	}
}

func TestSnapshotTotalDepth(t *testing.T) {
	s := Snapshot{
		Bids: []Level{lvl("100", "1"), lvl("99", "2"), lvl("98", "3")},
	}
	depth := s.TotalDepth(Bid, 2)
	want := decimal.RequireFromString("3")
	if !depth.Equal(want) {
		t.Errorf("got %s, want %s", depth, want)
	}
}
