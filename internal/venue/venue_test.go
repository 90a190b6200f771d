package venue

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crossspread/internal/book"
	"crossspread/internal/slippage"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lvl(price, qty string) book.Level {
	return book.Level{Price: d(price), Quantity: d(qty)}
}

func TestPlaceMarketOrderFillsImmediately(t *testing.T) {
	v := New("binance", slippage.DefaultFeeSchedule())
	now := time.Now()

	v.UpdateOrderbook(book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100", "5")},
		Asks: []book.Level{lvl("101", "5")},
	})

	order := v.PlaceOrder("BTC-USDT-PERP", Buy, Market, d("2"), decimal.Zero, now)
	got, _ := v.Order(order.ID)

	if got.Status != StatusFilled {
		t.Fatalf("expected filled, got %s", got.Status)
	}
	if !got.Filled.Equal(d("2")) {
		t.Errorf("filled qty: got %s", got.Filled)
	}
}

func TestLimitOrderRestsUntilPriceReached(t *testing.T) {
	v := New("binance", slippage.DefaultFeeSchedule())
	now := time.Now()

	v.UpdateOrderbook(book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100", "5")},
		Asks: []book.Level{lvl("101", "5")},
	})

	order := v.PlaceOrder("BTC-USDT-PERP", Buy, Limit, d("1"), d("99"), now)
	got, _ := v.Order(order.ID)
	if got.Status != StatusOpen {
		t.Fatalf("expected still open (limit below ask), got %s", got.Status)
	}

	v.UpdateOrderbook(book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now.Add(time.Second),
		Bids: []book.Level{lvl("98", "5")},
		Asks: []book.Level{lvl("99", "5")},
	})

	got, _ = v.Order(order.ID)
	if got.Status != StatusFilled {
		t.Fatalf("expected filled once ask reaches limit, got %s", got.Status)
	}
}

func TestPartialFillWhenBookRunsOut(t *testing.T) {
	v := New("binance", slippage.DefaultFeeSchedule())
	now := time.Now()

	v.UpdateOrderbook(book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Asks: []book.Level{lvl("100", "1")},
	})

	order := v.PlaceOrder("BTC-USDT-PERP", Buy, Market, d("3"), decimal.Zero, now)
	got, _ := v.Order(order.ID)

	if got.Status != StatusPartiallyFilled {
		t.Fatalf("expected partially filled, got %s", got.Status)
	}
	if !got.Remaining().Equal(d("2")) {
		t.Errorf("remaining: got %s, want 2", got.Remaining())
	}
}

func TestCancelOrder(t *testing.T) {
	v := New("binance", slippage.DefaultFeeSchedule())
	now := time.Now()

	order := v.PlaceOrder("BTC-USDT-PERP", Buy, Limit, d("1"), d("50"), now)
	if !v.CancelOrder(order.ID, now) {
		t.Fatal("expected cancel to succeed")
	}
	got, _ := v.Order(order.ID)
	if got.Status != StatusCancelled {
		t.Fatalf("got %s, want cancelled", got.Status)
	}
	if v.CancelOrder(order.ID, now) {
		t.Fatal("cancelling an already-cancelled order should fail")
	}
}

func TestLimitOrderWithoutPriceIsRejected(t *testing.T) {
	v := New("binance", slippage.DefaultFeeSchedule())
	now := time.Now()

	v.UpdateOrderbook(book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100", "5")},
		Asks: []book.Level{lvl("101", "5")},
	})

	order := v.PlaceOrder("BTC-USDT-PERP", Buy, Limit, d("1"), decimal.Zero, now)
	if order.Status != StatusRejected {
		t.Fatalf("expected a zero-price limit order to be rejected, got %s", order.Status)
	}

	got, _ := v.Order(order.ID)
	if got.Status != StatusRejected {
		t.Fatalf("expected the rejection to be recorded for lookup, got %s", got.Status)
	}
}

func TestCanTransitionTable(t *testing.T) {
	if !CanTransition(StatusOpen, StatusFilled) {
		t.Error("open -> filled should be valid")
	}
	if CanTransition(StatusFilled, StatusOpen) {
		t.Error("filled -> open should be invalid, filled is terminal")
	}
}
