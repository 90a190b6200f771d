package spreadengine

import "crossspread/internal/book"

// Observer receives lifecycle callbacks from Engine as a backtest runs.
// Implementations are called synchronously on the driver's goroutine and
// must not block it for long.
type Observer interface {
	OnSnapshot(s book.Snapshot)
	OnTradeOpen(t *SpreadTrade)
	OnTradeClose(t *SpreadTrade)
}

// NopObserver implements Observer with no-ops, embeddable by callers that
// only care about one or two of the callbacks.
type NopObserver struct{}

func (NopObserver) OnSnapshot(book.Snapshot)  {}
func (NopObserver) OnTradeOpen(*SpreadTrade)  {}
func (NopObserver) OnTradeClose(*SpreadTrade) {}
