package obsmetrics

import (
	"crossspread/internal/book"
	"crossspread/internal/spreadengine"
)

// Observer implements spreadengine.Observer by feeding the
// SnapshotsProcessed, TradesOpened and TradesClosed collectors, so a
// running backtest's metrics endpoint reflects the driver loop in real
// time. It updates none of the other package-level collectors.
type Observer struct{}

func (Observer) OnSnapshot(s book.Snapshot) {
	SnapshotsProcessed.WithLabelValues(s.Venue, s.Symbol).Inc()
}

func (Observer) OnTradeOpen(t *spreadengine.SpreadTrade) {
	TradesOpened.WithLabelValues(t.Symbol, t.LongVenue, t.ShortVenue).Inc()
}

func (Observer) OnTradeClose(t *spreadengine.SpreadTrade) {
	result := "loss"
	if t.NetPnL.IsPositive() {
		result = "win"
	}
	TradesClosed.WithLabelValues(t.Symbol, result).Inc()
}
