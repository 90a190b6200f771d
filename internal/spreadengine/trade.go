package spreadengine

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpreadTrade is one long/short pair opened against an Opportunity and,
// once closed, the realized result of unwinding both legs.
type SpreadTrade struct {
	ID         string
	Symbol     string
	LongVenue  string
	ShortVenue string

	EntryTime        time.Time
	SizeInCoins      decimal.Decimal
	LongEntryPrice   decimal.Decimal
	ShortEntryPrice  decimal.Decimal
	EntrySpreadBps   decimal.Decimal
	EntrySlippageBps decimal.Decimal
	EntryFees        decimal.Decimal

	ExitTime       time.Time
	LongExitPrice  decimal.Decimal
	ShortExitPrice decimal.Decimal
	ExitSpreadBps  decimal.Decimal
	ExitFees       decimal.Decimal

	GrossPnL decimal.Decimal
	Fees     decimal.Decimal
	NetPnL   decimal.Decimal

	IsOpen bool
}

// Duration is zero for a trade still open.
func (t *SpreadTrade) Duration() time.Duration {
	if t.IsOpen {
		return 0
	}
	return t.ExitTime.Sub(t.EntryTime)
}

// PnLBps expresses NetPnL relative to the capital committed to the long
// leg, i.e. SizeInCoins * LongEntryPrice.
func (t *SpreadTrade) PnLBps() decimal.Decimal {
	notional := t.SizeInCoins.Mul(t.LongEntryPrice)
	if notional.IsZero() {
		return decimal.Zero
	}
	return t.NetPnL.Div(notional).Mul(decimal.NewFromInt(10000))
}

// unrealizedPnL estimates mark-to-market PnL for a still-open trade given
// the venues' current best quotes, used by the equity curve: closing the
// long leg means selling at the long venue's bid, closing the short leg
// means buying back at the short venue's ask.
func (t *SpreadTrade) unrealizedPnL(longBid, shortAsk decimal.Decimal) decimal.Decimal {
	longLegPnL := longBid.Sub(t.LongEntryPrice).Mul(t.SizeInCoins)
	shortLegPnL := t.ShortEntryPrice.Sub(shortAsk).Mul(t.SizeInCoins)
	return longLegPnL.Add(shortLegPnL).Sub(t.EntryFees)
}
