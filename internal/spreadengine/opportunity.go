// Package spreadengine scans for cross-venue spread opportunities and
// tracks the lifecycle of the spread trades opened against them.
package spreadengine

import (
	"github.com/shopspring/decimal"

	"crossspread/internal/book"
	"crossspread/internal/slippage"
)

// Opportunity is a candidate spread trade: buy (go long) on LongVenue,
// sell (go short) on ShortVenue, at the spread observed across their
// current best quotes.
type Opportunity struct {
	Symbol        string
	LongVenue     string
	ShortVenue    string
	LongBook      book.Snapshot
	ShortBook     book.Snapshot
	SpreadBps     decimal.Decimal
	LongSlippage  slippage.Result
	ShortSlippage slippage.Result
	CanExecute    bool
}

// TotalSlippageBps is the sum of both legs' slippage, the figure the
// entry gate compares against MaxSlippageBps.
func (o Opportunity) TotalSlippageBps() decimal.Decimal {
	return o.LongSlippage.SlippageBps.Add(o.ShortSlippage.SlippageBps)
}
