package slippage

import "github.com/shopspring/decimal"

// FeeSchedule is a venue's maker/taker fee rates in basis points.
type FeeSchedule struct {
	MakerBps decimal.Decimal
	TakerBps decimal.Decimal
}

// Rate returns the fee rate as a fraction (e.g. 0.0002 for 2 bps), for
// the maker or taker side.
func (f FeeSchedule) Rate(isMaker bool) decimal.Decimal {
	bps := f.TakerBps
	if isMaker {
		bps = f.MakerBps
	}
	return bps.Div(decimal.NewFromInt(10000))
}

// DefaultFeeSchedule is used for venues with no explicit entry in
// DefaultFeeTable.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{MakerBps: decimal.NewFromInt(2), TakerBps: decimal.NewFromInt(5)}
}

// DefaultFeeTable seeds per-venue fee schedules for the exchanges this
// engine is most commonly backtested against.
var DefaultFeeTable = map[string]FeeSchedule{
	"binance": {MakerBps: decimal.NewFromInt(2), TakerBps: decimal.NewFromInt(4)},
	"bybit":   {MakerBps: decimal.NewFromInt(1), TakerBps: decimal.NewFromInt(6)},
	"okx":     {MakerBps: decimal.NewFromInt(2), TakerBps: decimal.NewFromInt(5)},
	"kucoin":  {MakerBps: decimal.NewFromInt(2), TakerBps: decimal.NewFromInt(6)},
	"gate":    {MakerBps: decimal.NewFromInt(2), TakerBps: decimal.NewFromInt(5)},
	"mexc":    {MakerBps: decimal.NewFromInt(0), TakerBps: decimal.NewFromInt(2)},
	"bitget":  {MakerBps: decimal.NewFromInt(2), TakerBps: decimal.NewFromInt(6)},
	"bingx":   {MakerBps: decimal.NewFromInt(2), TakerBps: decimal.NewFromInt(5)},
	"coinex":  {MakerBps: decimal.NewFromInt(3), TakerBps: decimal.NewFromInt(5)},
	"lbank":   {MakerBps: decimal.NewFromInt(2), TakerBps: decimal.NewFromInt(6)},
	"htx":     {MakerBps: decimal.NewFromInt(2), TakerBps: decimal.NewFromInt(5)},
}

// FeesFor looks up a venue's schedule, falling back to def when the
// venue is not in the table.
func FeesFor(venue string, def FeeSchedule) FeeSchedule {
	if fs, ok := DefaultFeeTable[venue]; ok {
		return fs
	}
	return def
}
