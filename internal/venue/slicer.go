package venue

import (
	"time"

	"github.com/shopspring/decimal"
)

// Slicer breaks a large order into smaller slices placed at widening
// price tolerance, the way a real execution engine reduces market
// impact. It is not on the core entry/exit decision path (see
// spreadengine.Engine, which always fills atomically), and nothing in
// this repository drives it from backtest.Config.SliceCount or
// SliceIntervalMs; those fields are only forwarded into the Result.
type Slicer struct {
	Venue         *Venue
	SliceSizePct  decimal.Decimal // percentage of total per slice
	SliceInterval time.Duration
}

// NewSlicer returns a Slicer that cuts an order into slices of
// sliceCount equal pieces (falling back to a single slice for
// sliceCount <= 1).
func NewSlicer(v *Venue, sliceCount int, interval time.Duration) *Slicer {
	pct := decimal.NewFromInt(100)
	if sliceCount > 1 {
		pct = decimal.NewFromInt(100).Div(decimal.NewFromInt(int64(sliceCount)))
	}
	return &Slicer{Venue: v, SliceSizePct: pct, SliceInterval: interval}
}

// CalculateSlices splits totalQuantity into slices of SliceSizePct each,
// clamped to at least minSliceQty, with the last slice absorbing any
// remainder.
func (s *Slicer) CalculateSlices(totalQuantity, minSliceQty decimal.Decimal) []decimal.Decimal {
	sliceQty := totalQuantity.Mul(s.SliceSizePct).Div(decimal.NewFromInt(100))
	if sliceQty.LessThan(minSliceQty) {
		sliceQty = minSliceQty
	}

	var slices []decimal.Decimal
	remaining := totalQuantity
	for remaining.GreaterThan(decimal.Zero) {
		qty := decimal.Min(sliceQty, remaining)
		slices = append(slices, qty)
		remaining = remaining.Sub(qty)
	}
	return slices
}

// ExecuteSliced places one order per slice, widening the limit price by
// priceToleranceBps per slice against the order's side (higher for a
// buy, lower for a sell, so more aggressive as slices progress), and
// returns every slice order placed. The caller is
// responsible for advancing simulated time between slices if it wants
// SliceInterval to have any visible effect — the backtest driver being
// strictly sequential and snapshot-driven, there is no wall clock to
// sleep against here.
func (s *Slicer) ExecuteSliced(symbol string, side OrderSide, totalQuantity, limitPrice, priceToleranceBps decimal.Decimal, at time.Time) []Order {
	slices := s.CalculateSlices(totalQuantity, decimal.RequireFromString("0.001"))
	orders := make([]Order, 0, len(slices))

	for i, qty := range slices {
		tolerance := limitPrice.Mul(priceToleranceBps).Mul(decimal.NewFromInt(int64(i))).Div(decimal.NewFromInt(10000))

		adjusted := limitPrice.Add(tolerance)
		if side == Sell {
			adjusted = limitPrice.Sub(tolerance)
		}

		order := s.Venue.PlaceOrder(symbol, side, Limit, qty, adjusted, at)
		orders = append(orders, order)
	}

	return orders
}
