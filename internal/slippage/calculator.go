// Package slippage walks order-book depth to compute realistic fill
// prices and fees for a simulated market order, the backtest's stand-in
// for what a live exchange's matching engine would actually give you.
package slippage

import (
	"github.com/shopspring/decimal"

	"crossspread/internal/book"
)

// Fill is one price level consumed while filling an order.
type Fill struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Result is the outcome of walking the book for a given order size.
type Result struct {
	ExpectedPrice        decimal.Decimal
	ActualPrice          decimal.Decimal
	SlippageAbs          decimal.Decimal
	SlippageBps          decimal.Decimal
	TotalCost            decimal.Decimal
	FilledQuantity       decimal.Decimal
	UnfilledQuantity     decimal.Decimal
	Fills                []Fill
	InsufficientLiquidity bool
}

// FillRate returns the percentage of the requested size that filled.
func (r Result) FillRate() decimal.Decimal {
	total := r.FilledQuantity.Add(r.UnfilledQuantity)
	if total.IsZero() {
		return decimal.Zero
	}
	return r.FilledQuantity.Div(total).Mul(decimal.NewFromInt(100))
}

// Calculator computes slippage results by walking book depth.
type Calculator struct {
	DefaultFees FeeSchedule
}

// NewCalculator returns a Calculator using DefaultFeeSchedule() for any
// venue absent from DefaultFeeTable.
func NewCalculator() *Calculator {
	return &Calculator{DefaultFees: DefaultFeeSchedule()}
}

// Calculate walks book's relevant side (asks for a buy, bids for a sell)
// to find the volume-weighted fill price for size. includeFees adds the
// venue's maker/taker fee to TotalCost; isAggressive selects taker fees
// (a resting limit order that provides liquidity would use maker fees
// instead, see venue.Venue for that distinction).
func (c *Calculator) Calculate(b book.Snapshot, side book.Side, size decimal.Decimal, includeFees, isAggressive bool) Result {
	levels := b.Bids
	if side == book.Ask {
		levels = b.Asks
	}

	if len(levels) == 0 {
		return Result{UnfilledQuantity: size, InsufficientLiquidity: true}
	}

	expectedPrice := levels[0].Price

	remaining := size
	var fills []Fill
	totalValue := decimal.Zero

	for _, level := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		fillQty := decimal.Min(remaining, level.Quantity)
		fills = append(fills, Fill{Price: level.Price, Quantity: fillQty})
		totalValue = totalValue.Add(fillQty.Mul(level.Price))
		remaining = remaining.Sub(fillQty)
	}

	filledQuantity := size.Sub(remaining)
	if filledQuantity.IsZero() {
		return Result{ExpectedPrice: expectedPrice, UnfilledQuantity: size, InsufficientLiquidity: true}
	}

	actualPrice := totalValue.Div(filledQuantity)

	var slippageAbs decimal.Decimal
	if side == book.Ask {
		slippageAbs = actualPrice.Sub(expectedPrice)
	} else {
		slippageAbs = expectedPrice.Sub(actualPrice)
	}

	slippageBps := decimal.Zero
	if expectedPrice.GreaterThan(decimal.Zero) {
		slippageBps = slippageAbs.Div(expectedPrice).Mul(decimal.NewFromInt(10000))
	}

	totalCost := totalValue
	if includeFees {
		fees := FeesFor(b.Venue, c.DefaultFees)
		feeRate := fees.Rate(!isAggressive)
		totalCost = totalCost.Add(totalValue.Mul(feeRate))
	}

	return Result{
		ExpectedPrice:         expectedPrice,
		ActualPrice:           actualPrice,
		SlippageAbs:           slippageAbs.Abs(),
		SlippageBps:           slippageBps.Abs(),
		TotalCost:             totalCost,
		FilledQuantity:        filledQuantity,
		UnfilledQuantity:      remaining,
		Fills:                 fills,
		InsufficientLiquidity: remaining.GreaterThan(decimal.Zero),
	}
}

// Fees is the side-effect-free fee formula used by trade entry/exit: the
// portion of TotalCost that isn't accounted for by actualPrice*filled.
func (r Result) Fees() decimal.Decimal {
	return r.TotalCost.Sub(r.ActualPrice.Mul(r.FilledQuantity))
}
