// Package stats computes end-of-run performance statistics over a
// backtest's closed trades and equity curve.
package stats

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"crossspread/internal/spreadengine"
)

// Report is the full set of statistics computed at the end of a run.
type Report struct {
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	WinRate         decimal.Decimal // percent
	GrossProfit     decimal.Decimal
	GrossLoss       decimal.Decimal
	ProfitFactor    decimal.Decimal
	NetPnL          decimal.Decimal
	TotalFees       decimal.Decimal
	AverageWin      decimal.Decimal
	AverageLoss     decimal.Decimal
	MaxDrawdownAbs  decimal.Decimal
	MaxDrawdownPct  decimal.Decimal
	AverageHoldTime time.Duration
	Sharpe          decimal.Decimal
	HasSharpe       bool
	Sortino         decimal.Decimal
	HasSortino      bool
}

// Compute derives a Report from trades closed during the run and the
// equity curve sampled throughout it. rangeDays is the number of
// calendar days the backtest spans, used to annualize Sharpe/Sortino;
// callers should pass at least 1.
func Compute(trades []*spreadengine.SpreadTrade, curve []spreadengine.EquitySample, rangeDays int) Report {
	r := Report{}
	if rangeDays < 1 {
		rangeDays = 1
	}

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	totalFees := decimal.Zero
	var totalHold time.Duration

	returns := make([]float64, 0, len(trades))

	for _, t := range trades {
		r.TotalTrades++
		totalFees = totalFees.Add(t.Fees)
		totalHold += t.Duration()
		returns = append(returns, pnlFloat(t.NetPnL))

		if t.NetPnL.GreaterThan(decimal.Zero) {
			r.WinningTrades++
			grossProfit = grossProfit.Add(t.NetPnL)
		} else if t.NetPnL.LessThan(decimal.Zero) {
			r.LosingTrades++
			grossLoss = grossLoss.Add(t.NetPnL.Abs())
		}
	}

	r.GrossProfit = grossProfit
	r.GrossLoss = grossLoss
	r.TotalFees = totalFees
	r.NetPnL = grossProfit.Sub(grossLoss)

	if r.TotalTrades > 0 {
		r.WinRate = decimal.NewFromInt(int64(r.WinningTrades)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(r.TotalTrades)))
		r.AverageHoldTime = totalHold / time.Duration(r.TotalTrades)
	}
	if r.WinningTrades > 0 {
		r.AverageWin = grossProfit.Div(decimal.NewFromInt(int64(r.WinningTrades)))
	}
	if r.LosingTrades > 0 {
		r.AverageLoss = grossLoss.Div(decimal.NewFromInt(int64(r.LosingTrades)))
	}
	if grossLoss.GreaterThan(decimal.Zero) {
		r.ProfitFactor = grossProfit.Div(grossLoss)
	} else if grossProfit.GreaterThan(decimal.Zero) {
		// No losing trades: conventionally reported as undefined/infinite;
		// we report the gross profit itself as a finite stand-in rather
		// than an unusable +Inf decimal.
		r.ProfitFactor = grossProfit
	}

	r.MaxDrawdownAbs, r.MaxDrawdownPct = maxDrawdown(curve)

	tradesPerDay := float64(r.TotalTrades) / float64(rangeDays)
	annualizer := math.Sqrt(252 * tradesPerDay)

	if len(returns) >= 2 {
		mean, stdev := populationMeanStdev(returns)
		if stdev > 0 {
			r.Sharpe = decimal.NewFromFloat(mean / stdev * annualizer)
			r.HasSharpe = true
		}

		downside := make([]float64, 0, len(returns))
		for _, ret := range returns {
			if ret < 0 {
				downside = append(downside, ret)
			}
		}
		if len(downside) > 0 {
			_, downsideStdev := populationMeanStdev(downside)
			if downsideStdev > 0 {
				r.Sortino = decimal.NewFromFloat(mean / downsideStdev * annualizer)
				r.HasSortino = true
			}
		}
	}

	return r
}

// maxDrawdown reports the worst DrawdownAbs/DrawdownPct seen on the
// curve; Engine already tracks these running off a monotonic peak, so
// this is a max rather than a recomputation from scratch.
func maxDrawdown(curve []spreadengine.EquitySample) (decimal.Decimal, decimal.Decimal) {
	maxAbs := decimal.Zero
	maxPct := decimal.Zero
	for _, s := range curve {
		if s.DrawdownAbs.GreaterThan(maxAbs) {
			maxAbs = s.DrawdownAbs
		}
		if s.DrawdownPct.GreaterThan(maxPct) {
			maxPct = s.DrawdownPct
		}
	}
	return maxAbs, maxPct
}

func pnlFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// populationMeanStdev computes the population (not sample) mean and
// standard deviation, i.e. dividing by n rather than n-1.
func populationMeanStdev(xs []float64) (mean, stdev float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / n

	variance := 0.0
	for _, x := range xs {
		diff := x - mean
		variance += diff * diff
	}
	variance /= n

	return mean, math.Sqrt(variance)
}
