// Package backtest wires book.Source, venue.Venue, and spreadengine.Engine
// together into the sequential playback loop a run actually executes.
package backtest

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crossspread/internal/book"
	"crossspread/internal/simerr"
	"crossspread/internal/slippage"
	"crossspread/internal/spreadengine"
	"crossspread/internal/stats"
	"crossspread/internal/venue"
)

// progressLogInterval matches the cadence the original engine logged
// playback progress at.
const progressLogInterval = 10000

// Config is everything a single run needs beyond the snapshot source
// itself.
type Config struct {
	Start   time.Time
	End     time.Time
	Venues  []string
	Symbols []string

	SizeInCoins             decimal.Decimal
	EntrySpreadThresholdBps decimal.Decimal
	ExitSpreadThresholdBps  decimal.Decimal
	MaxSlippageBps          decimal.Decimal
	MaxPositionHoldTime     time.Duration
	MaxConcurrentPositions  int

	// SliceCount/SliceIntervalMs describe a sliced-execution request; the
	// core entry/exit decision loop always fills atomically and ignores
	// both, forwarding them unchanged into Result for reporting. No Runner
	// code path drives venue.Slicer; it works directly against a
	// venue.Venue that its caller owns.
	SliceCount      int
	SliceIntervalMs int
}

// Result is what a completed run produces.
type Result struct {
	Config              Config
	SnapshotCount       int64
	Trades              []*spreadengine.SpreadTrade
	EquityCurve         []spreadengine.EquitySample
	Stats               stats.Report
	AvgSpreadBps        decimal.Decimal
	AvgTotalSlippageBps decimal.Decimal
	StartedAt           time.Time
	FinishedAt          time.Time
}

// averageEntrySlippage returns the mean EntrySlippageBps across trades
// (open or closed, every position that was actually entered), or zero
// for a run with no entries.
func averageEntrySlippage(trades []*spreadengine.SpreadTrade) decimal.Decimal {
	if len(trades) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, t := range trades {
		sum = sum.Add(t.EntrySlippageBps)
	}
	return sum.Div(decimal.NewFromInt(int64(len(trades))))
}

// Validate rejects a Config before any snapshot is read: fewer than two
// venues can never produce a spread opportunity, a non-positive size
// can never fill, and an empty symbol list has nothing to scan.
func (c Config) Validate() error {
	if len(c.Venues) < 2 {
		return simerr.NewConfigError("venues", "at least two venues are required to scan a spread")
	}
	if len(c.Symbols) == 0 {
		return simerr.NewConfigError("symbols", "at least one symbol is required")
	}
	if c.SizeInCoins.LessThanOrEqual(decimal.Zero) {
		return simerr.NewConfigError("size_in_coins", "must be positive")
	}
	if !c.End.After(c.Start) {
		return simerr.NewConfigError("end", "must be after start")
	}
	return nil
}

// Runner drives one backtest from a book.Source to a Result.
type Runner struct {
	cfg      Config
	symbols  map[string]bool
	venues   map[string]*venue.Venue
	engine   *spreadengine.Engine
	store    *book.Store
	log      *zap.Logger
	observer spreadengine.Observer
}

// NewRunner builds a Runner. feeTable supplies a per-venue FeeSchedule
// for the simulated venues; a venue absent from it gets
// slippage.FeesFor's schedule (its slippage.DefaultFeeTable entry, else
// slippage.DefaultFeeSchedule()). The spread engine's slippage
// calculator does not read feeTable. If log is nil, a no-op logger is
// used.
func NewRunner(cfg Config, feeTable map[string]slippage.FeeSchedule, observer spreadengine.Observer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if observer == nil {
		observer = spreadengine.NopObserver{}
	}

	store := book.NewStore()
	venues := make(map[string]*venue.Venue, len(cfg.Venues))
	for _, name := range cfg.Venues {
		fees := slippage.FeesFor(name, slippage.DefaultFeeSchedule())
		if feeTable != nil {
			if f, ok := feeTable[name]; ok {
				fees = f
			}
		}
		venues[name] = venue.New(name, fees)
	}

	calc := slippage.NewCalculator()
	scanner := spreadengine.NewScanner(calc, cfg.SizeInCoins)
	engineCfg := spreadengine.Config{
		SizeInCoins:             cfg.SizeInCoins,
		EntrySpreadThresholdBps: cfg.EntrySpreadThresholdBps,
		ExitSpreadThresholdBps:  cfg.ExitSpreadThresholdBps,
		MaxSlippageBps:          cfg.MaxSlippageBps,
		MaxPositionHoldTime:     cfg.MaxPositionHoldTime,
		MaxConcurrentPositions:  cfg.MaxConcurrentPositions,
	}
	engine := spreadengine.NewEngine(engineCfg, scanner, observer)

	symbols := make(map[string]bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols[s] = true
	}

	return &Runner{
		cfg:      cfg,
		symbols:  symbols,
		venues:   venues,
		engine:   engine,
		store:    store,
		log:      log,
		observer: observer,
	}
}

// Run plays every snapshot from src through the store, the matching
// venues, and the spread engine, in order, until src is exhausted. It is
// the sequential core of a backtest: one snapshot update, one matching
// pass, one entry/exit decision, repeated.
func (r *Runner) Run(ctx context.Context, src book.Source) (result *Result, err error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	if err := src.Connect(ctx); err != nil {
		return nil, simerr.NewSourceError("connect", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			result, err = nil, simerr.NewSourceError("close", cerr)
		}
	}()

	expected, countErr := src.Count(ctx)
	if countErr != nil {
		r.log.Warn("could not determine snapshot count", zap.Error(countErr))
		expected = -1
	}

	started := time.Now()
	var processed int64

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		snap, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, simerr.NewSourceError("next", err)
		}

		r.store.Update(snap)
		if v, ok := r.venues[snap.Venue]; ok {
			v.UpdateOrderbook(snap)
		}
		if r.symbols[snap.Symbol] {
			r.engine.ProcessSnapshot(r.store, snap)
		}

		processed++
		if processed%progressLogInterval == 0 {
			r.log.Debug("backtest progress",
				zap.Int64("processed", processed),
				zap.Int64("expected", expected),
				zap.Time("snapshot_time", snap.Timestamp),
				zap.Int("open_positions", len(r.engine.OpenTrades())),
			)
		}
	}

	finished := time.Now()
	rangeDays := int(r.cfg.End.Sub(r.cfg.Start).Hours()/24) + 1

	closed := r.engine.ClosedTrades()
	open := r.engine.OpenTrades()
	trades := make([]*spreadengine.SpreadTrade, 0, len(closed)+len(open))
	trades = append(trades, closed...)
	trades = append(trades, open...)

	return &Result{
		Config:              r.cfg,
		SnapshotCount:       processed,
		Trades:              trades,
		EquityCurve:         r.engine.EquityCurve(),
		Stats:               stats.Compute(closed, r.engine.EquityCurve(), rangeDays),
		AvgSpreadBps:        r.engine.AvgOpportunitySpreadBps(),
		AvgTotalSlippageBps: averageEntrySlippage(trades),
		StartedAt:           started,
		FinishedAt:          finished,
	}, nil
}
