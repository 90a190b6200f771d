package spreadengine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"crossspread/internal/book"
)

// Config holds the entry/exit thresholds an Engine enforces. All bps
// fields are basis points (1 bps = 0.01%).
type Config struct {
	SizeInCoins             decimal.Decimal
	EntrySpreadThresholdBps decimal.Decimal
	ExitSpreadThresholdBps  decimal.Decimal
	MaxSlippageBps          decimal.Decimal
	MaxPositionHoldTime     time.Duration
	MaxConcurrentPositions  int
}

// EquitySample is one point on the equity curve, sampled once per
// snapshot processed.
type EquitySample struct {
	Timestamp     time.Time
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Equity        decimal.Decimal
	Peak          decimal.Decimal
	DrawdownAbs   decimal.Decimal
	DrawdownPct   decimal.Decimal
	OpenPositions int
}

// Engine owns the position lifecycle for one backtest run: it decides
// when to enter a scanned Opportunity, tracks open SpreadTrades, decides
// when to exit them, and maintains the resulting equity curve.
type Engine struct {
	cfg      Config
	scanner  *Scanner
	observer Observer

	open        map[string]*SpreadTrade // keyed by symbol, at most one per symbol
	closed      []*SpreadTrade
	equityCurve []EquitySample
	realizedPnL decimal.Decimal
	peakEquity  decimal.Decimal

	opportunitySpreadSum decimal.Decimal
	opportunityCount     int64
}

// NewEngine returns an Engine. If observer is nil, a NopObserver is used.
func NewEngine(cfg Config, scanner *Scanner, observer Observer) *Engine {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Engine{
		cfg:      cfg,
		scanner:  scanner,
		observer: observer,
		open:     make(map[string]*SpreadTrade),
	}
}

// ClosedTrades returns every trade the engine has closed so far.
func (e *Engine) ClosedTrades() []*SpreadTrade {
	return e.closed
}

// OpenTrades returns the currently open trades.
func (e *Engine) OpenTrades() []*SpreadTrade {
	out := make([]*SpreadTrade, 0, len(e.open))
	for _, t := range e.open {
		out = append(out, t)
	}
	return out
}

// EquityCurve returns one sample per ProcessSnapshot call.
func (e *Engine) EquityCurve() []EquitySample {
	return e.equityCurve
}

// AvgOpportunitySpreadBps returns the mean SpreadBps across every scan
// that found a candidate, whether or not it went on to pass entry
// gating — distinct from the per-trade entry spread average, which only
// covers trades that were actually opened.
func (e *Engine) AvgOpportunitySpreadBps() decimal.Decimal {
	if e.opportunityCount == 0 {
		return decimal.Zero
	}
	return e.opportunitySpreadSum.Div(decimal.NewFromInt(e.opportunityCount))
}

// ProcessSnapshot is the per-tick entry point the driver loop calls after
// updating the book store and the simulated venues: it checks the open
// position on s.Symbol for an exit, then — if no position is open on that
// symbol and capacity allows — scans for and potentially enters a new one,
// and finally records one equity sample before notifying the observer of s.
func (e *Engine) ProcessSnapshot(store *book.Store, s book.Snapshot) {
	if trade, ok := e.open[s.Symbol]; ok {
		e.checkExit(store, trade, s.Timestamp)
	}

	if _, stillOpen := e.open[s.Symbol]; !stillOpen {
		e.tryEnter(store, s.Symbol, s.Timestamp)
	}

	e.updateEquity(store, s.Timestamp)
	e.observer.OnSnapshot(s)
}

// tryEnter scans for an opportunity on symbol and opens a trade against it
// if every entry gate passes: capacity, spread threshold, slippage
// budget, and executability of both legs.
func (e *Engine) tryEnter(store *book.Store, symbol string, at time.Time) {
	if len(e.open) >= e.cfg.MaxConcurrentPositions {
		return
	}

	opp, found := e.scanner.Scan(store, symbol)
	if !found {
		return
	}
	e.opportunitySpreadSum = e.opportunitySpreadSum.Add(opp.SpreadBps)
	e.opportunityCount++

	if !opp.CanExecute {
		return
	}
	if opp.SpreadBps.LessThan(e.cfg.EntrySpreadThresholdBps) {
		return
	}
	if opp.TotalSlippageBps().GreaterThan(e.cfg.MaxSlippageBps) {
		return
	}

	trade := &SpreadTrade{
		ID:               uuid.NewString(),
		Symbol:           symbol,
		LongVenue:        opp.LongVenue,
		ShortVenue:       opp.ShortVenue,
		EntryTime:        at,
		SizeInCoins:      e.cfg.SizeInCoins,
		LongEntryPrice:   opp.LongSlippage.ActualPrice,
		ShortEntryPrice:  opp.ShortSlippage.ActualPrice,
		EntrySpreadBps:   opp.SpreadBps,
		EntrySlippageBps: opp.TotalSlippageBps(),
		EntryFees:        opp.LongSlippage.Fees().Add(opp.ShortSlippage.Fees()),
		IsOpen:           true,
	}

	e.open[symbol] = trade
	e.observer.OnTradeOpen(trade)
}

// checkExit closes trade once its closing spread has reverted past
// ExitSpreadThresholdBps, or once it has been held longer than
// MaxPositionHoldTime, whichever comes first. The closing spread is the
// reverse of the opening one: sell the long leg, buy back the short leg.
func (e *Engine) checkExit(store *book.Store, trade *SpreadTrade, at time.Time) {
	longBook, hasLong := store.Get(trade.LongVenue, trade.Symbol)
	shortBook, hasShort := store.Get(trade.ShortVenue, trade.Symbol)
	if !hasLong || !hasShort {
		return
	}

	longBid, okBid := longBook.BestBid()
	shortAsk, okAsk := shortBook.BestAsk()
	if !okBid || !okAsk {
		return
	}

	// closingSpreadBps is the mirror of the entry spread: negative while
	// the basis that was captured at entry still costs money to unwind
	// (shortAsk above longBid), trending toward zero and then positive as
	// the two venues converge.
	closingSpreadBps := decimal.Zero
	if !shortAsk.Price.IsZero() {
		closingSpreadBps = longBid.Price.Sub(shortAsk.Price).Div(shortAsk.Price).Mul(decimal.NewFromInt(10000))
	}

	held := at.Sub(trade.EntryTime)
	expired := e.cfg.MaxPositionHoldTime > 0 && held > e.cfg.MaxPositionHoldTime

	// Exit once the remaining cost to unwind has shrunk within threshold:
	// closing_spread_bps >= -exit_spread_threshold_bps.
	reverted := closingSpreadBps.GreaterThanOrEqual(e.cfg.ExitSpreadThresholdBps.Neg())

	if !reverted && !expired {
		return
	}

	exitFees := e.exitFees(longBook, shortBook, trade.SizeInCoins)
	e.exitTrade(trade, longBid.Price, shortAsk.Price, closingSpreadBps, exitFees, at)
}

// exitFees walks both legs' current book depth for trade.SizeInCoins the
// same way tryEnter walked them at entry, so the exit fee uses each
// venue's real taker schedule instead of a flat assumed rate.
func (e *Engine) exitFees(longBook, shortBook book.Snapshot, size decimal.Decimal) decimal.Decimal {
	longExit := e.scanner.Calc.Calculate(longBook, book.Bid, size, true, true)
	shortExit := e.scanner.Calc.Calculate(shortBook, book.Ask, size, true, true)
	return longExit.Fees().Add(shortExit.Fees())
}

// exitTrade settles a trade's PnL and moves it from open to closed.
func (e *Engine) exitTrade(trade *SpreadTrade, longExitPrice, shortExitPrice, exitSpreadBps, exitFees decimal.Decimal, at time.Time) {
	longLegPnL := longExitPrice.Sub(trade.LongEntryPrice).Mul(trade.SizeInCoins)
	shortLegPnL := trade.ShortEntryPrice.Sub(shortExitPrice).Mul(trade.SizeInCoins)
	gross := longLegPnL.Add(shortLegPnL)

	trade.ExitTime = at
	trade.LongExitPrice = longExitPrice
	trade.ShortExitPrice = shortExitPrice
	trade.ExitSpreadBps = exitSpreadBps
	trade.ExitFees = exitFees
	trade.GrossPnL = gross
	trade.Fees = trade.EntryFees.Add(exitFees)
	trade.NetPnL = gross.Sub(trade.Fees)
	trade.IsOpen = false

	e.realizedPnL = e.realizedPnL.Add(trade.NetPnL)
	delete(e.open, trade.Symbol)
	e.closed = append(e.closed, trade)
	e.observer.OnTradeClose(trade)
}

// updateEquity appends one EquitySample combining realized PnL with the
// mark-to-market value of every still-open trade, and tracks the running
// peak and drawdown off that combined equity.
func (e *Engine) updateEquity(store *book.Store, at time.Time) {
	unrealized := decimal.Zero
	for _, trade := range e.open {
		longBook, hasLong := store.Get(trade.LongVenue, trade.Symbol)
		shortBook, hasShort := store.Get(trade.ShortVenue, trade.Symbol)
		if !hasLong || !hasShort {
			continue
		}
		longBid, okBid := longBook.BestBid()
		shortAsk, okAsk := shortBook.BestAsk()
		if !okBid || !okAsk {
			continue
		}
		unrealized = unrealized.Add(trade.unrealizedPnL(longBid.Price, shortAsk.Price))
	}

	equity := e.realizedPnL.Add(unrealized)
	if equity.GreaterThan(e.peakEquity) {
		e.peakEquity = equity
	}

	drawdownAbs := e.peakEquity.Sub(equity)
	drawdownPct := decimal.Zero
	if e.peakEquity.GreaterThan(decimal.Zero) {
		drawdownPct = drawdownAbs.Div(e.peakEquity).Mul(decimal.NewFromInt(100))
	}

	e.equityCurve = append(e.equityCurve, EquitySample{
		Timestamp:     at,
		RealizedPnL:   e.realizedPnL,
		UnrealizedPnL: unrealized,
		Equity:        equity,
		Peak:          e.peakEquity,
		DrawdownAbs:   drawdownAbs,
		DrawdownPct:   drawdownPct,
		OpenPositions: len(e.open),
	})
}
