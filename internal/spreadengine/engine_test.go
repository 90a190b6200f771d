package spreadengine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crossspread/internal/book"
	"crossspread/internal/slippage"
)

type recordingObserver struct {
	opened []*SpreadTrade
	closed []*SpreadTrade
}

func (r *recordingObserver) OnSnapshot(book.Snapshot) {}
func (r *recordingObserver) OnTradeOpen(t *SpreadTrade) {
	r.opened = append(r.opened, t)
}
func (r *recordingObserver) OnTradeClose(t *SpreadTrade) {
	r.closed = append(r.closed, t)
}

func testEngine(obs Observer) (*Engine, *book.Store) {
	store := book.NewStore()
	calc := slippage.NewCalculator()
	sc := NewScanner(calc, d("1"))
	cfg := Config{
		SizeInCoins:             d("1"),
		EntrySpreadThresholdBps: d("10"),
		ExitSpreadThresholdBps:  d("2"),
		MaxSlippageBps:          d("50"),
		MaxPositionHoldTime:     time.Hour,
		MaxConcurrentPositions:  1,
	}
	return NewEngine(cfg, sc, obs), store
}

func TestEngineEntersOnWideSpread(t *testing.T) {
	obs := &recordingObserver{}
	eng, store := testEngine(obs)
	now := time.Now()

	binance := book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100", "10")},
		Asks: []book.Level{lvl("100.05", "10")},
	}
	okx := book.Snapshot{
		Venue: "okx", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("101", "10")},
		Asks: []book.Level{lvl("101.05", "10")},
	}
	store.Update(binance)
	store.Update(okx)

	eng.ProcessSnapshot(store, binance)
	eng.ProcessSnapshot(store, okx)

	if len(obs.opened) != 1 {
		t.Fatalf("expected one trade opened, got %d", len(obs.opened))
	}
	if len(eng.OpenTrades()) != 1 {
		t.Fatalf("expected one open trade, got %d", len(eng.OpenTrades()))
	}
	if len(eng.EquityCurve()) != 2 {
		t.Fatalf("expected two equity samples, got %d", len(eng.EquityCurve()))
	}
}

func TestEngineDoesNotEnterBelowThreshold(t *testing.T) {
	obs := &recordingObserver{}
	eng, store := testEngine(obs)
	now := time.Now()

	binance := book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100", "10")},
		Asks: []book.Level{lvl("100.01", "10")},
	}
	okx := book.Snapshot{
		Venue: "okx", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100.02", "10")},
		Asks: []book.Level{lvl("100.03", "10")},
	}
	store.Update(binance)
	store.Update(okx)

	eng.ProcessSnapshot(store, binance)
	eng.ProcessSnapshot(store, okx)

	if len(obs.opened) != 0 {
		t.Fatalf("expected no trade opened below threshold, got %d", len(obs.opened))
	}
}

func TestEngineExitsOnSpreadReversion(t *testing.T) {
	obs := &recordingObserver{}
	eng, store := testEngine(obs)
	now := time.Now()

	binance := book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100", "10")},
		Asks: []book.Level{lvl("100.05", "10")},
	}
	okx := book.Snapshot{
		Venue: "okx", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("101", "10")},
		Asks: []book.Level{lvl("101.05", "10")},
	}
	store.Update(binance)
	store.Update(okx)
	eng.ProcessSnapshot(store, binance)
	eng.ProcessSnapshot(store, okx)

	if len(obs.opened) != 1 {
		t.Fatalf("expected trade to open first, got %d", len(obs.opened))
	}

	later := now.Add(time.Minute)
	binanceLater := book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: later,
		Bids: []book.Level{lvl("100.549", "10")},
		Asks: []book.Level{lvl("100.55", "10")},
	}
	okxLater := book.Snapshot{
		Venue: "okx", Symbol: "BTC-USDT-PERP", Timestamp: later,
		Bids: []book.Level{lvl("100.549", "10")},
		Asks: []book.Level{lvl("100.55", "10")},
	}
	store.Update(binanceLater)
	store.Update(okxLater)
	eng.ProcessSnapshot(store, binanceLater)
	eng.ProcessSnapshot(store, okxLater)

	if len(obs.closed) != 1 {
		t.Fatalf("expected trade to close once spread reverted, got %d", len(obs.closed))
	}
	if len(eng.OpenTrades()) != 0 {
		t.Fatalf("expected no open trades after exit, got %d", len(eng.OpenTrades()))
	}

	// binance and okx carry different taker rates (4bps/5bps in
	// slippage.DefaultFeeTable) — exit fees must reflect each venue's own
	// rate, not a single flat rate applied to both legs.
	wantExitFees := d("100.549").Mul(d("1")).Mul(d("0.0004")).
		Add(d("100.55").Mul(d("1")).Mul(d("0.0005")))
	if !obs.closed[0].ExitFees.Equal(wantExitFees) {
		t.Errorf("exit fees: got %s, want %s (per-venue taker rate)", obs.closed[0].ExitFees, wantExitFees)
	}
}

func TestEngineExitsOnMaxHoldTime(t *testing.T) {
	obs := &recordingObserver{}
	eng, store := testEngine(obs)
	eng.cfg.MaxPositionHoldTime = time.Minute
	now := time.Now()

	binance := book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100", "10")},
		Asks: []book.Level{lvl("100.05", "10")},
	}
	okx := book.Snapshot{
		Venue: "okx", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("101", "10")},
		Asks: []book.Level{lvl("101.05", "10")},
	}
	store.Update(binance)
	store.Update(okx)
	eng.ProcessSnapshot(store, binance)
	eng.ProcessSnapshot(store, okx)

	if len(obs.opened) != 1 {
		t.Fatalf("expected trade to open, got %d", len(obs.opened))
	}

	// Spread still wide (would not revert) but hold time exceeded.
	later := now.Add(2 * time.Minute)
	binanceLater := book.Snapshot{Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: later, Bids: binance.Bids, Asks: binance.Asks}
	okxLater := book.Snapshot{Venue: "okx", Symbol: "BTC-USDT-PERP", Timestamp: later, Bids: okx.Bids, Asks: okx.Asks}
	store.Update(binanceLater)
	store.Update(okxLater)
	eng.ProcessSnapshot(store, binanceLater)
	eng.ProcessSnapshot(store, okxLater)

	if len(obs.closed) != 1 {
		t.Fatalf("expected trade to close due to max hold time, got %d", len(obs.closed))
	}
}

// TestEngineRejectsEntryOnInsufficientLiquidity mirrors
// TestEngineEntersOnWideSpread's wide-enough spread but sizes the order
// past the quoted depth: the scanner still finds the opportunity, but
// Engine must not open a position CanExecute marks unexecutable.
func TestEngineRejectsEntryOnInsufficientLiquidity(t *testing.T) {
	obs := &recordingObserver{}
	store := book.NewStore()
	calc := slippage.NewCalculator()
	sc := NewScanner(calc, d("20"))
	cfg := Config{
		SizeInCoins:             d("20"),
		EntrySpreadThresholdBps: d("10"),
		ExitSpreadThresholdBps:  d("2"),
		MaxSlippageBps:          d("50"),
		MaxPositionHoldTime:     time.Hour,
		MaxConcurrentPositions:  1,
	}
	eng := NewEngine(cfg, sc, obs)
	now := time.Now()

	binance := book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100", "5")},
		Asks: []book.Level{lvl("100.05", "5")},
	}
	okx := book.Snapshot{
		Venue: "okx", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("101", "5")},
		Asks: []book.Level{lvl("101.05", "5")},
	}
	store.Update(binance)
	store.Update(okx)

	eng.ProcessSnapshot(store, binance)
	eng.ProcessSnapshot(store, okx)

	if len(obs.opened) != 0 {
		t.Fatalf("expected no trade opened against insufficient depth, got %d", len(obs.opened))
	}
}

func TestEngineRespectsMaxConcurrentPositions(t *testing.T) {
	obs := &recordingObserver{}
	eng, store := testEngine(obs)
	eng.cfg.MaxConcurrentPositions = 1
	now := time.Now()

	binanceBTC := book.Snapshot{
		Venue: "binance", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("100", "10")}, Asks: []book.Level{lvl("100.05", "10")},
	}
	okxBTC := book.Snapshot{
		Venue: "okx", Symbol: "BTC-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("101", "10")}, Asks: []book.Level{lvl("101.05", "10")},
	}
	binanceETH := book.Snapshot{
		Venue: "binance", Symbol: "ETH-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("50", "10")}, Asks: []book.Level{lvl("50.02", "10")},
	}
	okxETH := book.Snapshot{
		Venue: "okx", Symbol: "ETH-USDT-PERP", Timestamp: now,
		Bids: []book.Level{lvl("50.5", "10")}, Asks: []book.Level{lvl("50.52", "10")},
	}

	store.Update(binanceBTC)
	store.Update(okxBTC)
	store.Update(binanceETH)
	store.Update(okxETH)

	eng.ProcessSnapshot(store, binanceBTC)
	eng.ProcessSnapshot(store, okxBTC)
	eng.ProcessSnapshot(store, binanceETH)
	eng.ProcessSnapshot(store, okxETH)

	if len(obs.opened) != 1 {
		t.Fatalf("expected only one position under MaxConcurrentPositions=1, got %d", len(obs.opened))
	}
}

// TestEngineCapsThreeSimultaneousOpportunitiesAtTwo is the literal
// three-symbol, cap-of-two concurrent-position scenario: only two of
// three simultaneously-wide spreads may open.
func TestEngineCapsThreeSimultaneousOpportunitiesAtTwo(t *testing.T) {
	obs := &recordingObserver{}
	store := book.NewStore()
	calc := slippage.NewCalculator()
	sc := NewScanner(calc, d("1"))
	cfg := Config{
		SizeInCoins:             d("1"),
		EntrySpreadThresholdBps: d("10"),
		ExitSpreadThresholdBps:  d("2"),
		MaxSlippageBps:          d("50"),
		MaxPositionHoldTime:     time.Hour,
		MaxConcurrentPositions:  2,
	}
	eng := NewEngine(cfg, sc, obs)
	now := time.Now()

	symbols := []string{"BTC-USDT-PERP", "ETH-USDT-PERP", "SOL-USDT-PERP"}
	var snaps []book.Snapshot
	for _, sym := range symbols {
		snaps = append(snaps,
			book.Snapshot{Venue: "binance", Symbol: sym, Timestamp: now,
				Bids: []book.Level{lvl("100", "10")}, Asks: []book.Level{lvl("100.05", "10")}},
			book.Snapshot{Venue: "okx", Symbol: sym, Timestamp: now,
				Bids: []book.Level{lvl("101", "10")}, Asks: []book.Level{lvl("101.05", "10")}},
		)
	}
	for _, s := range snaps {
		store.Update(s)
	}
	for _, s := range snaps {
		eng.ProcessSnapshot(store, s)
	}

	if len(obs.opened) != 2 {
		t.Fatalf("expected exactly two of three opportunities to open under MaxConcurrentPositions=2, got %d", len(obs.opened))
	}
	if len(eng.OpenTrades()) != 2 {
		t.Fatalf("expected two open trades, got %d", len(eng.OpenTrades()))
	}
}

func TestSpreadTradePnLBps(t *testing.T) {
	trade := &SpreadTrade{
		SizeInCoins:    decimal.NewFromInt(1),
		LongEntryPrice: decimal.NewFromInt(100),
		NetPnL:         decimal.NewFromInt(1),
	}
	if !trade.PnLBps().Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 bps, got %s", trade.PnLBps())
	}
}
