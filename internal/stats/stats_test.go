package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crossspread/internal/spreadengine"
)

func trade(net string) *spreadengine.SpreadTrade {
	return &spreadengine.SpreadTrade{
		SizeInCoins:    decimal.NewFromInt(1),
		LongEntryPrice: decimal.NewFromInt(100),
		NetPnL:         decimal.RequireFromString(net),
		EntryTime:      time.Now(),
		ExitTime:       time.Now().Add(time.Minute),
	}
}

func TestComputeWinRateAndProfitFactor(t *testing.T) {
	trades := []*spreadengine.SpreadTrade{trade("10"), trade("-5"), trade("20")}
	r := Compute(trades, nil, 1)

	if r.TotalTrades != 3 || r.WinningTrades != 2 || r.LosingTrades != 1 {
		t.Fatalf("got totals %+v", r)
	}
	if !r.NetPnL.Equal(decimal.NewFromInt(25)) {
		t.Errorf("net pnl: got %s, want 25", r.NetPnL)
	}
	wantPF := decimal.NewFromInt(30).Div(decimal.NewFromInt(5))
	if !r.ProfitFactor.Equal(wantPF) {
		t.Errorf("profit factor: got %s, want %s", r.ProfitFactor, wantPF)
	}
}

func TestComputeNoLosingTradesYieldsFiniteProfitFactor(t *testing.T) {
	trades := []*spreadengine.SpreadTrade{trade("10"), trade("5")}
	r := Compute(trades, nil, 1)
	if r.ProfitFactor.IsZero() {
		t.Error("expected a positive, finite profit factor with no losing trades")
	}
}

func TestComputeEmptyTradesHasNoSharpe(t *testing.T) {
	r := Compute(nil, nil, 1)
	if r.HasSharpe || r.HasSortino {
		t.Error("expected no Sharpe/Sortino with zero trades")
	}
	if r.TotalTrades != 0 {
		t.Errorf("got %d trades, want 0", r.TotalTrades)
	}
}

func TestComputeSharpeRequiresNonZeroStdev(t *testing.T) {
	trades := []*spreadengine.SpreadTrade{trade("10"), trade("10"), trade("10")}
	r := Compute(trades, nil, 1)
	if r.HasSharpe {
		t.Error("identical returns have zero stdev, Sharpe should be undefined")
	}
}

func TestComputeSharpeWithVariedReturns(t *testing.T) {
	trades := []*spreadengine.SpreadTrade{trade("10"), trade("-10"), trade("15"), trade("-5")}
	r := Compute(trades, nil, 10)
	if !r.HasSharpe {
		t.Fatal("expected Sharpe to be defined with varied returns")
	}
	if !r.HasSortino {
		t.Fatal("expected Sortino to be defined with negative returns present")
	}
}

// TestComputeMatchesThreeTradeWorkedExample pins the textbook example:
// net PnLs [+10, +5, -3] give win_rate 200/3% and profit_factor 15/3=5;
// an equity curve of [10, 15, 12] against a running peak of [10, 15, 15]
// gives a max drawdown of 3.
func TestComputeMatchesThreeTradeWorkedExample(t *testing.T) {
	trades := []*spreadengine.SpreadTrade{trade("10"), trade("5"), trade("-3")}
	r := Compute(trades, nil, 1)

	wantWinRate := decimal.NewFromInt(200).Div(decimal.NewFromInt(3))
	if !r.WinRate.Equal(wantWinRate) {
		t.Errorf("win rate: got %s, want %s", r.WinRate, wantWinRate)
	}
	wantPF := decimal.NewFromInt(15).Div(decimal.NewFromInt(3))
	if !r.ProfitFactor.Equal(wantPF) {
		t.Errorf("profit factor: got %s, want %s", r.ProfitFactor, wantPF)
	}

	curve := []spreadengine.EquitySample{
		{Equity: decimal.NewFromInt(10), Peak: decimal.NewFromInt(10), DrawdownAbs: decimal.Zero},
		{Equity: decimal.NewFromInt(15), Peak: decimal.NewFromInt(15), DrawdownAbs: decimal.Zero},
		{Equity: decimal.NewFromInt(12), Peak: decimal.NewFromInt(15), DrawdownAbs: decimal.NewFromInt(3)},
	}
	abs, _ := maxDrawdown(curve)
	if !abs.Equal(decimal.NewFromInt(3)) {
		t.Errorf("max drawdown: got %s, want 3", abs)
	}
}

func TestMaxDrawdownTracksCurvePeak(t *testing.T) {
	curve := []spreadengine.EquitySample{
		{Equity: decimal.NewFromInt(100), DrawdownAbs: decimal.Zero, DrawdownPct: decimal.Zero},
		{Equity: decimal.NewFromInt(80), DrawdownAbs: decimal.NewFromInt(20), DrawdownPct: decimal.NewFromInt(20)},
		{Equity: decimal.NewFromInt(90), DrawdownAbs: decimal.NewFromInt(10), DrawdownPct: decimal.NewFromInt(10)},
	}
	abs, pct := maxDrawdown(curve)
	if !abs.Equal(decimal.NewFromInt(20)) || !pct.Equal(decimal.NewFromInt(20)) {
		t.Errorf("got abs=%s pct=%s, want 20/20", abs, pct)
	}
}
