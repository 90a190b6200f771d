// Package report renders a backtest.Result as JSON or CSV for the job
// control API.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"crossspread/internal/backtest"
	"crossspread/internal/spreadengine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Summary is the JSON-friendly projection of a backtest.Result, decimals
// rendered as strings to avoid float round-tripping.
type Summary struct {
	GeneratedAt   time.Time `json:"generated_at"`
	Symbols       []string  `json:"symbols"`
	Venues        []string  `json:"venues"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	SnapshotCount int64     `json:"snapshot_count"`

	TotalTrades   int    `json:"total_trades"`
	WinningTrades int    `json:"winning_trades"`
	LosingTrades  int    `json:"losing_trades"`
	WinRate       string `json:"win_rate_pct"`
	GrossProfit   string `json:"gross_profit"`
	GrossLoss     string `json:"gross_loss"`
	ProfitFactor  string `json:"profit_factor"`
	NetPnL        string `json:"net_pnl"`
	TotalFees     string `json:"total_fees"`

	MaxDrawdownAbs string `json:"max_drawdown_abs"`
	MaxDrawdownPct string `json:"max_drawdown_pct"`

	AvgSpreadBps        string `json:"avg_spread_bps"`
	AvgTotalSlippageBps string `json:"avg_total_slippage_bps"`

	Sharpe  *string `json:"sharpe,omitempty"`
	Sortino *string `json:"sortino,omitempty"`
}

// TradeRecord is one JSON/CSV row describing a SpreadTrade, open or
// closed (see IsOpen).
type TradeRecord struct {
	ID              string  `json:"id"`
	Symbol          string  `json:"symbol"`
	LongVenue       string  `json:"long_venue"`
	ShortVenue      string  `json:"short_venue"`
	EntryTime       string  `json:"entry_time"`
	ExitTime        string  `json:"exit_time"`
	SizeInCoins     string  `json:"size_in_coins"`
	LongEntryPrice  string  `json:"long_entry_price"`
	ShortEntryPrice string  `json:"short_entry_price"`
	LongExitPrice   string  `json:"long_exit_price"`
	ShortExitPrice  string  `json:"short_exit_price"`
	EntrySpreadBps  string  `json:"entry_spread_bps"`
	ExitSpreadBps   string  `json:"exit_spread_bps"`
	GrossPnL        string  `json:"gross_pnl"`
	Fees            string  `json:"fees"`
	NetPnL          string  `json:"net_pnl"`
	PnLBps          string  `json:"pnl_bps"`
	DurationSeconds float64 `json:"duration_seconds"`
	IsOpen          bool    `json:"is_open"`
}

// BuildSummary projects result's config and stats into a Summary.
func BuildSummary(result *backtest.Result, generatedAt time.Time) Summary {
	s := result.Stats
	sum := Summary{
		GeneratedAt:    generatedAt,
		Symbols:        result.Config.Symbols,
		Venues:         result.Config.Venues,
		Start:          result.Config.Start,
		End:            result.Config.End,
		SnapshotCount:  result.SnapshotCount,
		TotalTrades:    s.TotalTrades,
		WinningTrades:  s.WinningTrades,
		LosingTrades:   s.LosingTrades,
		WinRate:        s.WinRate.String(),
		GrossProfit:    s.GrossProfit.String(),
		GrossLoss:      s.GrossLoss.String(),
		ProfitFactor:   s.ProfitFactor.String(),
		NetPnL:         s.NetPnL.String(),
		TotalFees:      s.TotalFees.String(),
		MaxDrawdownAbs: s.MaxDrawdownAbs.String(),
		MaxDrawdownPct: s.MaxDrawdownPct.String(),

		AvgSpreadBps:        result.AvgSpreadBps.String(),
		AvgTotalSlippageBps: result.AvgTotalSlippageBps.String(),
	}
	if s.HasSharpe {
		v := s.Sharpe.String()
		sum.Sharpe = &v
	}
	if s.HasSortino {
		v := s.Sortino.String()
		sum.Sortino = &v
	}
	return sum
}

// BuildTradeRecords projects every trade, open or closed, into a
// TradeRecord.
func BuildTradeRecords(trades []*spreadengine.SpreadTrade) []TradeRecord {
	out := make([]TradeRecord, 0, len(trades))
	for _, t := range trades {
		out = append(out, TradeRecord{
			ID:              t.ID,
			Symbol:          t.Symbol,
			LongVenue:       t.LongVenue,
			ShortVenue:      t.ShortVenue,
			EntryTime:       t.EntryTime.Format(time.RFC3339),
			ExitTime:        t.ExitTime.Format(time.RFC3339),
			SizeInCoins:     t.SizeInCoins.String(),
			LongEntryPrice:  t.LongEntryPrice.String(),
			ShortEntryPrice: t.ShortEntryPrice.String(),
			LongExitPrice:   t.LongExitPrice.String(),
			ShortExitPrice:  t.ShortExitPrice.String(),
			EntrySpreadBps:  t.EntrySpreadBps.String(),
			ExitSpreadBps:   t.ExitSpreadBps.String(),
			GrossPnL:        t.GrossPnL.String(),
			Fees:            t.Fees.String(),
			NetPnL:          t.NetPnL.String(),
			PnLBps:          t.PnLBps().String(),
			DurationSeconds: t.Duration().Seconds(),
			IsOpen:          t.IsOpen,
		})
	}
	return out
}

// WriteJSON writes {"summary":..., "trades":[...]} to w.
func WriteJSON(w io.Writer, result *backtest.Result, generatedAt time.Time) error {
	payload := struct {
		Summary Summary       `json:"summary"`
		Trades  []TradeRecord `json:"trades"`
	}{
		Summary: BuildSummary(result, generatedAt),
		Trades:  BuildTradeRecords(result.Trades),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

var csvHeader = []string{
	"id", "symbol", "long_venue", "short_venue", "entry_time", "exit_time",
	"size_in_coins", "long_entry_price", "short_entry_price",
	"long_exit_price", "short_exit_price", "entry_spread_bps", "exit_spread_bps",
	"gross_pnl", "fees", "net_pnl", "pnl_bps", "duration_seconds", "is_open",
}

// WriteCSV writes one row per trade in result.Trades, open or closed,
// header first.
func WriteCSV(w io.Writer, result *backtest.Result) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("report: writing csv header: %w", err)
	}

	for _, t := range BuildTradeRecords(result.Trades) {
		row := []string{
			t.ID, t.Symbol, t.LongVenue, t.ShortVenue, t.EntryTime, t.ExitTime,
			t.SizeInCoins, t.LongEntryPrice, t.ShortEntryPrice,
			t.LongExitPrice, t.ShortExitPrice, t.EntrySpreadBps, t.ExitSpreadBps,
			t.GrossPnL, t.Fees, t.NetPnL, t.PnLBps,
			strconv.FormatFloat(t.DurationSeconds, 'f', 3, 64),
			strconv.FormatBool(t.IsOpen),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("report: writing csv row: %w", err)
		}
	}
	return nil
}
