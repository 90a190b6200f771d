package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"crossspread/internal/backtest"
	"crossspread/internal/spreadengine"
	"crossspread/internal/stats"
)

func sampleResult() *backtest.Result {
	trade := &spreadengine.SpreadTrade{
		ID: "t1", Symbol: "BTC-USDT-PERP", LongVenue: "binance", ShortVenue: "okx",
		EntryTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ExitTime:  time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
	}
	trades := []*spreadengine.SpreadTrade{trade}
	return &backtest.Result{
		Config: backtest.Config{
			Symbols: []string{"BTC-USDT-PERP"},
			Venues:  []string{"binance", "okx"},
		},
		SnapshotCount: 2,
		Trades:        trades,
		Stats:         stats.Compute(trades, nil, 1),
	}
}

func TestWriteJSONProducesValidStructure(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult(), time.Now()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"symbol": "BTC-USDT-PERP"`) {
		t.Errorf("expected symbol in output, got: %s", out)
	}
	if !strings.Contains(out, `"id": "t1"`) {
		t.Errorf("expected trade id in output, got: %s", out)
	}
}

func TestWriteCSVHasHeaderAndRow(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,symbol,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
}
