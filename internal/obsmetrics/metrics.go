// Package obsmetrics exposes the Prometheus metrics a running backtest
// emits: throughput and trade counts, fed by Observer. The latency,
// scan, open-position and equity/drawdown collectors are registered too,
// but no code in this repository updates them.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Playback throughput ============

// SnapshotsProcessed counts book snapshots played through the driver
// loop, labeled by venue and symbol.
var SnapshotsProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "crossspread",
		Subsystem: "playback",
		Name:      "snapshots_processed_total",
		Help:      "Total number of order book snapshots played through the backtest driver",
	},
	[]string{"venue", "symbol"},
)

// SnapshotLoadLatency is a histogram for the time to load one snapshot
// batch; nothing in this repository observes into it.
var SnapshotLoadLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "crossspread",
		Subsystem: "playback",
		Name:      "snapshot_load_latency_ms",
		Help:      "Time to load one snapshot batch from the source in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	},
)

// ============ Spread scanning ============

// ScansTotal is a counter for spread scans, labeled by whether an
// opportunity was found; nothing in this repository increments it.
var ScansTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "crossspread",
		Subsystem: "spreadengine",
		Name:      "scans_total",
		Help:      "Total number of spread scans performed",
	},
	[]string{"found"},
)

// ============ Trade lifecycle ============

// TradesOpened counts positions entered, labeled by the venue pair.
var TradesOpened = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "crossspread",
		Subsystem: "spreadengine",
		Name:      "trades_opened_total",
		Help:      "Total number of spread trades opened",
	},
	[]string{"symbol", "long_venue", "short_venue"},
)

// TradesClosed counts positions exited, labeled by whether the trade
// closed profitably.
var TradesClosed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "crossspread",
		Subsystem: "spreadengine",
		Name:      "trades_closed_total",
		Help:      "Total number of spread trades closed",
	},
	[]string{"symbol", "result"}, // result: win, loss
)

// OpenPositions is a gauge for the current number of open positions;
// nothing in this repository sets it.
var OpenPositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "crossspread",
		Subsystem: "spreadengine",
		Name:      "open_positions",
		Help:      "Current number of open spread positions",
	},
)

// ============ Equity & risk ============

// Equity is a gauge for mark-to-market equity, realized plus unrealized;
// nothing in this repository sets it.
var Equity = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "crossspread",
		Subsystem: "equity",
		Name:      "current",
		Help:      "Current mark-to-market equity of the running backtest",
	},
)

// DrawdownPct is a gauge for the drawdown off the running equity peak,
// as a percentage; nothing in this repository sets it.
var DrawdownPct = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "crossspread",
		Subsystem: "equity",
		Name:      "drawdown_pct",
		Help:      "Current drawdown off the equity peak, in percent",
	},
)
