package book

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crossspread/pkg/retry"
)

// PostgresSource plays back snapshots stored in the snapshot_bids_asks
// table, the Go counterpart of the original's TimescaleDB-backed
// OrderbookPlayback: batched reads ordered by timestamp, with the cursor
// advanced by (timestamp, sequence) so that repeated timestamps within a
// batch boundary never re-yield a row.
type PostgresSource struct {
	db         *sql.DB
	venues     []string
	symbols    []string
	start, end time.Time
	batchSize  int
	log        *zap.Logger

	batch      []Snapshot
	idx        int
	lastTS     time.Time
	lastSeq    int64
	haveCursor bool
	exhausted  bool
	connected  bool
}

// NewPostgresSource constructs a source over an already-open *sql.DB.
// batchSize <= 0 defaults to 1000, matching the original's default. If
// log is nil, a no-op logger is used.
func NewPostgresSource(db *sql.DB, venues, symbols []string, start, end time.Time, batchSize int, log *zap.Logger) *PostgresSource {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresSource{
		db:        db,
		venues:    venues,
		symbols:   symbols,
		start:     start,
		end:       end,
		batchSize: batchSize,
		log:       log,
	}
}

// Connect verifies the connection is live, retrying transient failures.
func (p *PostgresSource) Connect(ctx context.Context) error {
	err := retry.Do(ctx, func() error {
		return p.db.PingContext(ctx)
	}, retry.ConservativeConfig())
	if err != nil {
		return fmt.Errorf("book: connect: %w", err)
	}
	p.connected = true
	return nil
}

// Close is a no-op: PostgresSource does not own db's lifecycle.
func (p *PostgresSource) Close() error {
	p.connected = false
	return nil
}

// Count returns the total number of snapshots in [start, end] for the
// configured venues/symbols.
func (p *PostgresSource) Count(ctx context.Context) (int64, error) {
	if !p.connected {
		return 0, ErrNotConnected
	}

	const query = `
		SELECT COUNT(*)
		FROM snapshot_bids_asks
		WHERE timestamp >= $1
		  AND timestamp <= $2
		  AND venue = ANY($3)
		  AND symbol = ANY($4)
	`
	var count int64
	row := p.db.QueryRowContext(ctx, query, p.start, p.end, pq.Array(p.venues), pq.Array(p.symbols))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("book: count: %w", err)
	}
	return count, nil
}

// Next returns the next snapshot in timestamp order, loading a fresh
// batch from Postgres when the current one is drained. Returns io.EOF
// once no more rows satisfy the range.
func (p *PostgresSource) Next(ctx context.Context) (Snapshot, error) {
	if !p.connected {
		return Snapshot{}, ErrNotConnected
	}
	if p.exhausted {
		return Snapshot{}, io.EOF
	}

	if p.idx >= len(p.batch) {
		if err := p.loadBatch(ctx); err != nil {
			return Snapshot{}, err
		}
		if len(p.batch) == 0 {
			p.exhausted = true
			return Snapshot{}, io.EOF
		}
	}

	s := p.batch[p.idx]
	p.idx++
	p.lastTS = s.Timestamp
	p.lastSeq = s.Sequence
	p.haveCursor = true
	return s, nil
}

func (p *PostgresSource) loadBatch(ctx context.Context) error {
	startTS := p.start
	if p.haveCursor {
		startTS = p.lastTS
	}

	const query = `
		SELECT venue, symbol, timestamp, bids, asks, sequence
		FROM snapshot_bids_asks
		WHERE ((timestamp > $1) OR (timestamp = $1 AND sequence > $2))
		  AND timestamp <= $3
		  AND venue = ANY($4)
		  AND symbol = ANY($5)
		ORDER BY timestamp ASC, sequence ASC
		LIMIT $6
	`
	rows, err := p.db.QueryContext(ctx, query,
		startTS, p.lastSeq, p.end,
		pq.Array(p.venues), pq.Array(p.symbols), p.batchSize)
	if err != nil {
		return fmt.Errorf("book: load batch: %w", err)
	}
	defer rows.Close()

	var batch []Snapshot
	for rows.Next() {
		var (
			venue, symbol   string
			ts              time.Time
			bidsJSON        []byte
			asksJSON        []byte
			sequence        int64
		)
		if err := rows.Scan(&venue, &symbol, &ts, &bidsJSON, &asksJSON, &sequence); err != nil {
			return fmt.Errorf("book: scan row: %w", err)
		}

		bids, err := decodeLevels(bidsJSON)
		if err != nil {
			p.log.Warn("skipping malformed snapshot",
				zap.String("venue", venue), zap.String("symbol", symbol),
				zap.Time("timestamp", ts), zap.String("side", "bids"), zap.Error(err))
			continue // malformed row: skip, never abort the whole run
		}
		asks, err := decodeLevels(asksJSON)
		if err != nil {
			p.log.Warn("skipping malformed snapshot",
				zap.String("venue", venue), zap.String("symbol", symbol),
				zap.Time("timestamp", ts), zap.String("side", "asks"), zap.Error(err))
			continue
		}

		batch = append(batch, Snapshot{
			Venue:     venue,
			Symbol:    symbol,
			Timestamp: ts,
			Bids:      bids,
			Asks:      asks,
			Sequence:  sequence,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("book: iterate rows: %w", err)
	}

	p.batch = batch
	p.idx = 0
	return nil
}

type rawLevel [2]string

func decodeLevels(raw []byte) ([]Level, error) {
	var pairs []rawLevel
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}

	levels := make([]Level, 0, len(pairs))
	for _, pair := range pairs {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, err
		}
		qty, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, Level{Price: price, Quantity: qty})
	}
	return levels, nil
}
