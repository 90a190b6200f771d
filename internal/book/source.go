package book

import (
	"context"
	"errors"
	"io"
	"sort"
)

// Source is the contract the driver loop plays snapshots from. Next must
// return snapshots in non-decreasing timestamp order and return io.EOF
// exactly once, after the last snapshot, to signal exhaustion.
type Source interface {
	Connect(ctx context.Context) error
	Close() error
	// Count returns the total number of snapshots the source expects to
	// yield for the configured range, for progress reporting. It is best
	// effort: -1 means unknown.
	Count(ctx context.Context) (int64, error)
	Next(ctx context.Context) (Snapshot, error)
}

// ErrNotConnected is returned by Next/Count when called before Connect.
var ErrNotConnected = errors.New("book: source not connected")

// MemorySource is a Source backed by an in-memory, pre-sorted slice.
// It exists so the driver loop and the spread engine can be exercised in
// tests without a live Postgres instance.
type MemorySource struct {
	snapshots []Snapshot
	pos       int
	connected bool
}

// NewMemorySource sorts snapshots by timestamp (stable, so equal
// timestamps keep their input order) and returns a Source over them.
func NewMemorySource(snapshots []Snapshot) *MemorySource {
	sorted := make([]Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return &MemorySource{snapshots: sorted}
}

func (m *MemorySource) Connect(ctx context.Context) error {
	m.connected = true
	return nil
}

func (m *MemorySource) Close() error {
	m.connected = false
	return nil
}

func (m *MemorySource) Count(ctx context.Context) (int64, error) {
	if !m.connected {
		return 0, ErrNotConnected
	}
	return int64(len(m.snapshots)), nil
}

func (m *MemorySource) Next(ctx context.Context) (Snapshot, error) {
	if !m.connected {
		return Snapshot{}, ErrNotConnected
	}
	if m.pos >= len(m.snapshots) {
		return Snapshot{}, io.EOF
	}
	s := m.snapshots[m.pos]
	m.pos++
	return s, nil
}
