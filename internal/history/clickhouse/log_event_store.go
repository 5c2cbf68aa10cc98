package clickhouse

import (
	"context"
	"fmt"

	"spl-transfer-lab/internal/history"
)

// LogEventStore implements history.LogEventStore using ClickHouse.
// MergeTree does not enforce uniqueness; the archive is append-only and
// tolerates the occasional replayed batch.
type LogEventStore struct {
	conn *Conn
}

// NewLogEventStore creates a new LogEventStore.
func NewLogEventStore(conn *Conn) *LogEventStore {
	return &LogEventStore{conn: conn}
}

// Compile-time interface check.
var _ history.LogEventStore = (*LogEventStore)(nil)

// InsertBulk adds a batch of log events.
func (s *LogEventStore) InsertBulk(ctx context.Context, events []*history.LogEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO program_log_events (
			signature, slot, log_index, message, received_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		if e == nil || e.Signature == "" {
			return history.ErrInvalidInput
		}
		err = batch.Append(
			e.Signature,
			uint64(e.Slot),
			uint32(e.LogIndex),
			e.Message,
			uint64(e.ReceivedAtMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CountBySignature returns the number of archived lines for a transaction.
func (s *LogEventStore) CountBySignature(ctx context.Context, signature string) (uint64, error) {
	var count uint64
	row := s.conn.QueryRow(ctx,
		`SELECT count() FROM program_log_events WHERE signature = ?`, signature)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count log events: %w", err)
	}
	return count, nil
}
