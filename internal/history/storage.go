package history

import (
	"context"
	"errors"
)

// Store errors for append-only stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Append-only stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// OperationStore persists classified token operations.
type OperationStore interface {
	// Insert adds a new operation. Returns ErrDuplicateKey if
	// (signature, kind) already exists.
	Insert(ctx context.Context, op *Operation) error

	// GetBySignature retrieves all operations recorded for a transaction,
	// ordered by kind. Returns ErrNotFound when none exist.
	GetBySignature(ctx context.Context, signature string) ([]*Operation, error)

	// ListRecent retrieves up to limit operations, newest slot first.
	ListRecent(ctx context.Context, limit int) ([]*Operation, error)
}

// LogEventStore archives raw program log lines.
type LogEventStore interface {
	// InsertBulk adds a batch of log events. The archive is append-only and
	// does not enforce uniqueness.
	InsertBulk(ctx context.Context, events []*LogEvent) error

	// CountBySignature returns the number of archived lines for a transaction.
	CountBySignature(ctx context.Context, signature string) (uint64, error)
}
