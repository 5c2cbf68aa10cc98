package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"spl-transfer-lab/internal/history"
)

// OperationStore implements history.OperationStore using PostgreSQL.
type OperationStore struct {
	pool *Pool
}

// NewOperationStore creates a new OperationStore.
func NewOperationStore(pool *Pool) *OperationStore {
	return &OperationStore{pool: pool}
}

// Compile-time interface check.
var _ history.OperationStore = (*OperationStore)(nil)

// Insert adds a new operation. Returns ErrDuplicateKey if (signature, kind)
// exists.
func (s *OperationStore) Insert(ctx context.Context, op *history.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO token_operations (
			signature, slot, block_time, kind, mint, source, destination, authority, raw_amount, ui_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		op.Signature,
		op.Slot,
		op.BlockTime,
		string(op.Kind),
		op.Mint,
		op.Source,
		op.Destination,
		op.Authority,
		op.RawAmount,
		op.UIAmount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return history.ErrDuplicateKey
		}
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// GetBySignature retrieves all operations recorded for a transaction,
// ordered by kind. Returns ErrNotFound when none exist.
func (s *OperationStore) GetBySignature(ctx context.Context, signature string) ([]*history.Operation, error) {
	query := `
		SELECT id, signature, slot, block_time, kind, mint, source, destination, authority, raw_amount, ui_amount, created_at
		FROM token_operations
		WHERE signature = $1
		ORDER BY kind ASC
	`

	rows, err := s.pool.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get operations by signature: %w", err)
	}
	defer rows.Close()

	ops, err := scanOperations(rows)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, history.ErrNotFound
	}
	return ops, nil
}

// ListRecent retrieves up to limit operations, newest slot first.
func (s *OperationStore) ListRecent(ctx context.Context, limit int) ([]*history.Operation, error) {
	query := `
		SELECT id, signature, slot, block_time, kind, mint, source, destination, authority, raw_amount, ui_amount, created_at
		FROM token_operations
		ORDER BY slot DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent operations: %w", err)
	}
	defer rows.Close()

	return scanOperations(rows)
}

// scanOperations scans multiple rows into a slice of Operation.
func scanOperations(rows pgx.Rows) ([]*history.Operation, error) {
	var ops []*history.Operation

	for rows.Next() {
		var op history.Operation
		var kind string

		err := rows.Scan(
			&op.ID,
			&op.Signature,
			&op.Slot,
			&op.BlockTime,
			&kind,
			&op.Mint,
			&op.Source,
			&op.Destination,
			&op.Authority,
			&op.RawAmount,
			&op.UIAmount,
			&op.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan operation row: %w", err)
		}
		op.Kind = history.Kind(kind)

		ops = append(ops, &op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation rows: %w", err)
	}

	return ops, nil
}
