// Package memory provides in-memory implementations of the history stores,
// used by the demo client and as test doubles.
package memory

import (
	"context"
	"sort"
	"sync"

	"spl-transfer-lab/internal/history"
)

// OperationStore is an in-memory implementation of history.OperationStore.
type OperationStore struct {
	mu     sync.RWMutex
	data   map[opKey]*history.Operation
	nextID int64
}

type opKey struct {
	signature string
	kind      history.Kind
}

// NewOperationStore creates a new in-memory operation store.
func NewOperationStore() *OperationStore {
	return &OperationStore{data: make(map[opKey]*history.Operation)}
}

// Compile-time interface check.
var _ history.OperationStore = (*OperationStore)(nil)

// Insert adds a new operation. Returns ErrDuplicateKey if (signature, kind)
// exists.
func (s *OperationStore) Insert(_ context.Context, op *history.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	key := opKey{op.Signature, op.Kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return history.ErrDuplicateKey
	}

	s.nextID++
	stored := *op
	stored.ID = s.nextID
	s.data[key] = &stored
	return nil
}

// GetBySignature retrieves all operations recorded for a transaction.
func (s *OperationStore) GetBySignature(_ context.Context, signature string) ([]*history.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*history.Operation
	for _, op := range s.data {
		if op.Signature == signature {
			stored := *op
			result = append(result, &stored)
		}
	}
	if len(result) == 0 {
		return nil, history.ErrNotFound
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})
	return result, nil
}

// ListRecent retrieves up to limit operations, newest slot first.
func (s *OperationStore) ListRecent(_ context.Context, limit int) ([]*history.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*history.Operation, 0, len(s.data))
	for _, op := range s.data {
		stored := *op
		result = append(result, &stored)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Slot != result[j].Slot {
			return result[i].Slot > result[j].Slot
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
