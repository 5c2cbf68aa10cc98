package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spl-transfer-lab/internal/history"
)

func testOp(signature string, kind history.Kind, slot int64) *history.Operation {
	return &history.Operation{
		Signature:   signature,
		Slot:        slot,
		BlockTime:   1700000000,
		Kind:        kind,
		Mint:        "So11111111111111111111111111111111111111112",
		Destination: "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		Authority:   "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		RawAmount:   "10000",
		UIAmount:    "100",
	}
}

func TestOperationStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)
	ctx := context.Background()

	op := testOp("sig1", history.KindMint, 100)
	require.NoError(t, store.Insert(ctx, op))

	ops, err := store.GetBySignature(ctx, "sig1")
	require.NoError(t, err)
	require.Len(t, ops, 1)

	got := ops[0]
	assert.NotZero(t, got.ID)
	assert.Equal(t, op.Signature, got.Signature)
	assert.Equal(t, op.Slot, got.Slot)
	assert.Equal(t, op.BlockTime, got.BlockTime)
	assert.Equal(t, op.Kind, got.Kind)
	assert.Equal(t, op.Mint, got.Mint)
	assert.Equal(t, op.Destination, got.Destination)
	assert.Equal(t, op.RawAmount, got.RawAmount)
	assert.Equal(t, op.UIAmount, got.UIAmount)
	assert.NotZero(t, got.CreatedAt)
}

func TestOperationStore_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testOp("sig1", history.KindMint, 100)))

	err := store.Insert(ctx, testOp("sig1", history.KindMint, 101))
	assert.ErrorIs(t, err, history.ErrDuplicateKey)

	// Same signature, different kind is a distinct record.
	require.NoError(t, store.Insert(ctx, testOp("sig1", history.KindTransfer, 100)))

	ops, err := store.GetBySignature(ctx, "sig1")
	require.NoError(t, err)
	assert.Len(t, ops, 2)
}

func TestOperationStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)

	err := store.Insert(context.Background(), &history.Operation{Kind: history.KindMint})
	assert.ErrorIs(t, err, history.ErrInvalidInput)
}

func TestOperationStore_GetBySignatureNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)

	_, err := store.GetBySignature(context.Background(), "missing")
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestOperationStore_ListRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testOp("sig1", history.KindCreate, 100)))
	require.NoError(t, store.Insert(ctx, testOp("sig2", history.KindMint, 101)))
	require.NoError(t, store.Insert(ctx, testOp("sig3", history.KindTransfer, 102)))

	ops, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "sig3", ops[0].Signature)
	assert.Equal(t, "sig2", ops[1].Signature)
}
