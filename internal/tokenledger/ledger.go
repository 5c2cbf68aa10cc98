// Package tokenledger is an in-process stand-in for the SPL Token program's
// state machine. It maintains mint and token-account state and enforces the
// authority and balance invariants the on-chain program enforces. It exists
// so program handlers can be exercised without a validator; it is not a
// reimplementation of the on-chain ledger.
package tokenledger

import (
	"context"
	"errors"

	"spl-transfer-lab/internal/solana"
)

// Ledger errors.
var (
	ErrMintExists        = errors.New("mint already initialized")
	ErrMintNotFound      = errors.New("mint not found")
	ErrAccountExists     = errors.New("token account already exists")
	ErrAccountNotFound   = errors.New("token account not found")
	ErrMintMismatch      = errors.New("token account belongs to a different mint")
	ErrOwnerMismatch     = errors.New("owner does not match token account")
	ErrAuthorityMismatch = errors.New("authority does not match mint authority")
	ErrInsufficientFunds = errors.New("insufficient token balance")
	ErrSupplyOverflow    = errors.New("mint supply overflow")
)

// MintState is the state of a token mint.
type MintState struct {
	Address         solana.PublicKey
	Decimals        uint8
	Supply          uint64
	MintAuthority   solana.PublicKey
	FreezeAuthority *solana.PublicKey

	// Metadata recorded at creation. The on-chain original stores these in a
	// separate metadata account; the stand-in keeps them on the mint record.
	Name   string
	Symbol string
	URI    string
}

// AccountState is the state of a token account.
type AccountState struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

// Ledger is the surface of the host token program that the instruction
// handlers forward into.
type Ledger interface {
	// InitializeMint creates a new mint. Returns ErrMintExists if the
	// address is already a mint.
	InitializeMint(ctx context.Context, mint MintState) error

	// CreateAccount creates an empty token account at the given address.
	// Returns ErrAccountExists if the address is taken and ErrMintNotFound
	// if the mint is unknown.
	CreateAccount(ctx context.Context, address, mint, owner solana.PublicKey) error

	// Mint retrieves a mint's state. Returns ErrMintNotFound if unknown.
	Mint(ctx context.Context, address solana.PublicKey) (*MintState, error)

	// Account retrieves a token account's state. Returns ErrAccountNotFound
	// if unknown.
	Account(ctx context.Context, address solana.PublicKey) (*AccountState, error)

	// MintTo mints base units to a token account. The authority must match
	// the mint authority.
	MintTo(ctx context.Context, mint, destination, authority solana.PublicKey, amount uint64) error

	// Transfer moves base units between token accounts of the same mint.
	// The owner must own the source account.
	Transfer(ctx context.Context, source, destination, owner solana.PublicKey, amount uint64) error

	// Burn destroys base units from a token account and reduces the mint
	// supply. The owner must own the account.
	Burn(ctx context.Context, mint, account, owner solana.PublicKey, amount uint64) error
}
