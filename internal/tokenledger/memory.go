package tokenledger

import (
	"context"
	"math"
	"sync"

	"spl-transfer-lab/internal/solana"
)

// MemoryLedger is an in-memory implementation of Ledger.
type MemoryLedger struct {
	mu       sync.RWMutex
	mints    map[solana.PublicKey]*MintState
	accounts map[solana.PublicKey]*AccountState
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		mints:    make(map[solana.PublicKey]*MintState),
		accounts: make(map[solana.PublicKey]*AccountState),
	}
}

// Compile-time interface check.
var _ Ledger = (*MemoryLedger)(nil)

// Clone returns a deep copy of the ledger. Used to execute a batch of
// operations tentatively and commit by adopting the clone.
func (l *MemoryLedger) Clone() *MemoryLedger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := NewMemoryLedger()
	for addr, mint := range l.mints {
		stored := *mint
		if mint.FreezeAuthority != nil {
			freeze := *mint.FreezeAuthority
			stored.FreezeAuthority = &freeze
		}
		out.mints[addr] = &stored
	}
	for addr, acc := range l.accounts {
		stored := *acc
		out.accounts[addr] = &stored
	}
	return out
}

// InitializeMint creates a new mint.
func (l *MemoryLedger) InitializeMint(_ context.Context, mint MintState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mints[mint.Address]; ok {
		return ErrMintExists
	}

	stored := mint
	if mint.FreezeAuthority != nil {
		freeze := *mint.FreezeAuthority
		stored.FreezeAuthority = &freeze
	}
	l.mints[mint.Address] = &stored
	return nil
}

// CreateAccount creates an empty token account.
func (l *MemoryLedger) CreateAccount(_ context.Context, address, mint, owner solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mints[mint]; !ok {
		return ErrMintNotFound
	}
	if _, ok := l.accounts[address]; ok {
		return ErrAccountExists
	}

	l.accounts[address] = &AccountState{
		Address: address,
		Mint:    mint,
		Owner:   owner,
	}
	return nil
}

// Mint retrieves a copy of a mint's state.
func (l *MemoryLedger) Mint(_ context.Context, address solana.PublicKey) (*MintState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	mint, ok := l.mints[address]
	if !ok {
		return nil, ErrMintNotFound
	}

	out := *mint
	if mint.FreezeAuthority != nil {
		freeze := *mint.FreezeAuthority
		out.FreezeAuthority = &freeze
	}
	return &out, nil
}

// Account retrieves a copy of a token account's state.
func (l *MemoryLedger) Account(_ context.Context, address solana.PublicKey) (*AccountState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[address]
	if !ok {
		return nil, ErrAccountNotFound
	}

	out := *acc
	return &out, nil
}

// MintTo mints base units to a token account.
func (l *MemoryLedger) MintTo(_ context.Context, mint, destination, authority solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mints[mint]
	if !ok {
		return ErrMintNotFound
	}
	if m.MintAuthority != authority {
		return ErrAuthorityMismatch
	}

	dest, ok := l.accounts[destination]
	if !ok {
		return ErrAccountNotFound
	}
	if dest.Mint != mint {
		return ErrMintMismatch
	}

	if amount > math.MaxUint64-m.Supply {
		return ErrSupplyOverflow
	}

	m.Supply += amount
	dest.Amount += amount
	return nil
}

// Transfer moves base units between token accounts.
func (l *MemoryLedger) Transfer(_ context.Context, source, destination, owner solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, ok := l.accounts[source]
	if !ok {
		return ErrAccountNotFound
	}
	dst, ok := l.accounts[destination]
	if !ok {
		return ErrAccountNotFound
	}

	if src.Owner != owner {
		return ErrOwnerMismatch
	}
	if src.Mint != dst.Mint {
		return ErrMintMismatch
	}
	if src.Amount < amount {
		return ErrInsufficientFunds
	}

	src.Amount -= amount
	dst.Amount += amount
	return nil
}

// Burn destroys base units and reduces the mint supply.
func (l *MemoryLedger) Burn(_ context.Context, mint, account, owner solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mints[mint]
	if !ok {
		return ErrMintNotFound
	}
	acc, ok := l.accounts[account]
	if !ok {
		return ErrAccountNotFound
	}

	if acc.Mint != mint {
		return ErrMintMismatch
	}
	if acc.Owner != owner {
		return ErrOwnerMismatch
	}
	if acc.Amount < amount {
		return ErrInsufficientFunds
	}

	acc.Amount -= amount
	m.Supply -= amount
	return nil
}
