package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface used by this repository.
type RPCClient interface {
	// GetLatestBlockhash retrieves a recent blockhash for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// RequestAirdrop requests lamports for an account on a test network.
	RequestAirdrop(ctx context.Context, pubkey string, lamports uint64) (string, error)

	// SendTransaction submits a base64-encoded signed transaction.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// ConfirmTransaction reports whether a signature has reached the
	// confirmed commitment level.
	ConfirmTransaction(ctx context.Context, signature string) (bool, error)

	// WaitForConfirmation polls ConfirmTransaction until the signature is
	// confirmed or the context is done.
	WaitForConfirmation(ctx context.Context, signature string) error

	// GetMinimumBalanceForRentExemption returns the lamports needed to make
	// an account of the given size rent exempt.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error)

	// GetAccountInfo retrieves account info by public key. Returns nil if
	// the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetBalance retrieves an account's lamport balance.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenAccountBalance retrieves an SPL token account balance.
	GetTokenAccountBalance(ctx context.Context, pubkey string) (*TokenAmount, error)

	// GetTransaction retrieves a confirmed transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// LatestBlockhash is the result of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// TokenAmount is the balance of an SPL token account.
type TokenAmount struct {
	Amount         string // raw amount in base units, as decimal string
	Decimals       uint8
	UIAmountString string
}
