// Package spltoken provides client-side bindings for the SPL Token program,
// the Associated Token Account program and the System program: instruction
// builders, account layout decoding and address derivation.
package spltoken

import "spl-transfer-lab/internal/solana"

// Well-known program IDs.
var (
	SystemProgramID          = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	TokenProgramID           = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysvarRentID             = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

// Account data sizes, fixed by the SPL Token program.
const (
	MintSize    = 82
	AccountSize = 165
)

// LamportsPerSol is the number of lamports in one SOL.
const LamportsPerSol = 1_000_000_000
