// Package program is the Go contract for the transfer-tokens Anchor program:
// its instruction encoding (8-byte discriminator + Borsh arguments), the
// account lists each instruction expects, and handlers that enforce the
// account constraints before forwarding into the host token ledger.
package program

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"spl-transfer-lab/internal/solana"
)

// ID is the on-chain address of the transfer-tokens program.
var ID = solana.MustPublicKeyFromBase58("ABw4Sw54Hka5hkmhrQ3bMn2XUksAHtoTeqdhrNxQeQgF")

// MetadataProgramID is the Metaplex Token Metadata program, which owns the
// metadata account created alongside each new mint.
var MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// Instruction discriminators. Anchor derives each from the instruction's
// snake_case method name.
var (
	DiscCreateToken    = Discriminator("create_token")
	DiscMintToken      = Discriminator("mint_token")
	DiscTransferTokens = Discriminator("transfer_tokens")
	DiscBurnTokens     = Discriminator("burn_tokens")
)

// Discriminator computes the 8-byte Anchor instruction discriminator:
// sha256("global:<name>")[..8].
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var disc [8]byte
	copy(disc[:], sum[:8])
	return disc
}

// DeriveMetadataAddress derives the Metaplex metadata PDA for a mint.
func DeriveMetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte("metadata"),
		MetadataProgramID[:],
		mint[:],
	}, MetadataProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive metadata address: %w", err)
	}
	return addr, nil
}

// Borsh primitives used by the instruction arguments. Strings are a u32
// little-endian byte length followed by UTF-8 bytes.

func appendBorshU64(data []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(data, v)
}

func appendBorshString(data []byte, s string) []byte {
	data = binary.LittleEndian.AppendUint32(data, uint32(len(s)))
	return append(data, s...)
}

func decodeBorshU64(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, ErrInvalidInstructionData
	}
	return binary.LittleEndian.Uint64(data[:8]), data[8:], nil
}

func decodeBorshString(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", nil, ErrInvalidInstructionData
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(n) {
		return "", nil, ErrInvalidInstructionData
	}
	return string(data[:n]), data[n:], nil
}
