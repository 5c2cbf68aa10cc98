package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKey is a 32-byte ed25519 public key / account address.
type PublicKey [32]byte

// PublicKeyFromBase58 parses a base58-encoded public key.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	var pk PublicKey
	decoded, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode public key: %w", err)
	}
	if len(decoded) != 32 {
		return pk, fmt.Errorf("invalid public key length %d", len(decoded))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// MustPublicKeyFromBase58 parses a base58 public key and panics on failure.
// Intended for package-level program ID constants.
func MustPublicKeyFromBase58(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(fmt.Sprintf("invalid public key %q: %v", s, err))
	}
	return pk
}

// String returns the base58 representation.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// IsZero reports whether the key is all zeroes.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// Keypair holds an ed25519 signing key and its public key.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  PublicKey
}

// NewKeypair generates a new random keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	var pk PublicKey
	copy(pk[:], pub)
	return &Keypair{priv: priv, pub: pk}, nil
}

// KeypairFromSeed deterministically derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed length %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	var pk PublicKey
	copy(pk[:], priv.Public().(ed25519.PublicKey))
	return &Keypair{priv: priv, pub: pk}, nil
}

// PublicKey returns the keypair's public key.
func (kp *Keypair) PublicKey() PublicKey {
	return kp.pub
}

// Sign signs the message with the private key.
func (kp *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.priv, message)
}
