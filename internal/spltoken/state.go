package spltoken

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"spl-transfer-lab/internal/solana"
)

// Mint is the decoded state of an SPL Token mint account.
type Mint struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

// AccountState is a token account's state discriminant.
type AccountState uint8

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

// Account is the decoded state of an SPL Token account.
type Account struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

// decodeCOptionKey reads a 4-byte option tag followed by a 32-byte key.
func decodeCOptionKey(data []byte) (*solana.PublicKey, error) {
	if len(data) < 36 {
		return nil, fmt.Errorf("truncated COption<Pubkey>")
	}
	switch binary.LittleEndian.Uint32(data) {
	case 0:
		return nil, nil
	case 1:
		var pk solana.PublicKey
		copy(pk[:], data[4:36])
		return &pk, nil
	default:
		return nil, fmt.Errorf("invalid COption tag %d", binary.LittleEndian.Uint32(data))
	}
}

// DecodeMint unpacks the 82-byte mint account layout.
func DecodeMint(data []byte) (*Mint, error) {
	if len(data) != MintSize {
		return nil, fmt.Errorf("invalid mint data length %d, want %d", len(data), MintSize)
	}

	mintAuthority, err := decodeCOptionKey(data[0:36])
	if err != nil {
		return nil, fmt.Errorf("mint authority: %w", err)
	}
	freezeAuthority, err := decodeCOptionKey(data[46:82])
	if err != nil {
		return nil, fmt.Errorf("freeze authority: %w", err)
	}

	return &Mint{
		MintAuthority:   mintAuthority,
		Supply:          binary.LittleEndian.Uint64(data[36:44]),
		Decimals:        data[44],
		IsInitialized:   data[45] == 1,
		FreezeAuthority: freezeAuthority,
	}, nil
}

// DecodeAccount unpacks the 165-byte token account layout.
func DecodeAccount(data []byte) (*Account, error) {
	if len(data) != AccountSize {
		return nil, fmt.Errorf("invalid token account data length %d, want %d", len(data), AccountSize)
	}

	acc := &Account{
		Amount:          binary.LittleEndian.Uint64(data[64:72]),
		State:           AccountState(data[108]),
		DelegatedAmount: binary.LittleEndian.Uint64(data[121:129]),
	}
	copy(acc.Mint[:], data[0:32])
	copy(acc.Owner[:], data[32:64])

	delegate, err := decodeCOptionKey(data[72:108])
	if err != nil {
		return nil, fmt.Errorf("delegate: %w", err)
	}
	acc.Delegate = delegate

	switch binary.LittleEndian.Uint32(data[109:113]) {
	case 0:
	case 1:
		native := binary.LittleEndian.Uint64(data[113:121])
		acc.IsNative = &native
	default:
		return nil, fmt.Errorf("invalid COption tag for isNative")
	}

	closeAuthority, err := decodeCOptionKey(data[129:165])
	if err != nil {
		return nil, fmt.Errorf("close authority: %w", err)
	}
	acc.CloseAuthority = closeAuthority

	return acc, nil
}

// encodeCOptionKey writes a 4-byte option tag followed by a 32-byte key.
func encodeCOptionKey(data []byte, pk *solana.PublicKey) {
	if pk != nil {
		binary.LittleEndian.PutUint32(data[0:4], 1)
		copy(data[4:36], pk[:])
	}
}

// EncodeMint packs a mint into the 82-byte account layout.
func EncodeMint(m *Mint) []byte {
	data := make([]byte, MintSize)
	encodeCOptionKey(data[0:36], m.MintAuthority)
	binary.LittleEndian.PutUint64(data[36:44], m.Supply)
	data[44] = m.Decimals
	if m.IsInitialized {
		data[45] = 1
	}
	encodeCOptionKey(data[46:82], m.FreezeAuthority)
	return data
}

// EncodeAccount packs a token account into the 165-byte account layout.
func EncodeAccount(a *Account) []byte {
	data := make([]byte, AccountSize)
	copy(data[0:32], a.Mint[:])
	copy(data[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(data[64:72], a.Amount)
	encodeCOptionKey(data[72:108], a.Delegate)
	data[108] = byte(a.State)
	if a.IsNative != nil {
		binary.LittleEndian.PutUint32(data[109:113], 1)
		binary.LittleEndian.PutUint64(data[113:121], *a.IsNative)
	}
	binary.LittleEndian.PutUint64(data[121:129], a.DelegatedAmount)
	encodeCOptionKey(data[129:165], a.CloseAuthority)
	return data
}

// DecodeMintBase64 unpacks a mint from base64 account data, as returned by
// getAccountInfo.
func DecodeMintBase64(data string) (*Mint, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 account data: %w", err)
	}
	return DecodeMint(raw)
}

// DecodeAccountBase64 unpacks a token account from base64 account data.
func DecodeAccountBase64(data string) (*Account, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 account data: %w", err)
	}
	return DecodeAccount(raw)
}
