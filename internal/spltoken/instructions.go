package spltoken

import (
	"encoding/binary"

	"spl-transfer-lab/internal/solana"
)

// SPL Token instruction tags (single-byte discriminants).
const (
	tagTransfer        = 3
	tagMintTo          = 7
	tagBurn            = 8
	tagTransferChecked = 12
	tagInitializeMint2 = 20
)

// System program instruction indices (little-endian u32 discriminants).
const sysCreateAccount = 0

// CreateAccount builds a System program instruction that creates a new
// account owned by the given program.
func CreateAccount(payer, newAccount solana.PublicKey, lamports, space uint64, owner solana.PublicKey) solana.Instruction {
	data := make([]byte, 0, 52)
	data = binary.LittleEndian.AppendUint32(data, sysCreateAccount)
	data = binary.LittleEndian.AppendUint64(data, lamports)
	data = binary.LittleEndian.AppendUint64(data, space)
	data = append(data, owner[:]...)

	return solana.Instruction{
		ProgramID: SystemProgramID,
		Accounts: []solana.AccountMeta{
			solana.SignerMeta(payer, true),
			solana.SignerMeta(newAccount, true),
		},
		Data: data,
	}
}

// InitializeMint2 builds an instruction that initializes a mint account with
// the given decimals and authorities. freezeAuthority may be nil.
func InitializeMint2(mint solana.PublicKey, decimals uint8, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) solana.Instruction {
	data := make([]byte, 0, 67)
	data = append(data, tagInitializeMint2, decimals)
	data = append(data, mintAuthority[:]...)
	if freezeAuthority != nil {
		data = append(data, 1)
		data = append(data, freezeAuthority[:]...)
	} else {
		data = append(data, 0)
	}

	return solana.Instruction{
		ProgramID: TokenProgramID,
		Accounts: []solana.AccountMeta{
			solana.WritableMeta(mint),
		},
		Data: data,
	}
}

// MintTo builds an instruction that mints base units to a token account.
// The authority must be the mint's mint authority and must sign.
func MintTo(mint, destination, authority solana.PublicKey, amount uint64) solana.Instruction {
	data := make([]byte, 0, 9)
	data = append(data, tagMintTo)
	data = binary.LittleEndian.AppendUint64(data, amount)

	return solana.Instruction{
		ProgramID: TokenProgramID,
		Accounts: []solana.AccountMeta{
			solana.WritableMeta(mint),
			solana.WritableMeta(destination),
			solana.SignerMeta(authority, false),
		},
		Data: data,
	}
}

// Transfer builds an instruction that moves base units between token
// accounts. The owner of the source account must sign.
func Transfer(source, destination, owner solana.PublicKey, amount uint64) solana.Instruction {
	data := make([]byte, 0, 9)
	data = append(data, tagTransfer)
	data = binary.LittleEndian.AppendUint64(data, amount)

	return solana.Instruction{
		ProgramID: TokenProgramID,
		Accounts: []solana.AccountMeta{
			solana.WritableMeta(source),
			solana.WritableMeta(destination),
			solana.SignerMeta(owner, false),
		},
		Data: data,
	}
}

// TransferChecked builds a transfer that additionally verifies the mint and
// its decimal count on chain.
func TransferChecked(source, mint, destination, owner solana.PublicKey, amount uint64, decimals uint8) solana.Instruction {
	data := make([]byte, 0, 10)
	data = append(data, tagTransferChecked)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = append(data, decimals)

	return solana.Instruction{
		ProgramID: TokenProgramID,
		Accounts: []solana.AccountMeta{
			solana.WritableMeta(source),
			solana.Meta(mint),
			solana.WritableMeta(destination),
			solana.SignerMeta(owner, false),
		},
		Data: data,
	}
}

// Burn builds an instruction that destroys base units from a token account,
// reducing the mint's supply. The account owner must sign.
func Burn(account, mint, owner solana.PublicKey, amount uint64) solana.Instruction {
	data := make([]byte, 0, 9)
	data = append(data, tagBurn)
	data = binary.LittleEndian.AppendUint64(data, amount)

	return solana.Instruction{
		ProgramID: TokenProgramID,
		Accounts: []solana.AccountMeta{
			solana.WritableMeta(account),
			solana.WritableMeta(mint),
			solana.SignerMeta(owner, false),
		},
		Data: data,
	}
}

// CreateAssociatedTokenAccount builds an instruction that creates the
// associated token account for (wallet, mint), funded by payer.
func CreateAssociatedTokenAccount(payer, wallet, mint solana.PublicKey) (solana.Instruction, error) {
	ata, err := DeriveAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.Instruction{}, err
	}

	return solana.Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []solana.AccountMeta{
			solana.SignerMeta(payer, true),
			solana.WritableMeta(ata),
			solana.Meta(wallet),
			solana.Meta(mint),
			solana.Meta(SystemProgramID),
			solana.Meta(TokenProgramID),
		},
		Data: []byte{0}, // Create
	}, nil
}
