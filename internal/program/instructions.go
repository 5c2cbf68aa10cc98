package program

import (
	"fmt"

	"spl-transfer-lab/internal/solana"
	"spl-transfer-lab/internal/spltoken"
)

// BuildCreateToken builds a create_token instruction. The payer funds the
// new accounts and becomes both mint and freeze authority; the mint account
// must co-sign the transaction. The metadata account is the Metaplex PDA
// for the mint.
func BuildCreateToken(payer, mint solana.PublicKey, title, symbol, uri string) (solana.Instruction, error) {
	metadata, err := DeriveMetadataAddress(mint)
	if err != nil {
		return solana.Instruction{}, err
	}

	data := make([]byte, 0, 8+12+len(title)+len(symbol)+len(uri))
	data = append(data, DiscCreateToken[:]...)
	data = appendBorshString(data, title)
	data = appendBorshString(data, symbol)
	data = appendBorshString(data, uri)

	return solana.Instruction{
		ProgramID: ID,
		Accounts: []solana.AccountMeta{
			solana.SignerMeta(payer, true),
			solana.SignerMeta(mint, true),
			solana.WritableMeta(metadata),
			solana.Meta(spltoken.TokenProgramID),
			solana.Meta(MetadataProgramID),
			solana.Meta(spltoken.SystemProgramID),
			solana.Meta(spltoken.SysvarRentID),
		},
		Data: data,
	}, nil
}

// BuildMintToken builds a mint_token instruction minting whole tokens to the
// recipient's associated token account. The amount is in whole tokens; the
// handler scales it by the mint's decimals.
func BuildMintToken(mintAuthority, recipient, mint solana.PublicKey, amount uint64) (solana.Instruction, error) {
	ata, err := spltoken.DeriveAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive recipient token account: %w", err)
	}

	data := make([]byte, 0, 16)
	data = append(data, DiscMintToken[:]...)
	data = appendBorshU64(data, amount)

	return solana.Instruction{
		ProgramID: ID,
		Accounts: []solana.AccountMeta{
			solana.SignerMeta(mintAuthority, true),
			solana.Meta(recipient),
			solana.WritableMeta(mint),
			solana.WritableMeta(ata),
			solana.Meta(spltoken.TokenProgramID),
			solana.Meta(spltoken.AssociatedTokenProgramID),
			solana.Meta(spltoken.SystemProgramID),
		},
		Data: data,
	}, nil
}

// BuildTransferTokens builds a transfer_tokens instruction moving whole
// tokens from the sender's associated token account to the recipient's.
func BuildTransferTokens(sender, recipient, mint solana.PublicKey, amount uint64) (solana.Instruction, error) {
	senderATA, err := spltoken.DeriveAssociatedTokenAddress(sender, mint)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive sender token account: %w", err)
	}
	recipientATA, err := spltoken.DeriveAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive recipient token account: %w", err)
	}

	data := make([]byte, 0, 16)
	data = append(data, DiscTransferTokens[:]...)
	data = appendBorshU64(data, amount)

	return solana.Instruction{
		ProgramID: ID,
		Accounts: []solana.AccountMeta{
			solana.SignerMeta(sender, true),
			solana.Meta(recipient),
			solana.WritableMeta(mint),
			solana.WritableMeta(senderATA),
			solana.WritableMeta(recipientATA),
			solana.Meta(spltoken.TokenProgramID),
			solana.Meta(spltoken.AssociatedTokenProgramID),
			solana.Meta(spltoken.SystemProgramID),
		},
		Data: data,
	}, nil
}

// BuildBurnTokens builds a burn_tokens instruction destroying whole tokens
// from the owner's associated token account.
func BuildBurnTokens(owner, mint solana.PublicKey, amount uint64) (solana.Instruction, error) {
	ata, err := spltoken.DeriveAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive owner token account: %w", err)
	}

	data := make([]byte, 0, 16)
	data = append(data, DiscBurnTokens[:]...)
	data = appendBorshU64(data, amount)

	return solana.Instruction{
		ProgramID: ID,
		Accounts: []solana.AccountMeta{
			solana.SignerMeta(owner, true),
			solana.WritableMeta(mint),
			solana.WritableMeta(ata),
			solana.Meta(spltoken.TokenProgramID),
		},
		Data: data,
	}, nil
}
