package program

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"spl-transfer-lab/internal/solana"
	"spl-transfer-lab/internal/spltoken"
	"spl-transfer-lab/internal/tokenledger"
)

// CreateDecimals is the decimal count assigned to every mint created through
// create_token.
const CreateDecimals = 9

// Processor executes program instructions against a host token ledger. Each
// instruction validates its account constraints first and then performs a
// single token operation; ledger errors propagate unchanged and nothing is
// retried.
type Processor struct {
	ledger tokenledger.Ledger
	logger *log.Logger
}

// NewProcessor creates a processor backed by the given ledger. logger may be
// nil to disable instruction logging.
func NewProcessor(ledger tokenledger.Ledger, logger *log.Logger) *Processor {
	return &Processor{ledger: ledger, logger: logger}
}

func (p *Processor) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

// Execute dispatches an instruction to its handler by discriminator.
func (p *Processor) Execute(ctx context.Context, ix solana.Instruction) error {
	if ix.ProgramID != ID {
		return ErrWrongProgram
	}
	if len(ix.Data) < 8 {
		return ErrInvalidInstructionData
	}

	var disc [8]byte
	copy(disc[:], ix.Data[:8])
	args := ix.Data[8:]

	switch disc {
	case DiscCreateToken:
		return p.createToken(ctx, ix.Accounts, args)
	case DiscMintToken:
		return p.mintToken(ctx, ix.Accounts, args)
	case DiscTransferTokens:
		return p.transferTokens(ctx, ix.Accounts, args)
	case DiscBurnTokens:
		return p.burnTokens(ctx, ix.Accounts, args)
	default:
		return ErrUnknownInstruction
	}
}

// accountRule is one entry of an instruction's expected account list. A zero
// Address accepts any account at that position.
type accountRule struct {
	name     string
	address  solana.PublicKey
	signer   bool
	writable bool
}

func validateAccounts(accounts []solana.AccountMeta, rules []accountRule) error {
	if len(accounts) != len(rules) {
		return fmt.Errorf("%w: got %d, want %d", ErrAccountCount, len(accounts), len(rules))
	}
	for i, rule := range rules {
		acc := accounts[i]
		if !rule.address.IsZero() && acc.PublicKey != rule.address {
			return fmt.Errorf("%s: %w", rule.name, ErrAccountAddressMismatch)
		}
		if rule.signer && !acc.IsSigner {
			return fmt.Errorf("%s: %w", rule.name, ErrMissingSigner)
		}
		if rule.writable && !acc.IsWritable {
			return fmt.Errorf("%s: %w", rule.name, ErrAccountNotWritable)
		}
	}
	return nil
}

// scaleToBaseUnits converts a whole-token amount to base units by multiplying
// with 10^decimals, rejecting overflow instead of wrapping.
func scaleToBaseUnits(amount uint64, decimals uint8) (uint64, error) {
	base := amount
	for i := uint8(0); i < decimals; i++ {
		if base > math.MaxUint64/10 {
			return 0, ErrAmountOverflow
		}
		base *= 10
	}
	return base, nil
}

func (p *Processor) createToken(ctx context.Context, accounts []solana.AccountMeta, args []byte) error {
	title, args, err := decodeBorshString(args)
	if err != nil {
		return err
	}
	symbol, args, err := decodeBorshString(args)
	if err != nil {
		return err
	}
	uri, _, err := decodeBorshString(args)
	if err != nil {
		return err
	}

	if len(accounts) != 7 {
		return fmt.Errorf("%w: got %d, want 7", ErrAccountCount, len(accounts))
	}
	payer := accounts[0].PublicKey
	mint := accounts[1].PublicKey

	metadata, err := DeriveMetadataAddress(mint)
	if err != nil {
		return err
	}

	err = validateAccounts(accounts, []accountRule{
		{name: "payer", signer: true, writable: true},
		{name: "mint_account", signer: true, writable: true},
		{name: "metadata_account", address: metadata, writable: true},
		{name: "token_program", address: spltoken.TokenProgramID},
		{name: "token_metadata_program", address: MetadataProgramID},
		{name: "system_program", address: spltoken.SystemProgramID},
		{name: "rent", address: spltoken.SysvarRentID},
	})
	if err != nil {
		return err
	}

	p.logf("Instruction: CreateToken")
	p.logf("Creating mint %s (%s)", mint, symbol)

	freeze := payer
	if err := p.ledger.InitializeMint(ctx, tokenledger.MintState{
		Address:         mint,
		Decimals:        CreateDecimals,
		MintAuthority:   payer,
		FreezeAuthority: &freeze,
		Name:            title,
		Symbol:          symbol,
		URI:             uri,
	}); err != nil {
		return err
	}

	p.logf("Token created successfully.")
	return nil
}

func (p *Processor) mintToken(ctx context.Context, accounts []solana.AccountMeta, args []byte) error {
	amount, _, err := decodeBorshU64(args)
	if err != nil {
		return err
	}

	if len(accounts) != 7 {
		return fmt.Errorf("%w: got %d, want 7", ErrAccountCount, len(accounts))
	}
	authority := accounts[0].PublicKey
	recipient := accounts[1].PublicKey
	mint := accounts[2].PublicKey

	ata, err := spltoken.DeriveAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return err
	}

	err = validateAccounts(accounts, []accountRule{
		{name: "mint_authority", signer: true, writable: true},
		{name: "recipient"},
		{name: "mint_account", writable: true},
		{name: "associated_token_account", address: ata, writable: true},
		{name: "token_program", address: spltoken.TokenProgramID},
		{name: "associated_token_program", address: spltoken.AssociatedTokenProgramID},
		{name: "system_program", address: spltoken.SystemProgramID},
	})
	if err != nil {
		return err
	}

	m, err := p.ledger.Mint(ctx, mint)
	if err != nil {
		return err
	}
	baseUnits, err := scaleToBaseUnits(amount, m.Decimals)
	if err != nil {
		return err
	}

	// init_if_needed on the recipient's token account.
	if err := p.ensureAccount(ctx, ata, mint, recipient); err != nil {
		return err
	}

	p.logf("Instruction: MintToken")
	p.logf("Minting %d base units to %s", baseUnits, ata)

	if err := p.ledger.MintTo(ctx, mint, ata, authority, baseUnits); err != nil {
		return err
	}

	p.logf("Token minted successfully.")
	return nil
}

func (p *Processor) transferTokens(ctx context.Context, accounts []solana.AccountMeta, args []byte) error {
	amount, _, err := decodeBorshU64(args)
	if err != nil {
		return err
	}

	if len(accounts) != 8 {
		return fmt.Errorf("%w: got %d, want 8", ErrAccountCount, len(accounts))
	}
	sender := accounts[0].PublicKey
	recipient := accounts[1].PublicKey
	mint := accounts[2].PublicKey

	senderATA, err := spltoken.DeriveAssociatedTokenAddress(sender, mint)
	if err != nil {
		return err
	}
	recipientATA, err := spltoken.DeriveAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return err
	}

	err = validateAccounts(accounts, []accountRule{
		{name: "sender", signer: true, writable: true},
		{name: "recipient"},
		{name: "mint_account", writable: true},
		{name: "sender_token_account", address: senderATA, writable: true},
		{name: "recipient_token_account", address: recipientATA, writable: true},
		{name: "token_program", address: spltoken.TokenProgramID},
		{name: "associated_token_program", address: spltoken.AssociatedTokenProgramID},
		{name: "system_program", address: spltoken.SystemProgramID},
	})
	if err != nil {
		return err
	}

	m, err := p.ledger.Mint(ctx, mint)
	if err != nil {
		return err
	}
	baseUnits, err := scaleToBaseUnits(amount, m.Decimals)
	if err != nil {
		return err
	}

	// init_if_needed on the recipient's token account only; the sender's
	// must already exist.
	if err := p.ensureAccount(ctx, recipientATA, mint, recipient); err != nil {
		return err
	}

	p.logf("Instruction: TransferTokens")
	p.logf("Transferring %d base units from %s to %s", baseUnits, senderATA, recipientATA)

	if err := p.ledger.Transfer(ctx, senderATA, recipientATA, sender, baseUnits); err != nil {
		return err
	}

	p.logf("Tokens transferred successfully.")
	return nil
}

func (p *Processor) burnTokens(ctx context.Context, accounts []solana.AccountMeta, args []byte) error {
	amount, _, err := decodeBorshU64(args)
	if err != nil {
		return err
	}

	if len(accounts) != 4 {
		return fmt.Errorf("%w: got %d, want 4", ErrAccountCount, len(accounts))
	}
	owner := accounts[0].PublicKey
	mint := accounts[1].PublicKey

	ata, err := spltoken.DeriveAssociatedTokenAddress(owner, mint)
	if err != nil {
		return err
	}

	err = validateAccounts(accounts, []accountRule{
		{name: "owner", signer: true, writable: true},
		{name: "mint_account", writable: true},
		{name: "token_account", address: ata, writable: true},
		{name: "token_program", address: spltoken.TokenProgramID},
	})
	if err != nil {
		return err
	}

	m, err := p.ledger.Mint(ctx, mint)
	if err != nil {
		return err
	}
	baseUnits, err := scaleToBaseUnits(amount, m.Decimals)
	if err != nil {
		return err
	}

	p.logf("Instruction: BurnTokens")
	p.logf("Burning %d base units from %s", baseUnits, ata)

	if err := p.ledger.Burn(ctx, mint, ata, owner, baseUnits); err != nil {
		return err
	}

	p.logf("Tokens burned successfully.")
	return nil
}

// ensureAccount creates the token account if it does not exist yet.
func (p *Processor) ensureAccount(ctx context.Context, address, mint, owner solana.PublicKey) error {
	_, err := p.ledger.Account(ctx, address)
	if errors.Is(err, tokenledger.ErrAccountNotFound) {
		return p.ledger.CreateAccount(ctx, address, mint, owner)
	}
	return err
}
