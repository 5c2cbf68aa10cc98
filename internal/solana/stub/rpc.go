// Package stub provides an in-process stand-in for a test validator. Its
// RPCClient accepts wire-format transactions, verifies their signatures and
// executes system, token, associated-token and transfer-tokens instructions
// against an in-memory token ledger, so client flows can be tested end to
// end without a validator.
package stub

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mr-tron/base58"

	"spl-transfer-lab/internal/program"
	"spl-transfer-lab/internal/solana"
	"spl-transfer-lab/internal/spltoken"
	"spl-transfer-lab/internal/tokenledger"
)

// ErrNotFound is returned when a transaction or account is not found.
var ErrNotFound = errors.New("not found")

// Rent parameters used for rent-exemption quotes, matching the mainnet
// defaults (2-year exemption at 3480 lamports per byte-year, 128 bytes of
// account overhead).
const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionYears         = 2
)

// RPCClient implements solana.RPCClient against an in-memory ledger.
type RPCClient struct {
	mu sync.Mutex

	ledger *tokenledger.MemoryLedger
	proc   *program.Processor

	// Native lamport balances, plus the owner program of every account
	// created through the system program.
	balances map[solana.PublicKey]uint64
	owners   map[solana.PublicKey]solana.PublicKey

	transactions map[string]*solana.Transaction
	slot         int64
}

// NewRPCClient creates a stub client with an empty ledger.
func NewRPCClient() *RPCClient {
	ledger := tokenledger.NewMemoryLedger()
	return &RPCClient{
		ledger:       ledger,
		proc:         program.NewProcessor(ledger, nil),
		balances:     make(map[solana.PublicKey]uint64),
		owners:       make(map[solana.PublicKey]solana.PublicKey),
		transactions: make(map[string]*solana.Transaction),
		slot:         1,
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// Ledger exposes the backing token ledger for test assertions.
func (c *RPCClient) Ledger() *tokenledger.MemoryLedger {
	return c.ledger
}

// GetLatestBlockhash fabricates a blockhash from the current slot.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := sha256.Sum256([]byte(fmt.Sprintf("blockhash:%d", c.slot)))
	return &solana.LatestBlockhash{
		Blockhash:            base58.Encode(hash[:]),
		LastValidBlockHeight: uint64(c.slot) + 150,
	}, nil
}

// RequestAirdrop credits lamports and records a confirmed transaction.
func (c *RPCClient) RequestAirdrop(_ context.Context, pubkey string, lamports uint64) (string, error) {
	pk, err := solana.PublicKeyFromBase58(pubkey)
	if err != nil {
		return "", fmt.Errorf("parse pubkey: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.balances[pk] += lamports
	sig := c.fabricateSignature("airdrop", pubkey)
	c.recordTransaction(sig, invokeLogs(spltoken.SystemProgramID))
	return sig, nil
}

// SendTransaction verifies and executes a base64 wire-format transaction.
// Execution failures are returned as errors, mirroring preflight rejection.
func (c *RPCClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}
	tx, err := solana.DeserializeTransaction(raw)
	if err != nil {
		return "", fmt.Errorf("deserialize transaction: %w", err)
	}
	if err := tx.VerifySignatures(); err != nil {
		return "", fmt.Errorf("verify signatures: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Instructions run against a copy of the state; a failed instruction
	// discards the copy so no partial mutations survive, like a rejected
	// transaction on a validator.
	prevLedger, prevProc := c.ledger, c.proc
	prevBalances, prevOwners := c.balances, c.owners

	c.ledger = prevLedger.Clone()
	c.proc = program.NewProcessor(c.ledger, nil)
	c.balances = cloneMap(prevBalances)
	c.owners = cloneMap(prevOwners)

	var logs []string
	for _, ix := range tx.Message().Instructions() {
		ixLogs, err := c.executeInstruction(ctx, ix)
		logs = append(logs, ixLogs...)
		if err != nil {
			c.ledger, c.proc = prevLedger, prevProc
			c.balances, c.owners = prevBalances, prevOwners
			return "", fmt.Errorf("instruction failed: %w", err)
		}
	}

	sig := tx.Signature()
	c.recordTransaction(sig, logs)
	return sig, nil
}

func cloneMap[V any](src map[solana.PublicKey]V) map[solana.PublicKey]V {
	out := make(map[solana.PublicKey]V, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// ConfirmTransaction reports whether the signature was executed.
func (c *RPCClient) ConfirmTransaction(_ context.Context, signature string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.transactions[signature]
	return ok, nil
}

// WaitForConfirmation resolves immediately; the stub confirms at execution.
func (c *RPCClient) WaitForConfirmation(ctx context.Context, signature string) error {
	confirmed, err := c.ConfirmTransaction(ctx, signature)
	if err != nil {
		return err
	}
	if !confirmed {
		return fmt.Errorf("transaction %s: %w", signature, ErrNotFound)
	}
	return nil
}

// GetMinimumBalanceForRentExemption quotes rent for an account size.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, dataLen int) (uint64, error) {
	return uint64(accountStorageOverhead+dataLen) * lamportsPerByteYear * exemptionYears, nil
}

// GetAccountInfo serves ledger-backed accounts in the SPL wire layouts and
// native accounts with empty data. Returns nil for unknown accounts.
func (c *RPCClient) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	pk, err := solana.PublicKeyFromBase58(pubkey)
	if err != nil {
		return nil, fmt.Errorf("parse pubkey: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if mint, err := c.ledger.Mint(ctx, pk); err == nil {
		data := spltoken.EncodeMint(&spltoken.Mint{
			MintAuthority:   &mint.MintAuthority,
			Supply:          mint.Supply,
			Decimals:        mint.Decimals,
			IsInitialized:   true,
			FreezeAuthority: mint.FreezeAuthority,
		})
		return &solana.AccountInfo{
			Lamports: c.balances[pk],
			Owner:    spltoken.TokenProgramID.String(),
			Data:     base64.StdEncoding.EncodeToString(data),
		}, nil
	}

	if acc, err := c.ledger.Account(ctx, pk); err == nil {
		data := spltoken.EncodeAccount(&spltoken.Account{
			Mint:   acc.Mint,
			Owner:  acc.Owner,
			Amount: acc.Amount,
			State:  spltoken.AccountStateInitialized,
		})
		return &solana.AccountInfo{
			Lamports: c.balances[pk],
			Owner:    spltoken.TokenProgramID.String(),
			Data:     base64.StdEncoding.EncodeToString(data),
		}, nil
	}

	if lamports, ok := c.balances[pk]; ok {
		owner := spltoken.SystemProgramID
		if o, ok := c.owners[pk]; ok {
			owner = o
		}
		return &solana.AccountInfo{Lamports: lamports, Owner: owner.String()}, nil
	}

	return nil, nil
}

// GetBalance retrieves an account's lamport balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	pk, err := solana.PublicKeyFromBase58(pubkey)
	if err != nil {
		return 0, fmt.Errorf("parse pubkey: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.balances[pk], nil
}

// GetTokenAccountBalance retrieves an SPL token account balance.
func (c *RPCClient) GetTokenAccountBalance(ctx context.Context, pubkey string) (*solana.TokenAmount, error) {
	pk, err := solana.PublicKeyFromBase58(pubkey)
	if err != nil {
		return nil, fmt.Errorf("parse pubkey: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	acc, err := c.ledger.Account(ctx, pk)
	if err != nil {
		return nil, fmt.Errorf("token account %s: %w", pubkey, ErrNotFound)
	}
	mint, err := c.ledger.Mint(ctx, acc.Mint)
	if err != nil {
		return nil, fmt.Errorf("mint for token account %s: %w", pubkey, err)
	}

	return &solana.TokenAmount{
		Amount:         strconv.FormatUint(acc.Amount, 10),
		Decimals:       mint.Decimals,
		UIAmountString: formatUIAmount(acc.Amount, mint.Decimals),
	}, nil
}

// GetTransaction retrieves an executed transaction by signature.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// executeInstruction dispatches one instruction by program ID. Callers hold
// the mutex.
func (c *RPCClient) executeInstruction(ctx context.Context, ix solana.Instruction) ([]string, error) {
	switch ix.ProgramID {
	case spltoken.SystemProgramID:
		return c.executeSystem(ix)
	case spltoken.TokenProgramID:
		return c.executeToken(ctx, ix)
	case spltoken.AssociatedTokenProgramID:
		return c.executeAssociatedToken(ctx, ix)
	case program.ID:
		return c.executeProgram(ctx, ix)
	default:
		return nil, fmt.Errorf("unsupported program %s", ix.ProgramID)
	}
}

func (c *RPCClient) executeSystem(ix solana.Instruction) ([]string, error) {
	logs := invokeLogs(spltoken.SystemProgramID)

	if len(ix.Data) < 4 || binary.LittleEndian.Uint32(ix.Data[:4]) != 0 {
		return logs[:1], fmt.Errorf("unsupported system instruction")
	}
	// CreateAccount: lamports u64, space u64, owner pubkey.
	if len(ix.Data) != 52 || len(ix.Accounts) != 2 {
		return logs[:1], fmt.Errorf("malformed create account instruction")
	}

	payer := ix.Accounts[0].PublicKey
	newAccount := ix.Accounts[1].PublicKey
	lamports := binary.LittleEndian.Uint64(ix.Data[4:12])
	var owner solana.PublicKey
	copy(owner[:], ix.Data[20:52])

	if c.balances[payer] < lamports {
		return logs[:1], fmt.Errorf("insufficient lamports for account creation")
	}
	if _, exists := c.owners[newAccount]; exists {
		return logs[:1], fmt.Errorf("account %s already exists", newAccount)
	}

	c.balances[payer] -= lamports
	c.balances[newAccount] += lamports
	c.owners[newAccount] = owner
	return logs, nil
}

func (c *RPCClient) executeToken(ctx context.Context, ix solana.Instruction) ([]string, error) {
	logs := invokeLogs(spltoken.TokenProgramID)

	if len(ix.Data) < 1 {
		return logs[:1], fmt.Errorf("empty token instruction")
	}

	var err error
	switch ix.Data[0] {
	case 20: // InitializeMint2
		if len(ix.Data) < 35 || len(ix.Accounts) < 1 {
			return logs[:1], fmt.Errorf("malformed initialize mint instruction")
		}
		state := tokenledger.MintState{
			Address:  ix.Accounts[0].PublicKey,
			Decimals: ix.Data[1],
		}
		copy(state.MintAuthority[:], ix.Data[2:34])
		if ix.Data[34] == 1 {
			if len(ix.Data) != 67 {
				return logs[:1], fmt.Errorf("malformed freeze authority")
			}
			var freeze solana.PublicKey
			copy(freeze[:], ix.Data[35:67])
			state.FreezeAuthority = &freeze
		}
		err = c.ledger.InitializeMint(ctx, state)

	case 7: // MintTo
		if len(ix.Data) != 9 || len(ix.Accounts) < 3 {
			return logs[:1], fmt.Errorf("malformed mint to instruction")
		}
		amount := binary.LittleEndian.Uint64(ix.Data[1:9])
		err = c.ledger.MintTo(ctx, ix.Accounts[0].PublicKey, ix.Accounts[1].PublicKey, ix.Accounts[2].PublicKey, amount)

	case 3: // Transfer
		if len(ix.Data) != 9 || len(ix.Accounts) < 3 {
			return logs[:1], fmt.Errorf("malformed transfer instruction")
		}
		amount := binary.LittleEndian.Uint64(ix.Data[1:9])
		err = c.ledger.Transfer(ctx, ix.Accounts[0].PublicKey, ix.Accounts[1].PublicKey, ix.Accounts[2].PublicKey, amount)

	case 12: // TransferChecked
		if len(ix.Data) != 10 || len(ix.Accounts) < 4 {
			return logs[:1], fmt.Errorf("malformed transfer checked instruction")
		}
		amount := binary.LittleEndian.Uint64(ix.Data[1:9])
		mint, mErr := c.ledger.Mint(ctx, ix.Accounts[1].PublicKey)
		if mErr != nil {
			return logs[:1], mErr
		}
		if mint.Decimals != ix.Data[9] {
			return logs[:1], fmt.Errorf("decimals mismatch: got %d, mint has %d", ix.Data[9], mint.Decimals)
		}
		err = c.ledger.Transfer(ctx, ix.Accounts[0].PublicKey, ix.Accounts[2].PublicKey, ix.Accounts[3].PublicKey, amount)

	case 8: // Burn
		if len(ix.Data) != 9 || len(ix.Accounts) < 3 {
			return logs[:1], fmt.Errorf("malformed burn instruction")
		}
		amount := binary.LittleEndian.Uint64(ix.Data[1:9])
		err = c.ledger.Burn(ctx, ix.Accounts[1].PublicKey, ix.Accounts[0].PublicKey, ix.Accounts[2].PublicKey, amount)

	default:
		return logs[:1], fmt.Errorf("unsupported token instruction tag %d", ix.Data[0])
	}

	if err != nil {
		return logs[:1], err
	}
	return logs, nil
}

func (c *RPCClient) executeAssociatedToken(ctx context.Context, ix solana.Instruction) ([]string, error) {
	logs := invokeLogs(spltoken.AssociatedTokenProgramID)

	// Create: [payer, ata, wallet, mint, system program, token program].
	if len(ix.Accounts) < 6 {
		return logs[:1], fmt.Errorf("malformed create associated token account instruction")
	}

	ata := ix.Accounts[1].PublicKey
	wallet := ix.Accounts[2].PublicKey
	mint := ix.Accounts[3].PublicKey

	expected, err := spltoken.DeriveAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return logs[:1], err
	}
	if ata != expected {
		return logs[:1], fmt.Errorf("associated token address mismatch")
	}

	if err := c.ledger.CreateAccount(ctx, ata, mint, wallet); err != nil {
		return logs[:1], err
	}
	return logs, nil
}

// executeProgram runs a transfer-tokens instruction and emits Anchor-style
// log lines, so recorded transactions classify the same way real ones do.
func (c *RPCClient) executeProgram(ctx context.Context, ix solana.Instruction) ([]string, error) {
	logs := []string{fmt.Sprintf("Program %s invoke [1]", program.ID)}

	if name := instructionName(ix.Data); name != "" {
		logs = append(logs, "Program log: Instruction: "+name)
	}

	if err := c.proc.Execute(ctx, ix); err != nil {
		return logs, err
	}

	return append(logs, fmt.Sprintf("Program %s success", program.ID)), nil
}

func instructionName(data []byte) string {
	if len(data) < 8 {
		return ""
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	switch disc {
	case program.DiscCreateToken:
		return "CreateToken"
	case program.DiscMintToken:
		return "MintToken"
	case program.DiscTransferTokens:
		return "TransferTokens"
	case program.DiscBurnTokens:
		return "BurnTokens"
	}
	return ""
}

func invokeLogs(programID solana.PublicKey) []string {
	return []string{
		fmt.Sprintf("Program %s invoke [1]", programID),
		fmt.Sprintf("Program %s success", programID),
	}
}

// recordTransaction stores a confirmed transaction and advances the slot.
// Callers hold the mutex.
func (c *RPCClient) recordTransaction(signature string, logs []string) {
	c.transactions[signature] = &solana.Transaction{
		Slot:      c.slot,
		Signature: signature,
		Meta:      &solana.TransactionMeta{LogMessages: logs},
	}
	c.slot++
}

func (c *RPCClient) fabricateSignature(parts ...string) string {
	c.slot++
	sum := sha256.Sum256([]byte(strings.Join(parts, "|") + strconv.FormatInt(c.slot, 10)))
	sig := append(sum[:], sum[:32]...)
	return base58.Encode(sig)
}

// formatUIAmount renders base units at the given decimals, trimming
// trailing fractional zeros the way the RPC does.
func formatUIAmount(amount uint64, decimals uint8) string {
	s := strconv.FormatUint(amount, 10)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	for len(s) <= d {
		s = "0" + s
	}
	whole, frac := s[:len(s)-d], s[len(s)-d:]
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
