// Command demo walks the full token lifecycle against a local validator:
// it funds two wallets, creates a mint, creates both associated token
// accounts, mints 100.00 tokens to the sender and transfers 0.50 to the
// recipient, then reads the resulting state back and prints it.
//
// It expects a test validator on 127.0.0.1:8899 (solana-test-validator).
// Any failure is fatal; the demo makes no attempt to recover.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"spl-transfer-lab/internal/history"
	"spl-transfer-lab/internal/history/memory"
	"spl-transfer-lab/internal/solana"
	"spl-transfer-lab/internal/spltoken"
)

const (
	rpcEndpoint = "http://127.0.0.1:8899"

	// 100.00 tokens at 2 decimals, minted to the sender.
	decimals   = 2
	mintAmount = 100_00

	// 0.50 tokens transferred to the recipient.
	transferAmount = 50
)

func main() {
	logger := log.New(os.Stdout, "[demo] ", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := solana.NewHTTPClient(rpcEndpoint)

	// Wallets. The fee payer funds everything and is mint authority; the
	// recipient only receives tokens.
	feePayer, err := solana.NewKeypair()
	if err != nil {
		logger.Fatalf("generate fee payer: %v", err)
	}
	recipient, err := solana.NewKeypair()
	if err != nil {
		logger.Fatalf("generate recipient: %v", err)
	}
	logger.Printf("Fee payer: %s", feePayer.PublicKey())
	logger.Printf("Recipient: %s", recipient.PublicKey())

	airdrop(ctx, logger, client, feePayer.PublicKey())
	airdrop(ctx, logger, client, recipient.PublicKey())

	// Mint account setup: a fresh keypair funded to rent exemption, owned
	// by the token program.
	mint, err := solana.NewKeypair()
	if err != nil {
		logger.Fatalf("generate mint: %v", err)
	}
	rent, err := client.GetMinimumBalanceForRentExemption(ctx, spltoken.MintSize)
	if err != nil {
		logger.Fatalf("get rent exemption: %v", err)
	}

	sourceATA, err := spltoken.DeriveAssociatedTokenAddress(feePayer.PublicKey(), mint.PublicKey())
	if err != nil {
		logger.Fatalf("derive source token account: %v", err)
	}
	destATA, err := spltoken.DeriveAssociatedTokenAddress(recipient.PublicKey(), mint.PublicKey())
	if err != nil {
		logger.Fatalf("derive destination token account: %v", err)
	}

	createSourceATA, err := spltoken.CreateAssociatedTokenAccount(feePayer.PublicKey(), feePayer.PublicKey(), mint.PublicKey())
	if err != nil {
		logger.Fatalf("build source ata instruction: %v", err)
	}
	createDestATA, err := spltoken.CreateAssociatedTokenAccount(feePayer.PublicKey(), recipient.PublicKey(), mint.PublicKey())
	if err != nil {
		logger.Fatalf("build destination ata instruction: %v", err)
	}

	freeze := feePayer.PublicKey()

	// One atomic transaction: create and initialize the mint, create both
	// token accounts, mint the initial balance to the sender.
	setupIxs := []solana.Instruction{
		spltoken.CreateAccount(feePayer.PublicKey(), mint.PublicKey(), rent, spltoken.MintSize, spltoken.TokenProgramID),
		spltoken.InitializeMint2(mint.PublicKey(), decimals, feePayer.PublicKey(), &freeze),
		createSourceATA,
		createDestATA,
		spltoken.MintTo(mint.PublicKey(), sourceATA, feePayer.PublicKey(), mintAmount),
	}

	setupSig := sendAndConfirm(ctx, logger, client, setupIxs, feePayer, []*solana.Keypair{feePayer, mint})
	logger.Printf("Mint setup confirmed: %s", setupSig)

	// The transfer rides on a fresh blockhash in its own transaction.
	transferIx := spltoken.TransferChecked(sourceATA, mint.PublicKey(), destATA, feePayer.PublicKey(), transferAmount, decimals)
	transferSig := sendAndConfirm(ctx, logger, client, []solana.Instruction{transferIx}, feePayer, []*solana.Keypair{feePayer})

	// Record what happened, the way the recorder would.
	ops := memory.NewOperationStore()
	record(ctx, logger, ops, &history.Operation{
		Signature:   setupSig,
		Kind:        history.KindMint,
		Mint:        mint.PublicKey().String(),
		Destination: sourceATA.String(),
		Authority:   feePayer.PublicKey().String(),
		RawAmount:   fmt.Sprintf("%d", mintAmount),
		UIAmount:    "100",
	})
	record(ctx, logger, ops, &history.Operation{
		Signature:   transferSig,
		Kind:        history.KindTransfer,
		Mint:        mint.PublicKey().String(),
		Source:      sourceATA.String(),
		Destination: destATA.String(),
		Authority:   feePayer.PublicKey().String(),
		RawAmount:   fmt.Sprintf("%d", transferAmount),
		UIAmount:    "0.5",
	})

	// Read the state back and verify the transfer landed.
	mintState := fetchMint(ctx, logger, client, mint.PublicKey())
	sourceState := fetchTokenAccount(ctx, logger, client, sourceATA)
	destState := fetchTokenAccount(ctx, logger, client, destATA)

	fmt.Println("Successfully transferred 0.50 tokens from sender to recipient")
	fmt.Println()
	fmt.Printf("Mint Address: %s\n", mint.PublicKey())
	fmt.Printf("  Decimals: %d  Supply: %d\n", mintState.Decimals, mintState.Supply)
	fmt.Println()
	fmt.Printf("Source Token Account Address: %s\n", sourceATA)
	fmt.Printf("Token Balance: %d\n", sourceState.Amount)
	fmt.Println()
	fmt.Printf("Destination Token Account Address: %s\n", destATA)
	fmt.Printf("Token Balance: %d\n", destState.Amount)
	fmt.Println()
	fmt.Printf("Transaction Signature: %s\n", transferSig)

	recorded, err := ops.ListRecent(ctx, 10)
	if err != nil {
		logger.Fatalf("list recorded operations: %v", err)
	}
	fmt.Println()
	fmt.Println("Recorded operations:")
	for _, op := range recorded {
		fmt.Printf("  %-8s %s  amount=%s\n", op.Kind, op.Signature, op.RawAmount)
	}
}

// airdrop requests 1 SOL for an account and polls until confirmed.
func airdrop(ctx context.Context, logger *log.Logger, client *solana.HTTPClient, pubkey solana.PublicKey) {
	sig, err := client.RequestAirdrop(ctx, pubkey.String(), spltoken.LamportsPerSol)
	if err != nil {
		logger.Fatalf("request airdrop for %s: %v", pubkey, err)
	}
	if err := client.WaitForConfirmation(ctx, sig); err != nil {
		logger.Fatalf("confirm airdrop for %s: %v", pubkey, err)
	}
	logger.Printf("Airdropped 1 SOL to %s", pubkey)
}

// sendAndConfirm assembles, signs, submits and confirms one transaction.
func sendAndConfirm(ctx context.Context, logger *log.Logger, client *solana.HTTPClient, ixs []solana.Instruction, feePayer *solana.Keypair, signers []*solana.Keypair) string {
	blockhash, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		logger.Fatalf("get latest blockhash: %v", err)
	}

	tx, err := solana.NewSignedTransaction(feePayer.PublicKey(), ixs, blockhash.Blockhash, signers)
	if err != nil {
		logger.Fatalf("sign transaction: %v", err)
	}
	encoded, err := tx.SerializeBase64()
	if err != nil {
		logger.Fatalf("serialize transaction: %v", err)
	}

	sig, err := client.SendTransaction(ctx, encoded)
	if err != nil {
		logger.Fatalf("send transaction: %v", err)
	}
	if err := client.WaitForConfirmation(ctx, sig); err != nil {
		logger.Fatalf("confirm transaction %s: %v", sig, err)
	}
	return sig
}

func fetchMint(ctx context.Context, logger *log.Logger, client *solana.HTTPClient, address solana.PublicKey) *spltoken.Mint {
	info, err := client.GetAccountInfo(ctx, address.String())
	if err != nil {
		logger.Fatalf("get mint account %s: %v", address, err)
	}
	if info == nil {
		logger.Fatalf("mint account %s does not exist", address)
	}
	mint, err := spltoken.DecodeMintBase64(info.Data)
	if err != nil {
		logger.Fatalf("decode mint account %s: %v", address, err)
	}
	return mint
}

func fetchTokenAccount(ctx context.Context, logger *log.Logger, client *solana.HTTPClient, address solana.PublicKey) *spltoken.Account {
	info, err := client.GetAccountInfo(ctx, address.String())
	if err != nil {
		logger.Fatalf("get token account %s: %v", address, err)
	}
	if info == nil {
		logger.Fatalf("token account %s does not exist", address)
	}
	acc, err := spltoken.DecodeAccountBase64(info.Data)
	if err != nil {
		logger.Fatalf("decode token account %s: %v", address, err)
	}
	return acc
}

func record(ctx context.Context, logger *log.Logger, store history.OperationStore, op *history.Operation) {
	if err := store.Insert(ctx, op); err != nil {
		logger.Fatalf("record %s operation: %v", op.Kind, err)
	}
}
