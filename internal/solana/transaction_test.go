package solana

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
)

func TestShortvecEncode(t *testing.T) {
	tests := []struct {
		value int
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xff, 0x01}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}

	for _, tt := range tests {
		got := appendShortvec(nil, tt.value)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("appendShortvec(%d) = %v, want %v", tt.value, got, tt.want)
		}

		decoded, n, err := decodeShortvec(got)
		if err != nil {
			t.Errorf("decodeShortvec(%v): %v", got, err)
			continue
		}
		if decoded != tt.value || n != len(tt.want) {
			t.Errorf("decodeShortvec(%v) = (%d, %d), want (%d, %d)", got, decoded, n, tt.value, len(tt.want))
		}
	}
}

func TestShortvecDecode_Malformed(t *testing.T) {
	if _, _, err := decodeShortvec([]byte{0x80, 0x80, 0x80}); err == nil {
		t.Error("expected error for unterminated compact-u16")
	}
	if _, _, err := decodeShortvec(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

// testBlockhash is an arbitrary but valid 32-byte base58 blockhash.
var testBlockhash = base58.Encode(bytes.Repeat([]byte{9}, 32))

func mustKeypair(t *testing.T) *Keypair {
	t.Helper()
	kp, err := NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}
	return kp
}

func TestNewMessage_AccountOrdering(t *testing.T) {
	payer := mustKeypair(t).PublicKey()
	roSigner := mustKeypair(t).PublicKey()
	writable := mustKeypair(t).PublicKey()
	readonly := mustKeypair(t).PublicKey()
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	ix := Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			Meta(readonly),
			WritableMeta(writable),
			SignerMeta(roSigner, false),
		},
		Data: []byte{1, 2, 3},
	}

	msg, err := NewMessage(payer, []Instruction{ix}, testBlockhash)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	keys := msg.AccountKeys()
	want := []PublicKey{payer, roSigner, writable, readonly, program}
	if len(keys) != len(want) {
		t.Fatalf("expected %d accounts, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("account %d: expected %s, got %s", i, want[i], keys[i])
		}
	}

	if n := msg.NumRequiredSignatures(); n != 2 {
		t.Errorf("expected 2 required signatures, got %d", n)
	}
}

func TestNewMessage_MergesDuplicates(t *testing.T) {
	payer := mustKeypair(t).PublicKey()
	account := mustKeypair(t).PublicKey()
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// Same account referenced read-only in one instruction and writable in
	// another must appear once, writable.
	instructions := []Instruction{
		{ProgramID: program, Accounts: []AccountMeta{Meta(account)}},
		{ProgramID: program, Accounts: []AccountMeta{WritableMeta(account)}},
	}

	msg, err := NewMessage(payer, instructions, testBlockhash)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	keys := msg.AccountKeys()
	if len(keys) != 3 {
		t.Fatalf("expected 3 unique accounts, got %d", len(keys))
	}
	// Writable non-signers sort before read-only non-signers.
	if keys[1] != account {
		t.Errorf("expected merged account at index 1, got %s", keys[1])
	}
	if keys[2] != program {
		t.Errorf("expected program last, got %s", keys[2])
	}
}

func TestMessageSerialize_Layout(t *testing.T) {
	payer := mustKeypair(t).PublicKey()
	dest := mustKeypair(t).PublicKey()
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	data := []byte{3, 50, 0, 0, 0, 0, 0, 0, 0}
	ix := Instruction{
		ProgramID: program,
		Accounts:  []AccountMeta{WritableMeta(dest)},
		Data:      data,
	}

	msg, err := NewMessage(payer, []Instruction{ix}, testBlockhash)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	raw, err := msg.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	// Header: 1 signer, 0 read-only signed, 1 read-only unsigned (program).
	if raw[0] != 1 || raw[1] != 0 || raw[2] != 1 {
		t.Errorf("unexpected header %v", raw[:3])
	}

	// Account list: compact length then 3 keys of 32 bytes.
	if raw[3] != 3 {
		t.Fatalf("expected 3 accounts, got %d", raw[3])
	}
	offset := 4
	if !bytes.Equal(raw[offset:offset+32], payer[:]) {
		t.Error("payer must be first account")
	}
	offset += 3 * 32

	// Recent blockhash.
	if !bytes.Equal(raw[offset:offset+32], bytes.Repeat([]byte{9}, 32)) {
		t.Error("blockhash mismatch")
	}
	offset += 32

	// Instruction list: one instruction.
	if raw[offset] != 1 {
		t.Fatalf("expected 1 instruction, got %d", raw[offset])
	}
	offset++

	// Program index points at the program account (index 2).
	if raw[offset] != 2 {
		t.Errorf("expected program index 2, got %d", raw[offset])
	}
	offset++

	// One account index, pointing at dest (index 1).
	if raw[offset] != 1 || raw[offset+1] != 1 {
		t.Errorf("unexpected account indices %v", raw[offset:offset+2])
	}
	offset += 2

	// Data length then data.
	if int(raw[offset]) != len(data) {
		t.Fatalf("expected data length %d, got %d", len(data), raw[offset])
	}
	offset++
	if !bytes.Equal(raw[offset:offset+len(data)], data) {
		t.Error("instruction data mismatch")
	}
	offset += len(data)

	if offset != len(raw) {
		t.Errorf("trailing bytes: consumed %d of %d", offset, len(raw))
	}
}

func TestMessageSerialize_TooManyAccounts(t *testing.T) {
	payer := mustKeypair(t).PublicKey()
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	metas := make([]AccountMeta, 0, 300)
	for i := 0; i < 300; i++ {
		var pk PublicKey
		pk[0] = byte(i)
		pk[1] = byte(i >> 8)
		pk[31] = 1
		metas = append(metas, Meta(pk))
	}

	msg, err := NewMessage(payer, []Instruction{{ProgramID: program, Accounts: metas}}, testBlockhash)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if _, err := msg.Serialize(); err == nil {
		t.Error("expected error for message with more than 255 accounts")
	}
}

func TestNewMessage_InvalidBlockhash(t *testing.T) {
	payer := mustKeypair(t).PublicKey()

	if _, err := NewMessage(payer, nil, "not base58 0OIl"); err == nil {
		t.Error("expected error for invalid blockhash")
	}
	if _, err := NewMessage(payer, nil, base58.Encode([]byte{1, 2})); err == nil {
		t.Error("expected error for short blockhash")
	}
}

func TestNewSignedTransaction(t *testing.T) {
	payer := mustKeypair(t)
	mint := mustKeypair(t)
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	ix := Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			SignerMeta(payer.PublicKey(), true),
			SignerMeta(mint.PublicKey(), true),
		},
		Data: []byte{20},
	}

	tx, err := NewSignedTransaction(payer.PublicKey(), []Instruction{ix}, testBlockhash, []*Keypair{payer, mint})
	if err != nil {
		t.Fatalf("NewSignedTransaction: %v", err)
	}

	if len(tx.signatures) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(tx.signatures))
	}

	msgBytes, err := tx.message.Serialize()
	if err != nil {
		t.Fatalf("serialize message: %v", err)
	}

	// First signature is the fee payer's over the message bytes.
	pub := payer.PublicKey()
	if !ed25519.Verify(ed25519.PublicKey(pub[:]), msgBytes, tx.signatures[0]) {
		t.Error("fee payer signature does not verify")
	}

	if tx.Signature() == "" {
		t.Error("expected non-empty base58 signature")
	}

	// Wire format: shortvec signature count, signatures, then message.
	raw, err := tx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if raw[0] != 2 {
		t.Errorf("expected 2 signatures on the wire, got %d", raw[0])
	}
	if !bytes.Equal(raw[1+2*64:], msgBytes) {
		t.Error("message bytes mismatch in wire encoding")
	}

	if _, err := tx.SerializeBase64(); err != nil {
		t.Fatalf("SerializeBase64: %v", err)
	}
}

func TestDeserializeMessage_RoundTrip(t *testing.T) {
	payer := mustKeypair(t).PublicKey()
	dest := mustKeypair(t).PublicKey()
	roSigner := mustKeypair(t).PublicKey()
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	ix := Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			WritableMeta(dest),
			SignerMeta(roSigner, false),
		},
		Data: []byte{3, 50, 0, 0, 0, 0, 0, 0, 0},
	}

	msg, err := NewMessage(payer, []Instruction{ix}, testBlockhash)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	raw, err := msg.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	decoded, err := DeserializeMessage(raw)
	if err != nil {
		t.Fatalf("DeserializeMessage: %v", err)
	}

	if decoded.NumRequiredSignatures() != msg.NumRequiredSignatures() {
		t.Errorf("required signatures = %d, want %d", decoded.NumRequiredSignatures(), msg.NumRequiredSignatures())
	}
	if decoded.RecentBlockhash() != testBlockhash {
		t.Errorf("blockhash = %s, want %s", decoded.RecentBlockhash(), testBlockhash)
	}

	gotKeys := decoded.AccountKeys()
	wantKeys := msg.AccountKeys()
	if len(gotKeys) != len(wantKeys) {
		t.Fatalf("account count = %d, want %d", len(gotKeys), len(wantKeys))
	}
	for i := range wantKeys {
		if gotKeys[i] != wantKeys[i] {
			t.Errorf("account %d = %s, want %s", i, gotKeys[i], wantKeys[i])
		}
	}

	ixs := decoded.Instructions()
	if len(ixs) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(ixs))
	}
	if ixs[0].ProgramID != program {
		t.Errorf("program = %s, want %s", ixs[0].ProgramID, program)
	}
	if !bytes.Equal(ixs[0].Data, ix.Data) {
		t.Error("instruction data mismatch")
	}
	if len(ixs[0].Accounts) != 2 {
		t.Fatalf("expected 2 account metas, got %d", len(ixs[0].Accounts))
	}
	// Privileges are reconstructed from the header.
	if !ixs[0].Accounts[0].IsWritable || ixs[0].Accounts[0].IsSigner {
		t.Error("dest meta privileges wrong")
	}
	if !ixs[0].Accounts[1].IsSigner || ixs[0].Accounts[1].IsWritable {
		t.Error("read-only signer meta privileges wrong")
	}

	// Re-serializing the decoded message reproduces the bytes.
	again, err := decoded.Serialize()
	if err != nil {
		t.Fatalf("re-serialize: %v", err)
	}
	if !bytes.Equal(again, raw) {
		t.Error("re-serialized message differs")
	}
}

func TestDeserializeMessage_Truncated(t *testing.T) {
	payer := mustKeypair(t).PublicKey()
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	msg, err := NewMessage(payer, []Instruction{{ProgramID: program, Data: []byte{1}}}, testBlockhash)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	raw, err := msg.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	for _, cut := range []int{1, 3, 10, len(raw) - 1} {
		if _, err := DeserializeMessage(raw[:cut]); err == nil {
			t.Errorf("expected error for message cut at %d bytes", cut)
		}
	}
}

func TestDeserializeTransaction_RoundTrip(t *testing.T) {
	payer := mustKeypair(t)
	mint := mustKeypair(t)
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	ix := Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			SignerMeta(payer.PublicKey(), true),
			SignerMeta(mint.PublicKey(), true),
		},
		Data: []byte{20, 2},
	}

	tx, err := NewSignedTransaction(payer.PublicKey(), []Instruction{ix}, testBlockhash, []*Keypair{payer, mint})
	if err != nil {
		t.Fatalf("NewSignedTransaction: %v", err)
	}
	raw, err := tx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	decoded, err := DeserializeTransaction(raw)
	if err != nil {
		t.Fatalf("DeserializeTransaction: %v", err)
	}
	if decoded.Signature() != tx.Signature() {
		t.Errorf("signature = %s, want %s", decoded.Signature(), tx.Signature())
	}
	if err := decoded.VerifySignatures(); err != nil {
		t.Errorf("VerifySignatures: %v", err)
	}
	if len(decoded.Message().Instructions()) != 1 {
		t.Fatalf("expected 1 instruction after round trip")
	}
}

func TestVerifySignatures_Tampered(t *testing.T) {
	payer := mustKeypair(t)
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	tx, err := NewSignedTransaction(payer.PublicKey(), []Instruction{{ProgramID: program, Data: []byte{1}}}, testBlockhash, []*Keypair{payer})
	if err != nil {
		t.Fatalf("NewSignedTransaction: %v", err)
	}
	raw, err := tx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	raw[10] ^= 0xff // inside the signature
	decoded, err := DeserializeTransaction(raw)
	if err != nil {
		t.Fatalf("DeserializeTransaction: %v", err)
	}
	if err := decoded.VerifySignatures(); err == nil {
		t.Error("expected verification failure for tampered signature")
	}
}

func TestDeserializeTransaction_SignatureCountMismatch(t *testing.T) {
	payer := mustKeypair(t)
	mint := mustKeypair(t)
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	ix := Instruction{
		ProgramID: program,
		Accounts:  []AccountMeta{SignerMeta(mint.PublicKey(), true)},
	}
	tx, err := NewSignedTransaction(payer.PublicKey(), []Instruction{ix}, testBlockhash, []*Keypair{payer, mint})
	if err != nil {
		t.Fatalf("NewSignedTransaction: %v", err)
	}
	raw, err := tx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	// Drop the second signature but keep the two-signer header.
	truncated := append([]byte{1}, raw[1:1+64]...)
	truncated = append(truncated, raw[1+2*64:]...)
	if _, err := DeserializeTransaction(truncated); err == nil {
		t.Error("expected error for signature count mismatch")
	}
}

func TestNewSignedTransaction_MissingSigner(t *testing.T) {
	payer := mustKeypair(t)
	other := mustKeypair(t)
	program := MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	ix := Instruction{
		ProgramID: program,
		Accounts:  []AccountMeta{SignerMeta(other.PublicKey(), true)},
	}

	_, err := NewSignedTransaction(payer.PublicKey(), []Instruction{ix}, testBlockhash, []*Keypair{payer})
	if err == nil {
		t.Fatal("expected error for missing signer keypair")
	}
}
