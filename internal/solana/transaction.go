package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountMeta describes how an instruction references an account.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Meta builds a read-only, non-signing account meta.
func Meta(pk PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk}
}

// WritableMeta builds a writable, non-signing account meta.
func WritableMeta(pk PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk, IsWritable: true}
}

// SignerMeta builds a signing account meta.
func SignerMeta(pk PublicKey, writable bool) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: true, IsWritable: writable}
}

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// appendShortvec appends a compact-u16 length prefix (the Solana "shortvec"
// encoding: 7 bits per byte, high bit as continuation flag).
func appendShortvec(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// decodeShortvec decodes a compact-u16 value, returning the value and the
// number of bytes consumed.
func decodeShortvec(buf []byte) (int, int, error) {
	var value, shift uint
	for i := 0; i < len(buf) && i < 3; i++ {
		value |= uint(buf[i]&0x7f) << shift
		if buf[i]&0x80 == 0 {
			return int(value), i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("malformed compact-u16")
}

// compiledAccount is an account entry in a compiled message.
type compiledAccount struct {
	key      PublicKey
	signer   bool
	writable bool
}

// Message is a compiled legacy transaction message.
type Message struct {
	accounts        []compiledAccount
	recentBlockhash PublicKey
	instructions    []Instruction
}

// NewMessage compiles instructions into a message. The fee payer is always
// placed first; remaining accounts are ordered writable signers, read-only
// signers, writable non-signers, read-only non-signers. Duplicate references
// are merged with privilege escalation.
func NewMessage(feePayer PublicKey, instructions []Instruction, recentBlockhash string) (*Message, error) {
	blockhash, err := base58.Decode(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(blockhash) != 32 {
		return nil, fmt.Errorf("invalid blockhash length %d", len(blockhash))
	}

	merged := map[PublicKey]*compiledAccount{}
	order := []PublicKey{}

	add := func(key PublicKey, signer, writable bool) {
		acc, ok := merged[key]
		if !ok {
			acc = &compiledAccount{key: key}
			merged[key] = acc
			order = append(order, key)
		}
		acc.signer = acc.signer || signer
		acc.writable = acc.writable || writable
	}

	add(feePayer, true, true)
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			add(meta.PublicKey, meta.IsSigner, meta.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}

	// Stable bucket ordering; insertion order is preserved within a bucket.
	var accounts []compiledAccount
	for _, bucket := range []func(a *compiledAccount) bool{
		func(a *compiledAccount) bool { return a.signer && a.writable },
		func(a *compiledAccount) bool { return a.signer && !a.writable },
		func(a *compiledAccount) bool { return !a.signer && a.writable },
		func(a *compiledAccount) bool { return !a.signer && !a.writable },
	} {
		for _, key := range order {
			if acc := merged[key]; bucket(acc) {
				accounts = append(accounts, *acc)
			}
		}
	}

	msg := &Message{
		accounts:     accounts,
		instructions: instructions,
	}
	copy(msg.recentBlockhash[:], blockhash)
	return msg, nil
}

// NumRequiredSignatures returns the count of accounts that must sign.
func (m *Message) NumRequiredSignatures() int {
	n := 0
	for _, acc := range m.accounts {
		if acc.signer {
			n++
		}
	}
	return n
}

// AccountKeys returns the ordered account keys of the compiled message.
func (m *Message) AccountKeys() []PublicKey {
	keys := make([]PublicKey, len(m.accounts))
	for i, acc := range m.accounts {
		keys[i] = acc.key
	}
	return keys
}

// accountIndex returns the position of key within the compiled accounts.
func (m *Message) accountIndex(key PublicKey) (int, error) {
	for i, acc := range m.accounts {
		if acc.key == key {
			return i, nil
		}
	}
	return 0, fmt.Errorf("account %s not in message", key)
}

// Serialize encodes the message in the legacy wire format.
func (m *Message) Serialize() ([]byte, error) {
	// Header counts and instruction account indexes are single bytes.
	if len(m.accounts) > 255 {
		return nil, fmt.Errorf("too many accounts %d, limit is 255", len(m.accounts))
	}

	var numSigners, numReadonlySigned, numReadonlyUnsigned int
	for _, acc := range m.accounts {
		if acc.signer {
			numSigners++
			if !acc.writable {
				numReadonlySigned++
			}
		} else if !acc.writable {
			numReadonlyUnsigned++
		}
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(numSigners))
	buf.WriteByte(byte(numReadonlySigned))
	buf.WriteByte(byte(numReadonlyUnsigned))

	buf.Write(appendShortvec(nil, len(m.accounts)))
	for _, acc := range m.accounts {
		buf.Write(acc.key[:])
	}

	buf.Write(m.recentBlockhash[:])

	buf.Write(appendShortvec(nil, len(m.instructions)))
	for _, ix := range m.instructions {
		programIdx, err := m.accountIndex(ix.ProgramID)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(byte(programIdx))

		buf.Write(appendShortvec(nil, len(ix.Accounts)))
		for _, meta := range ix.Accounts {
			idx, err := m.accountIndex(meta.PublicKey)
			if err != nil {
				return nil, err
			}
			buf.WriteByte(byte(idx))
		}

		buf.Write(appendShortvec(nil, len(ix.Data)))
		buf.Write(ix.Data)
	}

	return buf.Bytes(), nil
}

// Instructions returns the message's instructions.
func (m *Message) Instructions() []Instruction {
	return m.instructions
}

// RecentBlockhash returns the base58 blockhash the message was built on.
func (m *Message) RecentBlockhash() string {
	return base58.Encode(m.recentBlockhash[:])
}

// DeserializeMessage parses a legacy wire-format message. Account privileges
// are reconstructed from the header, instruction account metas from the
// compiled account table.
func DeserializeMessage(data []byte) (*Message, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("message too short")
	}
	numSigners := int(data[0])
	numReadonlySigned := int(data[1])
	numReadonlyUnsigned := int(data[2])
	data = data[3:]

	numAccounts, n, err := decodeShortvec(data)
	if err != nil {
		return nil, fmt.Errorf("account count: %w", err)
	}
	data = data[n:]

	if numSigners > numAccounts || numReadonlySigned > numSigners || numReadonlyUnsigned > numAccounts-numSigners {
		return nil, fmt.Errorf("invalid message header")
	}
	if len(data) < numAccounts*32 {
		return nil, fmt.Errorf("truncated account table")
	}

	accounts := make([]compiledAccount, numAccounts)
	for i := range accounts {
		copy(accounts[i].key[:], data[i*32:(i+1)*32])
		if i < numSigners {
			accounts[i].signer = true
			accounts[i].writable = i < numSigners-numReadonlySigned
		} else {
			accounts[i].writable = i < numAccounts-numReadonlyUnsigned
		}
	}
	data = data[numAccounts*32:]

	if len(data) < 32 {
		return nil, fmt.Errorf("truncated blockhash")
	}
	msg := &Message{accounts: accounts}
	copy(msg.recentBlockhash[:], data[:32])
	data = data[32:]

	numIxs, n, err := decodeShortvec(data)
	if err != nil {
		return nil, fmt.Errorf("instruction count: %w", err)
	}
	data = data[n:]

	for i := 0; i < numIxs; i++ {
		if len(data) < 1 {
			return nil, fmt.Errorf("truncated instruction %d", i)
		}
		programIdx := int(data[0])
		if programIdx >= numAccounts {
			return nil, fmt.Errorf("instruction %d: program index out of range", i)
		}
		data = data[1:]

		numMetas, n, err := decodeShortvec(data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d account count: %w", i, err)
		}
		data = data[n:]
		if len(data) < numMetas {
			return nil, fmt.Errorf("truncated instruction %d accounts", i)
		}

		metas := make([]AccountMeta, numMetas)
		for j := 0; j < numMetas; j++ {
			idx := int(data[j])
			if idx >= numAccounts {
				return nil, fmt.Errorf("instruction %d: account index out of range", i)
			}
			acc := accounts[idx]
			metas[j] = AccountMeta{PublicKey: acc.key, IsSigner: acc.signer, IsWritable: acc.writable}
		}
		data = data[numMetas:]

		dataLen, n, err := decodeShortvec(data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d data length: %w", i, err)
		}
		data = data[n:]
		if len(data) < dataLen {
			return nil, fmt.Errorf("truncated instruction %d data", i)
		}

		msg.instructions = append(msg.instructions, Instruction{
			ProgramID: accounts[programIdx].key,
			Accounts:  metas,
			Data:      append([]byte(nil), data[:dataLen]...),
		})
		data = data[dataLen:]
	}

	return msg, nil
}

// SignedTransaction is a compiled message plus its signatures.
type SignedTransaction struct {
	message    *Message
	signatures [][]byte
}

// NewSignedTransaction compiles and signs a transaction. Every account marked
// as a signer in the compiled message must have a keypair in signers; the fee
// payer's keypair must be among them.
func NewSignedTransaction(feePayer PublicKey, instructions []Instruction, recentBlockhash string, signers []*Keypair) (*SignedTransaction, error) {
	msg, err := NewMessage(feePayer, instructions, recentBlockhash)
	if err != nil {
		return nil, err
	}

	msgBytes, err := msg.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}

	byKey := make(map[PublicKey]*Keypair, len(signers))
	for _, kp := range signers {
		byKey[kp.PublicKey()] = kp
	}

	var signatures [][]byte
	for _, acc := range msg.accounts {
		if !acc.signer {
			continue
		}
		kp, ok := byKey[acc.key]
		if !ok {
			return nil, fmt.Errorf("missing keypair for signer %s", acc.key)
		}
		signatures = append(signatures, kp.Sign(msgBytes))
	}

	return &SignedTransaction{message: msg, signatures: signatures}, nil
}

// DeserializeTransaction parses a legacy wire-format signed transaction.
func DeserializeTransaction(data []byte) (*SignedTransaction, error) {
	numSigs, n, err := decodeShortvec(data)
	if err != nil {
		return nil, fmt.Errorf("signature count: %w", err)
	}
	data = data[n:]

	if len(data) < numSigs*64 {
		return nil, fmt.Errorf("truncated signatures")
	}
	signatures := make([][]byte, numSigs)
	for i := range signatures {
		signatures[i] = append([]byte(nil), data[i*64:(i+1)*64]...)
	}
	data = data[numSigs*64:]

	msg, err := DeserializeMessage(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize message: %w", err)
	}
	if numSigs != msg.NumRequiredSignatures() {
		return nil, fmt.Errorf("signature count %d does not match required %d", numSigs, msg.NumRequiredSignatures())
	}

	return &SignedTransaction{message: msg, signatures: signatures}, nil
}

// Message returns the transaction's compiled message.
func (t *SignedTransaction) Message() *Message {
	return t.message
}

// VerifySignatures checks every signature against the serialized message and
// its signer account.
func (t *SignedTransaction) VerifySignatures() error {
	msgBytes, err := t.message.Serialize()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}

	i := 0
	for _, acc := range t.message.accounts {
		if !acc.signer {
			continue
		}
		if i >= len(t.signatures) {
			return fmt.Errorf("missing signature for %s", acc.key)
		}
		if !ed25519.Verify(ed25519.PublicKey(acc.key[:]), msgBytes, t.signatures[i]) {
			return fmt.Errorf("invalid signature for %s", acc.key)
		}
		i++
	}
	return nil
}

// Signature returns the base58 transaction signature (the fee payer's).
func (t *SignedTransaction) Signature() string {
	if len(t.signatures) == 0 {
		return ""
	}
	return base58.Encode(t.signatures[0])
}

// Serialize encodes the signed transaction in the legacy wire format.
func (t *SignedTransaction) Serialize() ([]byte, error) {
	msgBytes, err := t.message.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}

	buf := appendShortvec(nil, len(t.signatures))
	for _, sig := range t.signatures {
		buf = append(buf, sig...)
	}
	return append(buf, msgBytes...), nil
}

// SerializeBase64 encodes the signed transaction for sendTransaction.
func (t *SignedTransaction) SerializeBase64() (string, error) {
	raw, err := t.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
