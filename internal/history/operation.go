// Package history defines the transaction history domain: operations
// observed on the token program, classified from transaction log messages,
// and the store interfaces they are persisted through.
package history

import (
	"fmt"
	"strings"
)

// Kind is the category of a token operation.
type Kind string

// Operation kinds, one per program instruction.
const (
	KindCreate   Kind = "create"
	KindMint     Kind = "mint"
	KindTransfer Kind = "transfer"
	KindBurn     Kind = "burn"
)

// Valid reports whether k is a known operation kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCreate, KindMint, KindTransfer, KindBurn:
		return true
	}
	return false
}

// Operation is one recorded token operation. A transaction may carry several
// operations; (Signature, Kind) identifies a record.
// Corresponds to the token_operations table in PostgreSQL.
type Operation struct {
	ID        int64  // BIGSERIAL primary key
	Signature string // Solana transaction signature
	Slot      int64  // Solana slot number
	BlockTime int64  // Unix timestamp in seconds, 0 when unknown
	Kind      Kind

	// Participants, base58-encoded. Empty when not recoverable from the
	// observed logs.
	Mint        string
	Source      string
	Destination string
	Authority   string

	// Amounts as decimal strings, matching the RPC token-amount convention.
	RawAmount string // base units
	UIAmount  string // scaled by mint decimals

	CreatedAt int64 // record creation timestamp (ms)
}

// Validate checks the fields required of every record.
func (o *Operation) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: nil operation", ErrInvalidInput)
	}
	if o.Signature == "" {
		return fmt.Errorf("%w: empty signature", ErrInvalidInput)
	}
	if !o.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, o.Kind)
	}
	return nil
}

// LogEvent is one raw program log line, archived as observed.
// Corresponds to the program_log_events table in ClickHouse.
type LogEvent struct {
	Signature    string
	Slot         int64
	LogIndex     int
	Message      string
	ReceivedAtMs int64
}

// Anchor prefixes every handler invocation with an instruction-name log line.
const (
	programLogPrefix = "Program log: "
	instructionLabel = "Instruction: "
)

var instructionKinds = map[string]Kind{
	"CreateToken":    KindCreate,
	"MintToken":      KindMint,
	"TransferTokens": KindTransfer,
	"BurnTokens":     KindBurn,
}

// KindsFromLogs extracts operation kinds from a transaction's log messages,
// in log order. Unrecognized lines are ignored.
func KindsFromLogs(logs []string) []Kind {
	var kinds []Kind
	for _, line := range logs {
		line = strings.TrimPrefix(line, programLogPrefix)
		if !strings.HasPrefix(line, instructionLabel) {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(line, instructionLabel))
		if kind, ok := instructionKinds[name]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
