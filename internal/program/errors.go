package program

import "errors"

// Handler errors. Constraint failures surface before any ledger call;
// ledger errors propagate unchanged.
var (
	ErrWrongProgram           = errors.New("instruction targets a different program")
	ErrUnknownInstruction     = errors.New("unknown instruction discriminator")
	ErrInvalidInstructionData = errors.New("invalid instruction data")
	ErrAccountCount           = errors.New("unexpected account count")
	ErrMissingSigner          = errors.New("required signer is missing")
	ErrAccountNotWritable     = errors.New("required writable account is read-only")
	ErrAccountAddressMismatch = errors.New("account address does not match expected address")
	ErrAmountOverflow         = errors.New("amount overflows u64 when scaled to base units")
)
