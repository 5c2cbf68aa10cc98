package history

import (
	"errors"
	"testing"
)

func TestKindsFromLogs(t *testing.T) {
	logs := []string{
		"Program ABw4Sw54Hka5hkmhrQ3bMn2XUksAHtoTeqdhrNxQeQgF invoke [1]",
		"Program log: Instruction: MintToken",
		"Program log: Minting tokens to associated token account...",
		"Program TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA invoke [2]",
		"Program log: Instruction: MintTo",
		"Program TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA success",
		"Program log: Token minted successfully.",
		"Program ABw4Sw54Hka5hkmhrQ3bMn2XUksAHtoTeqdhrNxQeQgF success",
	}

	kinds := KindsFromLogs(logs)
	if len(kinds) != 1 {
		t.Fatalf("expected 1 kind, got %d: %v", len(kinds), kinds)
	}
	if kinds[0] != KindMint {
		t.Errorf("expected KindMint, got %s", kinds[0])
	}
}

func TestKindsFromLogs_MultipleInstructions(t *testing.T) {
	logs := []string{
		"Program log: Instruction: CreateToken",
		"Program log: Instruction: MintToken",
		"Program log: Instruction: TransferTokens",
		"Program log: Instruction: BurnTokens",
	}

	kinds := KindsFromLogs(logs)
	want := []Kind{KindCreate, KindMint, KindTransfer, KindBurn}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d kinds, got %d", len(want), len(kinds))
	}
	for i, kind := range kinds {
		if kind != want[i] {
			t.Errorf("kind %d: expected %s, got %s", i, want[i], kind)
		}
	}
}

func TestKindsFromLogs_BarePrefix(t *testing.T) {
	// Lines without the RPC "Program log: " prefix classify the same way.
	kinds := KindsFromLogs([]string{"Instruction: TransferTokens"})
	if len(kinds) != 1 || kinds[0] != KindTransfer {
		t.Errorf("expected [transfer], got %v", kinds)
	}
}

func TestKindsFromLogs_NoMatches(t *testing.T) {
	logs := []string{
		"Program log: Instruction: Swap",
		"Program log: something else entirely",
		"",
	}
	if kinds := KindsFromLogs(logs); kinds != nil {
		t.Errorf("expected no kinds, got %v", kinds)
	}
}

func TestKindValid(t *testing.T) {
	for _, kind := range []Kind{KindCreate, KindMint, KindTransfer, KindBurn} {
		if !kind.Valid() {
			t.Errorf("%s must be valid", kind)
		}
	}
	if Kind("swap").Valid() {
		t.Error("unknown kind must be invalid")
	}
}

func TestOperationValidate(t *testing.T) {
	op := &Operation{Signature: "sig1", Kind: KindMint}
	if err := op.Validate(); err != nil {
		t.Errorf("expected valid operation, got %v", err)
	}

	cases := []struct {
		name string
		op   *Operation
	}{
		{"nil", nil},
		{"empty signature", &Operation{Kind: KindMint}},
		{"bad kind", &Operation{Signature: "sig1", Kind: "swap"}},
	}
	for _, tc := range cases {
		if err := tc.op.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}
