package spltoken

import (
	"fmt"

	"spl-transfer-lab/internal/solana"
)

// DeriveAssociatedTokenAddress computes the deterministic token account
// address for (wallet, mint). The seeds are wallet, token program, mint under
// the Associated Token program.
func DeriveAssociatedTokenAddress(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{wallet[:], TokenProgramID[:], mint[:]}

	addr, _, err := solana.FindProgramAddress(seeds, AssociatedTokenProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return addr, nil
}
