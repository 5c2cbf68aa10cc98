package spltoken

import (
	"testing"
)

func TestDeriveAssociatedTokenAddress(t *testing.T) {
	wallet := testKey(t, 5)
	mint := testKey(t, 2)

	ata1, err := DeriveAssociatedTokenAddress(wallet, mint)
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAddress: %v", err)
	}
	ata2, err := DeriveAssociatedTokenAddress(wallet, mint)
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAddress: %v", err)
	}

	if ata1 != ata2 {
		t.Error("derivation must be deterministic")
	}
	if ata1 == wallet || ata1 == mint {
		t.Error("ATA must differ from wallet and mint")
	}
}

func TestDeriveAssociatedTokenAddress_PerOwnerPerMint(t *testing.T) {
	walletA := testKey(t, 5)
	walletB := testKey(t, 6)
	mintA := testKey(t, 2)
	mintB := testKey(t, 7)

	seen := map[string]bool{}
	for _, wallet := range []string{"a", "b"} {
		for _, mint := range []string{"a", "b"} {
			w := walletA
			if wallet == "b" {
				w = walletB
			}
			m := mintA
			if mint == "b" {
				m = mintB
			}
			ata, err := DeriveAssociatedTokenAddress(w, m)
			if err != nil {
				t.Fatalf("DeriveAssociatedTokenAddress: %v", err)
			}
			if seen[ata.String()] {
				t.Errorf("duplicate ATA for (%s, %s)", wallet, mint)
			}
			seen[ata.String()] = true
		}
	}
}
