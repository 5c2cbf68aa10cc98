package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
)

// pdaMarker is appended to the hash input for program derived addresses.
const pdaMarker = "ProgramDerivedAddress"

// maxSeedLen is the maximum length of a single PDA seed.
const maxSeedLen = 32

// CreateProgramAddress derives an address from seeds and a program ID.
// Fails if the resulting point lies on the ed25519 curve, since a PDA must
// have no corresponding private key.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	var pk PublicKey

	data := make([]byte, 0, 64)
	for _, seed := range seeds {
		if len(seed) > maxSeedLen {
			return pk, fmt.Errorf("seed length %d exceeds maximum %d", len(seed), maxSeedLen)
		}
		data = append(data, seed...)
	}
	data = append(data, programID[:]...)
	data = append(data, []byte(pdaMarker)...)

	hash := sha256.Sum256(data)
	if isOnCurve(hash[:]) {
		return pk, fmt.Errorf("derived address is on the ed25519 curve")
	}

	copy(pk[:], hash[:])
	return pk, nil
}

// FindProgramAddress finds the first off-curve address for the seeds by
// searching bump seeds from 255 downward. Returns the address and the bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	bumped := make([][]byte, len(seeds), len(seeds)+1)
	copy(bumped, seeds)

	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(append(bumped, []byte{byte(bump)}), programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
	}

	return PublicKey{}, 0, fmt.Errorf("no viable bump seed found")
}

// isOnCurve reports whether the 32 bytes decode to a valid ed25519 point.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
