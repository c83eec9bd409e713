package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the length of the master seed in bytes (512 bits).
const SeedSize = 64

// SeedFromMnemonic recovers the 512-bit master seed from a recovery
// phrase and optional passphrase, per BIP-39 (PBKDF2-SHA512). The
// same phrase and passphrase always reproduce the same seed, so every
// user deposit address can be re-derived after a restore.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
