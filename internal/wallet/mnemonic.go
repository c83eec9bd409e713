// Package wallet implements HD key derivation and seed custody for
// the custodial Dogecoin wallet.
package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// mnemonicEntropyBits yields a 24-word recovery phrase.
const mnemonicEntropyBits = 256

// GenerateMnemonic creates the 24-word BIP-39 recovery phrase for a
// fresh master seed.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether a recovery phrase is well-formed
// per BIP-39: known words, supported word count, valid checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}
