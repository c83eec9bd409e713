package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dogewatch/dogewatch-core/internal/wallet"
)

// expandHome expands a leading ~/ to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// LoadSeed unseals the master seed from an encrypted seed file.
func LoadSeed(path string, password []byte) ([]byte, error) {
	store, err := wallet.NewSeedStore(expandHome(path))
	if err != nil {
		return nil, err
	}
	if !store.Exists() {
		return nil, fmt.Errorf("seed file %s does not exist, run init first", path)
	}
	seed, err := store.Unseal(password)
	if err != nil {
		return nil, fmt.Errorf("unseal seed: %w", err)
	}
	return seed, nil
}

// CreateSeed generates a fresh mnemonic, seals the derived seed under
// the given password, and returns the mnemonic for one-time backup.
// It refuses to overwrite an existing seed file.
func CreateSeed(path string, password []byte) (string, error) {
	store, err := wallet.NewSeedStore(expandHome(path))
	if err != nil {
		return "", err
	}
	if store.Exists() {
		return "", fmt.Errorf("seed file %s already exists", path)
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return "", err
	}
	defer zero(seed)

	if err := store.Seal(seed, password, wallet.DefaultParams()); err != nil {
		return "", fmt.Errorf("seal seed: %w", err)
	}
	return mnemonic, nil
}

// RestoreSeed seals a seed recovered from an existing mnemonic.
func RestoreSeed(path, mnemonic string, password []byte) error {
	if !wallet.ValidateMnemonic(mnemonic) {
		return fmt.Errorf("invalid mnemonic")
	}
	store, err := wallet.NewSeedStore(expandHome(path))
	if err != nil {
		return err
	}
	if store.Exists() {
		return fmt.Errorf("seed file %s already exists", path)
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return err
	}
	defer zero(seed)

	return store.Seal(seed, password, wallet.DefaultParams())
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
