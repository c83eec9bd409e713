package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// sealedFile is the on-disk JSON format for the sealed master seed.
type sealedFile struct {
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	EncryptedSeed []byte    `json:"encrypted_seed"`
}

// SeedStore manages the encrypted master seed on disk. There is exactly
// one seed per deployment; it is written once at initialization and
// read once at startup.
type SeedStore struct {
	path string
}

// NewSeedStore creates a seed store backed by the given file path.
// The parent directory is created if it doesn't exist.
func NewSeedStore(path string) (*SeedStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create seed dir: %w", err)
	}
	return &SeedStore{path: path}, nil
}

// Exists reports whether a sealed seed file is present.
func (s *SeedStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Seal encrypts and writes the seed. Refuses to overwrite an existing
// file: replacing the master seed would orphan every derived address.
func (s *SeedStore) Seal(seed, password []byte, params EncryptionParams) error {
	if s.Exists() {
		return fmt.Errorf("sealed seed already exists at %s", s.path)
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}

	sf := sealedFile{
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		EncryptedSeed: encrypted,
	}
	data, err := json.MarshalIndent(&sf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seed file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write seed file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Unseal reads and decrypts the master seed.
func (s *SeedStore) Unseal(password []byte) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var sf sealedFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if sf.Version != 1 {
		return nil, fmt.Errorf("unsupported seed file version %d", sf.Version)
	}

	seed, err := Decrypt(sf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt seed: %w", err)
	}
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("sealed seed is %d bytes, want %d", len(seed), SeedSize)
	}
	return seed, nil
}
