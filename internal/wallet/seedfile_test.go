package wallet

import (
	"bytes"
	"path/filepath"
	"testing"
)

// fastParams keeps Argon2id cheap in tests.
var fastParams = EncryptionParams{Memory: 1024, Iterations: 1, Parallelism: 1}

func TestSeedStore_SealUnseal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.sealed")
	store, err := NewSeedStore(path)
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}
	if store.Exists() {
		t.Fatal("Exists() should be false before Seal")
	}

	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	password := []byte("hunter2")

	if err := store.Seal(seed, password, fastParams); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !store.Exists() {
		t.Fatal("Exists() should be true after Seal")
	}

	got, err := store.Unseal(password)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if !bytes.Equal(got, seed) {
		t.Error("unsealed seed does not match original")
	}
}

func TestSeedStore_WrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.sealed")
	store, _ := NewSeedStore(path)

	seed := make([]byte, SeedSize)
	if err := store.Seal(seed, []byte("right"), fastParams); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := store.Unseal([]byte("wrong")); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestSeedStore_NoOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.sealed")
	store, _ := NewSeedStore(path)

	seed := make([]byte, SeedSize)
	if err := store.Seal(seed, []byte("pw"), fastParams); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if err := store.Seal(seed, []byte("pw"), fastParams); err == nil {
		t.Fatal("second Seal should refuse to overwrite")
	}
}

func TestSeedStore_UnsealMissing(t *testing.T) {
	store, _ := NewSeedStore(filepath.Join(t.TempDir(), "seed.sealed"))
	if _, err := store.Unseal([]byte("pw")); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}
