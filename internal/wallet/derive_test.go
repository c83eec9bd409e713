package wallet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dogewatch/dogewatch-core/pkg/crypto"
	"github.com/dogewatch/dogewatch-core/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// testMnemonic is the BIP-39 reference fixture ("all zeros" entropy).
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewServiceFromMnemonic(testMnemonic, "", MainnetParams)
	if err != nil {
		t.Fatalf("NewServiceFromMnemonic: %v", err)
	}
	return svc
}

func TestDerive_Deterministic(t *testing.T) {
	svc := testService(t)

	for _, idx := range []uint32{0, 1, 7, 500, 99999} {
		a, err := svc.Derive(idx)
		if err != nil {
			t.Fatalf("Derive(%d): %v", idx, err)
		}
		b, err := svc.Derive(idx)
		if err != nil {
			t.Fatalf("Derive(%d) again: %v", idx, err)
		}
		if a.Address != b.Address {
			t.Errorf("index %d: addresses differ: %s vs %s", idx, a.Address, b.Address)
		}
		if !bytes.Equal(a.PublicKey, b.PublicKey) {
			t.Errorf("index %d: public keys differ", idx)
		}
		if a.PrivateKeyWIF != b.PrivateKeyWIF {
			t.Errorf("index %d: WIFs differ", idx)
		}
	}
}

func TestDerive_DistinctIndices(t *testing.T) {
	svc := testService(t)

	seen := make(map[types.Address]uint32)
	for idx := uint32(0); idx < 256; idx++ {
		dk, err := svc.Derive(idx)
		if err != nil {
			t.Fatalf("Derive(%d): %v", idx, err)
		}
		if prev, dup := seen[dk.Address]; dup {
			t.Fatalf("address collision: indices %d and %d both derive %s", prev, idx, dk.Address)
		}
		seen[dk.Address] = idx
	}
}

func TestDerive_AddressShape(t *testing.T) {
	svc := testService(t)

	dk, err := svc.Derive(1)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !strings.HasPrefix(dk.Address.String(), "D") {
		t.Errorf("mainnet address %q should start with 'D'", dk.Address)
	}
	if !types.IsValidAddress(dk.Address.String()) {
		t.Errorf("derived address %q should validate", dk.Address)
	}
	if len(dk.PublicKey) != 33 {
		t.Errorf("public key is %d bytes, want 33 (compressed)", len(dk.PublicKey))
	}
	if !strings.HasPrefix(dk.PrivateKeyWIF, "Q") {
		t.Errorf("mainnet WIF %q should start with 'Q'", dk.PrivateKeyWIF)
	}
	if dk.Path != "m/44'/3'/0'/0/1" {
		t.Errorf("Path = %q, want m/44'/3'/0'/0/1", dk.Path)
	}
}

func TestDerive_IndexOutOfRange(t *testing.T) {
	svc := testService(t)
	if _, err := svc.Derive(bip32.FirstHardenedChild); err == nil {
		t.Fatal("expected error for hardened-range index")
	}
}

func TestDerive_WIFMatchesAddress(t *testing.T) {
	svc := testService(t)

	dk, err := svc.Derive(42)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	key, err := svc.Signer(dk.PrivateKeyWIF)
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	if !bytes.Equal(key.PublicKey(), dk.PublicKey) {
		t.Error("WIF-decoded key does not match derived public key")
	}

	addr, err := types.NewAddress(crypto.Hash160(key.PublicKey()))
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	if addr != dk.Address {
		t.Errorf("address from WIF pubkey = %s, want %s", addr, dk.Address)
	}
}

func TestSigner_BadWIF(t *testing.T) {
	svc := testService(t)

	if _, err := svc.Signer("not-a-wif"); err == nil {
		t.Fatal("expected error for garbage WIF")
	}

	// A WIF under the wrong network version byte must be rejected.
	dk, err := svc.Derive(5)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	testnet, err := NewServiceFromMnemonic(testMnemonic, "", TestnetParams)
	if err != nil {
		t.Fatalf("testnet service: %v", err)
	}
	if _, err := testnet.Signer(dk.PrivateKeyWIF); err == nil {
		t.Fatal("expected error for mainnet WIF on testnet service")
	}
}

func TestNewService_BadSeed(t *testing.T) {
	if _, err := NewService([]byte("short"), MainnetParams); err == nil {
		t.Fatal("expected error for short seed")
	}
	if _, err := NewServiceFromMnemonic("not a mnemonic", "", MainnetParams); err == nil {
		t.Fatal("expected error for invalid mnemonic")
	}
}

func TestTreasuryAddress(t *testing.T) {
	svc := testService(t)

	treasury, err := svc.TreasuryAddress()
	if err != nil {
		t.Fatalf("TreasuryAddress: %v", err)
	}
	dk, err := svc.Derive(TreasuryIndex)
	if err != nil {
		t.Fatalf("Derive(treasury): %v", err)
	}
	if treasury != dk.Address {
		t.Errorf("TreasuryAddress = %s, want %s", treasury, dk.Address)
	}

	user, err := svc.Derive(FirstUserIndex)
	if err != nil {
		t.Fatalf("Derive(first user): %v", err)
	}
	if user.Address == treasury {
		t.Error("first user index must not share the treasury address")
	}
}
