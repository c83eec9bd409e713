package wallet

import (
	"fmt"

	"github.com/dogewatch/dogewatch-core/pkg/crypto"
	"github.com/dogewatch/dogewatch-core/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 path constants for Dogecoin: m/44'/3'/account'/change/index.
const (
	purposeBIP44 = bip32.FirstHardenedChild + 44
	coinTypeDoge = bip32.FirstHardenedChild + 3

	// ChangeExternal selects the receiving-address branch. All
	// custodial deposit addresses live on it.
	ChangeExternal uint32 = 0
)

// HDKey is a BIP-32 hierarchical deterministic key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey builds the master key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveAddressKey walks m/44'/3'/account'/change/index from the
// master key.
func (k *HDKey) DeriveAddressKey(account, change, index uint32) (*HDKey, error) {
	path := []uint32{
		purposeBIP44,
		coinTypeDoge,
		bip32.FirstHardenedChild + account,
		change,
		index,
	}
	current := k.key
	for _, step := range path {
		child, err := current.NewChildKey(step)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", step, err)
		}
		current = child
	}
	return &HDKey{key: current}, nil
}

// PrivateKeyBytes returns the raw 32-byte private key, or nil for a
// public-only key.
func (k *HDKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	// bip32 stores private keys as 33 bytes with a leading zero.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	return k.key.PublicKey().Key
}

// Address encodes the pay-to-pubkey-hash address for this key:
// base58check(version || RIPEMD160(SHA256(compressed pubkey))).
func (k *HDKey) Address() (types.Address, error) {
	return types.NewAddress(crypto.Hash160(k.PublicKeyBytes()))
}
