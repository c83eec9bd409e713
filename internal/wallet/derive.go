package wallet

import (
	"fmt"

	"github.com/dogewatch/dogewatch-core/pkg/crypto"
	"github.com/dogewatch/dogewatch-core/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// TreasuryIndex is the derivation index reserved for the platform
// treasury wallet. User wallets are assigned indices starting at
// FirstUserIndex so they can never collide with it.
const (
	TreasuryIndex  uint32 = 0
	FirstUserIndex uint32 = 1
)

// Params holds the per-network constants the derivation service needs
// beyond the process-wide address version.
type Params struct {
	WIFVersion byte
}

// MainnetParams are the derivation parameters for mainnet.
var MainnetParams = Params{WIFVersion: MainnetWIF}

// TestnetParams are the derivation parameters for testnet.
var TestnetParams = Params{WIFVersion: TestnetWIF}

// DerivedKey is the result of deriving one address index. The private
// key is exported only in WIF for transient signing use; callers must
// never persist it.
type DerivedKey struct {
	Index         uint32
	Address       types.Address
	PublicKey     []byte
	PrivateKeyWIF string
	Path          string
}

// Service derives per-index keys and addresses from a single master
// seed. The seed is injected at construction and never mutated, so a
// Service is safe for concurrent use.
type Service struct {
	master *HDKey
	params Params
}

// NewService builds a derivation service from a 64-byte seed.
func NewService(seed []byte, params Params) (*Service, error) {
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	return &Service{master: master, params: params}, nil
}

// NewServiceFromMnemonic builds a derivation service from a BIP-39 mnemonic.
func NewServiceFromMnemonic(mnemonic, passphrase string, params Params) (*Service, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	return NewService(seed, params)
}

// Derive computes the key material at m/44'/3'/0'/0/index. The result
// is a pure function of (seed, index): the same index always yields the
// same address. Derivation either succeeds completely or fails; there
// is no partial result.
func (s *Service) Derive(index uint32) (*DerivedKey, error) {
	if index >= bip32.FirstHardenedChild {
		return nil, fmt.Errorf("index %d out of non-hardened range", index)
	}
	child, err := s.master.DeriveAddressKey(0, ChangeExternal, index)
	if err != nil {
		return nil, fmt.Errorf("derive index %d: %w", index, err)
	}

	addr, err := child.Address()
	if err != nil {
		return nil, fmt.Errorf("encode address for index %d: %w", index, err)
	}

	priv := child.PrivateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("derived key at index %d has no private key", index)
	}
	wif, err := EncodeWIF(priv, s.params.WIFVersion)
	if err != nil {
		return nil, fmt.Errorf("encode wif for index %d: %w", index, err)
	}

	return &DerivedKey{
		Index:         index,
		Address:       addr,
		PublicKey:     child.PublicKeyBytes(),
		PrivateKeyWIF: wif,
		Path:          fmt.Sprintf("m/44'/3'/0'/0/%d", index),
	}, nil
}

// TreasuryAddress returns the address at the reserved treasury index.
func (s *Service) TreasuryAddress() (types.Address, error) {
	dk, err := s.Derive(TreasuryIndex)
	if err != nil {
		return "", err
	}
	return dk.Address, nil
}

// Signer decodes a derived key's WIF into a signing key. The WIF
// version byte is validated before any signing can happen.
func (s *Service) Signer(wif string) (*crypto.PrivateKey, error) {
	key, err := DecodeWIF(wif, s.params.WIFVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}
	return key, nil
}
