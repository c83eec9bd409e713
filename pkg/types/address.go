package types

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Network version bytes for base58check address encoding.
// Dogecoin mainnet P2PKH addresses start with "D", testnet with "n".
const (
	MainnetPubKeyHash byte = 0x1e
	TestnetPubKeyHash byte = 0x71
)

// Hash160Size is the length of a public key hash in bytes.
const Hash160Size = 20

// activeVersion is the address version byte used by validation and encoding.
// Set once at startup via SetAddressVersion(). Default is mainnet.
var activeVersion = MainnetPubKeyHash

// SetAddressVersion sets the active address version byte (call once at startup).
func SetAddressVersion(v byte) {
	activeVersion = v
}

// AddressVersion returns the currently active address version byte.
func AddressVersion() byte {
	return activeVersion
}

// Address is a base58check-encoded pay-to-pubkey-hash address.
type Address string

// NewAddress encodes a 20-byte public key hash under the active network version.
func NewAddress(pubKeyHash []byte) (Address, error) {
	if len(pubKeyHash) != Hash160Size {
		return "", fmt.Errorf("pubkey hash must be %d bytes, got %d", Hash160Size, len(pubKeyHash))
	}
	return Address(base58.CheckEncode(pubKeyHash, activeVersion)), nil
}

// ParseAddress decodes and validates a base58check address string.
// The checksum, version byte, and payload length are all verified.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", fmt.Errorf("empty address")
	}
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", s, err)
	}
	if version != activeVersion {
		return "", fmt.Errorf("address %q has version byte 0x%02x, want 0x%02x", s, version, activeVersion)
	}
	if len(payload) != Hash160Size {
		return "", fmt.Errorf("address %q payload is %d bytes, want %d", s, len(payload), Hash160Size)
	}
	return Address(s), nil
}

// IsValidAddress reports whether s is a well-formed address for the active network.
func IsValidAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// String returns the address as a string.
func (a Address) String() string {
	return string(a)
}

// PubKeyHash returns the 20-byte public key hash encoded in the address.
func (a Address) PubKeyHash() ([]byte, error) {
	payload, _, err := base58.CheckDecode(string(a))
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	return payload, nil
}

// Short returns an abbreviated form for logs and descriptions.
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 12 {
		return s
	}
	return s[:8] + ".." + s[len(s)-4:]
}

// MarshalJSON encodes the address as a JSON string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// UnmarshalJSON decodes and validates a JSON address string.
// An empty string decodes to an empty address without validation.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = ""
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
