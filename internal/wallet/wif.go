package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/dogewatch/dogewatch-core/pkg/crypto"
)

// WIF version bytes. Mainnet WIF strings start with "Q", testnet with "c".
const (
	MainnetWIF byte = 0x9e
	TestnetWIF byte = 0xf1
)

// compressedFlag marks a WIF key whose public key is serialized compressed.
const compressedFlag byte = 0x01

// EncodeWIF encodes a 32-byte private key in wallet import format:
// base58check(version || key || 0x01). Only compressed keys are produced.
func EncodeWIF(privKey []byte, version byte) (string, error) {
	if len(privKey) != 32 {
		return "", fmt.Errorf("private key must be 32 bytes, got %d", len(privKey))
	}
	payload := make([]byte, 0, 33)
	payload = append(payload, privKey...)
	payload = append(payload, compressedFlag)
	return base58.CheckEncode(payload, version), nil
}

// DecodeWIF decodes a WIF string and checks its version byte. Both the
// compressed (33-byte payload, key plus flag) and uncompressed
// (32-byte) forms are accepted on input.
func DecodeWIF(wif string, version byte) (*crypto.PrivateKey, error) {
	payload, ver, err := base58.CheckDecode(wif)
	if err != nil {
		return nil, fmt.Errorf("decode wif: %w", err)
	}
	if ver != version {
		return nil, fmt.Errorf("wif version byte 0x%02x, want 0x%02x", ver, version)
	}
	switch len(payload) {
	case 33:
		if payload[32] != compressedFlag {
			return nil, fmt.Errorf("wif compression flag 0x%02x, want 0x%02x", payload[32], compressedFlag)
		}
		return crypto.PrivateKeyFromBytes(payload[:32])
	case 32:
		return crypto.PrivateKeyFromBytes(payload)
	default:
		return nil, fmt.Errorf("wif payload is %d bytes, want 32 or 33", len(payload))
	}
}
