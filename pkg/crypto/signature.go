package crypto

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Signer signs sighash digests with a private key using ECDSA/secp256k1.
type Signer interface {
	// Sign produces a canonical low-S DER signature over a 32-byte digest.
	Sign(digest []byte) ([]byte, error)
	// PublicKey returns the compressed 33-byte public key.
	PublicKey() []byte
}

// halfOrder is half the secp256k1 group order. A signature's S component
// must not exceed it (BIP-62 low-S rule), otherwise the signature has a
// second valid encoding and the transaction ID is malleable.
var halfOrder = new(big.Int).Rsh(secp256k1.S256().N, 1)

// PrivateKey wraps a secp256k1 private key for ECDSA signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	return &PrivateKey{key: key}, nil
}

// Sign produces a DER-encoded ECDSA signature over a 32-byte digest.
// The S component is always in low-S form; a non-canonical result is an
// error, never returned to the caller.
func (pk *PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	der := ecdsa.Sign(pk.key, digest).Serialize()
	if !IsLowS(der) {
		return nil, fmt.Errorf("produced non-canonical signature")
	}
	return der, nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// SignDigests signs every digest with the same key. Signing is
// all-or-nothing: one failed digest fails the whole batch so a
// transaction can never be partially signed.
func SignDigests(signer Signer, digests [][]byte) ([][]byte, error) {
	sigs := make([][]byte, 0, len(digests))
	for i, d := range digests {
		sig, err := signer.Sign(d)
		if err != nil {
			return nil, fmt.Errorf("sign digest %d: %w", i, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// VerifySignature checks a DER-encoded ECDSA signature against a 32-byte
// digest and a compressed public key. Returns false on any error.
func VerifySignature(digest, derSig, publicKey []byte) bool {
	pubKey, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(derSig)
	if err != nil {
		return false
	}
	return sig.Verify(digest, pubKey)
}

// ParseDERSignature extracts the R and S components from a DER-encoded
// signature as 32-byte big-endian values.
func ParseDERSignature(der []byte) (r, s []byte, err error) {
	// SEQUENCE { INTEGER r, INTEGER s }
	if len(der) < 8 || der[0] != 0x30 {
		return nil, nil, fmt.Errorf("not a DER sequence")
	}
	if int(der[1]) != len(der)-2 {
		return nil, nil, fmt.Errorf("DER length mismatch")
	}
	rRaw, rest, err := readDERInt(der[2:])
	if err != nil {
		return nil, nil, fmt.Errorf("read R: %w", err)
	}
	sRaw, rest, err := readDERInt(rest)
	if err != nil {
		return nil, nil, fmt.Errorf("read S: %w", err)
	}
	if len(rest) != 0 {
		return nil, nil, fmt.Errorf("trailing bytes after S")
	}
	return leftPad32(rRaw), leftPad32(sRaw), nil
}

// IsLowS reports whether the S component of a DER signature is at most
// half the curve order.
func IsLowS(der []byte) bool {
	_, s, err := ParseDERSignature(der)
	if err != nil {
		return false
	}
	return new(big.Int).SetBytes(s).Cmp(halfOrder) <= 0
}

// readDERInt consumes one minimally-encoded INTEGER from b.
func readDERInt(b []byte) (value, rest []byte, err error) {
	if len(b) < 2 || b[0] != 0x02 {
		return nil, nil, fmt.Errorf("not a DER integer")
	}
	n := int(b[1])
	if n == 0 || n > len(b)-2 {
		return nil, nil, fmt.Errorf("bad DER integer length %d", n)
	}
	v := b[2 : 2+n]
	if v[0]&0x80 != 0 {
		return nil, nil, fmt.Errorf("negative DER integer")
	}
	// A leading zero is only valid when needed to clear the sign bit.
	if n > 1 && v[0] == 0x00 && v[1]&0x80 == 0 {
		return nil, nil, fmt.Errorf("non-minimal DER integer")
	}
	return v, b[2+n:], nil
}

// leftPad32 pads a big-endian value to 32 bytes, dropping leading zeros first.
func leftPad32(b []byte) []byte {
	for len(b) > 0 && b[0] == 0x00 {
		b = b[1:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
