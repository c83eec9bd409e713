// Package crypto provides the hashing and ECDSA signing primitives for
// address derivation and transaction signing.
package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// Sha256 computes a single SHA-256 hash of the input data.
func Sha256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// DoubleSha256 computes SHA256(SHA256(data)), the chain's transaction
// and checksum hash.
func DoubleSha256(data []byte) []byte {
	return Sha256(Sha256(data))
}

// Hash160 computes RIPEMD160(SHA256(data)), the public key hash that
// addresses encode.
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sha[:])
	return r.Sum(nil)
}
