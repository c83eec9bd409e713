// derive_address.go prints the address and path for a derivation index,
// given a file containing a BIP-39 mnemonic. Useful for verifying that
// a recovery phrase reproduces the expected deposit addresses.
// Usage: go run scripts/derive_address.go <mnemonic-file> <index>
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dogewatch/dogewatch-core/internal/wallet"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: derive_address <mnemonic-file> <index>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	index, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "index must be a non-negative integer")
		os.Exit(1)
	}

	mnemonic := strings.TrimSpace(string(data))
	svc, err := wallet.NewServiceFromMnemonic(mnemonic, "", wallet.MainnetParams)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dk, err := svc.Derive(uint32(index))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("path=%s\n", dk.Path)
	fmt.Printf("address=%s\n", dk.Address)
}
