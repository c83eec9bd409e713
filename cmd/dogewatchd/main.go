// Dogewatch custodial wallet and case resolution daemon.
//
// Usage:
//
//	dogewatchd [--chain-token=...]  Run node
//	dogewatchd --help               Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/dogewatch/dogewatch-core/config"
	"github.com/dogewatch/dogewatch-core/internal/node"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	seed, err := unsealOrCreate(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	n, err := node.New(cfg, seed)
	zero(seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		n.Stop()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	n.Stop()
}

// unsealOrCreate loads the master seed, creating and sealing a fresh
// one on first run. The password comes from DOGEWATCH_PASSWORD or an
// interactive prompt.
func unsealOrCreate(cfg *config.Config) ([]byte, error) {
	path := cfg.SeedFilePath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "No seed file at %s, creating one.\n", path)
		password, err := seedPassword("New seed password: ")
		if err != nil {
			return nil, err
		}
		mnemonic, err := node.CreateSeed(path, password)
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(os.Stderr, "\nWrite down the recovery phrase below. It is shown ONCE.")
		fmt.Fprintf(os.Stderr, "\n  %s\n\n", mnemonic)
		return node.LoadSeed(path, password)
	}

	password, err := seedPassword("Seed password: ")
	if err != nil {
		return nil, err
	}
	return node.LoadSeed(path, password)
}

func seedPassword(prompt string) ([]byte, error) {
	if pw := os.Getenv("DOGEWATCH_PASSWORD"); pw != "" {
		return []byte(pw), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return password, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
