package wallet

import (
	"strings"
	"testing"
)

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic: %v", err)
	}
	if got := len(strings.Fields(mnemonic)); got != 24 {
		t.Errorf("word count = %d, want 24", got)
	}
	if !ValidateMnemonic(mnemonic) {
		t.Error("generated mnemonic fails validation")
	}

	second, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic: %v", err)
	}
	if mnemonic == second {
		t.Error("two generated mnemonics are identical")
	}
}

func TestValidateMnemonic(t *testing.T) {
	valid24 := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"
	valid12 := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	// Same words as valid24 but the final checksum word replaced.
	badChecksum := strings.Replace(valid24, " art", " abandon", 1)

	cases := []struct {
		name     string
		mnemonic string
		want     bool
	}{
		{"24 words", valid24, true},
		{"12 words", valid12, true},
		{"empty", "", false},
		{"non-wordlist words", "such wow very doge much moon", false},
		{"bad checksum", badChecksum, false},
		{"truncated", strings.Join(strings.Fields(valid24)[:23], " "), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateMnemonic(tc.mnemonic); got != tc.want {
				t.Errorf("ValidateMnemonic = %t, want %t", got, tc.want)
			}
		})
	}
}
