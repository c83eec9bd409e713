// Package types defines the primitive value types shared across the service:
// base58check addresses and koinu amounts.
package types

import (
	"fmt"
	"math"
	"strings"
)

// Amount is a quantity of coin in koinu, the chain's smallest unit.
// 1 DOGE = 100,000,000 koinu. All internal arithmetic and storage use
// Amount; decimal strings exist only at the API boundary.
type Amount int64

// KoinuPerCoin is the number of koinu in one whole coin.
const KoinuPerCoin = 100_000_000

// coinDecimals is the number of decimal places in the display unit.
const coinDecimals = 8

// Coins constructs an Amount from a whole number of coins.
func Coins(n int64) Amount {
	return Amount(n * KoinuPerCoin)
}

// ParseAmount converts a decimal coin string ("12.5", "0.001") to koinu.
// At most eight decimal places are accepted; extra precision is an error
// rather than silently truncated.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > coinDecimals {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, coinDecimals)
	}

	var v int64
	for _, c := range whole {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		if v > (math.MaxInt64-int64(c-'0'))/10 {
			return 0, fmt.Errorf("amount %q overflows", s)
		}
		v = v*10 + int64(c-'0')
	}
	for i := 0; i < coinDecimals; i++ {
		d := int64(0)
		if i < len(frac) {
			c := frac[i]
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("invalid amount %q", s)
			}
			d = int64(c - '0')
		}
		if v > (math.MaxInt64-d)/10 {
			return 0, fmt.Errorf("amount %q overflows", s)
		}
		v = v*10 + d
	}
	if neg {
		v = -v
	}
	return Amount(v), nil
}

// String formats the amount as a decimal coin string with trailing
// zeros trimmed ("12.5", "0.00000001", "3").
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / KoinuPerCoin
	frac := v % KoinuPerCoin
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	fs := strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, fs)
}

// Add returns a+b, failing on int64 overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("amount overflow: %d + %d", a, b)
	}
	return sum, nil
}

// Sub returns a-b, failing on int64 overflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	return a.Add(-b)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool {
	return a < 0
}
