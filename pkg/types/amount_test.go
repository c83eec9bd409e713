package types

import (
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
	}{
		{"0", 0},
		{"1", KoinuPerCoin},
		{"12.5", 1_250_000_000},
		{"0.00000001", 1},
		{"100", 10_000_000_000},
		{"0.001", 100_000},
		{"-5", -5 * KoinuPerCoin},
		{" 3 ", 3 * KoinuPerCoin},
		{".5", 50_000_000},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", ".", "abc", "1.2.3", "0.000000001", "1e8", "99999999999999999999"} {
		if _, err := ParseAmount(in); err == nil {
			t.Errorf("ParseAmount(%q) should fail", in)
		}
	}
}

func TestAmount_String(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{0, "0"},
		{KoinuPerCoin, "1"},
		{1_250_000_000, "12.5"},
		{1, "0.00000001"},
		{-KoinuPerCoin / 2, "-0.5"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Amount(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAmount_StringParseRoundTrip(t *testing.T) {
	for _, a := range []Amount{0, 1, 12345, KoinuPerCoin, 1_250_000_000, 987_654_321_000} {
		back, err := ParseAmount(a.String())
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", a.String(), err)
		}
		if back != a {
			t.Errorf("round trip %d -> %q -> %d", a, a.String(), back)
		}
	}
}

func TestAmount_AddOverflow(t *testing.T) {
	if _, err := Amount(math.MaxInt64).Add(1); err == nil {
		t.Fatal("expected overflow error")
	}
	if _, err := Amount(math.MinInt64).Sub(1); err == nil {
		t.Fatal("expected overflow error")
	}
	sum, err := Amount(5).Add(7)
	if err != nil || sum != 12 {
		t.Fatalf("Add = %d, %v; want 12, nil", sum, err)
	}
}
