// ABOUTME: Fixed-point coin amounts in base units
// ABOUTME: Parses and formats decimal coin strings without floats

package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// Decimals is the number of fractional digits of one coin.
const Decimals = 8

// Coin is one whole coin in base units.
const Coin Amount = 100_000_000

// Amount is a coin value in base units. Floats never carry money.
type Amount int64

// ParseAmount converts a decimal string such as "0.5" into base units.
// Digits beyond Decimals are truncated.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		frac = frac[:Decimals]
	}
	frac += strings.Repeat("0", Decimals-len(frac))

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}

	a := Amount(w)*Coin + Amount(f)
	if negative {
		a = -a
	}
	return a, nil
}

// String formats the amount as a decimal coin value without trailing zeros.
func (a Amount) String() string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	whole := a / Coin
	frac := a % Coin
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	fs := strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, fs)
}
