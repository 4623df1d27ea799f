package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SompiPerUnit is the number of sompi in one display unit (HTN).
const SompiPerUnit = 100_000_000

// MaxSompi caps the total supply representable by Amount arithmetic.
// Sums beyond this are treated as overflow even if they fit in uint64.
const MaxSompi = math.MaxUint64

// ErrInvalidAmount reports a malformed or out-of-range amount string.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a currency value in sompi, the smallest subunit.
// Amounts cross the wire as decimal strings, never floats.
type Amount uint64

// AddAmounts returns a+b, failing on uint64 overflow.
func AddAmounts(a, b Amount) (Amount, error) {
	if a > math.MaxUint64-b {
		return 0, fmt.Errorf("%w: %d + %d overflows", ErrInvalidAmount, a, b)
	}
	return a + b, nil
}

// SubAmounts returns a-b, failing if b > a.
func SubAmounts(a, b Amount) (Amount, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d underflows", ErrInvalidAmount, a, b)
	}
	return a - b, nil
}

// String returns the amount as a decimal sompi string.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Format returns the amount in display units with up to 8 decimal places,
// trailing zeros trimmed (e.g. 150000000 -> "1.5").
func (a Amount) Format() string {
	whole := uint64(a) / SompiPerUnit
	frac := uint64(a) % SompiPerUnit
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	s := fmt.Sprintf("%d.%08d", whole, frac)
	return strings.TrimRight(s, "0")
}

// MarshalJSON encodes the amount as a decimal string of sompi.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a decimal sompi string (or bare number) into an amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseSompi(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseSompi parses a decimal string of raw sompi.
func ParseSompi(s string) (Amount, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount(v), nil
}

// ParseAmount parses a display-unit string like "1.5" or "0.00000001"
// into sompi. At most 8 fractional digits are allowed; the value must
// not be negative and must fit in uint64.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative value %q", ErrInvalidAmount, s)
	}

	wholeStr := s
	fracStr := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		wholeStr = s[:idx]
		fracStr = s[idx+1:]
		if strings.IndexByte(fracStr, '.') >= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	if wholeStr == "" {
		wholeStr = "0"
	}
	if len(fracStr) > 8 {
		return 0, fmt.Errorf("%w: %q has more than 8 decimal places", ErrInvalidAmount, s)
	}

	whole, err := strconv.ParseUint(wholeStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	var frac uint64
	if fracStr != "" {
		frac, err = strconv.ParseUint(fracStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		// Scale to 8 digits: "5" -> 50000000.
		for i := len(fracStr); i < 8; i++ {
			frac *= 10
		}
	}

	if whole > math.MaxUint64/SompiPerUnit {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}
	sompi := whole * SompiPerUnit
	if sompi > math.MaxUint64-frac {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}
	return Amount(sompi + frac), nil
}
