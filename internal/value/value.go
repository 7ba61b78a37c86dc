// Package value converts decimal field tokens into scaled, range-checked
// integers. Every numeric field in both waveform grammars is quantized
// through Scaled with its documented per-field scale factor and bounds.
package value

import (
	"math"
	"strconv"
	"strings"

	owterrors "github.com/hapticio/owt/errors"
)

// Scaled parses token as a decimal number (a fractional part is accepted),
// multiplies it by scale, rounds to the nearest integer, and checks the
// result against the inclusive range [min, max].
func Scaled(field, token string, scale, min, max int) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil {
		return 0, owterrors.Malformed(field, token, err)
	}

	v := int(math.Round(f * float64(scale)))
	if v < min || v > max {
		return 0, owterrors.OutOfRange(field, v, min, max)
	}

	return v, nil
}

// Int parses token as a plain decimal integer in [min, max]. Fields that
// take whole numbers only (repeats, delays, indexes) reject fractions;
// negative bounds are allowed.
func Int(field, token string, min, max int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 0, owterrors.Malformed(field, token, err)
	}

	if v < min || v > max {
		return 0, owterrors.OutOfRange(field, v, min, max)
	}

	return v, nil
}

// Bool01 parses a strict 0-or-1 flag token.
func Bool01(field, token string) (bool, error) {
	v, err := Int(field, token, 0, 1)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}
