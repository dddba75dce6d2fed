// Package money provides fixed-point currency values with exact
// major/minor-unit arithmetic. Amounts are immutable value types;
// all operations return new values and never lose or fabricate a cent.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedAmount is returned when a money string cannot be parsed.
var ErrMalformedAmount = errors.New("malformed money amount")

// Amount is a fixed-point monetary value. Major carries the sign; Minor
// is normalized into [0,99] for non-negative amounts. Negative amounts
// keep both components non-positive so that Cents() is always exact.
type Amount struct {
	Major int64
	Minor int64
}

// Zero is the zero amount.
var Zero = Amount{}

// New builds a normalized Amount from major and minor units.
// Minor overflow carries into major, negative minor borrows from major.
func New(major, minor int64) Amount {
	return fromCents(major*100 + minor)
}

// FromCents builds an Amount from a total minor-unit count.
func FromCents(cents int64) Amount {
	return fromCents(cents)
}

func fromCents(total int64) Amount {
	return Amount{Major: total / 100, Minor: total % 100}
}

// Decode parses "<major>.<minor>". A missing minor part is treated as
// zero; a single minor digit is right-padded ("5.5" -> 5.50). More than
// two minor digits, or a non-integer major part, is ErrMalformedAmount.
func Decode(text string) (Amount, error) {
	majorPart, minorPart, hasMinor := strings.Cut(text, ".")

	major, err := strconv.ParseInt(majorPart, 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, text)
	}

	var minor int64
	if hasMinor && minorPart != "" {
		if len(minorPart) > 2 {
			return Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, text)
		}
		for len(minorPart) < 2 {
			minorPart += "0"
		}
		minor, err = strconv.ParseInt(minorPart, 10, 64)
		if err != nil || minor < 0 {
			return Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, text)
		}
	}

	if major < 0 || strings.HasPrefix(majorPart, "-") {
		minor = -minor
	}
	return New(major, minor), nil
}

// Encode renders the amount as "<major>.<minor>" with a two-digit minor
// part. With grouped set, the major part gets a space as thousands
// separator for display; the precision is unchanged.
func (a Amount) Encode(grouped bool) string {
	cents := a.Cents()
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	major := strconv.FormatInt(cents/100, 10)
	if grouped {
		major = groupDigits(major)
	}
	return fmt.Sprintf("%s%s.%02d", sign, major, cents%100)
}

// String renders the canonical ungrouped form.
func (a Amount) String() string {
	return a.Encode(false)
}

func groupDigits(s string) string {
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// Add returns a+b with carry and borrow handled exactly.
func (a Amount) Add(b Amount) Amount {
	return fromCents(a.Cents() + b.Cents())
}

// Scale multiplies the amount by an integer factor, renormalizing
// minor overflow into major. Used for payout multipliers.
func (a Amount) Scale(factor int64) Amount {
	return fromCents(a.Cents() * factor)
}

// Neg returns the negated amount, used to express debits.
func (a Amount) Neg() Amount {
	return fromCents(-a.Cents())
}

// Cents returns the total value in minor units.
func (a Amount) Cents() int64 {
	return a.Major*100 + a.Minor
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.Cents() == 0
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool {
	return a.Cents() < 0
}

// Cmp compares a and b, returning -1, 0 or 1.
func (a Amount) Cmp(b Amount) int {
	ac, bc := a.Cents(), b.Cents()
	switch {
	case ac < bc:
		return -1
	case ac > bc:
		return 1
	default:
		return 0
	}
}

// MustDecode parses a money string and panics on failure. Intended for
// constants and configuration defaults known to be well-formed.
func MustDecode(text string) Amount {
	a, err := Decode(text)
	if err != nil {
		panic(err)
	}
	return a
}
