// Package ruc validates Peruvian taxpayer identifiers (RUC, Registro
// Único de Contribuyentes).
//
// A RUC is an 11-digit number. The first two digits encode the taxpayer
// category (10 natural person, 15 non-profit entity, 17 state entity,
// 20 legal entity) and the last digit is a check digit derived from the
// first ten via a weighted modulo-11 formula.
//
// All functions are pure and total: they never panic, perform no I/O,
// and accept arbitrary input. Surrounding whitespace is trimmed before
// any rule is applied.
package ruc

import (
	"strings"

	dErrors "ruconnect/pkg/domain-errors"
)

// Length is the exact number of digits in a RUC.
const Length = 11

// weights applies to digits at index 0..9, left to right.
var weights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// Violation identifies the first rule an invalid candidate breaks.
// Rules are checked in a fixed order so callers always surface one
// deterministic message per input.
type Violation int

const (
	ViolationNone Violation = iota
	ViolationRequired
	ViolationNotDigits
	ViolationLength
	ViolationPrefix
	ViolationCheckDigit
)

// String returns a short machine-readable label, used as a metric
// dimension.
func (v Violation) String() string {
	switch v {
	case ViolationNone:
		return "valid"
	case ViolationRequired:
		return "required"
	case ViolationNotDigits:
		return "not_digits"
	case ViolationLength:
		return "length"
	case ViolationPrefix:
		return "prefix"
	case ViolationCheckDigit:
		return "check_digit"
	default:
		return "unknown"
	}
}

// Message returns the user-facing message for the violation. These
// strings are API surface: clients display them verbatim as field-level
// feedback.
func (v Violation) Message() string {
	switch v {
	case ViolationRequired:
		return "RUC is required."
	case ViolationNotDigits:
		return "RUC must contain only digits."
	case ViolationLength:
		return "RUC must have exactly 11 digits."
	case ViolationPrefix:
		return "RUC must start with 10, 15, 17, or 20."
	case ViolationCheckDigit:
		return "RUC is not valid"
	default:
		return ""
	}
}

// RUC is a validated taxpayer identifier. The zero value is not valid;
// construct via Parse.
type RUC string

func (r RUC) String() string { return string(r) }

// Prefix returns the two-digit category prefix.
func (r RUC) Prefix() string {
	if len(r) < 2 {
		return ""
	}
	return string(r[:2])
}

// CheckDigit returns the trailing check digit.
func (r RUC) CheckDigit() int {
	if len(r) != Length {
		return -1
	}
	return int(r[Length-1] - '0')
}

// IsValid reports whether the candidate is a well-formed RUC: after
// trimming surrounding whitespace it must be exactly 11 ASCII digits,
// carry an accepted prefix, and end in the correct check digit.
func IsValid(candidate string) bool {
	return Check(candidate) == ViolationNone
}

// Check returns the first rule the candidate violates, in fixed order:
// required, digits-only, length, prefix, check digit.
func Check(candidate string) Violation {
	s := strings.TrimSpace(candidate)
	if s == "" {
		return ViolationRequired
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return ViolationNotDigits
		}
	}
	if len(s) != Length {
		return ViolationLength
	}
	if !acceptedPrefix(s[:2]) {
		return ViolationPrefix
	}
	if int(s[Length-1]-'0') != expectedCheckDigit(s) {
		return ViolationCheckDigit
	}
	return ViolationNone
}

// Explain returns the message for the first violated rule and false,
// or ("", true) when the candidate is valid.
func Explain(candidate string) (string, bool) {
	v := Check(candidate)
	if v == ViolationNone {
		return "", true
	}
	return v.Message(), false
}

// Parse validates the candidate and returns it as a typed RUC with
// surrounding whitespace removed. Invalid candidates yield a coded
// error carrying the same message Explain would surface.
func Parse(candidate string) (RUC, error) {
	s := strings.TrimSpace(candidate)
	if v := Check(s); v != ViolationNone {
		return "", dErrors.New(dErrors.CodeInvalidInput, v.Message())
	}
	return RUC(s), nil
}

// ComputeCheckDigit returns the check digit for the first ten digits of
// a RUC. The input must be exactly 10 ASCII digits.
func ComputeCheckDigit(first10 string) (int, error) {
	if len(first10) != Length-1 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "expected exactly 10 digits")
	}
	for _, c := range first10 {
		if c < '0' || c > '9' {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "expected exactly 10 digits")
		}
	}
	return expectedCheckDigit(first10 + "0"), nil
}

// acceptedPrefix reports membership in the fixed category set.
func acceptedPrefix(p string) bool {
	switch p {
	case "10", "15", "17", "20":
		return true
	}
	return false
}

// expectedCheckDigit computes the weighted modulo-11 check digit over
// s[0..9]. s must hold at least 10 ASCII digits. Results 10 and 11
// normalize to 0 and 1.
func expectedCheckDigit(s string) int {
	sum := 0
	for i := 0; i < Length-1; i++ {
		sum += int(s[i]-'0') * weights[i]
	}
	check := 11 - sum%11
	switch check {
	case 10:
		return 0
	case 11:
		return 1
	}
	return check
}
