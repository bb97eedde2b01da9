package ruc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ruconnect/pkg/domain-errors"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		// Worked example: weighted sum 148, remainder 5, check digit 6.
		{"valid legal entity", "20123456786", true},
		{"valid natural person", "10001000000", true},
		{"valid non-profit", "15123456782", true},
		{"valid state entity", "17123456785", true},
		{"real-world registry number", "20131312955", true},
		{"surrounding whitespace trimmed", "  20123456786  ", true},
		{"tab and newline trimmed", "\t20123456786\n", true},

		{"wrong check digit", "20123456780", false},
		{"rejected prefix", "30123456786", false},
		{"non-digit character", "2012345678a", false},
		{"inner space", "20123 456786", false},
		{"too short", "2012345678", false},
		{"too long", "201234567861", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"fullwidth digits", "２０１２３４５６７８６", false},
		{"negative-looking input", "-2012345678", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.candidate))
		})
	}
}

// TestIsValid_CheckDigitExhaustive flips the check digit of a known-valid
// number through every other value; exactly one digit may pass.
func TestIsValid_CheckDigitExhaustive(t *testing.T) {
	const first10 = "2012345678"
	valid := 0
	for d := 0; d <= 9; d++ {
		candidate := first10 + string(rune('0'+d))
		if IsValid(candidate) {
			valid++
			assert.Equal(t, "20123456786", candidate)
		}
	}
	assert.Equal(t, 1, valid)
}

// TestIsValid_NormalizationBoundaries pins the two remainder edge cases:
// remainder 1 yields raw check digit 10 which normalizes to 0, and
// remainder 0 yields 11 which normalizes to 1.
func TestIsValid_NormalizationBoundaries(t *testing.T) {
	t.Run("remainder 1 normalizes to 0", func(t *testing.T) {
		// 1*5 + 1*7 = 12, 12 mod 11 = 1.
		assert.True(t, IsValid("10001000000"))
		assert.False(t, IsValid("10001000001"))
	})

	t.Run("remainder 0 normalizes to 1", func(t *testing.T) {
		// 1*5 + 3*2 = 11, 11 mod 11 = 0.
		assert.True(t, IsValid("10030000001"))
		assert.False(t, IsValid("10030000000"))
	})
}

func TestCheck_FirstViolationWins(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      Violation
	}{
		{"valid", "20123456786", ViolationNone},
		{"empty", "", ViolationRequired},
		{"whitespace only", " \t ", ViolationRequired},
		{"non-digit beats length", "abc", ViolationNotDigits},
		{"non-digit at correct length", "2012345678a", ViolationNotDigits},
		{"short all digits", "12", ViolationLength},
		{"long all digits", "123456789012", ViolationLength},
		{"prefix beats check digit", "30123456780", ViolationPrefix},
		{"prefix with otherwise valid tail", "30123456786", ViolationPrefix},
		{"check digit last", "20123456780", ViolationCheckDigit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.candidate))
		})
	}
}

func TestExplain_Messages(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		wantMsg   string
	}{
		{"empty", "", "RUC is required."},
		{"non-digit", "2012345678a", "RUC must contain only digits."},
		{"wrong length", "123", "RUC must have exactly 11 digits."},
		{"bad prefix", "30123456786", "RUC must start with 10, 15, 17, or 20."},
		{"checksum mismatch", "20123456780", "RUC is not valid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := Explain(tt.candidate)
			assert.False(t, ok)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}

	t.Run("valid yields no message", func(t *testing.T) {
		msg, ok := Explain("20123456786")
		assert.True(t, ok)
		assert.Empty(t, msg)
	})
}

func TestParse(t *testing.T) {
	t.Run("returns trimmed typed value", func(t *testing.T) {
		r, err := Parse("  20123456786 ")
		require.NoError(t, err)
		assert.Equal(t, RUC("20123456786"), r)
		assert.Equal(t, "20", r.Prefix())
		assert.Equal(t, 6, r.CheckDigit())
	})

	t.Run("invalid carries coded error with explain message", func(t *testing.T) {
		_, err := Parse("30123456786")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.Equal(t, "RUC must start with 10, 15, 17, or 20.", dErrors.Message(err))
	})

	t.Run("empty carries required message", func(t *testing.T) {
		_, err := Parse("")
		require.Error(t, err)
		assert.Equal(t, "RUC is required.", dErrors.Message(err))
	})
}

func TestComputeCheckDigit(t *testing.T) {
	t.Run("worked example", func(t *testing.T) {
		got, err := ComputeCheckDigit("2012345678")
		require.NoError(t, err)
		assert.Equal(t, 6, got)
	})

	t.Run("normalization boundaries", func(t *testing.T) {
		got, err := ComputeCheckDigit("1000100000")
		require.NoError(t, err)
		assert.Equal(t, 0, got)

		got, err = ComputeCheckDigit("1003000000")
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ComputeCheckDigit("123")
		require.Error(t, err)
	})

	t.Run("rejects non-digits", func(t *testing.T) {
		_, err := ComputeCheckDigit("12345678x0")
		require.Error(t, err)
	})
}

// TestIsValid_LengthSweep verifies every non-11 digit-string length fails.
func TestIsValid_LengthSweep(t *testing.T) {
	for n := 0; n <= 20; n++ {
		s := strings.Repeat("1", n)
		if n == Length {
			continue
		}
		assert.False(t, IsValid(s), "length %d must be invalid", n)
	}
}

func BenchmarkIsValid(b *testing.B) {
	for i := 0; i < b.N; i++ {
		IsValid("20123456786")
	}
}
