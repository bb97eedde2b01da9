package validation

import (
	"fmt"
	"regexp"
	"strings"

	"ruconnect/pkg/ruc"
)

// Field length bounds. Minimums apply after trimming surrounding
// whitespace; maximums apply to the raw value.
const (
	UsernameMinLen = 3
	UsernameMaxLen = 50

	PasswordMinLen = 4
	PasswordMaxLen = 100

	ClientNameMinLen = 2
	ClientNameMaxLen = 200

	PhoneMaxLen = 30
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Required fails when the value is empty after trimming.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: FieldError{Field: field, Message: fmt.Sprintf("%s is required.", field)},
	}
}

// MinLen fails when the trimmed value is shorter than min.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return len(strings.TrimSpace(value)) >= min },
		Error: FieldError{Field: field, Message: fmt.Sprintf("%s must have at least %d characters.", field, min)},
	}
}

// MaxLen fails when the raw value is longer than max.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: FieldError{Field: field, Message: fmt.Sprintf("%s must have at most %d characters.", field, max)},
	}
}

// Email fails when a non-empty value is not a plausible address. Empty
// values pass; pair with Required when the field is mandatory.
func Email(field, value string) Rule {
	return Rule{
		Check: func() bool {
			v := strings.TrimSpace(value)
			return v == "" || emailRe.MatchString(v)
		},
		Error: FieldError{Field: field, Message: fmt.Sprintf("%s must be a valid email address.", field)},
	}
}

// ValidRUC fails when the value is not a well-formed RUC. The message
// names the first violated RUC rule.
func ValidRUC(field, value string) Rule {
	msg, ok := ruc.Explain(value)
	return Rule{
		Check: func() bool { return ok },
		Error: FieldError{Field: field, Message: msg},
	}
}

// Username returns the rule set for account usernames.
func Username(value string) []Rule {
	return []Rule{
		Required("username", value),
		MinLen("username", value, UsernameMinLen),
		MaxLen("username", value, UsernameMaxLen),
	}
}

// Password returns the rule set for account passwords.
func Password(value string) []Rule {
	return []Rule{
		Required("password", value),
		MinLen("password", value, PasswordMinLen),
		MaxLen("password", value, PasswordMaxLen),
	}
}

// ClientName returns the rule set for client-registration names.
func ClientName(value string) []Rule {
	return []Rule{
		Required("name", value),
		MinLen("name", value, ClientNameMinLen),
		MaxLen("name", value, ClientNameMaxLen),
	}
}
