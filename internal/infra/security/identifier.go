package security

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinUsernameLength and MaxUsernameLength bound username size.
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

var (
	usernameCharset = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	emailShape      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateUsername checks a username against the account policy and returns
// every violation: length bounds, permitted character set, and no leading or
// trailing punctuation.
func ValidateUsername(username string) []*PolicyViolation {
	var violations []*PolicyViolation

	length := len([]rune(username))
	if length < MinUsernameLength || length > MaxUsernameLength {
		violations = append(violations, &PolicyViolation{
			Code:    "username_length",
			Message: fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength),
		})
	}

	if username != "" && !usernameCharset.MatchString(username) {
		violations = append(violations, &PolicyViolation{
			Code:    "username_charset",
			Message: "username may only contain letters, digits, dots, underscores, and hyphens",
		})
	}

	if username != "" {
		first, last := username[0], username[len(username)-1]
		if isUsernamePunct(first) || isUsernamePunct(last) {
			violations = append(violations, &PolicyViolation{
				Code:    "username_boundary",
				Message: "username must not start or end with a dot, underscore, or hyphen",
			})
		}
	}

	return violations
}

// ValidateEmail checks the rough shape of an email address. Deliverability is
// out of scope; this only rejects obviously malformed input.
func ValidateEmail(email string) []*PolicyViolation {
	if strings.TrimSpace(email) == "" || !emailShape.MatchString(email) {
		return []*PolicyViolation{{
			Code:    "email_shape",
			Message: "email address is not valid",
		}}
	}
	return nil
}

func isUsernamePunct(b byte) bool {
	return b == '.' || b == '_' || b == '-'
}
