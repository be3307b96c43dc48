package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordSymbols is the set of characters accepted as symbols by the
// password policy.
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

// MinPasswordLength is the policy's length floor.
const MinPasswordLength = 8

// PolicyViolation represents a single policy violation for a password or
// identifier.
type PolicyViolation struct {
	Code    string
	Message string
}

// Error implements error for PolicyViolation.
func (e *PolicyViolation) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// ViolationMessages flattens violations into their human-readable messages.
func ViolationMessages(violations []*PolicyViolation) []string {
	if len(violations) == 0 {
		return nil
	}
	messages := make([]string, 0, len(violations))
	for _, v := range violations {
		messages = append(messages, v.Message)
	}
	return messages
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) *PolicyViolation
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) *PolicyViolation

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) *PolicyViolation {
	return f(password)
}

// PasswordValidator applies a sequence of password rules. Every rule is
// evaluated so the caller receives the complete list of violations, not just
// the first.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// DefaultPasswordValidator returns a validator enforcing the stock policy:
// minimum length plus one character from each of the four classes. minScore
// optionally adds a zxcvbn strength floor; zero disables it.
func DefaultPasswordValidator(minScore int) *PasswordValidator {
	rules := []PasswordRule{
		MinLengthRule(MinPasswordLength),
		RequireUppercaseRule(),
		RequireLowercaseRule(),
		RequireDigitRule(),
		RequireSymbolRule(),
	}
	if minScore > 0 {
		rules = append(rules, RequirePasswordStrengthRule(minScore))
	}
	return NewPasswordValidator(rules...)
}

// Validate executes all rules and returns every violation encountered.
func (v *PasswordValidator) Validate(password string) []*PolicyViolation {
	if v == nil {
		return []*PolicyViolation{{Code: "not_configured", Message: "password validator not configured"}}
	}
	var violations []*PolicyViolation
	for _, rule := range v.rules {
		if violation := rule.Validate(password); violation != nil {
			violations = append(violations, violation)
		}
	}
	return violations
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) *PolicyViolation {
		if len([]rune(password)) < min {
			return &PolicyViolation{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	})
}

// RequireUppercaseRule ensures the password contains at least one uppercase
// letter.
func RequireUppercaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string) *PolicyViolation {
		for _, r := range password {
			if unicode.IsUpper(r) {
				return nil
			}
		}
		return &PolicyViolation{
			Code:    "uppercase",
			Message: "password must include at least one uppercase letter",
		}
	})
}

// RequireLowercaseRule ensures the password contains at least one lowercase
// letter.
func RequireLowercaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string) *PolicyViolation {
		for _, r := range password {
			if unicode.IsLower(r) {
				return nil
			}
		}
		return &PolicyViolation{
			Code:    "lowercase",
			Message: "password must include at least one lowercase letter",
		}
	})
}

// RequireDigitRule ensures the password contains at least one digit.
func RequireDigitRule() PasswordRule {
	return PasswordRuleFunc(func(password string) *PolicyViolation {
		for _, r := range password {
			if unicode.IsDigit(r) {
				return nil
			}
		}
		return &PolicyViolation{
			Code:    "digit",
			Message: "password must include at least one digit",
		}
	})
}

// RequireSymbolRule ensures the password contains at least one character from
// the policy's symbol set.
func RequireSymbolRule() PasswordRule {
	return PasswordRuleFunc(func(password string) *PolicyViolation {
		if strings.ContainsAny(password, PasswordSymbols) {
			return nil
		}
		return &PolicyViolation{
			Code:    "symbol",
			Message: "password must include at least one special character",
		}
	})
}

// RequireDifferentFrom ensures the new password differs from the provided
// comparator.
func RequireDifferentFrom(comparator string) PasswordRule {
	return PasswordRuleFunc(func(password string) *PolicyViolation {
		if password == comparator {
			return &PolicyViolation{
				Code:    "different",
				Message: "new password must be different from current password",
			}
		}
		return nil
	})
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score to reject weak
// passwords.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) *PolicyViolation {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= minScore {
			return nil
		}

		return &PolicyViolation{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	})
}
