package security

import "testing"

func TestValidateUsernameSuccess(t *testing.T) {
	for _, username := range []string{"bob", "alice.smith", "user_42", "a-b-c", "Xx9"} {
		if violations := ValidateUsername(username); len(violations) != 0 {
			t.Fatalf("expected %q to be valid, got %v", username, ViolationMessages(violations))
		}
	}
}

func TestValidateUsernameViolations(t *testing.T) {
	cases := []struct {
		username string
		code     string
	}{
		{"ab", "username_length"},
		{"this-username-is-way-longer-than-thirty", "username_length"},
		{"bad name", "username_charset"},
		{"emoji🙂", "username_charset"},
		{".leading", "username_boundary"},
		{"trailing_", "username_boundary"},
		{"-both-", "username_boundary"},
	}

	for _, tc := range cases {
		violations := ValidateUsername(tc.username)
		if len(violations) == 0 {
			t.Fatalf("expected violation for %q", tc.username)
		}
		found := false
		for _, v := range violations {
			if v.Code == tc.code {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected %s violation for %q, got %v", tc.code, tc.username, ViolationMessages(violations))
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if violations := ValidateEmail("user@example.com"); len(violations) != 0 {
		t.Fatalf("expected address to be valid, got %v", ViolationMessages(violations))
	}

	for _, email := range []string{"", "plain", "no@tld", "two@@example.com", "spaced @example.com"} {
		if violations := ValidateEmail(email); len(violations) == 0 {
			t.Fatalf("expected violation for %q", email)
		}
	}
}
