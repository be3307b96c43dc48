package security

import (
	"regexp"
	"testing"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]+$`)

func TestGenerateSessionTokenShape(t *testing.T) {
	token, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("generate session token: %v", err)
	}
	if len(token) != SessionTokenBytes*2 {
		t.Fatalf("expected %d hex characters, got %d", SessionTokenBytes*2, len(token))
	}
	if !hexPattern.MatchString(token) {
		t.Fatalf("expected lowercase hex token, got %q", token)
	}
}

func TestGenerateSecureTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		token, err := GenerateSecureToken(SessionTokenBytes)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token after %d generations", i)
		}
		seen[token] = struct{}{}
	}
}

func TestGenerateSecureTokenRejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatalf("expected error for zero length")
	}
	if _, err := GenerateSecureToken(-8); err == nil {
		t.Fatalf("expected error for negative length")
	}
}

func TestHashTokenIsDeterministic(t *testing.T) {
	first := HashToken("reset-token-value")
	second := HashToken("reset-token-value")
	if first != second {
		t.Fatalf("expected identical digests, got %q and %q", first, second)
	}
	if len(first) != 64 || !hexPattern.MatchString(first) {
		t.Fatalf("expected 64 hex characters, got %q", first)
	}
	if HashToken("other-token") == first {
		t.Fatalf("expected distinct inputs to produce distinct digests")
	}
}
