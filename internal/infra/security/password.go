package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is tuned so a single hash takes on the order of
	// 100ms on commodity hardware.
	DefaultBcryptCost = 12

	defaultHashSlots = 8
)

// PasswordHasher hashes and verifies passwords using bcrypt. Hashing is
// deliberately slow; the slot channel bounds how many computations run at
// once so a burst of logins cannot monopolise the scheduler.
type PasswordHasher struct {
	cost  int
	slots chan struct{}
}

// NewPasswordHasher constructs a hasher with the given cost factor.
// maxConcurrent caps simultaneous bcrypt computations; zero selects a
// sensible default.
func NewPasswordHasher(cost int, maxConcurrent int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultHashSlots
	}
	return &PasswordHasher{
		cost:  cost,
		slots: make(chan struct{}, maxConcurrent),
	}
}

// Hash produces a salted bcrypt hash. The encoded result embeds algorithm,
// cost, and salt, so it differs on every call even for identical input.
func (h *PasswordHasher) Hash(password string) (string, error) {
	h.slots <- struct{}{}
	defer func() { <-h.slots }()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hashed), nil
}

// Verify compares the password against a stored hash. Malformed hashes and
// mismatches both report false; verification never returns an error to the
// credential path.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}

	h.slots <- struct{}{}
	defer func() { <-h.slots }()

	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
}

// Cost reports the configured work factor.
func (h *PasswordHasher) Cost() int {
	return h.cost
}
