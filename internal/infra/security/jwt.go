package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

var (
	// ErrInvalidToken indicates the bearer token is malformed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrExpiredToken indicates the bearer token's expiry has passed.
	ErrExpiredToken = errors.New("jwt: token expired")
)

const defaultBearerTTL = 7 * 24 * time.Hour

// BearerClaims are the stateless claims carried by a signed bearer token.
type BearerClaims struct {
	UserID   string      `json:"uid"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HMAC-signed bearer tokens. Verification
// requires no store lookup; the signature check inside the JWT library uses a
// constant-time comparison.
type TokenSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner constructs a signer. The secret is required and has no
// default.
func NewTokenSigner(secret []byte, issuer string, ttl time.Duration) (*TokenSigner, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	if ttl <= 0 {
		ttl = defaultBearerTTL
	}
	return &TokenSigner{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock injects a custom clock, primarily for testing.
func (s *TokenSigner) WithClock(now func() time.Time) *TokenSigner {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue signs a bearer token for the supplied user.
func (s *TokenSigner) Issue(user domain.User) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("jwt: user id is required")
	}

	now := s.now().UTC()
	claims := BearerClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Verify validates the token's signature and expiry and returns its claims.
// Signature mismatch, malformed structure, and expiry all reject the token;
// expiry is distinguished so transports can report it.
func (s *TokenSigner) Verify(token string) (*BearerClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &BearerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TTL reports the configured token lifetime.
func (s *TokenSigner) TTL() time.Duration {
	return s.ttl
}
