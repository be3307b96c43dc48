package domain

import (
	"strings"
	"time"
)

// SessionMetadata captures advisory request context recorded at login. All
// fields are free-form; Extra is a reserved extension map.
type SessionMetadata struct {
	UserAgent string            `json:"user_agent,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
	Device    string            `json:"device,omitempty"`
	Location  string            `json:"location,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Session represents one authenticated device or browser instance. The token
// is immutable once created; only IsActive, LastAccess, and Metadata mutate
// after creation, and a session is never reactivated.
type Session struct {
	ID         string
	UserID     string
	Token      string
	CreatedAt  time.Time
	LastAccess time.Time
	IsActive   bool
	Metadata   SessionMetadata
}

// Expired reports whether the session has outlived the supplied TTL at the
// given moment. Expiry is judged from creation time, not last access.
func (s Session) Expired(at time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return !s.CreatedAt.Add(ttl).After(at)
}

// Touch advances the last-access timestamp.
func (s *Session) Touch(at time.Time) {
	s.LastAccess = at
}

// SanitizedSession is the projection of a session safe to expose to clients.
// The opaque token is never included.
type SanitizedSession struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	LastAccess time.Time       `json:"last_access"`
	Metadata   SessionMetadata `json:"metadata"`
}

// Sanitize strips the bearer secret from a session record.
func (s Session) Sanitize() SanitizedSession {
	return SanitizedSession{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastAccess: s.LastAccess,
		Metadata:   s.Metadata,
	}
}

// DeviceFromUserAgent derives a coarse device class from a User-Agent header.
func DeviceFromUserAgent(userAgent string) string {
	if userAgent == "" {
		return "Unknown"
	}

	if strings.Contains(userAgent, "iPhone") {
		return "iPhone"
	}
	if strings.Contains(userAgent, "iPad") {
		return "iPad"
	}
	if strings.Contains(userAgent, "Android") {
		return "Android"
	}
	if strings.Contains(userAgent, "Mobile") {
		return "Mobile"
	}

	switch {
	case strings.Contains(userAgent, "Edg"):
		return "Edge Desktop"
	case strings.Contains(userAgent, "Chrome"):
		return "Chrome Desktop"
	case strings.Contains(userAgent, "Firefox"):
		return "Firefox Desktop"
	case strings.Contains(userAgent, "Safari"):
		return "Safari Desktop"
	}

	return "Desktop"
}
