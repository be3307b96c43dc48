package domain

import "time"

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Username     string
	Email        string
	Role         Role
	RegisteredAt time.Time
	Metadata     map[string]any
}

// PasswordChangedEvent represents the payload for auth.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID         string
	UserID          string
	ChangedAt       time.Time
	SessionsRevoked int
	Metadata        map[string]any
}

// SessionRevokedEvent represents the payload for auth.session.revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RevokedAt time.Time
	Reason    string
	Metadata  map[string]any
}

// SessionsRevokedAllEvent represents the payload for auth.session.revoked_all messages.
type SessionsRevokedAllEvent struct {
	EventID         string
	UserID          string
	RevokedAt       time.Time
	SessionsRevoked int
	Reason          string
	Metadata        map[string]any
}
