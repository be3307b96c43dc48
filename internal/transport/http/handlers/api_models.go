package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// ValidationErrorResponse carries every policy violation found in the input.
type ValidationErrorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations"`
	TraceID    string   `json:"trace_id,omitempty"`
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Username string         `json:"username" binding:"required"`
	Email    string         `json:"email"`
	Password string         `json:"password" binding:"required"`
	Profile  domain.Profile `json:"profile"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Location   string `json:"location"`
}

// SessionSummary provides a compact view of session context in auth responses.
type SessionSummary struct {
	ID         string                 `json:"id"`
	CreatedAt  time.Time              `json:"created_at"`
	LastAccess time.Time              `json:"last_access"`
	Metadata   domain.SessionMetadata `json:"metadata"`
}

// AuthResponse describes the response returned for a successful register or login.
type AuthResponse struct {
	User         domain.PublicUser `json:"user"`
	BearerToken  string            `json:"bearer_token"`
	SessionToken string            `json:"session_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int               `json:"expires_in"`
	Session      SessionSummary    `json:"session"`
}

// IdentityResponse reports who the caller is when the request carried valid
// credentials in either form.
type IdentityResponse struct {
	Authenticated bool        `json:"authenticated"`
	UserID        string      `json:"user_id,omitempty"`
	Username      string      `json:"username,omitempty"`
	Role          domain.Role `json:"role,omitempty"`
}

// LogoutAllResponse reports how many sessions a bulk revocation touched.
type LogoutAllResponse struct {
	SessionsRevoked int `json:"sessions_revoked"`
}

// PasswordChangeRequest captures a password change request body.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// SessionListResponse wraps a list of sessions for a user.
type SessionListResponse struct {
	Sessions []domain.SanitizedSession `json:"sessions"`
	Total    int                       `json:"total"`
}

// SessionRevokeResponse indicates whether the session was revoked.
type SessionRevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// SessionStatsResponse summarises session counts.
type SessionStatsResponse struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	ThisWeek int `json:"this_week"`
}

// SessionCleanupResponse reports the result of an expired-session purge.
type SessionCleanupResponse struct {
	Removed int `json:"removed"`
}

// RoleUpdateRequest assigns a role to a user.
type RoleUpdateRequest struct {
	Role string `json:"role" binding:"required"`
}

// UserDeactivateResponse reports the side effects of a deactivation.
type UserDeactivateResponse struct {
	Message         string `json:"message"`
	SessionsRevoked int    `json:"sessions_revoked"`
}

// UserCountResponse carries an aggregate account count.
type UserCountResponse struct {
	Count int `json:"count"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func newSessionSummary(session *domain.Session) SessionSummary {
	if session == nil {
		return SessionSummary{}
	}
	return SessionSummary{
		ID:         session.ID,
		CreatedAt:  session.CreatedAt,
		LastAccess: session.LastAccess,
		Metadata:   session.Metadata,
	}
}
