package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

const (
	// SessionTokenHeader carries the opaque session token for API clients.
	SessionTokenHeader = "X-Session-Token"
	// SessionCookieName is the cookie browsers use for the same token.
	SessionCookieName = "sessionToken"

	identityKey = "identity"
	sessionKey  = "session"
)

// ErrorResponse matches the handlers.ErrorResponse structure, with an
// optional reason for rejected authentication.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// Identity is the authenticated principal stored in the request context.
type Identity struct {
	UserID   string
	Username string
	Role     domain.Role
}

// BearerVerifier validates signed bearer tokens. *security.TokenSigner
// satisfies it.
type BearerVerifier interface {
	Verify(token string) (*security.BearerClaims, error)
}

// SessionVerifier resolves opaque session tokens to their live owner.
// *usecase.AuthService satisfies it.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*domain.PublicUser, *domain.Session, error)
}

// RequireBearer validates the Authorization header and stores the caller's
// identity. A missing or malformed header is 401; a token that fails
// verification is 403.
func RequireBearer(verifier BearerVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, errMsg := bearerFromHeader(c)
		if errMsg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, errMsg))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredToken):
				c.AbortWithStatusJSON(http.StatusForbidden,
					newErrorResponse(c, "bearer token expired"))
			default:
				c.AbortWithStatusJSON(http.StatusForbidden,
					newErrorResponse(c, "invalid bearer token"))
			}
			return
		}

		setIdentity(c, Identity{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
		})

		c.Next()
	}
}

// OptionalAuth stores the caller's identity when the request carries valid
// credentials in either form: a bearer token is tried first, then the opaque
// session token. The request proceeds anonymously on any failure.
func OptionalAuth(verifier BearerVerifier, sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, errMsg := bearerFromHeader(c); errMsg == "" {
			if claims, err := verifier.Verify(token); err == nil {
				setIdentity(c, Identity{
					UserID:   claims.UserID,
					Username: claims.Username,
					Role:     claims.Role,
				})
				c.Next()
				return
			}
		}

		if token := sessionTokenFromRequest(c); token != "" {
			if user, session, err := sessions.VerifySession(c.Request.Context(), token); err == nil {
				setIdentity(c, Identity{
					UserID:   user.ID,
					Username: user.Username,
					Role:     user.Role,
				})
				c.Set(sessionKey, session)
			}
		}

		c.Next()
	}
}

// RequireSession resolves the opaque session token from the X-Session-Token
// header or the session cookie, touches the session, and stores both the
// identity and the session record.
func RequireSession(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionTokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing session token"))
			return
		}

		user, session, err := verifier.VerifySession(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrInvalidSession):
				resp := newErrorResponse(c, "authentication required")
				resp.Reason = "invalid or expired session"
				c.AbortWithStatusJSON(http.StatusUnauthorized, resp)
			case errors.Is(err, usecase.ErrUserInactive):
				resp := newErrorResponse(c, "authentication required")
				resp.Reason = "account is inactive"
				c.AbortWithStatusJSON(http.StatusUnauthorized, resp)
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		setIdentity(c, Identity{
			UserID:   user.ID,
			Username: user.Username,
			Role:     user.Role,
		})
		c.Set(sessionKey, session)

		c.Next()
	}
}

// RequireRole checks that the authenticated identity carries one of the
// specified roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}

		resp := newErrorResponse(c, "insufficient permissions")
		resp.Reason = fmt.Sprintf("requires one of %s, current role is %s", roleList(roles), identity.Role)
		c.AbortWithStatusJSON(http.StatusForbidden, resp)
	}
}

// RequireOwnership checks that the authenticated user is acting on their own
// resource. Admins bypass the check.
func RequireOwnership(ownerID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if identity.Role == domain.RoleAdmin {
			c.Next()
			return
		}

		if owner := ownerID(c); owner == "" || owner != identity.UserID {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "access to this resource is not allowed"))
			return
		}

		c.Next()
	}
}

// GetIdentity retrieves the authenticated identity from context (helper for handlers)
func GetIdentity(c *gin.Context) (Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, false
	}

	identity, ok := value.(Identity)
	return identity, ok
}

// GetSession retrieves the resolved session from context when RequireSession ran.
func GetSession(c *gin.Context) (*domain.Session, bool) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}

	session, ok := value.(*domain.Session)
	return session, ok
}

func setIdentity(c *gin.Context, identity Identity) {
	c.Set(identityKey, identity)
	c.Set(UserIDKey, identity.UserID)

	if reqCtx := GetRequestContext(c); reqCtx != nil {
		reqCtx.UserID = identity.UserID
	}
}

func bearerFromHeader(c *gin.Context) (token, errMsg string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "invalid authorization format: expected 'Bearer <token>'"
	}

	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", "missing bearer token"
	}

	return token, ""
}

func sessionTokenFromRequest(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(SessionTokenHeader)); token != "" {
		return token
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func roleList(roles []domain.Role) string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return strings.Join(names, "|")
}
