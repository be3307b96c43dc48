package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// AuthHandler exposes registration, login, and session-bound account endpoints.
type AuthHandler struct {
	auth          *usecase.AuthService
	sessions      *usecase.SessionService
	bearerTTL     time.Duration
	secureCookies bool
}

// AuthHandlerOption configures optional AuthHandler behaviour.
type AuthHandlerOption func(*AuthHandler)

// WithSecureCookies marks the session cookie Secure, for TLS deployments.
func WithSecureCookies(secure bool) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.secureCookies = secure
	}
}

// NewAuthHandler constructs AuthHandler. bearerTTL feeds the expires_in field
// of auth responses.
func NewAuthHandler(auth *usecase.AuthService, sessions *usecase.SessionService, bearerTTL time.Duration, opts ...AuthHandlerOption) *AuthHandler {
	handler := &AuthHandler{
		auth:      auth,
		sessions:  sessions,
		bearerTTL: bearerTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}

	return handler
}

// RegisterRoutes binds authentication routes. sessionAuth guards the
// endpoints that act on the caller's current session; optionalAuth resolves
// credentials when present without ever rejecting; the limiter slices are
// applied ahead of the unauthenticated credential endpoints.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, sessionAuth, optionalAuth gin.HandlerFunc, registerLimiters, loginLimiters, passwordLimiters []gin.HandlerFunc) {
	r.POST("/register", chain(registerLimiters, h.Register)...)
	r.POST("/login", chain(loginLimiters, h.Login)...)
	r.POST("/logout", sessionAuth, h.Logout)
	r.POST("/logout-all", sessionAuth, h.LogoutAll)
	r.GET("/me", optionalAuth, h.Me)

	passwordChain := append([]gin.HandlerFunc{sessionAuth}, passwordLimiters...)
	r.POST("/password/change", append(passwordChain, h.ChangePassword)...)
}

// Register creates an account and signs the new user in, returning both the
// bearer token and the opaque session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	input := usecase.RegisterInput{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Profile:  req.Profile,
	}

	result, err := h.auth.Register(c.Request.Context(), input, h.sessionMetadata(c, ""))
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			respondValidationError(c, verr)
			return
		}
		if errors.Is(err, usecase.ErrDuplicateIdentity) {
			c.JSON(http.StatusConflict, NewErrorResponse(c, "username or email already registered"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to register user"))
		return
	}

	h.setSessionCookie(c, result.SessionToken)
	c.JSON(http.StatusCreated, h.newAuthResponse(result))
}

// Login authenticates with a username or email plus password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	creds := usecase.Credentials{
		Identifier: strings.TrimSpace(req.Identifier),
		Password:   req.Password,
	}

	result, err := h.auth.Login(c.Request.Context(), creds, h.sessionMetadata(c, strings.TrimSpace(req.Location)))
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			respondValidationError(c, verr)
			return
		}
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
		return
	}

	h.setSessionCookie(c, result.SessionToken)
	c.JSON(http.StatusOK, h.newAuthResponse(result))
}

// Logout invalidates the caller's current session and clears the cookie.
// Invalidation is idempotent, so a stale cookie still yields 204.
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok || session == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if _, err := h.auth.Logout(c.Request.Context(), session.Token); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke session"))
		return
	}

	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

// LogoutAll invalidates every active session of the caller, including the one
// making the request.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	count, err := h.auth.LogoutAll(c.Request.Context(), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke sessions"))
		return
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, LogoutAllResponse{SessionsRevoked: count})
}

// Me reports the caller's identity when the request carried valid credentials
// in either form, and an anonymous marker otherwise.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusOK, IdentityResponse{Authenticated: false})
		return
	}

	c.JSON(http.StatusOK, IdentityResponse{
		Authenticated: true,
		UserID:        identity.UserID,
		Username:      identity.Username,
		Role:          identity.Role,
	})
}

// ChangePassword re-authenticates with the current password, applies the new
// one, and revokes every session. The caller must log in again afterwards.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "current_password and new_password are required"))
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), identity.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			respondValidationError(c, verr)
			return
		}
		cases := []ErrorCase{
			{Err: usecase.ErrIncorrectPassword, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrUserInactive, Status: http.StatusForbidden, Message: "account is inactive"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to change password")
		return
	}

	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) newAuthResponse(result *usecase.AuthResult) AuthResponse {
	return AuthResponse{
		User:         result.User,
		BearerToken:  result.BearerToken,
		SessionToken: result.SessionToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.bearerTTL.Seconds()),
		Session:      newSessionSummary(result.Session),
	}
}

func (h *AuthHandler) sessionMetadata(c *gin.Context, location string) domain.SessionMetadata {
	return domain.SessionMetadata{
		UserAgent: strings.TrimSpace(c.Request.UserAgent()),
		IPAddress: strings.TrimSpace(c.ClientIP()),
		Location:  location,
	}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	maxAge := int(h.sessions.TTL().Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, token, maxAge, "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.secureCookies, true)
}

func chain(middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := append([]gin.HandlerFunc{}, middlewares...)
	return append(out, handler)
}
