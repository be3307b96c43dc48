package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// SessionHandler exposes endpoints for session inspection and revocation.
type SessionHandler struct {
	auth     *usecase.AuthService
	sessions *usecase.SessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(auth *usecase.AuthService, sessions *usecase.SessionService) *SessionHandler {
	return &SessionHandler{auth: auth, sessions: sessions}
}

// RegisterRoutes binds the session management routes. The group is expected to
// carry session authentication already.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("", h.ListSessions)
	r.GET("/stats", h.Stats)
	r.DELETE("/:session_id", h.RevokeSession)
}

// ListSessions returns the caller's active sessions in sanitized form; the
// opaque tokens are never echoed back.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessions, err := h.auth.ActiveSessions(c.Request.Context(), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	if session, ok := middleware.GetSession(c); ok && session != nil {
		c.Header("X-Current-Session", session.ID)
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: sessions, Total: len(sessions)})
}

// Stats reports the caller's session counts.
func (h *SessionHandler) Stats(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	stats, err := h.sessions.Stats(c.Request.Context(), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load session stats"))
		return
	}

	c.JSON(http.StatusOK, SessionStatsResponse{
		Total:    stats.Total,
		Active:   stats.Active,
		ThisWeek: stats.ThisWeek,
	})
}

// RevokeSession invalidates one of the caller's sessions by id. A session that
// does not exist and one owned by someone else produce the same 404.
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session_id is required"))
		return
	}

	if err := h.auth.RevokeSession(c.Request.Context(), identity.UserID, sessionID); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrSessionNotOwned, Status: http.StatusNotFound, Message: "session not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	c.JSON(http.StatusOK, SessionRevokeResponse{Revoked: true})
}

// ListUserSessions returns the active sessions of the user named in the path.
// Intended for use behind an ownership check with admin bypass.
func (h *SessionHandler) ListUserSessions(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user id is required"))
		return
	}

	sessions, err := h.auth.ActiveSessions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: sessions, Total: len(sessions)})
}

// ForceRevokeSession invalidates any session by id without an ownership
// check. Admin only.
func (h *SessionHandler) ForceRevokeSession(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session_id is required"))
		return
	}

	revoked, err := h.auth.ForceRevokeSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke session"))
		return
	}
	if !revoked {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "session not found"))
		return
	}

	c.JSON(http.StatusOK, SessionRevokeResponse{Revoked: true})
}

// GlobalStats reports service-wide session counts. Admin only.
func (h *SessionHandler) GlobalStats(c *gin.Context) {
	stats, err := h.sessions.Stats(c.Request.Context(), "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load session stats"))
		return
	}

	c.JSON(http.StatusOK, SessionStatsResponse{
		Total:    stats.Total,
		Active:   stats.Active,
		ThisWeek: stats.ThisWeek,
	})
}

// Cleanup deletes sessions past their TTL. Admin only; the background sweeper
// covers the steady state.
func (h *SessionHandler) Cleanup(c *gin.Context) {
	removed, err := h.sessions.CleanExpired(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to clean sessions"))
		return
	}

	c.JSON(http.StatusOK, SessionCleanupResponse{Removed: removed})
}
