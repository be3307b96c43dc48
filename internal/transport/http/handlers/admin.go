package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// AdminHandler exposes administrative account operations.
type AdminHandler struct {
	users *usecase.UserService
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(users *usecase.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// RegisterRoutes binds the admin user routes. The group is expected to carry
// bearer authentication and an admin role check already.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("/users/count", h.CountUsers)
	r.GET("/users/:id", h.GetUser)
	r.PATCH("/users/:id/role", h.UpdateRole)
	r.POST("/users/:id/deactivate", h.Deactivate)
	r.POST("/users/:id/reactivate", h.Reactivate)
}

// GetUser returns the public projection of any account, active or not.
func (h *AdminHandler) GetUser(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))

	user, err := h.users.GetPublic(c.Request.Context(), userID)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrUnknownUser, Status: http.StatusNotFound, Message: "user not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to load user")
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateRole assigns a role from the closed enumeration.
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))

	var req RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "role is required"))
		return
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown role"))
		return
	}

	if err := h.users.UpdateRole(c.Request.Context(), userID, role); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrUnknownUser, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrUnknownRole, Status: http.StatusBadRequest, Message: "unknown role"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to update role")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role updated"})
}

// Deactivate disables the account and revokes all of its sessions.
func (h *AdminHandler) Deactivate(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))

	revoked, err := h.users.Deactivate(c.Request.Context(), userID)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrUnknownUser, Status: http.StatusNotFound, Message: "user not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to deactivate user")
		return
	}

	c.JSON(http.StatusOK, UserDeactivateResponse{
		Message:         "user deactivated",
		SessionsRevoked: revoked,
	})
}

// Reactivate re-enables a deactivated account. The user must log in again.
func (h *AdminHandler) Reactivate(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))

	if err := h.users.Reactivate(c.Request.Context(), userID); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrUnknownUser, Status: http.StatusNotFound, Message: "user not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to reactivate user")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user reactivated"})
}

// CountUsers returns the number of accounts matching the optional role and
// is_active query filters.
func (h *AdminHandler) CountUsers(c *gin.Context) {
	var filter port.UserFilter

	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown role"))
			return
		}
		filter.Role = &role
	}

	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "is_active must be a boolean"))
			return
		}
		filter.IsActive = &active
	}

	count, err := h.users.Count(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to count users"))
		return
	}

	c.JSON(http.StatusOK, UserCountResponse{Count: count})
}
