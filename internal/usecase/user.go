package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/repository"
)

var (
	// ErrUnknownUser indicates the target account does not exist.
	ErrUnknownUser = errors.New("user not found")
	// ErrUnknownRole indicates the supplied role is outside the closed set.
	ErrUnknownRole = errors.New("unknown role")
)

// UserService carries the administrative account operations: role changes,
// deactivation, and aggregate counts.
type UserService struct {
	users    port.UserRepository
	sessions *SessionService
	events   port.EventPublisher
	logger   *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(users port.UserRepository, sessions *SessionService, events port.EventPublisher, log *zap.Logger) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
		events:   events,
		logger:   log,
	}
}

// GetPublic returns the public projection of any account, active or not.
func (s *UserService) GetPublic(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	public := user.Public()
	return &public, nil
}

// UpdateRole assigns a role from the closed enumeration.
func (s *UserService) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	if !role.Valid() {
		return ErrUnknownRole
	}

	changed, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if !changed {
		return ErrUnknownUser
	}

	s.logger.Info("role updated",
		zap.String("user_id", userID),
		zap.String("role", string(role)),
	)

	return nil
}

// Deactivate disables the account and revokes all of its sessions so the
// deactivation takes effect on the very next request.
func (s *UserService) Deactivate(ctx context.Context, userID string) (int, error) {
	changed, err := s.users.SetActive(ctx, userID, false)
	if err != nil {
		return 0, fmt.Errorf("deactivate user: %w", err)
	}
	if !changed {
		return 0, ErrUnknownUser
	}

	revoked, err := s.sessions.InvalidateAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}

	if s.events != nil && revoked > 0 {
		event := domain.SessionsRevokedAllEvent{
			UserID:          userID,
			SessionsRevoked: revoked,
			Reason:          "account_deactivated",
		}
		if err := s.events.PublishSessionsRevokedAll(ctx, event); err != nil {
			s.logger.Warn("publish sessions revoked event failed", zap.Error(err))
		}
	}

	s.logger.Info("user deactivated",
		zap.String("user_id", userID),
		zap.Int("sessions_revoked", revoked),
	)

	return revoked, nil
}

// Reactivate re-enables a previously deactivated account. Sessions revoked
// at deactivation stay revoked; the user must log in again.
func (s *UserService) Reactivate(ctx context.Context, userID string) error {
	changed, err := s.users.SetActive(ctx, userID, true)
	if err != nil {
		return fmt.Errorf("reactivate user: %w", err)
	}
	if !changed {
		return ErrUnknownUser
	}

	s.logger.Info("user reactivated", zap.String("user_id", userID))
	return nil
}

// Count returns the number of accounts matching the filter.
func (s *UserService) Count(ctx context.Context, filter port.UserFilter) (int, error) {
	return s.users.Count(ctx, filter)
}
