package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/repository"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// SessionService owns the opaque-token session lifecycle: creation, lazy
// expiry on read, invalidation, and periodic sweeping of expired rows.
type SessionService struct {
	sessions port.SessionRepository
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions port.SessionRepository, ttl time.Duration, logger *zap.Logger) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{
		sessions: sessions,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// TTL reports the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create mints a fresh session for the user. The token carries 64 bytes of
// entropy; the metadata device class is derived from the user agent when the
// caller did not classify it.
func (s *SessionService) Create(ctx context.Context, userID string, metadata domain.SessionMetadata) (*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	token, err := security.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	if metadata.Device == "" {
		metadata.Device = domain.DeviceFromUserAgent(metadata.UserAgent)
	}

	now := s.now().UTC()
	session := domain.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Token:      token,
		CreatedAt:  now,
		LastAccess: now,
		IsActive:   true,
		Metadata:   metadata,
	}

	if err := s.sessions.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &session, nil
}

// FindByToken resolves an active, unexpired session and advances its
// last-access timestamp in the same statement. Expired sessions are invisible
// here; their rows are reclaimed by the sweeper.
func (s *SessionService) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}

	now := s.now().UTC()
	session, err := s.sessions.TouchByToken(ctx, token, now, now.Add(-s.ttl))
	if err != nil {
		return nil, err
	}

	// Stores without cutoff support can still return stale rows.
	if session.Expired(now, s.ttl) {
		return nil, repository.ErrNotFound
	}

	return session, nil
}

// FindByID returns an active, unexpired session without touching last access.
func (s *SessionService) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Expired(s.now().UTC(), s.ttl) {
		return nil, repository.ErrNotFound
	}

	return session, nil
}

// Invalidate deactivates a session by token. Reports whether a session
// changed state; a second call for the same token reports false.
func (s *SessionService) Invalidate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.sessions.Invalidate(ctx, token)
}

// InvalidateByID deactivates a session by id.
func (s *SessionService) InvalidateByID(ctx context.Context, id string) (bool, error) {
	return s.sessions.InvalidateByID(ctx, id)
}

// InvalidateAllForUser deactivates every active session for a user and
// reports the count.
func (s *SessionService) InvalidateAllForUser(ctx context.Context, userID string) (int, error) {
	return s.sessions.InvalidateAllForUser(ctx, userID)
}

// ListActive returns the user's active, unexpired sessions, most recently
// used first.
func (s *SessionService) ListActive(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	live := sessions[:0]
	for _, session := range sessions {
		if !session.Expired(now, s.ttl) {
			live = append(live, session)
		}
	}

	return live, nil
}

// UpdateMetadata merges fresh request context into a session's metadata.
func (s *SessionService) UpdateMetadata(ctx context.Context, id string, metadata domain.SessionMetadata) (bool, error) {
	if metadata.Device == "" && metadata.UserAgent != "" {
		metadata.Device = domain.DeviceFromUserAgent(metadata.UserAgent)
	}
	return s.sessions.UpdateMetadata(ctx, id, metadata, s.now().UTC())
}

// Stats aggregates session counts; userID may be empty for the service-wide
// view.
func (s *SessionService) Stats(ctx context.Context, userID string) (port.SessionStats, error) {
	return s.sessions.Stats(ctx, userID, s.now().UTC().Add(-7*24*time.Hour))
}

// CleanExpired physically removes sessions that outlived the TTL and reports
// how many rows went away.
func (s *SessionService) CleanExpired(ctx context.Context) (int, error) {
	return s.sessions.DeleteCreatedBefore(ctx, s.now().UTC().Add(-s.ttl))
}

// StartSweeper runs CleanExpired on the given interval until the context is
// cancelled. Expiry correctness never depends on the sweeper; it only bounds
// table growth.
func (s *SessionService) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed, err := s.CleanExpired(ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						s.logger.Warn("session sweep failed", zap.Error(err))
					}
					continue
				}
				if removed > 0 {
					s.logger.Info("swept expired sessions", zap.Int("removed", removed))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
