package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// SessionStats aggregates session counts, optionally scoped to one user.
type SessionStats struct {
	Active   int `json:"active"`
	Total    int `json:"total"`
	ThisWeek int `json:"this_week"`
}

// SessionRepository deals with session storage. Every mutating operation is a
// single conditional statement against the store; the engine never performs a
// read-modify-write across two round trips.
type SessionRepository interface {
	Insert(ctx context.Context, session domain.Session) error
	// TouchByToken atomically advances last_access on the active session
	// with the given token, skipping sessions created before minCreatedAt,
	// and returns the updated record. Returns repository.ErrNotFound when
	// no such session exists.
	TouchByToken(ctx context.Context, token string, at time.Time, minCreatedAt time.Time) (*domain.Session, error)
	// GetByID returns the active session with the given id without mutating
	// last_access.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// Invalidate deactivates exactly one active session by token. Reports
	// whether a record changed; invalidating twice reports false.
	Invalidate(ctx context.Context, token string) (bool, error)
	// InvalidateByID deactivates a session by id regardless of its current
	// active state (administrative force-revoke).
	InvalidateByID(ctx context.Context, id string) (bool, error)
	InvalidateAllForUser(ctx context.Context, userID string) (int, error)
	// ListActiveByUser returns active sessions ordered by most recent access.
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error)
	// DeleteCreatedBefore physically removes sessions created before the
	// cutoff, regardless of active flag.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
	UpdateMetadata(ctx context.Context, id string, metadata domain.SessionMetadata, at time.Time) (bool, error)
	// Stats counts sessions; userID may be empty for a service-wide view.
	Stats(ctx context.Context, userID string, weekAgo time.Time) (SessionStats, error)
}
