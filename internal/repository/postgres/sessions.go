package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/repository"
)

var sessionColumns = []string{
	"id",
	"user_id",
	"token",
	"created_at",
	"last_access",
	"is_active",
	"metadata",
}

// SessionRepository implements port.SessionRepository for PostgreSQL. Every
// mutation is a single conditional statement so concurrent callers never race
// across a read-modify-write gap.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert persists a session record.
func (r *SessionRepository) Insert(ctx context.Context, session domain.Session) error {
	metadata, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}

	stmt, args, err := r.builder.Insert("auth.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.Token,
			session.CreatedAt,
			session.LastAccess,
			session.IsActive,
			metadata,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// TouchByToken advances last_access on the matching active session and
// returns the updated record. Sessions created before minCreatedAt are
// treated as absent; their rows stay untouched for the sweeper to reclaim.
func (r *SessionRepository) TouchByToken(ctx context.Context, token string, at time.Time, minCreatedAt time.Time) (*domain.Session, error) {
	const stmt = `
		UPDATE auth.sessions
		   SET last_access = $2
		 WHERE token = $1
		   AND is_active
		   AND created_at > $3
		RETURNING id, user_id, token, created_at, last_access, is_active, metadata
	`

	return r.scanSession(r.exec.QueryRow(ctx, stmt, token, at, minCreatedAt))
}

// GetByID returns the active session with the given id without touching
// last_access.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"id": id, "is_active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	return r.scanSession(r.exec.QueryRow(ctx, stmt, args...))
}

// Invalidate deactivates exactly one active session by token. The conditional
// update makes repeated invalidation observable: only the first call reports
// a change.
func (r *SessionRepository) Invalidate(ctx context.Context, token string) (bool, error) {
	stmt, args, err := r.builder.Update("auth.sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"token": token, "is_active": true}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build invalidate session sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("invalidate session: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// InvalidateByID deactivates a session by id regardless of its current
// active state. Reports whether a row matched.
func (r *SessionRepository) InvalidateByID(ctx context.Context, id string) (bool, error) {
	stmt, args, err := r.builder.Update("auth.sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build invalidate session by id sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("invalidate session by id: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// InvalidateAllForUser deactivates every active session belonging to a user
// and reports how many were affected.
func (r *SessionRepository) InvalidateAllForUser(ctx context.Context, userID string) (int, error) {
	stmt, args, err := r.builder.Update("auth.sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build invalidate user sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("invalidate user sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// ListActiveByUser returns active sessions ordered by most recent access.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		OrderBy("last_access DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		var (
			session  domain.Session
			metadata []byte
		)
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.Token,
			&session.CreatedAt,
			&session.LastAccess,
			&session.IsActive,
			&metadata,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &session.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal session metadata: %w", err)
			}
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeleteCreatedBefore physically removes sessions created before the cutoff,
// active or not.
func (r *SessionRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("auth.sessions").
		Where(squirrel.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// UpdateMetadata replaces the session's metadata document and counts the
// write as an access.
func (r *SessionRepository) UpdateMetadata(ctx context.Context, id string, metadata domain.SessionMetadata, at time.Time) (bool, error) {
	doc, err := json.Marshal(metadata)
	if err != nil {
		return false, fmt.Errorf("marshal session metadata: %w", err)
	}

	stmt, args, err := r.builder.Update("auth.sessions").
		Set("metadata", doc).
		Set("last_access", at).
		Where(squirrel.Eq{"id": id, "is_active": true}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update session metadata sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("update session metadata: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// Stats counts sessions in one round trip; userID may be empty for the
// service-wide view.
func (r *SessionRepository) Stats(ctx context.Context, userID string, weekAgo time.Time) (port.SessionStats, error) {
	var (
		stmt string
		args []any
	)

	if userID == "" {
		stmt = `
			SELECT COUNT(*) FILTER (WHERE is_active),
			       COUNT(*),
			       COUNT(*) FILTER (WHERE created_at >= $1)
			  FROM auth.sessions
		`
		args = []any{weekAgo}
	} else {
		stmt = `
			SELECT COUNT(*) FILTER (WHERE is_active),
			       COUNT(*),
			       COUNT(*) FILTER (WHERE created_at >= $1)
			  FROM auth.sessions
			 WHERE user_id = $2
		`
		args = []any{weekAgo, userID}
	}

	var stats port.SessionStats
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&stats.Active, &stats.Total, &stats.ThisWeek); err != nil {
		return port.SessionStats{}, fmt.Errorf("scan session stats: %w", err)
	}

	return stats, nil
}

func (r *SessionRepository) scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session  domain.Session
		metadata []byte
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.CreatedAt,
		&session.LastAccess,
		&session.IsActive,
		&metadata,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &session.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal session metadata: %w", err)
		}
	}

	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
