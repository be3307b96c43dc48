package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/repository"
)

func TestUserRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	now := time.Now().UTC()
	user := domain.User{
		ID:           "user-123",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$12$hash",
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(`INSERT INTO auth\.users`).
		WithArgs(
			user.ID,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.Role,
			user.IsActive,
			pgxmock.AnyArg(),
			user.CreatedAt,
			user.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Insert(context.Background(), user); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_InsertDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectExec(`INSERT INTO auth\.users`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_username_key"})

	err = repo.Insert(context.Background(), domain.User{ID: "user-1", Username: "alice", Email: "a@b.cd"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_GetByIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role", "is_active", "profile", "created_at", "updated_at",
	}).AddRow(
		"user-1", "alice", "alice@example.com", "$2a$12$hash", domain.RoleUser, true, []byte(`{"display_name":"Alice"}`), now, now,
	)

	mock.ExpectQuery(`SELECT .*FROM auth\.users`).
		WithArgs("alice", "alice", true).
		WillReturnRows(rows)

	user, err := repo.GetByIdentifier(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByIdentifier returned error: %v", err)
	}
	if user.ID != "user-1" || user.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Profile.DisplayName != "Alice" {
		t.Fatalf("expected profile to unmarshal, got %+v", user.Profile)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM auth\.users`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "email", "password_hash", "role", "is_active", "profile", "created_at", "updated_at",
		}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_UpdatePasswordHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	changedAt := time.Now().UTC()

	mock.ExpectExec(`UPDATE auth\.users SET`).
		WithArgs("$2a$12$newhash", changedAt, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	changed, err := repo.UpdatePasswordHash(context.Background(), "user-1", "$2a$12$newhash", changedAt)
	if err != nil {
		t.Fatalf("UpdatePasswordHash returned error: %v", err)
	}
	if !changed {
		t.Fatalf("expected update to report a change")
	}

	mock.ExpectExec(`UPDATE auth\.users SET`).
		WithArgs("$2a$12$newhash", changedAt, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	changed, err = repo.UpdatePasswordHash(context.Background(), "missing", "$2a$12$newhash", changedAt)
	if err != nil {
		t.Fatalf("UpdatePasswordHash returned error: %v", err)
	}
	if changed {
		t.Fatalf("expected no change for missing user")
	}
}

func TestUserRepository_Count(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	role := domain.RoleAdmin
	active := true

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM auth\.users`).
		WithArgs(role, active).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	count, err := repo.Count(context.Background(), port.UserFilter{Role: &role, IsActive: &active})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
}
