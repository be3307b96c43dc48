package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/logger"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/repository"
)

var (
	// ErrInvalidCredentials is the uniform login failure: unknown identifier,
	// wrong password, and deactivated account are indistinguishable to the
	// caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIncorrectPassword indicates re-authentication with the current
	// password failed during a password change.
	ErrIncorrectPassword = errors.New("current password is incorrect")
	// ErrDuplicateIdentity indicates the username or email is already taken.
	ErrDuplicateIdentity = errors.New("username or email already registered")
	// ErrInvalidSession indicates the session token resolves to no active,
	// unexpired session.
	ErrInvalidSession = errors.New("invalid or expired session")
	// ErrUserInactive indicates the session is fine but its owning account
	// was deactivated.
	ErrUserInactive = errors.New("user account is inactive")
	// ErrSessionNotOwned covers both a missing session and one owned by
	// another user, so probing for session ids reveals nothing.
	ErrSessionNotOwned = errors.New("session not found or not owned")
)

// ValidationError aggregates every policy violation found in one pass over
// the input.
type ValidationError struct {
	Violations []string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Profile  domain.Profile
}

// Credentials identify a login attempt.
type Credentials struct {
	Identifier string
	Password   string
}

// AuthResult bundles everything issued by a successful register or login:
// the public user projection plus both token kinds.
type AuthResult struct {
	User         domain.PublicUser
	BearerToken  string
	SessionToken string
	Session      *domain.Session
}

// AuthService coordinates registration, login, verification, and the
// credential-sensitive session operations.
type AuthService struct {
	users     port.UserRepository
	sessions  *SessionService
	hasher    *security.PasswordHasher
	signer    *security.TokenSigner
	passwords *security.PasswordValidator
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	sessions *SessionService,
	hasher *security.PasswordHasher,
	signer *security.TokenSigner,
	passwords *security.PasswordValidator,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		signer:    signer,
		passwords: passwords,
		events:    events,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register validates the input against every policy at once, creates the
// account with the default role, and signs the new user in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, metadata domain.SessionMetadata) (*AuthResult, error) {
	username := domain.NormalizeIdentifier(input.Username)
	email := domain.NormalizeIdentifier(input.Email)

	var violations []*security.PolicyViolation
	violations = append(violations, security.ValidateUsername(username)...)
	// Email is optional; the policy applies only when one was supplied.
	if email != "" {
		violations = append(violations, security.ValidateEmail(email)...)
	}
	violations = append(violations, s.passwords.Validate(input.Password)...)
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: security.ViolationMessages(violations)}
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
		Profile:      input.Profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	result, err := s.issue(ctx, user, metadata)
	if err != nil {
		return nil, err
	}

	s.publishRegistered(ctx, user)
	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return result, nil
}

// Login authenticates by username or email. Every failure mode collapses to
// ErrInvalidCredentials so the response never reveals whether the identifier
// exists.
func (s *AuthService) Login(ctx context.Context, creds Credentials, metadata domain.SessionMetadata) (*AuthResult, error) {
	var violations []string
	if strings.TrimSpace(creds.Identifier) == "" {
		violations = append(violations, "identifier is required")
	}
	if creds.Password == "" {
		violations = append(violations, "password is required")
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	user, err := s.users.GetByIdentifier(ctx, domain.NormalizeIdentifier(creds.Identifier))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(creds.Password, user.PasswordHash) {
		s.logger.Info("login rejected",
			zap.String("user_id", user.ID),
			zap.String("ip", logger.MaskIP(metadata.IPAddress)),
		)
		return nil, ErrInvalidCredentials
	}

	result, err := s.issue(ctx, *user, metadata)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("device", result.Session.Metadata.Device),
	)

	return result, nil
}

// VerifySession resolves an opaque session token to its live user. A missing
// or expired session and a deactivated owner produce distinct errors.
func (s *AuthService) VerifySession(ctx context.Context, token string) (*domain.PublicUser, *domain.Session, error) {
	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidSession
		}
		return nil, nil, fmt.Errorf("resolve session: %w", err)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUserInactive
		}
		return nil, nil, fmt.Errorf("lookup session owner: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}

	public := user.Public()
	return &public, session, nil
}

// Logout invalidates the session identified by token. Reports whether a
// session actually changed state.
func (s *AuthService) Logout(ctx context.Context, token string) (bool, error) {
	return s.sessions.Invalidate(ctx, token)
}

// LogoutAll invalidates every active session of the user and reports the
// count.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	count, err := s.sessions.InvalidateAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.publishRevokedAll(ctx, userID, count, "logout_all")
	}

	return count, nil
}

// ChangePassword re-authenticates with the current password, validates the
// replacement against the full policy, swaps the hash, and revokes every
// session including the caller's own.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserInactive
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return ErrUserInactive
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrIncorrectPassword
	}

	violations := s.passwords.Validate(newPassword)
	if violation := security.RequireDifferentFrom(currentPassword).Validate(newPassword); violation != nil {
		violations = append(violations, violation)
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: security.ViolationMessages(violations)}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	changedAt := s.now().UTC()
	changed, err := s.users.UpdatePasswordHash(ctx, userID, hash, changedAt)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if !changed {
		return ErrUserInactive
	}

	revoked, err := s.sessions.InvalidateAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.publishPasswordChanged(ctx, userID, changedAt, revoked)
	s.logger.Info("password changed",
		zap.String("user_id", userID),
		zap.Int("sessions_revoked", revoked),
	)

	return nil
}

// RevokeSession invalidates one session by id on behalf of its owner. A
// session that does not exist and a session owned by someone else are
// indistinguishable in the returned error.
func (s *AuthService) RevokeSession(ctx context.Context, requestingUserID, sessionID string) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotOwned
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	if session.UserID != requestingUserID {
		return ErrSessionNotOwned
	}

	if _, err := s.sessions.InvalidateByID(ctx, sessionID); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}

	s.publishRevoked(ctx, session, "user_request")
	return nil
}

// ForceRevokeSession invalidates a session without an ownership check, for
// administrative use. Reports whether the session existed and was active.
func (s *AuthService) ForceRevokeSession(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup session: %w", err)
	}

	changed, err := s.sessions.InvalidateByID(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("invalidate session: %w", err)
	}

	if changed {
		s.publishRevoked(ctx, session, "admin_revoke")
	}

	return changed, nil
}

// ActiveSessions lists the user's live sessions in sanitized form; the
// opaque tokens never leave the service.
func (s *AuthService) ActiveSessions(ctx context.Context, userID string) ([]domain.SanitizedSession, error) {
	sessions, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	sanitized := make([]domain.SanitizedSession, 0, len(sessions))
	for _, session := range sessions {
		sanitized = append(sanitized, session.Sanitize())
	}

	return sanitized, nil
}

// issue creates the session and signs the bearer token for an authenticated
// user.
func (s *AuthService) issue(ctx context.Context, user domain.User, metadata domain.SessionMetadata) (*AuthResult, error) {
	session, err := s.sessions.Create(ctx, user.ID, metadata)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	bearer, err := s.signer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue bearer token: %w", err)
	}

	return &AuthResult{
		User:         user.Public(),
		BearerToken:  bearer,
		SessionToken: session.Token,
		Session:      session,
	}, nil
}

// Event publication is best-effort: a broker outage must never fail the
// authentication flow itself.

func (s *AuthService) publishRegistered(ctx context.Context, user domain.User) {
	if s.events == nil {
		return
	}
	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role,
		RegisteredAt: user.CreatedAt,
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("publish user registered event failed", zap.Error(err))
	}
}

func (s *AuthService) publishPasswordChanged(ctx context.Context, userID string, changedAt time.Time, revoked int) {
	if s.events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:         uuid.NewString(),
		UserID:          userID,
		ChangedAt:       changedAt,
		SessionsRevoked: revoked,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed", zap.Error(err))
	}
}

func (s *AuthService) publishRevoked(ctx context.Context, session *domain.Session, reason string) {
	if s.events == nil {
		return
	}
	event := domain.SessionRevokedEvent{
		EventID:   uuid.NewString(),
		SessionID: session.ID,
		UserID:    session.UserID,
		RevokedAt: s.now().UTC(),
		Reason:    reason,
	}
	if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Warn("publish session revoked event failed", zap.Error(err))
	}
}

func (s *AuthService) publishRevokedAll(ctx context.Context, userID string, count int, reason string) {
	if s.events == nil {
		return
	}
	event := domain.SessionsRevokedAllEvent{
		EventID:         uuid.NewString(),
		UserID:          userID,
		RevokedAt:       s.now().UTC(),
		SessionsRevoked: count,
		Reason:          reason,
	}
	if err := s.events.PublishSessionsRevokedAll(ctx, event); err != nil {
		s.logger.Warn("publish sessions revoked event failed", zap.Error(err))
	}
}
