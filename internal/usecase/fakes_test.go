package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/repository"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (f *fakeUserRepo) Insert(_ context.Context, user domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.users {
		if existing.Username == user.Username || (user.Email != "" && existing.Email == user.Email) {
			return repository.ErrDuplicate
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (f *fakeUserRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if !user.IsActive {
			continue
		}
		if user.Username == identifier || (user.Email != "" && user.Email == identifier) {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) UpdatePasswordHash(_ context.Context, id string, hash string, changedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return false, nil
	}
	user.PasswordHash = hash
	user.UpdatedAt = changedAt
	f.users[id] = user
	return true, nil
}

func (f *fakeUserRepo) UpdateRole(_ context.Context, id string, role domain.Role) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return false, nil
	}
	user.Role = role
	f.users[id] = user
	return true, nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, id string, active bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return false, nil
	}
	user.IsActive = active
	f.users[id] = user
	return true, nil
}

func (f *fakeUserRepo) Count(_ context.Context, filter port.UserFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, user := range f.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		count++
	}
	return count, nil
}

var _ port.UserRepository = (*fakeUserRepo)(nil)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]domain.Session)}
}

func (f *fakeSessionRepo) Insert(_ context.Context, session domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionRepo) TouchByToken(_ context.Context, token string, at time.Time, minCreatedAt time.Time) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, session := range f.sessions {
		if session.Token != token || !session.IsActive {
			continue
		}
		if !session.CreatedAt.After(minCreatedAt) {
			continue
		}
		session.LastAccess = at
		f.sessions[id] = session
		copied := session
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[id]
	if !ok || !session.IsActive {
		return nil, repository.ErrNotFound
	}
	copied := session
	return &copied, nil
}

func (f *fakeSessionRepo) Invalidate(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, session := range f.sessions {
		if session.Token == token && session.IsActive {
			session.IsActive = false
			f.sessions[id] = session
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessionRepo) InvalidateByID(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[id]
	if !ok {
		return false, nil
	}
	session.IsActive = false
	f.sessions[id] = session
	return true, nil
}

func (f *fakeSessionRepo) InvalidateAllForUser(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for id, session := range f.sessions {
		if session.UserID == userID && session.IsActive {
			session.IsActive = false
			f.sessions[id] = session
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionRepo) ListActiveByUser(_ context.Context, userID string) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sessions []domain.Session
	for _, session := range f.sessions {
		if session.UserID == userID && session.IsActive {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (f *fakeSessionRepo) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for id, session := range f.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionRepo) UpdateMetadata(_ context.Context, id string, metadata domain.SessionMetadata, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[id]
	if !ok || !session.IsActive {
		return false, nil
	}
	session.Metadata = metadata
	session.LastAccess = at
	f.sessions[id] = session
	return true, nil
}

func (f *fakeSessionRepo) Stats(_ context.Context, userID string, weekAgo time.Time) (port.SessionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var stats port.SessionStats
	for _, session := range f.sessions {
		if userID != "" && session.UserID != userID {
			continue
		}
		stats.Total++
		if session.IsActive {
			stats.Active++
		}
		if !session.CreatedAt.Before(weekAgo) {
			stats.ThisWeek++
		}
	}
	return stats, nil
}

var _ port.SessionRepository = (*fakeSessionRepo)(nil)

type publishedEvents struct {
	mu              sync.Mutex
	registered      []domain.UserRegisteredEvent
	passwordChanged []domain.PasswordChangedEvent
	revoked         []domain.SessionRevokedEvent
	revokedAll      []domain.SessionsRevokedAllEvent
}

func (p *publishedEvents) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *publishedEvents) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwordChanged = append(p.passwordChanged, event)
	return nil
}

func (p *publishedEvents) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

func (p *publishedEvents) PublishSessionsRevokedAll(_ context.Context, event domain.SessionsRevokedAllEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revokedAll = append(p.revokedAll, event)
	return nil
}

var _ port.EventPublisher = (*publishedEvents)(nil)
