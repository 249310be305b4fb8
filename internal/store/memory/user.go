package memory

import (
	"context"
	"strings"
	"time"

	"github.com/yelpcamp/apiserver/internal/store"
	"github.com/yelpcamp/apiserver/types"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(_ context.Context, id int) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, u types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return types.User{}, store.ErrConflict
		}
	}

	now := time.Now().UTC()
	r.s.nextUserID++
	u.ID = r.s.nextUserID
	u.ResetToken = nil
	u.CreatedAt = now
	u.UpdatedAt = now
	r.s.users[u.ID] = u
	return cloneUser(u), nil
}

func (r *UserRepository) Update(_ context.Context, u types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[u.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, other := range r.s.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return types.User{}, store.ErrConflict
		}
	}

	existing.Email = u.Email
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.Avatar = u.Avatar
	existing.AvatarID = u.AvatarID
	existing.UpdatedAt = time.Now().UTC()
	r.s.users[u.ID] = existing
	return cloneUser(existing), nil
}

func (r *UserRepository) SetResetToken(_ context.Context, userID int, token types.ResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.ResetToken = &token
	u.UpdatedAt = time.Now().UTC()
	r.s.users[userID] = u
	return nil
}

func (r *UserRepository) GetByResetToken(_ context.Context, tokenHash string, now time.Time) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.findByResetToken(tokenHash, now)
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time, passwordHash string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.findByResetToken(tokenHash, now)
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.UpdatedAt = time.Now().UTC()
	r.s.users[u.ID] = u
	return cloneUser(u), nil
}

// findByResetToken must be called with the store lock held.
func (r *UserRepository) findByResetToken(tokenHash string, now time.Time) (types.User, bool) {
	for _, u := range r.s.users {
		if u.ResetToken != nil && u.ResetToken.Hash == tokenHash && u.ResetToken.ValidAt(now) {
			return u, true
		}
	}
	return types.User{}, false
}

func cloneUser(u types.User) types.User {
	if u.ResetToken != nil {
		token := *u.ResetToken
		u.ResetToken = &token
	}
	return u
}
