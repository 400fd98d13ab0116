package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/hirebase/internal/domain/user"
)

type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return NewUsersRepoWithClock(time.Now)
}

// NewUsersRepoWithClock stamps updated_at from now instead of the wall clock.
func NewUsersRepoWithClock(now func() time.Time) *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
		now:     now,
	}
}

// clone detaches pointer fields so callers cannot mutate stored records.
func clone(u user.User) user.User {
	out := u
	out.PasswordHash = cloneString(u.PasswordHash)
	out.Phone = cloneString(u.Phone)
	out.AvatarURL = cloneString(u.AvatarURL)
	out.EmailVerifiedAt = cloneTime(u.EmailVerifiedAt)
	out.LastLoginAt = cloneTime(u.LastLoginAt)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	if !u.Status.IsValid() {
		return user.User{}, user.ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return user.User{}, user.ErrDuplicateEmail
	}

	r.items[u.ID] = clone(u)
	r.byEmail[u.Email] = u.ID

	return clone(u), nil
}

func (r *UsersRepo) FindByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return clone(u), nil
}

func (r *UsersRepo) FindByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return clone(r.items[id]), nil
}

func (r *UsersRepo) Update(_ context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	upd.Apply(&u, r.now().UTC())
	r.items[id] = u

	return clone(u), nil
}

func (r *UsersRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	t := at.UTC()
	u.LastLoginAt = &t
	if t.After(u.UpdatedAt) {
		u.UpdatedAt = t
	}
	r.items[id] = u

	return nil
}

// SetStatus is used by tests and tooling; the HTTP surface never changes status.
func (r *UsersRepo) SetStatus(_ context.Context, id string, status user.Status) error {
	if !status.IsValid() {
		return user.ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	u.Status = status
	u.UpdatedAt = r.now().UTC()
	r.items[id] = u

	return nil
}

func (r *UsersRepo) Ping(context.Context) error { return nil }
