package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/hirebase/internal/domain/session"
)

type SessionsRepo struct {
	mu    sync.Mutex
	items map[string]session.Session
}

func NewSessionsRepo() *SessionsRepo {
	return &SessionsRepo{
		items: make(map[string]session.Session),
	}
}

func (r *SessionsRepo) Create(_ context.Context, s session.Session) error {
	r.mu.Lock()
	r.items[s.ID] = s
	r.mu.Unlock()

	return nil
}

func (r *SessionsRepo) Rotate(_ context.Context, oldID, tokenHash string, next session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.items[oldID]
	if !ok {
		return session.ErrNotFound
	}

	if err := old.CheckRotatable(tokenHash, next.UserID, next.CreatedAt); err != nil {
		return err
	}

	revokedAt := next.CreatedAt
	replacedBy := next.ID
	old.RevokedAt = &revokedAt
	old.ReplacedBy = &replacedBy

	r.items[old.ID] = old
	r.items[next.ID] = next

	return nil
}

func (r *SessionsRepo) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var n int64

	for id, s := range r.items {
		if s.UserID != userID || s.IsRevoked() {
			continue
		}
		t := now
		s.RevokedAt = &t
		r.items[id] = s
		n++
	}

	return n, nil
}

func (r *SessionsRepo) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64

	for id, s := range r.items {
		if s.Purgeable(cutoff) {
			delete(r.items, id)
			n++
		}
	}

	return n, nil
}

// Get returns a copy of the stored session.
func (r *SessionsRepo) Get(id string) (session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]
	return s, ok
}
