package session

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("refresh session not found")
	ErrRevoked      = errors.New("refresh session revoked")
	ErrExpired      = errors.New("refresh session expired")
	ErrHashMismatch = errors.New("refresh token hash mismatch")
)

// Session tracks one issued refresh token. ID is the token's jti; only an
// HMAC of the raw token is kept.
type Session struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

func (s Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CheckRotatable reports why s cannot be exchanged for next, if at all.
// now is the instant of the exchange.
func (s Session) CheckRotatable(tokenHash, userID string, now time.Time) error {
	if s.IsRevoked() {
		return ErrRevoked
	}
	if s.IsExpired(now) {
		return ErrExpired
	}
	if s.TokenHash != tokenHash || s.UserID != userID {
		return ErrHashMismatch
	}
	return nil
}

// Purgeable reports whether s was dead by cutoff: expired, or revoked at or
// before it.
func (s Session) Purgeable(cutoff time.Time) bool {
	if s.RevokedAt != nil && !s.RevokedAt.After(cutoff) {
		return true
	}
	return s.IsExpired(cutoff)
}
