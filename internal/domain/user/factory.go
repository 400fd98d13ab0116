package user

import (
	"time"

	"github.com/google/uuid"
)

type NewUserParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	// Now stamps created_at and updated_at; zero means the wall clock.
	Now time.Time
}

// New builds an active user with a fresh identifier.
func New(p NewUserParams) User {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	var hash *string
	if p.PasswordHash != "" {
		h := p.PasswordHash
		hash = &h
	}

	return User{
		ID:           uuid.NewString(),
		Email:        p.Email,
		PasswordHash: hash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Phone:        p.Phone,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
