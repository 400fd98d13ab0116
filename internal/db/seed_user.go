package db

import (
	"context"
	"errors"

	"github.com/geocoder89/hirebase/internal/domain/user"
)

type SeedStore interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type SeedHasher interface {
	Hash(plain string) (string, error)
}

type SeedUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// EnsureSeedUser creates the configured bootstrap account once. It is a no-op
// when email or password is empty, or when the account already exists.
func EnsureSeedUser(ctx context.Context, store SeedStore, hasher SeedHasher, seed SeedUser) (created bool, err error) {
	if seed.Email == "" || seed.Password == "" {
		return false, nil
	}

	_, err = store.FindByEmail(ctx, seed.Email)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := hasher.Hash(seed.Password)

	if err != nil {
		return false, err
	}

	u := user.New(user.NewUserParams{
		Email:        seed.Email,
		PasswordHash: hash,
		FirstName:    seed.FirstName,
		LastName:     seed.LastName,
	})

	_, err = store.Create(ctx, u)

	// lost a race with another instance
	if errors.Is(err, user.ErrDuplicateEmail) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
