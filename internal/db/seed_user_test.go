package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/hirebase/internal/db"
	"github.com/geocoder89/hirebase/internal/domain/user"
	"github.com/geocoder89/hirebase/internal/repo/memory"
	"github.com/geocoder89/hirebase/internal/security"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureSeedUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewUsersRepo()
	hasher := security.NewHasher(bcrypt.MinCost)

	seed := db.SeedUser{
		Email:     "admin@hirebase.dev",
		Password:  "bootstrap-pass",
		FirstName: "Platform",
		LastName:  "Admin",
	}

	created, err := db.EnsureSeedUser(ctx, store, hasher, seed)
	require.NoError(t, err)
	require.True(t, created)

	u, err := store.FindByEmail(ctx, seed.Email)
	require.NoError(t, err)
	require.Equal(t, user.StatusActive, u.Status)
	require.True(t, u.HasPassword())
	require.True(t, hasher.Verify("bootstrap-pass", *u.PasswordHash))

	created, err = db.EnsureSeedUser(ctx, store, hasher, seed)
	require.NoError(t, err)
	require.False(t, created, "second run must be a no-op")
}

func TestEnsureSeedUser_DisabledWithoutCredentials(t *testing.T) {
	created, err := db.EnsureSeedUser(context.Background(), memory.NewUsersRepo(), security.NewHasher(bcrypt.MinCost), db.SeedUser{Email: "x@example.com"})
	require.NoError(t, err)
	require.False(t, created)
}

type racingStore struct {
	*memory.UsersRepo
}

func (r racingStore) Create(context.Context, user.User) (user.User, error) {
	return user.User{}, user.ErrDuplicateEmail
}

type brokenStore struct {
	*memory.UsersRepo
}

func (brokenStore) FindByEmail(context.Context, string) (user.User, error) {
	return user.User{}, errors.New("connection reset")
}

func TestEnsureSeedUser_StoreOutcomes(t *testing.T) {
	ctx := context.Background()
	hasher := security.NewHasher(bcrypt.MinCost)
	seed := db.SeedUser{Email: "a@example.com", Password: "pw-123456"}

	created, err := db.EnsureSeedUser(ctx, racingStore{memory.NewUsersRepo()}, hasher, seed)
	require.NoError(t, err, "losing the create race is not an error")
	require.False(t, created)

	_, err = db.EnsureSeedUser(ctx, brokenStore{memory.NewUsersRepo()}, hasher, seed)
	require.Error(t, err)
}
