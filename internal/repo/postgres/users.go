package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/hirebase/internal/db"
	"github.com/geocoder89/hirebase/internal/domain/user"
	"github.com/geocoder89/hirebase/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const userColumns = `id, email, password_hash, first_name, last_name, phone, avatar_url,
	status, email_verified_at, last_login_at, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, observer: observer{prom: prom}}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var status string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.AvatarURL,
		&status,
		&u.EmailVerifiedAt,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	u.Status = user.Status(status)

	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if !u.Status.IsValid() {
		return user.User{}, user.ErrInvalidStatus
	}

	var out user.User

	err := r.observe("users_create", func() error {
		var err error
		out, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (id, email, password_hash, first_name, last_name, phone, avatar_url,
				status, email_verified_at, last_login_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			RETURNING `+userColumns,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.AvatarURL,
			string(u.Status), u.EmailVerifiedAt, u.LastLoginAt, u.CreatedAt, u.UpdatedAt,
		))
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrDuplicateEmail
		}
		return user.User{}, err
	}

	return out, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	// ids are uuid columns; anything else can never match
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var out user.User

	err := r.observe("users_find_by_id", func() error {
		var err error
		out, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	if out.ID == "" {
		return user.User{}, user.ErrNotFound
	}

	return out, nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	var out user.User

	err := r.observe("users_find_by_email", func() error {
		var err error
		out, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	if out.ID == "" {
		return user.User{}, user.ErrNotFound
	}

	return out, nil
}

// Update writes only the supplied profile fields. updated_at is always
// refreshed, even for an empty update.
func (r *UsersRepo) Update(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var sets []string
	var args []interface{}

	argsPosition := 1

	// a present null writes NULL
	set := func(column string, v user.Optional[string]) {
		if !v.Set {
			return
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, v.Value)
		argsPosition++
	}

	set("first_name", upd.FirstName)
	set("last_name", upd.LastName)
	set("phone", upd.Phone)
	set("avatar_url", upd.AvatarURL)

	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), argsPosition,
	)
	args = append(args, id)

	var out user.User

	err := r.observe("users_update", func() error {
		return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
			var err error
			out, err = scanUser(tx.QueryRow(ctx, query, args...))
			return err
		})
	})

	if err != nil {
		return user.User{}, err
	}

	return out, nil
}

func (r *UsersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.observe("users_touch_last_login", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET last_login_at = $2, updated_at = NOW() WHERE id = $1`,
			id, at,
		)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
