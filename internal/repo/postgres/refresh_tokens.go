package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/hirebase/internal/db"
	"github.com/geocoder89/hirebase/internal/domain/session"
	"github.com/geocoder89/hirebase/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertRefreshTokenSQL = `
	INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`

type RefreshTokensRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefreshTokensRepo {
	return &RefreshTokensRepo{pool: pool, observer: observer{prom: prom}}
}

func sessionArgs(s session.Session) []any {
	return []any{s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.RevokedAt, s.ReplacedBy, s.CreatedAt}
}

func (r *RefreshTokensRepo) Create(ctx context.Context, s session.Session) error {
	return r.observe("refresh_tokens_create", func() error {
		_, err := r.pool.Exec(ctx, insertRefreshTokenSQL, sessionArgs(s)...)
		return err
	})
}

// Locks the row to prevent concurrent refresh races
func (r *RefreshTokensRepo) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (session.Session, error) {
	var row session.Session

	err := tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&row.ID,
		&row.UserID,
		&row.TokenHash,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.ReplacedBy,
		&row.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}

		return session.Session{}, err
	}

	return row, nil
}

// Rotate revokes oldID (pointing it at next) and stores next in one
// transaction. It fails without side effects if the old session is unknown,
// revoked, expired at next.CreatedAt, or does not match tokenHash.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, oldID, tokenHash string, next session.Session) error {
	return r.observe("refresh_tokens_rotate", func() error {
		return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
			old, err := r.getForUpdate(ctx, tx, oldID)
			if err != nil {
				return err
			}

			if err := old.CheckRotatable(tokenHash, next.UserID, next.CreatedAt); err != nil {
				return err
			}

			_, err = tx.Exec(ctx, `
				UPDATE refresh_tokens
				SET revoked_at = $2, replaced_by = $3
				WHERE id = $1
			`, old.ID, next.CreatedAt, next.ID)
			if err != nil {
				return err
			}

			_, err = tx.Exec(ctx, insertRefreshTokenSQL, sessionArgs(next)...)
			return err
		})
	})
}

func (r *RefreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	var n int64

	err := r.observe("refresh_tokens_revoke_all", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE user_id = $1 AND revoked_at IS NULL
		`, userID)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}

// PurgeExpired deletes sessions that expired or were revoked before cutoff.
func (r *RefreshTokensRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64

	err := r.observe("refresh_tokens_purge", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM refresh_tokens
			WHERE expires_at <= $1 OR (revoked_at IS NOT NULL AND revoked_at <= $1)
		`, cutoff)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}
