package postgres

import (
	"context"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
)

type challengesRepo struct {
	q dbtx
}

func (r *challengesRepo) Put(ctx context.Context, c domain.Challenge) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO challenges (session_key, code, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_key) DO UPDATE SET
			code = EXCLUDED.code,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`,
		c.SessionKey, c.Code, c.CreatedAt.UTC(), c.ExpiresAt.UTC())
	return mapErr(err)
}

func (r *challengesRepo) Take(ctx context.Context, sessionKey string) (domain.Challenge, error) {
	var c domain.Challenge
	if err := r.q.QueryRowContext(ctx, `
		DELETE FROM challenges WHERE session_key = $1
		RETURNING session_key, code, created_at, expires_at`, sessionKey).
		Scan(&c.SessionKey, &c.Code, &c.CreatedAt, &c.ExpiresAt); err != nil {
		return domain.Challenge{}, mapErr(err)
	}
	c.CreatedAt, c.ExpiresAt = c.CreatedAt.UTC(), c.ExpiresAt.UTC()
	return c, nil
}

func (r *challengesRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}
