package postgres

import (
	"context"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
)

type revokedTokensRepo struct {
	q dbtx
}

func (r *revokedTokensRepo) Revoke(ctx context.Context, t domain.RevokedToken) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, account_id, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (jti) DO NOTHING`,
		t.JTI, t.AccountID, t.ExpiresAt.UTC(), t.RevokedAt.UTC())
	return mapErr(err)
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var ok bool
	if err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&ok); err != nil {
		return false, mapErr(err)
	}
	return ok, nil
}

func (r *revokedTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}
