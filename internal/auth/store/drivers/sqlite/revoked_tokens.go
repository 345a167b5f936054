package sqlite

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
		VALUES (?, ?, ?, ?)
		ON CONFLICT (jti) DO NOTHING`,
		t.JTI, t.AccountID, t.ExpiresAt.UTC(), t.RevokedAt.UTC())
	return mapErr(err)
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti).Scan(&n); err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}

func (r *revokedTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}
