package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
)

type challengesRepo struct {
	q dbtx
}

func (r *challengesRepo) Put(ctx context.Context, c domain.Challenge) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO challenges (session_key, code, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_key) DO UPDATE SET
			code = excluded.code,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		c.SessionKey, c.Code, c.CreatedAt.UTC(), c.ExpiresAt.UTC())
	return mapErr(err)
}

// Take deletes and returns in one statement. Expired rows are returned
// too; the caller decides what an expired challenge means.
func (r *challengesRepo) Take(ctx context.Context, sessionKey string) (domain.Challenge, error) {
	var (
		c                domain.Challenge
		created, expires any
	)
	err := r.q.QueryRowContext(ctx, `
		DELETE FROM challenges WHERE session_key = ?
		RETURNING session_key, code, created_at, expires_at`, sessionKey).
		Scan(&c.SessionKey, &c.Code, &created, &expires)
	if err != nil {
		return domain.Challenge{}, mapErr(err)
	}

	// RETURNING columns carry no declared type, so timestamps may come
	// back as text.
	if c.CreatedAt, err = asTime(created); err != nil {
		return domain.Challenge{}, err
	}
	if c.ExpiresAt, err = asTime(expires); err != nil {
		return domain.Challenge{}, err
	}
	return c, nil
}

func (r *challengesRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

func asTime(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("sqlite: unexpected timestamp type %T", v)
	}

	// Some writers append the monotonic clock reading.
	if i := strings.Index(s, " m="); i >= 0 {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("sqlite: unparsable timestamp %q", s)
}
