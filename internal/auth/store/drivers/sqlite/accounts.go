package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
)

type accountsRepo struct {
	q dbtx
}

const accountColumns = `id, identifier, email, secret_hash, role, enabled,
	failed_attempts, locked, locked_at,
	full_name, phone, age, gender,
	email_verified, verification_token_hash, verification_expires_at,
	mfa_secret, mfa_enabled_at,
	version, created_at, updated_at, last_login_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a                  domain.Account
		role               string
		lockedAt           sql.NullTime
		age                sql.NullInt64
		verificationHash   sql.NullString
		verificationExpiry sql.NullTime
		mfaSecret          sql.NullString
		mfaEnabledAt       sql.NullTime
		lastLoginAt        sql.NullTime
		deletedAt          sql.NullTime
	)

	err := row.Scan(
		&a.ID, &a.Identifier, &a.Email, &a.SecretHash, &role, &a.Enabled,
		&a.FailedAttempts, &a.Locked, &lockedAt,
		&a.FullName, &a.Phone, &age, &a.Gender,
		&a.EmailVerified, &verificationHash, &verificationExpiry,
		&mfaSecret, &mfaEnabledAt,
		&a.Version, &a.CreatedAt, &a.UpdatedAt, &lastLoginAt, &deletedAt,
	)
	if err != nil {
		return domain.Account{}, mapErr(err)
	}

	a.Role = domain.Role(role)
	a.LockedAt = mapNullTimePtr(lockedAt)
	a.Age = mapNullIntPtr(age)
	a.VerificationTokenHash = mapNullString(verificationHash)
	a.VerificationExpiresAt = mapNullTimePtr(verificationExpiry)
	a.MFASecret = mapNullStringPtr(mfaSecret)
	a.MFAEnabledAt = mapNullTimePtr(mfaEnabledAt)
	a.LastLoginAt = mapNullTimePtr(lastLoginAt)
	a.DeletedAt = mapNullTimePtr(deletedAt)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, NULL)`,
		a.ID, a.Identifier, a.Email, a.SecretHash, string(a.Role), a.Enabled,
		a.FailedAttempts, a.Locked, mapOptionalTime(a.LockedAt),
		a.FullName, a.Phone, mapOptionalInt(a.Age), a.Gender,
		a.EmailVerified, mapStringNull(a.VerificationTokenHash), mapOptionalTime(a.VerificationExpiresAt),
		mapOptionalString(a.MFASecret), mapOptionalTime(a.MFAEnabledAt),
		a.CreatedAt.UTC(), a.UpdatedAt.UTC(), mapOptionalTime(a.LastLoginAt),
	)
	return mapErr(err)
}

func (r *accountsRepo) FindByID(ctx context.Context, id string) (domain.Account, error) {
	return scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND deleted_at IS NULL`, id))
}

func (r *accountsRepo) FindByIdentifier(ctx context.Context, identifier string) (domain.Account, error) {
	return scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE identifier = ? AND deleted_at IS NULL`,
		strings.TrimSpace(identifier)))
}

// FindByIdentifierForUpdate relies on the connection's _txlock=immediate:
// the enclosing transaction already holds the database write lock.
func (r *accountsRepo) FindByIdentifierForUpdate(ctx context.Context, identifier string) (domain.Account, error) {
	return r.FindByIdentifier(ctx, identifier)
}

func (r *accountsRepo) FindByVerificationTokenHash(ctx context.Context, hash string) (domain.Account, error) {
	if hash == "" {
		return domain.Account{}, store.ErrNotFound
	}
	return scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE verification_token_hash = ? AND deleted_at IS NULL`, hash))
}

func (r *accountsRepo) Save(ctx context.Context, a domain.Account) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET
			email = ?, secret_hash = ?, role = ?, enabled = ?,
			failed_attempts = ?, locked = ?, locked_at = ?,
			full_name = ?, phone = ?, age = ?, gender = ?,
			email_verified = ?, verification_token_hash = ?, verification_expires_at = ?,
			mfa_secret = ?, mfa_enabled_at = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND deleted_at IS NULL`,
		a.Email, a.SecretHash, string(a.Role), a.Enabled,
		a.FailedAttempts, a.Locked, mapOptionalTime(a.LockedAt),
		a.FullName, a.Phone, mapOptionalInt(a.Age), a.Gender,
		a.EmailVerified, mapStringNull(a.VerificationTokenHash), mapOptionalTime(a.VerificationExpiresAt),
		mapOptionalString(a.MFASecret), mapOptionalTime(a.MFAEnabledAt),
		a.UpdatedAt.UTC(),
		a.ID, a.Version,
	)
	if err != nil {
		return 0, mapErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		if _, err := r.FindByID(ctx, a.ID); err != nil {
			return 0, err
		}
		return 0, store.ErrConflict
	}
	return a.Version + 1, nil
}

func (r *accountsRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE accounts SET last_login_at = ? WHERE id = ? AND deleted_at IS NULL`, at.UTC(), id)
}

// SoftDelete hides the account and frees its identifier and email.
func (r *accountsRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `
		UPDATE accounts SET deleted_at = ?, updated_at = ?, version = version + 1,
			verification_token_hash = NULL
		WHERE id = ? AND deleted_at IS NULL`, at.UTC(), at.UTC(), id)
}

func (r *accountsRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *accountsRepo) ExistsByIdentifier(ctx context.Context, identifier string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM accounts WHERE identifier = ? AND deleted_at IS NULL`,
		strings.TrimSpace(identifier))
}

func (r *accountsRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM accounts WHERE email = ? AND deleted_at IS NULL`,
		strings.TrimSpace(email))
}

func (r *accountsRepo) exists(ctx context.Context, query string, arg string) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, query, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

func (r *accountsRepo) List(ctx context.Context, f domain.AccountFilter) (domain.AccountPage, error) {
	where := `deleted_at IS NULL`
	var args []any
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where += ` AND (identifier LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\' OR full_name LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(kw) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var page domain.AccountPage
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE `+where, args...).
		Scan(&page.Total); err != nil {
		return domain.AccountPage{}, mapErr(err)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return domain.AccountPage{}, mapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return domain.AccountPage{}, err
		}
		page.Accounts = append(page.Accounts, a)
	}
	return page, mapErr(rows.Err())
}

func (r *accountsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE deleted_at IS NULL`).Scan(&count); err != nil {
		return false, mapErr(err)
	}
	return count == 0, nil
}

func (r *accountsRepo) ClearExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET verification_token_hash = NULL, verification_expires_at = NULL
		WHERE verification_token_hash IS NOT NULL AND verification_expires_at < ?`, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
