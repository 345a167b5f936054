package postgres

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

	if err := row.Scan(
		&a.ID, &a.Identifier, &a.Email, &a.SecretHash, &role, &a.Enabled,
		&a.FailedAttempts, &a.Locked, &lockedAt,
		&a.FullName, &a.Phone, &age, &a.Gender,
		&a.EmailVerified, &verificationHash, &verificationExpiry,
		&mfaSecret, &mfaEnabledAt,
		&a.Version, &a.CreatedAt, &a.UpdatedAt, &lastLoginAt, &deletedAt,
	); err != nil {
		return domain.Account{}, mapErr(err)
	}

	a.Role = domain.Role(role)
	a.LockedAt = mapNullTimePtr(lockedAt)
	if age.Valid {
		v := int(age.Int64)
		a.Age = &v
	}
	a.VerificationTokenHash = verificationHash.String
	a.VerificationExpiresAt = mapNullTimePtr(verificationExpiry)
	if mfaSecret.Valid {
		a.MFASecret = &mfaSecret.String
	}
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			1, $19, $20, $21, NULL)`,
		a.ID, a.Identifier, a.Email, a.SecretHash, string(a.Role), a.Enabled,
		a.FailedAttempts, a.Locked, mapOptionalTime(a.LockedAt),
		a.FullName, a.Phone, a.Age, a.Gender,
		a.EmailVerified, mapStringNull(a.VerificationTokenHash), mapOptionalTime(a.VerificationExpiresAt),
		a.MFASecret, mapOptionalTime(a.MFAEnabledAt),
		a.CreatedAt.UTC(), a.UpdatedAt.UTC(), mapOptionalTime(a.LastLoginAt),
	)
	return mapErr(err)
}

func (r *accountsRepo) FindByID(ctx context.Context, id string) (domain.Account, error) {
	return scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *accountsRepo) FindByIdentifier(ctx context.Context, identifier string) (domain.Account, error) {
	return scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE lower(identifier) = lower($1) AND deleted_at IS NULL`, strings.TrimSpace(identifier)))
}

// FindByIdentifierForUpdate holds a row lock until the transaction ends.
// Outside a transaction the lock is released immediately.
func (r *accountsRepo) FindByIdentifierForUpdate(ctx context.Context, identifier string) (domain.Account, error) {
	return scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE lower(identifier) = lower($1) AND deleted_at IS NULL
		FOR UPDATE`, strings.TrimSpace(identifier)))
}

func (r *accountsRepo) FindByVerificationTokenHash(ctx context.Context, hash string) (domain.Account, error) {
	if hash == "" {
		return domain.Account{}, store.ErrNotFound
	}
	return scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE verification_token_hash = $1 AND deleted_at IS NULL`, hash))
}

func (r *accountsRepo) Save(ctx context.Context, a domain.Account) (int64, error) {
	var version int64
	err := r.q.QueryRowContext(ctx, `
		UPDATE accounts SET
			email = $1, secret_hash = $2, role = $3, enabled = $4,
			failed_attempts = $5, locked = $6, locked_at = $7,
			full_name = $8, phone = $9, age = $10, gender = $11,
			email_verified = $12, verification_token_hash = $13, verification_expires_at = $14,
			mfa_secret = $15, mfa_enabled_at = $16,
			updated_at = $17, version = version + 1
		WHERE id = $18 AND version = $19 AND deleted_at IS NULL
		RETURNING version`,
		a.Email, a.SecretHash, string(a.Role), a.Enabled,
		a.FailedAttempts, a.Locked, mapOptionalTime(a.LockedAt),
		a.FullName, a.Phone, a.Age, a.Gender,
		a.EmailVerified, mapStringNull(a.VerificationTokenHash), mapOptionalTime(a.VerificationExpiresAt),
		a.MFASecret, mapOptionalTime(a.MFAEnabledAt),
		a.UpdatedAt.UTC(),
		a.ID, a.Version,
	).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.FindByID(ctx, a.ID); err != nil {
			return 0, err
		}
		return 0, store.ErrConflict
	}
	if err != nil {
		return 0, mapErr(err)
	}
	return version, nil
}

func (r *accountsRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE accounts SET last_login_at = $1 WHERE id = $2 AND deleted_at IS NULL`, at.UTC(), id)
}

func (r *accountsRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `
		UPDATE accounts SET deleted_at = $1, updated_at = $1, version = version + 1,
			verification_token_hash = NULL
		WHERE id = $2 AND deleted_at IS NULL`, at.UTC(), id)
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
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts
		WHERE lower(identifier) = lower($1) AND deleted_at IS NULL)`, strings.TrimSpace(identifier))
}

func (r *accountsRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts
		WHERE lower(email) = lower($1) AND deleted_at IS NULL)`, strings.TrimSpace(email))
}

func (r *accountsRepo) exists(ctx context.Context, query, arg string) (bool, error) {
	var ok bool
	if err := r.q.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, mapErr(err)
	}
	return ok, nil
}

func (r *accountsRepo) List(ctx context.Context, f domain.AccountFilter) (domain.AccountPage, error) {
	var p params
	where := `deleted_at IS NULL`
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		ph := p.add("%" + likeEscaper.Replace(kw) + "%")
		where += ` AND (identifier ILIKE ` + ph + ` OR email ILIKE ` + ph + ` OR full_name ILIKE ` + ph + `)`
	}

	var page domain.AccountPage
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE `+where, p.vals...).
		Scan(&page.Total); err != nil {
		return domain.AccountPage{}, mapErr(err)
	}

	limit, offset := p.add(f.Limit), p.add(f.Offset)
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+where+
			` ORDER BY created_at DESC, id DESC LIMIT `+limit+` OFFSET `+offset, p.vals...)
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
	var found bool
	if err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE deleted_at IS NULL)`).Scan(&found); err != nil {
		return false, mapErr(err)
	}
	return !found, nil
}

func (r *accountsRepo) ClearExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET verification_token_hash = NULL, verification_expires_at = NULL
		WHERE verification_token_hash IS NOT NULL AND verification_expires_at < $1`, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

// ILIKE uses backslash as its default escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
