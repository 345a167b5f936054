package store

import (
	"context"
	"errors"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict means the row changed since it was read; the caller
	// should reload and retry.
	ErrConflict = errors.New("store: concurrent modification")

	// ErrBusy wraps driver errors that are worth retrying (sqlite busy,
	// postgres serialization failures and lock timeouts).
	ErrBusy = errors.New("store: busy")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it. Repositories hang off the store so that a Tx
// hands out repositories bound to the same transaction.
type Store interface {
	Accounts() Accounts
	Challenges() Challenges
	OperationLogs() OperationLogs
	RevokedTokens() RevokedTokens
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// Create inserts a new account at Version 1. Duplicate identifiers or
	// emails yield ErrAlreadyExists.
	Create(ctx context.Context, a domain.Account) error

	FindByID(ctx context.Context, id string) (domain.Account, error)

	// FindByIdentifier matches the identifier case-insensitively.
	FindByIdentifier(ctx context.Context, identifier string) (domain.Account, error)

	// FindByIdentifierForUpdate is FindByIdentifier that also holds the
	// row against concurrent writers until the transaction ends, where the
	// driver supports row locks.
	FindByIdentifierForUpdate(ctx context.Context, identifier string) (domain.Account, error)

	FindByVerificationTokenHash(ctx context.Context, hash string) (domain.Account, error)

	// Save writes every mutable column when the stored Version still
	// equals a.Version, then bumps it. Returns the new version, or
	// ErrConflict if another writer got there first.
	Save(ctx context.Context, a domain.Account) (int64, error)

	// UpdateLastLogin touches last_login_at without a version check.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	SoftDelete(ctx context.Context, id string, at time.Time) error

	ExistsByIdentifier(ctx context.Context, identifier string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	List(ctx context.Context, f domain.AccountFilter) (domain.AccountPage, error)

	// IsEmpty returns true if there are no live accounts.
	IsEmpty(ctx context.Context) (bool, error)

	// ClearExpiredVerificationTokens drops verification tokens that
	// expired before now and returns how many were cleared.
	ClearExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error)
}

type Challenges interface {
	// Put stores c, replacing any challenge already held for the session.
	Put(ctx context.Context, c domain.Challenge) error

	// Take removes and returns the session's challenge in one statement,
	// so two concurrent callers can never both receive it.
	Take(ctx context.Context, sessionKey string) (domain.Challenge, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type OperationLogs interface {
	Append(ctx context.Context, e domain.OperationLogEntry) error
	Query(ctx context.Context, f domain.OperationLogFilter) (domain.OperationLogPage, error)
	Statistics(ctx context.Context, f domain.OperationLogFilter) (domain.OperationLogStats, error)
}

type RevokedTokens interface {
	// Revoke is idempotent.
	Revoke(ctx context.Context, t domain.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// ListSigningKeys returns every key, newest first.
	ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error)
}
