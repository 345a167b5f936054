package service

import (
	"context"
	"errors"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
)

// mutateAccount loads the account, applies fn and saves it in one
// transaction, retrying the whole step when the version check loses a
// race. An error from fn aborts without saving.
func mutateAccount(
	ctx context.Context,
	st store.Store,
	timeout time.Duration,
	accountID string,
	fn func(a *domain.Account) error,
) (domain.Account, error) {
	var (
		acct domain.Account
		err  error
	)
	for range maxSaveAttempts {
		acct, err = mutateOnce(ctx, st, timeout, accountID, fn)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if errors.Is(err, store.ErrConflict) {
		return domain.Account{}, transient(store.ErrBusy)
	}
	return acct, err
}

func mutateOnce(
	ctx context.Context,
	st store.Store,
	timeout time.Duration,
	accountID string,
	fn func(a *domain.Account) error,
) (domain.Account, error) {
	sctx, cancel := storeCtx(ctx, timeout)
	defer cancel()

	var acct domain.Account
	err := st.WithTx(sctx, func(tx store.Tx) error {
		var err error
		acct, err = tx.Accounts().FindByID(sctx, accountID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := fn(&acct); err != nil {
			return err
		}

		v, err := tx.Accounts().Save(sctx, acct)
		if err != nil {
			return mapUniqueErr(err)
		}
		acct.Version = v
		return nil
	})
	if err != nil {
		return domain.Account{}, transient(err)
	}
	return acct, nil
}

// mapUniqueErr turns a unique violation on save into ErrDuplicateEmail,
// the only unique column a save can change.
func mapUniqueErr(err error) error {
	if errors.Is(err, store.ErrAlreadyExists) {
		return ErrDuplicateEmail
	}
	return err
}
