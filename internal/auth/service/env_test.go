package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store/drivers/sqlite"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/shunines-eng/manage-system/pkg/idx"
	"github.com/shunines-eng/manage-system/pkg/jwtx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "http://auth.test"

// testEnv wires every service over one in-memory store and one clock.
type testEnv struct {
	clock    *fakeClock
	store    *sqlite.Store
	captcha  *CaptchaService
	tokens   *TokenService
	auth     *AuthService
	accounts *AccountService
	admin    *AdminService
	oplog    *OperationLogService
	mfa      *MFAService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, ":memory:")
}

// newTestEnvAt is newTestEnv over the sqlite database at dsn. File-backed
// databases get a real connection pool, so concurrent logins contend on
// the write lock instead of queueing for the single in-memory connection.
func newTestEnvAt(t *testing.T, dsn string) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer})
	require.NoError(t, err)

	clk := newFakeClock()
	e := &testEnv{clock: clk, store: st}
	e.captcha = &CaptchaService{
		Store:     st,
		Now:       clk.Now,
		FixedCode: "AB12",
		Render:    func(string) ([]byte, error) { return []byte("png"), nil },
	}
	e.tokens = &TokenService{KeyManager: km, Store: st, Issuer: testIssuer, Now: clk.Now}
	e.auth = &AuthService{
		Store:   st,
		Captcha: e.captcha,
		Tokens:  e.tokens,
		Policy:  DefaultLockoutPolicy(),
		Now:     clk.Now,
		Logger:  slogx.Discard(),
	}
	e.accounts = &AccountService{Store: st, Now: clk.Now}
	e.oplog = &OperationLogService{Store: st, Now: clk.Now}
	e.admin = &AdminService{Store: st, Log: e.oplog, Policy: DefaultLockoutPolicy(), Now: clk.Now}
	e.mfa = &MFAService{Store: st, Issuer: "manage-system", Now: clk.Now}

	t.Cleanup(func() {
		e.auth.Wait()
		_ = st.Close()
	})
	return e
}

// seed stores an enabled account with the given password.
func (e *testEnv) seed(t *testing.T, identifier, password string, role domain.Role) domain.Account {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := e.clock.Now()
	acct := domain.Account{
		ID:         idx.NewAt(now).String(),
		Identifier: identifier,
		Email:      identifier + "@example.com",
		SecretHash: hash,
		Role:       role,
		Enabled:    true,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, e.store.Accounts().Create(context.Background(), acct))
	return acct
}

// login issues a fresh challenge and attempts a login with the right answer.
func (e *testEnv) login(ctx context.Context, t *testing.T, identifier, secret string) (LoginResult, error) {
	t.Helper()

	session := NewSessionKey()
	_, _, err := e.captcha.Issue(ctx, session)
	require.NoError(t, err)

	return e.auth.Login(ctx, LoginRequest{
		Identifier:      identifier,
		Secret:          secret,
		SessionKey:      session,
		ChallengeAnswer: "ab12",
	})
}

func (e *testEnv) account(t *testing.T, identifier string) domain.Account {
	t.Helper()

	acct, err := e.store.Accounts().FindByIdentifier(context.Background(), identifier)
	require.NoError(t, err)
	return acct
}

// recordingHandler collects log messages across goroutines.
type recordingHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, m := range h.msgs {
		if m == msg {
			n++
		}
	}
	return n
}
