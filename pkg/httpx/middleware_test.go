package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shunines-eng/manage-system/pkg/httpx"
	"github.com/shunines-eng/manage-system/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	claims jwtx.Claims
	err    error
}

func (s stubVerifier) Verify(_ context.Context, token string) (jwtx.Claims, error) {
	if token != "good" {
		return jwtx.Claims{}, errors.Join(s.err, jwtx.ErrInvalidSig)
	}
	return s.claims, s.err
}

func TestAuthnMiddleware(t *testing.T) {
	claims := jwtx.Claims{Role: "user"}
	claims.Subject = "acct-1"

	var seen jwtx.Claims
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.ClaimsFromContext(r.Context())
		require.Equal(t, "acct-1", httpx.UserIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		header   string
		verifier stubVerifier
		status   int
		code     string
	}{
		{"missing header", "", stubVerifier{claims: claims}, http.StatusUnauthorized, "invalid_token"},
		{"wrong scheme", "Basic abc", stubVerifier{claims: claims}, http.StatusUnauthorized, "invalid_token"},
		{"bad token", "Bearer bad", stubVerifier{claims: claims}, http.StatusUnauthorized, "invalid_token"},
		{"expired", "Bearer good", stubVerifier{err: jwtx.ErrExpired}, http.StatusUnauthorized, "token_expired"},
		{"ok", "bearer good", stubVerifier{claims: claims}, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			httpx.AuthnMiddleware(tt.verifier)(inner).ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
				var body httpx.ErrorBody
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				require.Equal(t, tt.code, body.Code)
			} else {
				require.Equal(t, "user", seen.Role)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := httpx.Chain(okHandler(), httpx.RequireRole("admin"))

	call := func(ctx context.Context) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		return rec.Code
	}

	require.Equal(t, http.StatusUnauthorized, call(context.Background()))
	require.Equal(t, http.StatusForbidden, call(httpx.ContextWithClaims(context.Background(), jwtx.Claims{Role: "user"})))
	require.Equal(t, http.StatusOK, call(httpx.ContextWithClaims(context.Background(), jwtx.Claims{Role: "admin"})))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.ChainFunc(func(w http.ResponseWriter, r *http.Request) { order = append(order, "handler") }, mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	decode := func(body string) (payload, error) {
		var p payload
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := httpx.DecodeJSON(httptest.NewRecorder(), req, &p)
		return p, err
	}

	p, err := decode(`{"name":"alice"}`)
	require.NoError(t, err)
	require.Equal(t, "alice", p.Name)

	_, err = decode(`{"name":"alice","extra":1}`)
	require.Error(t, err)

	_, err = decode(`{"name":"a"}{"name":"b"}`)
	require.Error(t, err)

	_, err = decode(`nope`)
	require.Error(t, err)
}
