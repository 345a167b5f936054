package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/httpx"
)

const (
	checkOK     = "ok"
	statusOK    = "ok"
	statusDown  = "degraded"
	statusDrain = "draining"
)

// Drain makes readiness fail so load balancers stop routing logins here
// while in-flight requests finish. Liveness is unaffected.
func (r *Router) Drain() { r.draining.Store(true) }

func (r *Router) health(status string, checks *authsdk.HealthChecks) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(r.startTime).Round(time.Second).String(),
		Version: r.buildVersion,
		Checks:  checks,
	}
}

// handleLivez answers 200 while the process can serve HTTP at all.
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is up. Reports uptime and build version.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func (r *Router) handleLivez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, r.health(statusOK, nil))
}

// handleReadyz reports whether logins can currently succeed: the account
// store answers, its schema is readable, and a signing key is loaded.
//
//	@Summary		Readiness probe
//	@Description	503 while draining or when the account store or token signer is unavailable.
//	@Description	checks.accounts is "empty" until the first administrator has been seeded.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Router			/readyz [get].
func (r *Router) handleReadyz(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
	defer cancel()

	checks := &authsdk.HealthChecks{Database: checkOK, Accounts: checkOK, Signer: checkOK}
	ready := true

	if err := r.store.Ping(ctx); err != nil {
		checks.Database = "error: " + err.Error()
		ready = false
	}

	empty, err := r.store.Accounts().IsEmpty(ctx)
	switch {
	case err != nil:
		checks.Accounts = "error: " + err.Error()
		ready = false
	case empty:
		checks.Accounts = "empty"
	}

	if !r.keys.IsReady() {
		checks.Signer = "error: no keys loaded"
		ready = false
	}

	status, code := statusOK, http.StatusOK
	switch {
	case r.draining.Load():
		status, code = statusDrain, http.StatusServiceUnavailable
	case !ready:
		status, code = statusDown, http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, r.health(status, checks))
}

// readyTimeout keeps a wedged database from stalling the probe.
const readyTimeout = 2 * time.Second
