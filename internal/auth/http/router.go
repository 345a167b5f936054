package http

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/httpx"
	"github.com/shunines-eng/manage-system/pkg/jwtx"
	"github.com/shunines-eng/manage-system/pkg/slogx"

	_ "github.com/shunines-eng/manage-system/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	draining     atomic.Bool

	// SecureCookies marks the captcha cookie Secure.
	SecureCookies bool

	AuthService    *service.AuthService
	CaptchaService *service.CaptchaService
	TokenService   *service.TokenService
	AccountService *service.AccountService
	AdminService   *service.AdminService
	OperationLogs  *service.OperationLogService
	MFAService     *service.MFAService
}

func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerMFA()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Manage System Authentication API
//	@version		0.1.0
//	@description	Account login with captcha and lockout, self registration, profile management and user administration.
//	@description
//	@description				Tokens are EdDSA or ES256 signed JWTs and can be verified using the JWKS endpoint.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.TokenService)
}

func (r *Router) registerAuth() {
	captcha := &CaptchaHandler{CaptchaService: r.CaptchaService, SecureCookie: r.SecureCookies}
	h := &AuthHandler{
		AuthService:    r.AuthService,
		TokenService:   r.TokenService,
		AccountService: r.AccountService,
	}

	r.Mux.Handle("GET /v1/captcha",
		httpx.Chain(captcha, httpx.RateLimitByIP(httpx.ChallengeLimit)),
	)

	// Limited per IP and identifier so one client cannot spray many
	// accounts, and many clients cannot hammer one account.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.ChainFunc(h.HandleLogin,
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "identifier"),
		),
	)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.ChainFunc(h.HandleRegister, httpx.RateLimitByIP(httpx.StrictLimit)),
	)
	r.Mux.Handle("GET /v1/auth/verify-email",
		httpx.ChainFunc(h.HandleVerifyEmail, httpx.RateLimitByIP(httpx.StrictLimit)),
	)
	r.Mux.Handle("GET /v1/users/check-username",
		httpx.ChainFunc(h.HandleCheckUsername, httpx.RateLimitByIP(httpx.ModerateLimit)),
	)
	r.Mux.Handle("GET /v1/users/check-email",
		httpx.ChainFunc(h.HandleCheckEmail, httpx.RateLimitByIP(httpx.ModerateLimit)),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.ChainFunc(h.HandleLogout, r.authn(), httpx.RateLimitByUser(httpx.ModerateLimit)),
	)
}

func (r *Router) registerUsers() {
	h := &ProfileHandler{AccountService: r.AccountService}

	r.Mux.Handle("GET /v1/users/me",
		httpx.ChainFunc(h.HandleGet, r.authn(), httpx.RateLimitByUser(httpx.ModerateLimit)),
	)
	r.Mux.Handle("PUT /v1/users/me",
		httpx.ChainFunc(h.HandleUpdate, r.authn(), httpx.RateLimitByUser(httpx.ModerateLimit)),
	)
	r.Mux.Handle("PUT /v1/users/me/password",
		httpx.ChainFunc(h.HandleChangePassword, r.authn(), httpx.RateLimitByUser(httpx.StrictLimit)),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/users/me/mfa",
		httpx.ChainFunc(h.HandleEnroll, r.authn(), httpx.RateLimitByUser(httpx.ModerateLimit)),
	)
	// Strict: each call is a guess at a six digit code.
	r.Mux.Handle("POST /v1/users/me/mfa/confirm",
		httpx.ChainFunc(h.HandleConfirm, r.authn(), httpx.RateLimitByUser(httpx.StrictLimit)),
	)
	r.Mux.Handle("DELETE /v1/users/me/mfa",
		httpx.ChainFunc(h.HandleDisable, r.authn(), httpx.RateLimitByUser(httpx.StrictLimit)),
	)
}

func (r *Router) registerAdmin() {
	users := &AdminUsersHandler{AdminService: r.AdminService}
	logs := &AdminLogsHandler{LogService: r.OperationLogs}

	admin := func(fn http.HandlerFunc) http.Handler {
		return httpx.ChainFunc(fn,
			r.authn(),
			httpx.RequireRole("admin"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/admin/users", admin(users.HandleList))
	r.Mux.Handle("POST /v1/admin/users", admin(users.HandleCreate))
	r.Mux.Handle("GET /v1/admin/users/{id}", admin(users.HandleGet))
	r.Mux.Handle("PUT /v1/admin/users/{id}", admin(users.HandleUpdate))
	r.Mux.Handle("DELETE /v1/admin/users/{id}", admin(users.HandleDelete))
	r.Mux.Handle("PUT /v1/admin/users/{id}/password", admin(users.HandleSetPassword))
	r.Mux.Handle("POST /v1/admin/users/{id}/unlock", admin(users.HandleUnlock))

	r.Mux.Handle("GET /v1/admin/logs", admin(logs.HandleList))
	r.Mux.Handle("GET /v1/admin/logs/statistics", admin(logs.HandleStatistics))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.ChainFunc(r.handleJWKS, httpx.RateLimitByIP(httpx.PublicLimit)),
	)
	r.Mux.Handle("GET /livez",
		httpx.ChainFunc(r.handleLivez, httpx.RateLimitByIP(httpx.PublicLimit)),
	)
	r.Mux.Handle("GET /readyz",
		httpx.ChainFunc(r.handleReadyz, httpx.RateLimitByIP(httpx.PublicLimit)),
	)
}
