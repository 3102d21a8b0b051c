package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/service"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	"github.com/aussiebroadwan/waitlist/pkg/httpx"
	"github.com/aussiebroadwan/waitlist/pkg/jwtx"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"

	_ "github.com/aussiebroadwan/waitlist/api/waitlist" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// ScopeStatsRead grants access to the admin stats endpoint.
const ScopeStatsRead = "waitlist:read"

// maxBodyBytes bounds the JSON request bodies.
const maxBodyBytes = 16 << 10

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// TrustProxy makes client IPs come from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	// ConfirmRedirectURL, when set, turns confirm responses into 303 redirects.
	ConfirmRedirectURL string
	// Metrics serves /metrics when set.
	Metrics http.Handler

	SignupService  *service.SignupService
	ResendService  *service.ResendService
	ConfirmService *service.ConfirmService
	StatsService   *service.StatsService
}

// NewRouter creates a router. verifier may be nil, in which case the admin
// endpoints are not registered.
func NewRouter(verifier jwtx.Verifier, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
		httpx.Sentry(),
		httpx.SecurityHeaders(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerWaitlist()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Waitlist Service API
//	@version					0.1.0
//	@description				Pre-launch waitlist: signups with consent and CAPTCHA, emailed single-use confirmation links, resend, referral attribution.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/waitlist
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
//	@description				HS256 operator token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerWaitlist() {
	signupHandler := &SignupHandler{SignupService: r.SignupService, TrustProxy: r.TrustProxy}
	r.Mux.Handle("POST /v1/waitlist",
		httpx.Chain(signupHandler,
			httpx.RateLimitByIP(httpx.FormLimit, r.TrustProxy),
			httpx.MaxBody(maxBodyBytes),
		),
	)

	resendHandler := &ResendHandler{ResendService: r.ResendService}
	r.Mux.Handle("POST /v1/waitlist/resend",
		httpx.Chain(resendHandler,
			httpx.RateLimitByIP(httpx.FormLimit, r.TrustProxy),
			httpx.MaxBody(maxBodyBytes),
		),
	)

	confirmHandler := &ConfirmHandler{ConfirmService: r.ConfirmService, RedirectURL: r.ConfirmRedirectURL}
	r.Mux.Handle("GET /waitlist/confirm",
		httpx.Chain(confirmHandler,
			httpx.RateLimitByIP(httpx.PublicLimit, r.TrustProxy),
		),
	)
}

func (r *Router) registerAdmin() {
	if r.verifier == nil {
		r.logger.Warn("admin endpoints disabled: no token verifier configured")
		return
	}

	statsHandler := &StatsHandler{StatsService: r.StatsService}
	r.Mux.Handle("GET /v1/admin/waitlist/stats",
		httpx.Chain(statsHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(ScopeStatsRead),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics)
	}
}
