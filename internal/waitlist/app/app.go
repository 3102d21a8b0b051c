package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/captcha"
	httpapi "github.com/aussiebroadwan/waitlist/internal/waitlist/http"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/mailer"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/metrics"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/ratelimit"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/service"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store/drivers/postgres"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store/drivers/sqlite"
	"github.com/aussiebroadwan/waitlist/pkg/cryptox"
	"github.com/aussiebroadwan/waitlist/pkg/jwtx"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// rateLimitBackend is what the limiter store has to offer the application.
type rateLimitBackend interface {
	ratelimit.Store
	ratelimit.Maintainer
}

// Application encapsulates the waitlist service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	rateStore rateLimitBackend
	limiter   *ratelimit.Limiter
	verifier  *jwtx.HS256
	captcha   captcha.Verifier
	mailer    mailer.Sender
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	sentryOn  bool

	// Services
	signupService       *service.SignupService
	resendService       *service.ResendService
	confirmService      *service.ConfirmService
	statsService        *service.StatsService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config, out io.Writer) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "waitlist",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  out,
	})
}

// Option customizes an Application before it is wired.
type Option func(*Application)

// WithLogOutput sends logs to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(app *Application) { app.logger = NewLogger(app.cfg, w) }
}

// WithMailer replaces the mailer selected by MAIL_DRIVER.
func WithMailer(m mailer.Sender) Option {
	return func(app *Application) { app.mailer = m }
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = NewLogger(cfg, nil)
	}

	app.initSentry()

	if err := app.initDatabase(context.Background()); err != nil {
		return nil, err
	}

	if err := app.initRateLimit(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initAdminAuth(); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.initIntegrations()
	app.initMetrics()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the fully wired router.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("waitlist service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"db_driver", app.cfg.DBDriver,
		"ratelimit_store", app.cfg.RateLimitStore,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down waitlist service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.sentryOn {
		sentry.Flush(2 * time.Second)
	}

	if err := app.Close(); err != nil {
		return err
	}

	app.logger.Info("waitlist service stopped")
	return nil
}

// Close releases the record and rate limit stores. Shutdown calls it after
// the server and workers have stopped.
func (app *Application) Close() error {
	var errs []error
	if closer, ok := app.rateStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error("error closing rate limit store", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (app *Application) initSentry() {
	if app.cfg.SentryDSN == "" {
		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              app.cfg.SentryDSN,
		Environment:      app.cfg.Env,
		Release:          "waitlist@" + BuildVersion,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		app.logger.Error("sentry init failed", "error", err)
		return
	}
	app.sentryOn = true
}

// OpenStore opens the record store selected by cfg and applies its migrations.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	var (
		db  store.Store
		err error
	)

	switch cfg.DBDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	return db, nil
}

func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DBDriver)
	return nil
}

func (app *Application) initRateLimit() error {
	if app.cfg.RateLimitKeySecret == "" {
		// dev only, Validate refuses this elsewhere
		app.logger.Warn("RATELIMIT_KEY_SECRET not set, using an ephemeral secret")
	}

	keyer, err := cryptox.NewIdentifierKeyer([]byte(app.cfg.RateLimitKeySecret))
	if err != nil {
		return fmt.Errorf("failed to initialize rate limit keyer: %w", err)
	}

	switch app.cfg.RateLimitStore {
	case "badger":
		bs, err := ratelimit.OpenBadgerStore(ratelimit.BadgerOptions{
			Dir:    app.cfg.RateLimitBadgerDir,
			Logger: app.logger.With("component", "ratelimit"),
		})
		if err != nil {
			return fmt.Errorf("failed to open rate limit store: %w", err)
		}
		app.rateStore = bs
	default:
		app.rateStore = ratelimit.NewMemoryStore()
	}

	app.limiter = ratelimit.New(app.rateStore, keyer)
	return nil
}

func (app *Application) initAdminAuth() error {
	if app.cfg.AdminJWTSecret == "" {
		return nil
	}

	v, err := jwtx.NewHS256([]byte(app.cfg.AdminJWTSecret), app.cfg.AdminJWTIssuer, []string{app.cfg.AdminJWTAudience})
	if err != nil {
		return fmt.Errorf("failed to initialize admin token verifier: %w", err)
	}
	app.verifier = v
	return nil
}

func (app *Application) initIntegrations() {
	switch app.cfg.CaptchaProvider {
	case "siteverify":
		app.captcha = captcha.NewSiteVerifier(app.cfg.CaptchaVerifyURL, app.cfg.CaptchaSecret)
	default:
		app.logger.Warn("using static captcha verifier, every token is accepted")
		app.captcha = captcha.StaticVerifier{}
	}

	if app.mailer != nil {
		return
	}

	switch app.cfg.MailDriver {
	case "smtp":
		app.mailer = mailer.NewSMTPSender(
			app.cfg.SMTPHost,
			app.cfg.SMTPPort,
			app.cfg.SMTPUsername,
			app.cfg.SMTPPassword,
			app.cfg.MailFrom,
		)
	default:
		app.mailer = &mailer.LogSender{Logger: app.logger.With("component", "mailer")}
	}
}

func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)
}

func (app *Application) initServices() {
	issuer := &service.Issuer{
		Store:    app.db,
		Mailer:   app.mailer,
		BaseURL:  app.cfg.BaseURL,
		TokenTTL: app.cfg.TokenTTL,
		Metrics:  app.metrics,
	}

	app.signupService = &service.SignupService{
		Issuer:  issuer,
		Limiter: app.limiter,
		Rule:    ratelimit.RuleFromEnv("SUBMIT", ratelimit.SubmitByIP),
		Captcha: app.captcha,
		Metrics: app.metrics,
		Locales: app.cfg.Locales,
	}
	app.resendService = &service.ResendService{
		Issuer:  issuer,
		Limiter: app.limiter,
		Rule:    ratelimit.RuleFromEnv("RESEND", ratelimit.ResendByEmail),
		Metrics: app.metrics,
	}
	app.confirmService = &service.ConfirmService{Store: app.db, Metrics: app.metrics}
	app.statsService = &service.StatsService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.rateStore,
		app.metrics,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	// A nil *HS256 inside the interface would still look configured.
	var verifier jwtx.Verifier
	if app.verifier != nil {
		verifier = app.verifier
	}

	router := httpapi.NewRouter(verifier, BuildVersion, app.db, app.logger)
	router.TrustProxy = app.cfg.TrustProxyHeaders
	router.ConfirmRedirectURL = app.cfg.ConfirmRedirectURL
	router.Metrics = promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})

	router.SignupService = app.signupService
	router.ResendService = app.resendService
	router.ConfirmService = app.confirmService
	router.StatsService = app.statsService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
