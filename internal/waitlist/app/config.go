package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/service"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	TrustProxyHeaders    bool          // Read client IPs from X-Forwarded-For / X-Real-IP (default: false)

	BaseURL            string        // Public origin used in confirmation links (default: http://localhost:8080)
	ConfirmRedirectURL string        // Optional: confirmation page to redirect to with ?status=
	TokenTTL           time.Duration // Confirmation link lifetime (default: 48h)
	Locales            []string      // Optional: accepted locales, comma separated

	DBDriver     string // sqlite or postgres (default: sqlite)
	DatabaseFile string // SQLite database file (default: ./waitlist.db)
	DatabaseURL  string // Postgres DSN, required for the postgres driver

	RateLimitStore     string // memory or badger (default: memory)
	RateLimitBadgerDir string // Badger directory (default: ./ratelimit)
	RateLimitKeySecret string // Secret for hashing limiter keys, required outside dev

	CaptchaProvider  string // static or siteverify (default: static)
	CaptchaSecret    string // siteverify secret
	CaptchaVerifyURL string // siteverify endpoint (default: Cloudflare Turnstile)

	MailDriver   string // log or smtp (default: log)
	SMTPHost     string
	SMTPPort     int // (default: 587)
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	AdminJWTSecret   string // Optional: enables the admin endpoints
	AdminJWTIssuer   string // (default: waitlist)
	AdminJWTAudience string // (default: waitlist-admin)

	SentryDSN string // Optional: enables error reporting
}

func LoadConfig() Config {
	return Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		TrustProxyHeaders:    getEnvBoolOrDefault("TRUST_PROXY_HEADERS", false),

		BaseURL:            getEnvOrDefault("WAITLIST_BASE_URL", "http://localhost:8080"),
		ConfirmRedirectURL: os.Getenv("WAITLIST_CONFIRM_REDIRECT_URL"),
		TokenTTL:           getEnvDurationOrDefault("WAITLIST_TOKEN_TTL", service.DefaultTokenTTL),
		Locales:            getEnvListOrDefault("WAITLIST_LOCALES", nil),

		DBDriver:     getEnvOrDefault("WAITLIST_DB_DRIVER", "sqlite"),
		DatabaseFile: getEnvOrDefault("WAITLIST_DATABASE_FILE", "waitlist.db"),
		DatabaseURL:  os.Getenv("WAITLIST_DATABASE_URL"),

		RateLimitStore:     getEnvOrDefault("RATELIMIT_STORE", "memory"),
		RateLimitBadgerDir: getEnvOrDefault("RATELIMIT_BADGER_DIR", "ratelimit"),
		RateLimitKeySecret: os.Getenv("RATELIMIT_KEY_SECRET"),

		CaptchaProvider:  getEnvOrDefault("CAPTCHA_PROVIDER", "static"),
		CaptchaSecret:    os.Getenv("CAPTCHA_SECRET"),
		CaptchaVerifyURL: os.Getenv("CAPTCHA_VERIFY_URL"),

		MailDriver:   getEnvOrDefault("MAIL_DRIVER", "log"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     os.Getenv("MAIL_FROM"),

		AdminJWTSecret:   os.Getenv("ADMIN_JWT_SECRET"),
		AdminJWTIssuer:   getEnvOrDefault("ADMIN_JWT_ISSUER", "waitlist"),
		AdminJWTAudience: getEnvOrDefault("ADMIN_JWT_AUDIENCE", "waitlist-admin"),

		SentryDSN: os.Getenv("SENTRY_DSN"),
	}
}

// Validate reports the first setting that cannot work. In prod the
// placeholder captcha and the log mailer are refused, and outside dev an
// unkeyed rate limiter is refused.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: WAITLIST_DATABASE_URL is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown WAITLIST_DB_DRIVER %q", ErrInvalidConfig, c.DBDriver)
	}

	switch c.RateLimitStore {
	case "memory", "badger":
	default:
		return fmt.Errorf("%w: unknown RATELIMIT_STORE %q", ErrInvalidConfig, c.RateLimitStore)
	}

	switch c.CaptchaProvider {
	case "static":
		if c.Env == "prod" {
			return fmt.Errorf("%w: CAPTCHA_PROVIDER=static is not allowed in prod", ErrInvalidConfig)
		}
	case "siteverify":
		if c.CaptchaSecret == "" {
			return fmt.Errorf("%w: CAPTCHA_SECRET is required for siteverify", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown CAPTCHA_PROVIDER %q", ErrInvalidConfig, c.CaptchaProvider)
	}

	switch c.MailDriver {
	case "log":
		if c.Env == "prod" {
			return fmt.Errorf("%w: MAIL_DRIVER=log is not allowed in prod", ErrInvalidConfig)
		}
	case "smtp":
		if c.SMTPHost == "" || c.MailFrom == "" {
			return fmt.Errorf("%w: SMTP_HOST and MAIL_FROM are required for smtp", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown MAIL_DRIVER %q", ErrInvalidConfig, c.MailDriver)
	}

	if c.RateLimitKeySecret == "" && c.Env != "dev" {
		return fmt.Errorf("%w: RATELIMIT_KEY_SECRET is required outside dev", ErrInvalidConfig)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: WAITLIST_TOKEN_TTL must be positive", ErrInvalidConfig)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
