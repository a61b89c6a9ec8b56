// Package config reads the service configuration from SCENTSHOP_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"scentshop.org/internal/auth"
)

const prefix = "SCENTSHOP_"

// Config is the full runtime configuration of cmd/api.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	PGDSN string
	Redis Redis

	AuthSecret  string
	TokenTTL    time.Duration
	TokenIssuer string

	Google        Google
	OAuthDefaults auth.OAuthDefaults

	AdminEmail        string
	AdminPasswordHash string

	RateBurst  int
	RatePerSec float64

	// TrustProxyHeaders makes the client IP come from X-Forwarded-For /
	// X-Real-IP. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether the redirect handshake is fully configured.
func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

// Load reads .env if present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Every invalid value is reported.
func FromEnv(getenv func(string) string) (Config, error) {
	r := reader{getenv: getenv}
	cfg := Config{
		HTTPAddr:    r.str("HTTP_ADDR", ":8080"),
		GRPCAddr:    r.str("GRPC_ADDR", ""),
		PGDSN:       r.str("PG_DSN", ""),
		AuthSecret:  r.str("AUTH_SECRET", ""),
		TokenTTL:    r.duration("TOKEN_TTL", 30*24*time.Hour),
		TokenIssuer: r.str("TOKEN_ISSUER", "scentshop"),
		Redis: Redis{
			Addr:     r.str("REDIS_ADDR", ""),
			Password: r.str("REDIS_PASSWORD", ""),
			DB:       r.integer("REDIS_DB", 0),
		},
		Google: Google{
			ClientID:     r.str("GOOGLE_CLIENT_ID", ""),
			ClientSecret: r.str("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  r.str("GOOGLE_REDIRECT_URL", ""),
		},
		OAuthDefaults: auth.OAuthDefaults{
			Age:    r.integer("OAUTH_DEFAULT_AGE", auth.DefaultOAuthDefaults.Age),
			Gender: r.boolean("OAUTH_DEFAULT_GENDER", auth.DefaultOAuthDefaults.Gender),
		},
		AdminEmail:        r.str("ADMIN_EMAIL", ""),
		AdminPasswordHash: r.str("ADMIN_PASSWORD_HASH", ""),
		RateBurst:         r.integer("RATE_BURST", 20),
		RatePerSec:        r.float("RATE_PER_SEC", 10),
		TrustProxyHeaders: r.boolean("TRUST_PROXY_HEADERS", false),
	}

	if cfg.AuthSecret == "" {
		r.errs = append(r.errs, fmt.Errorf("%sAUTH_SECRET: %w", prefix, auth.ErrMissingSecret))
	}
	if cfg.TokenTTL <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%sTOKEN_TTL must be positive", prefix))
	}
	if cfg.OAuthDefaults.Age < 0 || cfg.OAuthDefaults.Age > 120 {
		r.errs = append(r.errs, fmt.Errorf("%sOAUTH_DEFAULT_AGE must be between 0 and 120", prefix))
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPasswordHash == "") {
		r.errs = append(r.errs, fmt.Errorf("%sADMIN_EMAIL and %sADMIN_PASSWORD_HASH must be set together", prefix, prefix))
	}
	if cfg.RateBurst <= 0 || cfg.RatePerSec <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%sRATE_BURST and %sRATE_PER_SEC must be positive", prefix, prefix))
	}
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(prefix + key)); v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid integer %q", prefix, key, raw))
		return def
	}
	return v
}

func (r *reader) float(key string, def float64) float64 {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid number %q", prefix, key, raw))
		return def
	}
	return v
}

func (r *reader) boolean(key string, def bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid boolean %q", prefix, key, raw))
		return def
	}
	return v
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid duration %q", prefix, key, raw))
		return def
	}
	return v
}
