package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"scentshop.org/internal/auth"
	"scentshop.org/internal/catalog"
	"scentshop.org/internal/oauth"
	"scentshop.org/internal/obs"
	"scentshop.org/internal/review"
)

const serviceName = "scentshop-api"

// ReadyProbe pings the configured backing services.
type ReadyProbe struct {
	DB    *sql.DB
	Redis *redis.Client
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// RedirectProvider is the browser handshake half of an external provider.
type RedirectProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (auth.Assertion, error)
}

// Deps are the collaborators the API is built from.
type Deps struct {
	Linker    *auth.IdentityLinker
	Tokens    *auth.TokenService
	Guard     *auth.Guard
	Providers auth.Providers
	Redirects map[string]RedirectProvider
	States    oauth.StateStore
	Reviews   *review.Service
	Catalog   *catalog.Service
	Ready     readinessChecker
	Version   string

	RateBurst  int
	RatePerSec float64

	// TrustProxyHeaders enables chi's RealIP, which takes the client address
	// from X-Forwarded-For / X-Real-IP. Only set it behind a proxy that
	// overwrites those headers.
	TrustProxyHeaders bool
}

// API is the HTTP layer.
type API struct {
	linker    *auth.IdentityLinker
	tokens    *auth.TokenService
	guard     *auth.Guard
	providers auth.Providers
	redirects map[string]RedirectProvider
	states    oauth.StateStore
	reviews   *review.Service
	catalog   *catalog.Service
	ready     readinessChecker
	version   string

	rateBurst  int
	ratePerSec float64
	trustProxy bool
}

func New(d Deps) (*API, error) {
	if d.Linker == nil || d.Tokens == nil || d.Guard == nil || d.Reviews == nil || d.Catalog == nil {
		return nil, errors.New("httpapi: linker, tokens, guard, reviews and catalog are required")
	}
	a := &API{
		linker:     d.Linker,
		tokens:     d.Tokens,
		guard:      d.Guard,
		providers:  d.Providers,
		redirects:  d.Redirects,
		states:     d.States,
		reviews:    d.Reviews,
		catalog:    d.Catalog,
		ready:      d.Ready,
		version:    d.Version,
		rateBurst:  d.RateBurst,
		ratePerSec: d.RatePerSec,
		trustProxy: d.TrustProxyHeaders,
	}
	if a.providers == nil {
		a.providers = auth.Providers{}
	}
	if a.ready == nil {
		a.ready = ReadyProbe{}
	}
	if a.states == nil {
		a.states = oauth.NewMemoryStateStore()
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}
	return a, nil
}

// Handler returns the fully wrapped router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	if a.trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(
		LoggingJSON,
		Recoverer,
		SecurityHeaders,
		CORS,
		MaxBodyBytes(1<<20),
		RateLimit(a.rateBurst, a.ratePerSec),
	)
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)
	r.Handle("/metrics", obs.Handler())

	r.Post("/register", a.handleRegister)
	r.Post("/login", a.handleLogin)
	r.Post("/auth/{provider}", a.handleProviderCredential)
	r.Get("/auth/{provider}", a.handleRedirectStart)
	r.Get("/auth/{provider}/callback", a.handleRedirectCallback)

	r.Get("/perfumes/{perfumeID}/comments", a.handleListComments)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)

		r.Get("/me", a.handleMe)
		r.Get("/members/{memberID}", a.handleGetMember)
		r.Put("/members/{memberID}", a.handleUpdateMember)
		r.Put("/members/{memberID}/password", a.handleChangePassword)

		r.Post("/perfumes/{perfumeID}/comments", a.handleCreateComment)
		r.Put("/perfumes/{perfumeID}/comments/{commentID}", a.handleUpdateComment)
		r.Delete("/perfumes/{perfumeID}/comments/{commentID}", a.handleDeleteComment)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/members", a.handleListMembers)
			r.Post("/perfumes", a.handleCreatePerfume)
		})
	})

	return obs.Instrument(r)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
