package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"scentshop.org/internal/audit"
	"scentshop.org/internal/auth"
	"scentshop.org/internal/catalog"
	"scentshop.org/internal/config"
	"scentshop.org/internal/httpapi"
	"scentshop.org/internal/oauth"
	"scentshop.org/internal/obs"
	"scentshop.org/internal/review"
	"scentshop.org/internal/store/memory"
	"scentshop.org/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// stores is the persistence backing every service.
type stores interface {
	auth.MemberStore
	review.Store
	catalog.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store stores
		db    *sql.DB
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store, db = pgStore, pgStore.DB()
	} else {
		obs.Warn("using_memory_store", map[string]any{"reason": "SCENTSHOP_PG_DSN not set"})
		store = memory.New()
	}

	var (
		states      oauth.StateStore
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = oauth.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		states = oauth.NewRedisStateStore(redisClient)
	} else {
		states = oauth.NewMemoryStateStore()
	}

	tokens, err := auth.NewTokenService(cfg.AuthSecret,
		auth.WithTokenTTL(cfg.TokenTTL),
		auth.WithTokenIssuer(cfg.TokenIssuer),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	linker, err := auth.NewIdentityLinker(store, auth.WithOAuthDefaults(cfg.OAuthDefaults))
	if err != nil {
		log.Fatalf("identity linker: %v", err)
	}
	guard, err := auth.NewGuard(tokens, store)
	if err != nil {
		log.Fatalf("guard: %v", err)
	}

	if cfg.AdminEmail != "" {
		admin, err := linker.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPasswordHash)
		if err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		_ = audit.LogEvent(auth.ContextWithMember(ctx, admin), audit.EventAdminBootstrapped, map[string]any{
			"email": admin.Email,
		})
	}

	providers := auth.Providers{}
	redirects := map[string]httpapi.RedirectProvider{}
	if cfg.Google.Enabled() {
		google := oauth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
		providers.Register(auth.ProviderGoogle, google.VerifyAccessToken)
		redirects[auth.ProviderGoogle] = google
	}

	cat := catalog.NewService(store)
	reviews, err := review.NewService(store, cat)
	if err != nil {
		log.Fatalf("review service: %v", err)
	}

	ready := httpapi.ReadyProbe{DB: db, Redis: redisClient}
	api, err := httpapi.New(httpapi.Deps{
		Linker:     linker,
		Tokens:     tokens,
		Guard:      guard,
		Providers:  providers,
		Redirects:  redirects,
		States:     states,
		Reviews:    reviews,
		Catalog:    cat,
		Ready:      ready,
		Version:    version,
		RateBurst:  cfg.RateBurst,
		RatePerSec: cfg.RatePerSec,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	if err != nil {
		log.Fatalf("http api: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		h := httpapi.NewGRPCHealth(ready, version)
		h.Register(grpcSrv)
		go h.Watch(ctx, 10*time.Second)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				obs.Error("grpc_serve_failed", map[string]any{"error": err})
			}
		}()
		obs.Info("grpc_listening", map[string]any{"addr": cfg.GRPCAddr})
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()
	obs.Info("server_started", map[string]any{
		"version":   version,
		"addr":      srv.Addr,
		"providers": providers.Names(),
		"token_ttl": tokens.TTL().String(),
	})

	<-ctx.Done()
	obs.Info("server_stopping", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.Error("http_shutdown_failed", map[string]any{"error": err})
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	obs.Info("server_stopped", nil)
}
