package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/afyalink/referral/internal/config"
	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/admin"
	"github.com/afyalink/referral/internal/domain/faq"
	"github.com/afyalink/referral/internal/domain/feedback"
	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/domain/referral"
	"github.com/afyalink/referral/internal/domain/registration"
	"github.com/afyalink/referral/internal/platform/auth"
	"github.com/afyalink/referral/internal/platform/cache"
	"github.com/afyalink/referral/internal/platform/db"
	"github.com/afyalink/referral/internal/platform/metrics"
	"github.com/afyalink/referral/internal/platform/middleware"
	"github.com/afyalink/referral/internal/platform/reporting"
	"github.com/afyalink/referral/internal/platform/telemetry"
)

const version = "0.1.0"

// staffDirectory lets the admin service look up a profile and its roles.
type staffDirectory struct {
	identity.ProfileRepository
	identity.RoleRepository
}

type services struct {
	tokens       *auth.TokenIssuer
	gate         *access.Gate
	identity     *identity.Service
	registration *registration.Service
	referral     *referral.Service
	admin        *admin.Service
	stats        *admin.StatsService
	feedback     *feedback.Service
	faq          *faq.Service
}

// newServices wires repositories and services over pool. m and statsCache
// may be nil; tokens is only set when a signing key is available.
func newServices(cfg *config.Config, pool db.Queryable, m *metrics.Collector, statsCache cache.Cache, logger zerolog.Logger) *services {
	profiles := identity.NewProfileRepo(pool)
	roles := identity.NewRoleRepo(pool)

	var tx db.Transactor
	if b, ok := pool.(db.Beginner); ok {
		tx = db.NewTxManager(b)
	}

	s := &services{gate: access.NewGate(profiles, roles)}

	var tokens identity.TokenIssuer
	if cfg.ResolvedAuthMode() != "external" {
		key, generated, err := resolveSigningKey(cfg.JWTSecret, cfg.IsDev())
		if err != nil {
			logger.Error().Err(err).Msg("built-in login disabled")
		} else if key != nil {
			if generated {
				logger.Warn().Msg("JWT_SECRET not set; using a random key, tokens will not survive a restart")
			}
			s.tokens = auth.NewTokenIssuer(key, "afyalink", cfg.JWTTTL)
			tokens = s.tokens
		}
	}

	s.identity = identity.NewService(profiles, roles, tx, tokens, logger)
	s.registration = registration.NewService(registration.NewRepo(pool), profiles, roles, tx, m, logger)
	s.identity.SetCodeRedeemer(s.registration)

	s.referral = referral.NewService(referral.NewRepo(pool), profiles, roles, m, logger)
	s.admin = admin.NewService(admin.NewFacilityRepo(pool), admin.NewStaffRepo(pool),
		staffDirectory{ProfileRepository: profiles, RoleRepository: roles}, logger)
	s.stats = admin.NewStatsService(profiles, roles, s.referral, s.registration, statsCache, cfg.StatsCacheTTL, m, logger)
	s.feedback = feedback.NewService(feedback.NewRepo(pool), logger)
	s.faq = faq.NewService(faq.NewRepo(pool), logger)
	return s
}

// authMiddleware picks session verification for the configured auth mode.
func authMiddleware(cfg *config.Config, tokens *auth.TokenIssuer) echo.MiddlewareFunc {
	var tokenAuth echo.MiddlewareFunc
	if tokens != nil {
		tokenAuth = auth.JWTMiddleware(tokens.Config())
	}

	switch cfg.ResolvedAuthMode() {
	case "development":
		return auth.DevAuthMiddleware(tokenAuth)
	case "external":
		return auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		})
	default:
		return tokenAuth
	}
}

// newRouter builds the HTTP surface. pool may be nil in tests, which leaves
// /health/db unmounted.
func newRouter(cfg *config.Config, svc *services, pool *pgxpool.Pool, m *metrics.Collector, tp trace.TracerProvider, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(telemetry.Middleware(tp))
	e.Use(middleware.Metrics(m))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, auth.DevUserHeader},
	}))
	e.Use(middleware.BodyLimit("1M"))
	if am := authMiddleware(cfg, svc.tokens); am != nil {
		e.Use(am)
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg), middleware.RequestTimeout(30*time.Second))

	// No session required.
	identityHandler := identity.NewHandler(svc.identity)
	identityHandler.RegisterRoutes(api)
	faqHandler := faq.NewHandler(svc.faq)
	faqHandler.RegisterPublicRoutes(api)

	// Session required, but pending accounts are let through.
	access.NewHandler(svc.gate).RegisterRoutes(api)
	identityHandler.RegisterSessionRoutes(api)
	registrationHandler := registration.NewHandler(svc.registration)
	registrationHandler.RegisterSessionRoutes(api)

	// Active accounts only.
	gated := api.Group("", svc.gate.Middleware(logger))
	referral.NewHandler(svc.referral).RegisterRoutes(gated)
	registrationHandler.RegisterRoutes(gated)
	admin.NewHandler(svc.admin, svc.stats).RegisterRoutes(gated)
	feedback.NewHandler(svc.feedback).RegisterRoutes(gated)
	faqHandler.RegisterRoutes(gated)

	reporting.NewHandler().
		Register("referrals", referral.NewReport(svc.referral), reportRoles(access.ReportReferrals)...).
		Register("users", identity.NewUsersReport(svc.identity), reportRoles(access.ReportUsers)...).
		Register("facilities", admin.NewFacilitiesReport(svc.admin), reportRoles(access.ReportFacilities)...).
		Register("staff", admin.NewStaffReport(svc.admin), reportRoles(access.ReportStaff)...).
		RegisterRoutes(gated)

	return e
}

func reportRoles(a access.Action) []string {
	return identity.RoleStrings(access.RolesFor(a))
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "afyalink-server",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TracingSampleRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracing")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	// Stats fall back to direct computation without Redis.
	var statsCache cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "afyalink")
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, stats cache disabled")
		} else {
			defer rc.Close()
			statsCache = rc
		}
	}

	m := metrics.New("afyalink")
	svc := newServices(cfg, pool, m, statsCache, logger)
	e := newRouter(cfg, svc, pool, m, tp, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracer shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
