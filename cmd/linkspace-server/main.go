package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/config"
	"github.com/linkspace/linkspace/pkg/linkspace/export"
	"github.com/linkspace/linkspace/pkg/linkspace/health"
	"github.com/linkspace/linkspace/pkg/linkspace/identity"
	"github.com/linkspace/linkspace/pkg/linkspace/links"
	"github.com/linkspace/linkspace/pkg/linkspace/logger"
	"github.com/linkspace/linkspace/pkg/linkspace/ratelimit"
	"github.com/linkspace/linkspace/pkg/linkspace/redirect"
	"github.com/linkspace/linkspace/pkg/linkspace/spaces"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
	"github.com/linkspace/linkspace/pkg/linkspace/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	st := openStore(cfg, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Health endpoints live outside the identity surface.
	healthHandler := health.NewHandler(st)
	healthHandler.RegisterRoutes(r.Group("/health"))

	// Owner-scoped surface: rate limiting, then identity resolution,
	// then workspace resolution, in that order on every request.
	limiter := ratelimit.New(ratelimit.Config{
		Rate:     cfg.RateLimitRate,
		Burst:    cfg.RateLimitBurst,
		Interval: ratelimit.DefaultConfig().Interval,
		Cleanup:  ratelimit.DefaultConfig().Cleanup,
	})
	identityResolver := identity.NewResolver(cfg, log)
	workspaceResolver := workspace.NewResolver(st, cfg, log)

	app := r.Group("/", limiter.Middleware(), identityResolver.Middleware(), workspaceResolver.Middleware())

	linksHandler := links.NewHandler(st, cfg, log)
	linksHandler.RegisterRoutes(app)

	spacesHandler := spaces.NewHandler(st, cfg, log)
	spacesHandler.RegisterRoutes(app)

	exportHandler := export.NewHandler(st, cfg, log)
	exportHandler.RegisterRoutes(app)

	// Redirect routes must be registered LAST to avoid conflicts.
	redirectHandler := redirect.NewHandler(st, cfg, log)
	redirectHandler.RegisterRoutes(r)

	log.Info("starting linkspace server", "port", cfg.Port, "domains", cfg.AllowedDomains)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// openStore opens the primary backend, failing over once, for the
// lifetime of the process, to the file-backed fallback when the
// primary cannot be opened.
func openStore(cfg *config.Config, log *slog.Logger) store.Store {
	st, err := store.OpenGorm(cfg.DBPath)
	if err == nil {
		log.Info("using primary store", "path", cfg.DBPath)
		return st
	}
	log.Warn("primary store unavailable, failing over to file store",
		"path", cfg.DBPath, "fallback", cfg.FallbackPath, "error", err)

	st, err = store.OpenFile(cfg.FallbackPath)
	if err != nil {
		log.Error("fallback store unavailable", "path", cfg.FallbackPath, "error", err)
		os.Exit(1)
	}
	return st
}
