// @title           LuxeGen Campaign API
// @version         1.0.0
// @description     Backend API for generating luxury advertising campaigns: persona catalog, shot planning, per-scene image synthesis and campaign archive.

// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"luxegen-backend/internal/assets"
	"luxegen-backend/internal/campaign"
	"luxegen-backend/internal/config"
	"luxegen-backend/internal/database"
	"luxegen-backend/internal/events"
	"luxegen-backend/internal/fallback"
	"luxegen-backend/internal/handlers"
	"luxegen-backend/internal/httpclient"
	"luxegen-backend/internal/observability"
	"luxegen-backend/internal/planning"
	"luxegen-backend/internal/storage"
	"luxegen-backend/internal/supabase"
	"luxegen-backend/internal/synthesis"
)

// objectStore is what both asset backends provide.
type objectStore interface {
	assets.ObjectStore
	handlers.AssetRemover
}

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	migrator, err := database.NewMigrator(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	err = migrator.Run()
	migrator.Close()
	if err != nil {
		return err
	}
	logger.Info("migrations completed successfully")

	dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		return err
	}
	// PostgREST first, then the direct connection when the REST API is unreachable
	secrets := supabase.SecretChain{supabase.NewSecretsClient(supabaseClient), dbClient}

	checks := map[string]handlers.Pinger{"database": dbClient}

	var store objectStore
	switch cfg.AssetStore {
	case config.AssetStoreMinIO:
		minioStore, err := storage.NewMinIOStore(cfg)
		if err != nil {
			return err
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			return err
		}
		checks["object_store"] = minioStore
		store = minioStore
	default:
		storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
		if err != nil {
			return err
		}
		store = storageClient
	}
	logger.Info("asset store ready", "backend", cfg.AssetStore)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer natsPublisher.Close()
		if err := natsPublisher.EnsureStream(ctx); err != nil {
			logger.Warn("campaign events stream unavailable", "error", err)
		}
		checks["nats"] = handlers.PingFunc(func(context.Context) error { return natsPublisher.Ping() })
		publisher = natsPublisher
	}

	httpClient := httpclient.New(httpclient.Options{Timeout: cfg.HTTPTimeout})

	rehoster := assets.NewRehoster(assets.RehosterOptions{Store: store, Logger: logger})
	orchestrator := campaign.NewOrchestrator(campaign.Deps{
		Planner: planning.New(planning.Options{
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
			Model:      cfg.GeminiModel,
			HTTPClient: httpClient,
			Logger:     logger,
		}),
		Synthesizer: synthesis.NewClient(synthesis.Options{
			Endpoint:   cfg.FalEndpoint,
			ImageSize:  cfg.SynthesisImageSize,
			HTTPClient: httpClient,
			Logger:     logger,
		}),
		Rehoster: rehoster,
		Catalog:  fallback.New(),
		Store:    dbClient,
		Secrets:  secrets,
		Events:   publisher,
		Logger:   logger,
	})
	sessions := campaign.NewSessionStore(cfg.DefaultSceneCount)

	router := handlers.NewRouter(handlers.RouterConfig{
		JWTSecret: cfg.SupabaseJWTSecret,
		Logger:    logger,
		Health:    handlers.NewHealthHandler(checks),
		Personas:  handlers.NewPersonasHandler(dbClient, rehoster, store, logger),
		Campaigns: handlers.NewCampaignsHandler(dbClient, rehoster, store, logger),
		Studio:    handlers.NewStudioHandler(sessions, orchestrator, dbClient, logger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if n := sessions.Prune(cfg.SessionTTL); n > 0 {
					logger.Info("pruned idle studio sessions", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Synthesis runs are not cancellable; give them the same budget to finish
		if err := orchestrator.Wait(shutdownCtx); err != nil {
			logger.Warn("synthesis runs still in flight at shutdown", "error", err)
		}
		return nil
	})

	return g.Wait()
}
