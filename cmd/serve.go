package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"nutrition/repositories"
	"nutrition/routes"
	"nutrition/services"
	"nutrition/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := services.NewRealtimeHub(log)
	defer hub.Close()

	events := repositories.NewEventRepository(db)
	opts := []services.Option{
		services.WithLogger(log),
		services.WithEventHistory(events),
		services.WithEventBus(services.NewEventBus(events, hub, log)),
	}
	if cfg.S3.Enabled() {
		store, err := utils.NewS3ImageStore(ctx, cfg.S3)
		if err != nil {
			return err
		}
		opts = append(opts, services.WithImageStore(store))
		log.Info("food image uploads enabled", zap.String("bucket", cfg.S3.Bucket))
	}
	svc := services.NewNutritionService(repositories.NewFoodRepository(db), opts...)

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set; write endpoints are unauthenticated")
	}

	router := routes.SetupRouter(routes.Deps{
		DB:             db,
		Nutrition:      svc,
		Hub:            hub,
		Log:            log,
		JWTSecret:      cfg.JWTSecret,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("version", version),
			zap.String("commit", commit))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("server stopped gracefully")
	return nil
}
