package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/internal/app"
	"docvault/internal/config"
	"docvault/internal/database/migration"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/logger"
	"docvault/internal/otel"
)

const (
	shutdownTimeout = 15 * time.Second
	// multipart framing on top of the largest accepted file
	bodyLimitSlack = 1 << 20
)

func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, logger.Location(cfg.Log.Timezone), cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Error("tracing_init_failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing_shutdown_failed", "error", err)
		}
	}()

	a, err := app.New(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("startup_failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := migration.EnsureMigrated(ctx, a.DB, log, cfg.Database.Host); err != nil {
		log.Error("startup_failed", "error", err)
		os.Exit(1)
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("startup_failed", "error", err)
		os.Exit(1)
	}

	server := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             int(cfg.Upload.MaxFileSizeBytes()) + bodyLimitSlack,
		DisableStartupMessage: true,
	})

	server.Use(middleware.RequestID())
	server.Use(otelfiber.Middleware())
	server.Use(middleware.Logger(log))
	server.Use(promMiddleware.Handler())

	server.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handlers.RegisterRoutes(server, a.DB, a.Documents, a.Versioning)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_listening", "addr", ":"+cfg.Port)
		errCh <- server.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server_failed", "error", err)
		}
	case <-ctx.Done():
		log.Info("server_shutdown", "reason", "signal")
		if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Warn("server_shutdown_failed", "error", err)
		}
	}
}
