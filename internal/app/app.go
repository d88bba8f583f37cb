// Package app wires configuration, infrastructure and services into one unit
// shared by the HTTP server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"docvault/internal/cache"
	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/logger"
	"docvault/internal/metrics"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
	"docvault/internal/versioning"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config     *config.AppConfig
	Log        *slog.Logger
	DB         *sql.DB
	Store      storage.Storage
	Resolver   *versioning.Resolver
	Enumerator *versioning.Enumerator
	Engine     *versioning.Engine
	Documents  service.DocumentService
	Versioning service.VersioningService

	closers []func() error
}

// New connects to the database, object store and optional redis cache and builds
// the services. reg may be nil, in which case engine metrics are discarded.
// Close releases everything New opened.
func New(ctx context.Context, cfg *config.AppConfig, log *slog.Logger, reg prometheus.Registerer) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log}

	defaults, err := config.LoadVersioningDefaults(cfg.Versioning.DefaultsFile)
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	a.Store = store

	docRepo := postgres.NewDocumentPostgres(db)
	cfgRepo := postgres.NewVersioningConfigPostgres(db)
	seqRepo := postgres.NewVersionSequencePostgres(db)

	var (
		source      versioning.ConfigSource  = cfgRepo
		invalidator service.CacheInvalidator // nil without redis
	)
	if cfg.Redis.URL != "" {
		client, err := cache.Open(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn("policy_cache_disabled", "error", err)
		} else {
			a.closers = append(a.closers, client.Close)
			pc := cache.NewPolicyCache(client, cfgRepo, time.Duration(cfg.Redis.PolicyCacheTTL)*time.Second, log)
			source, invalidator = pc, pc
		}
	}

	var rec metrics.Recorder = metrics.Nop{}
	if reg != nil {
		p, err := metrics.New(reg)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		rec = p
	}

	a.Resolver = versioning.NewResolver(source, defaults)
	a.Enumerator = versioning.NewEnumerator(store, cfg.Versioning.HistoryYears, nil)
	allocator, err := versioning.NewAllocator(cfg.Versioning.Allocator, a.Enumerator, seqRepo)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Engine = versioning.NewEngine(store, a.Resolver, a.Enumerator, allocator, versioning.Options{
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		MaxFileSize:       cfg.Upload.MaxFileSizeBytes(),
		RetentionTimeout:  time.Duration(cfg.Versioning.RetentionTimeoutSec) * time.Second,
		Logger:            log,
		Metrics:           rec,
	})

	a.Documents = service.NewDocumentService(a.Engine, docRepo)
	a.Versioning = service.NewVersioningService(cfgRepo, invalidator, log)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
