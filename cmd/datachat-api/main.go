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

	"github.com/datachat/datachat/internal/api"
	"github.com/datachat/datachat/internal/api/uistatic"
	"github.com/datachat/datachat/internal/auth"
	"github.com/datachat/datachat/internal/config"
	"github.com/datachat/datachat/internal/history"
	historypostgres "github.com/datachat/datachat/internal/history/postgres"
	"github.com/datachat/datachat/internal/ingest"
	"github.com/datachat/datachat/internal/llm"
	"github.com/datachat/datachat/internal/observability"
	"github.com/datachat/datachat/internal/pipeline"
	"github.com/datachat/datachat/internal/storage"
	s3store "github.com/datachat/datachat/internal/storage/s3"
	duckdbstore "github.com/datachat/datachat/internal/store/duckdb"
)

func main() {
	cfg, err := config.LoadFromEnv("datachat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	manifest := ingest.DefaultManifest()
	if cfg.Dataset.ManifestPath != "" {
		manifest, err = ingest.LoadManifest(cfg.Dataset.ManifestPath)
		if err != nil {
			logger.Error("failed to load dataset manifest", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var fetcher storage.ObjectStore
	if cfg.Dataset.FetchRemote {
		fetcher, err = s3store.New(s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	loader := &ingest.Loader{
		DatasetDir: cfg.Dataset.Dir,
		Fetcher:    fetcher,
		Logger:     logger,
	}
	summary, err := loader.Run(context.Background(), cfg.Store.Path, manifest)
	if err != nil {
		logger.Error("dataset ingestion failed", slog.Any("error", err))
		os.Exit(1)
	}
	if summary.AlreadyLoaded {
		logger.Info("database already present, skipping ingestion", slog.String("path", cfg.Store.Path))
	} else {
		logger.Info("dataset ingestion finished",
			slog.Any("loaded", summary.Loaded),
			slog.Any("skipped", summary.Skipped))
	}

	store, err := duckdbstore.NewStore(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open backing store", slog.Any("error", err))
		os.Exit(1)
	}

	model, err := llm.NewGeminiClient(llm.GeminiConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize model client", slog.Any("error", err))
		os.Exit(1)
	}

	var recorder history.Recorder = history.NewMemoryRecorder()
	readiness := []api.ReadinessCheck{
		api.CheckStorePath(cfg),
		api.CheckAIConfig(cfg),
		api.CheckSchema(store),
	}
	if cfg.History.Enabled {
		historyDB, err := historypostgres.Open(context.Background(), historypostgres.DBConfig{
			DSN:             cfg.History.DSN,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxIdleTime: cfg.History.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open history db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = historyDB.Close() }()

		repository := historypostgres.NewRepository(historyDB)
		if err := repository.EnsureSchema(context.Background()); err != nil {
			logger.Error("failed to prepare history schema", slog.Any("error", err))
			os.Exit(1)
		}
		recorder = repository
		readiness = append(readiness, repository.HealthCheck)
	}

	queryPipeline := &pipeline.Pipeline{
		Schema:   store,
		Executor: store,
		Model:    model,
		History:  recorder,
		Config: pipeline.Config{
			Temperature:      cfg.AI.Temperature,
			SQLMaxTokens:     cfg.AI.SQLMaxTokens,
			SummaryMaxTokens: cfg.AI.SummaryMaxTokens,
		},
		Logger: logger,
	}

	deps := api.Dependencies{
		Logger:            logger,
		Schema:            store,
		Executor:          store,
		Pipeline:          queryPipeline,
		History:           recorder,
		UISchemaSamples:   cfg.UI.SchemaSampleRows,
		UI:                uistatic.Handler(),
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
