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

	"github.com/sqlask/sqlask/internal/api"
	"github.com/sqlask/sqlask/internal/auth"
	"github.com/sqlask/sqlask/internal/config"
	"github.com/sqlask/sqlask/internal/nl2sql"
	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/oracle"
	"github.com/sqlask/sqlask/internal/pipeline"
	"github.com/sqlask/sqlask/internal/store"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlask-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	if err := cfg.RequireStore(); err != nil {
		logger.Error("invalid store config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.RequireOracle(); err != nil {
		logger.Error("invalid oracle config", slog.Any("error", err))
		os.Exit(1)
	}

	dialect, err := store.ParseDialect(cfg.Store.Driver)
	if err != nil {
		logger.Error("invalid store driver", slog.Any("error", err))
		os.Exit(1)
	}
	relational, err := store.New(store.Config{
		Dialect:        dialect,
		DSN:            cfg.Store.DSN,
		ConnectTimeout: cfg.Store.ConnectTimeout,
	})
	if err != nil {
		logger.Error("failed to initialize store", slog.Any("error", err))
		os.Exit(1)
	}
	relational.Logger = logger

	completions, err := oracle.NewClientFromConfig(cfg.LLM, nil)
	if err != nil {
		logger.Error("failed to initialize oracle", slog.Any("error", err))
		os.Exit(1)
	}
	completions.Logger = logger

	glossary, err := nl2sql.LoadGlossary(cfg.Prompt.GlossaryPath)
	if err != nil {
		logger.Error("failed to load glossary", slog.Any("error", err))
		os.Exit(1)
	}
	synthesizer := nl2sql.NewSynthesizer(relational, completions, glossary)
	synthesizer.Logger = logger
	answers := pipeline.NewSummarizer(completions, cfg.Prompt.AnswerLanguage)

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CombineReadinessChecks(api.CheckStore(relational)),
		RateLimiter:       api.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		DependencyTimeout: time.Second,
		Pipeline:          pipeline.New(synthesizer, relational, answers, logger),
		Generator:         synthesizer,
		Runner:            relational,
		Schema:            relational,
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
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("store", string(dialect)),
			slog.String("oracle_provider", cfg.LLM.Provider),
			slog.String("oracle_model", cfg.LLM.Model),
		)
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
