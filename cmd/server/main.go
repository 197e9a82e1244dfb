package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/dartgest/internal/api"
	"github.com/dgallion1/dartgest/internal/config"
	"github.com/dgallion1/dartgest/internal/dart"
	"github.com/dgallion1/dartgest/internal/index"
	"github.com/dgallion1/dartgest/internal/ledger"
	"github.com/dgallion1/dartgest/internal/pipeline"
	"github.com/dgallion1/dartgest/internal/search"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to load .env", "error", err)
	}

	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	sc, err := search.NewClient(search.Config{
		URL:        cfg.OpenSearchURL,
		Username:   cfg.OpenSearchUser,
		Password:   cfg.OpenSearchPassword,
		Compress:   cfg.OpenSearchCompress,
		Timeout:    cfg.OpenSearchTimeout,
		MaxRetries: cfg.OpenSearchMaxRetries,
		Backoff:    pipeline.Backoff,
	}, log)
	if err != nil {
		log.Error("create search client", "error", err)
		os.Exit(1)
	}

	reg, err := index.OpenRegistry(cfg.IndexRegistryPath)
	if err != nil {
		log.Error("load index registry", "error", err)
		os.Exit(1)
	}
	if err := index.EnsureIndices(ctx, sc, reg, log); err != nil {
		log.Error("ensure indices", "error", err)
		os.Exit(1)
	}

	failures, err := ledger.Open(ctx, cfg.LedgerPath)
	if err != nil {
		log.Error("open failure ledger", "error", err)
		os.Exit(1)
	}

	var source pipeline.DocumentSource
	if cfg.DartAPIKey != "" {
		source = dart.NewClient(cfg.DartBaseURL, cfg.DartAPIKey)
	} else {
		log.Warn("DART_API_KEY not set, disclosure download disabled")
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, pipeline.Deps{
		Parser:   pipeline.ParserOptions(cfg),
		Router:   index.NewRouter(reg, sc, log),
		Indexer:  sc,
		Failures: failures,
		Stats:    pipeline.NewStageStats(time.Hour),
		Log:      log,
	})
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, failures, source, sc, reg.Indices(), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		failures.Close()
		sc.Close()
	}()

	log.Info("starting dartgest", "port", cfg.Port, "indices", reg.Indices())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
