package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/unalkalkan/NovelShelf/internal/api"
	"github.com/unalkalkan/NovelShelf/internal/book"
	"github.com/unalkalkan/NovelShelf/internal/config"
	"github.com/unalkalkan/NovelShelf/internal/health"
	"github.com/unalkalkan/NovelShelf/internal/library"
	"github.com/unalkalkan/NovelShelf/internal/logging"
	"github.com/unalkalkan/NovelShelf/internal/novels"
	"github.com/unalkalkan/NovelShelf/internal/storage"
)

const version = "0.1.0"

func main() {
	configPath := flag.StringP("config", "c", "", "Path to configuration file (defaults apply when empty)")
	envDir := flag.String("env-dir", ".", "Directory holding .env.local / .env.production")
	flag.Parse()

	if err := run(*configPath, *envDir); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, envDir string) error {
	envFile, err := config.LoadDotEnv(envDir, os.Getenv("APP_ENV"))
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.InitLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting NovelShelf server",
		"version", version,
		"config", configPath,
		"env_file", envFile,
	)

	adapter, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage adapter: %w", err)
	}
	defer adapter.Close()
	logger.Info("storage adapter initialized", "adapter", cfg.Storage.Adapter)

	ctx := context.Background()
	store, err := book.NewRepository(ctx, cfg.Metadata, adapter)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	defer store.Close()
	logger.Info("metadata store initialized", "backend", cfg.Metadata.Backend)

	opts := library.OptionsFromConfig(cfg)
	opts.Logger = logger
	lib := library.NewService(adapter, opts)

	healthHandler := health.NewHandler(version)
	healthHandler.Register("storage", health.Required(lib.CheckStorage))
	healthHandler.Register("metadata", health.Optional(func(ctx context.Context) error {
		_, err := store.ListNovels(ctx)
		return err
	}))

	srv := api.NewServer(api.Config{
		PublicBaseURL:  cfg.Server.PublicBaseURL,
		FrontendURL:    cfg.Server.FrontendURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, lib, novels.NewBuiltinCatalog(), store, healthHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
