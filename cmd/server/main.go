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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/datakeep/ingest-core/internal/config"
	"github.com/datakeep/ingest-core/internal/ingest"
	"github.com/datakeep/ingest-core/internal/logging"
	"github.com/datakeep/ingest-core/internal/metadata"
	"github.com/datakeep/ingest-core/internal/migrate"
	"github.com/datakeep/ingest-core/internal/objectstore"
	"github.com/datakeep/ingest-core/internal/web"
)

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := migrate.Up(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	objects, err := objectstore.New(objectstore.Config{
		EndpointURL:     cfg.ObjectEndpointURL,
		Region:          cfg.ObjectRegion,
		UseSSL:          cfg.ObjectUseSSL,
		AccessKeyID:     cfg.ObjectAccessKey,
		SecretAccessKey: cfg.ObjectSecretKey,
		LocalRoot:       cfg.ObjectLocalRoot,
	})
	if err != nil {
		slog.Error("failed to create object store client", "error", err)
		os.Exit(1)
	}
	if err := objects.EnsureBucket(ctx, cfg.Bucket); err != nil {
		slog.Error("failed to ensure bucket", "bucket", cfg.Bucket, "error", err)
		os.Exit(1)
	}

	files := ingest.NewFileService(
		metadata.NewPostgresStore(pool),
		objects,
		cfg.Bucket,
		cfg.ScratchDir,
		slog.Default(),
	)

	server := web.NewServer(files, web.Options{
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr, "bucket", cfg.Bucket)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
