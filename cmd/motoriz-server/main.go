// Command motoriz-server serves the Motoriz back office REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"motoriz/internal/adapters/httpapi"
	"motoriz/internal/auth"
	"motoriz/internal/blob"
	"motoriz/internal/config"
	"motoriz/internal/core"
	"motoriz/internal/export"
	"motoriz/internal/logging"
	"motoriz/internal/seed"
	"motoriz/internal/upload"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "motoriz-server:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("motoriz-server", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "YAML config file (overrides "+config.EnvConfigPath+")")
	addr := flags.String("addr", "", "listen address, host:port")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *configPath != "" {
		if err := os.Setenv(config.EnvConfigPath, *configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zl, closeLog, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Path: cfg.Log.Path})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	logger := logging.NewAdapter(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opened, err := core.OpenBackends(ctx, core.StorageOptions{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
		RemoteURL:   cfg.Storage.RemoteURL,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = opened.Closer.Close() }()

	metrics := core.NewMetrics("motoriz")
	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMetrics(metrics),
		core.WithIDStrategy(core.IDStrategy(cfg.Store.IDStrategy)),
		core.WithLowStockThreshold(cfg.Store.LowStockThreshold),
	}
	if cfg.Store.Seed {
		data, err := seed.Default()
		if err != nil {
			return err
		}
		opts = append(opts, core.WithSeed(data))
	}
	svc, err := core.NewService(opened.Backends, opts...)
	if err != nil {
		return err
	}
	if err := svc.Open(ctx); err != nil {
		return fmt.Errorf("load collections: %w", err)
	}

	blobs, err := blob.Open(ctx, blob.Options{
		Driver:  cfg.Blob.Driver,
		FSRoot:  cfg.Blob.FSRoot,
		BaseURL: "/uploads",
		S3: blob.S3Config{
			Region:          cfg.Blob.S3.Region,
			Bucket:          cfg.Blob.S3.Bucket,
			Endpoint:        cfg.Blob.S3.Endpoint,
			AccessKeyID:     cfg.Blob.S3.AccessKey,
			SecretAccessKey: cfg.Blob.S3.SecretKey,
			PathStyle:       cfg.Blob.S3.PathStyle,
		},
	})
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	uploads := upload.New(blobs,
		upload.WithMaxSize(cfg.Store.MaxUploadSizeBytes),
		upload.WithMetrics(metrics),
		upload.WithLogger(logger))
	var archiver *export.Archiver
	if cfg.Store.ArchiveExports {
		archiver = export.NewArchiver(blobs)
	}

	accounts, err := auth.New(auth.Config{
		Secret:   cfg.Auth.Secret,
		Email:    cfg.Auth.AdminEmail,
		Password: cfg.Auth.AdminPassword,
		Name:     cfg.Auth.AdminName,
		TokenTTL: cfg.Auth.TokenTTL,
	}, auth.WithLogger(logger))
	if err != nil {
		return err
	}

	api, err := httpapi.New(httpapi.Options{
		Service:        svc,
		Auth:           accounts,
		Uploads:        uploads,
		Archiver:       archiver,
		Limiter:        auth.NewLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst),
		Logger:         logger,
		Metrics:        metrics,
		EventBuffer:    cfg.Store.ChangeBuffer,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	listen := cfg.Server.Addr()
	if *addr != "" {
		listen = *addr
	}
	srv := &http.Server{
		Addr:              listen,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", listen, "storage", cfg.Storage.Driver, "blob", string(blobs.Driver()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
