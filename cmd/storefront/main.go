package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dtroode/pastry-storefront/internal/api/http/router"
	httpServer "github.com/dtroode/pastry-storefront/internal/api/http/server"
	"github.com/dtroode/pastry-storefront/internal/backend"
	"github.com/dtroode/pastry-storefront/internal/broadcast"
	"github.com/dtroode/pastry-storefront/internal/config"
	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
	"github.com/dtroode/pastry-storefront/internal/repository/postgres"
	"github.com/dtroode/pastry-storefront/internal/server"
	"github.com/dtroode/pastry-storefront/internal/service"
	"github.com/dtroode/pastry-storefront/internal/storage/file"
	"github.com/dtroode/pastry-storefront/internal/storage/memory"
	storage "github.com/dtroode/pastry-storefront/internal/storage/minio"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", "backend", cfg.Storage.Backend, "error", err)
	}
	defer closeStore()
	logger.Info("storage ready", "backend", cfg.Storage.Backend, "namespace", cfg.Storage.Namespace)

	hub := broadcast.NewHub(logger)
	resolver := service.NewIdentityResolver(store, logger)
	cart := service.NewCart(store, resolver, hub, logger)
	cart.Revalidate(ctx)

	client := backend.NewClient(
		cfg.Backend.BaseURL,
		cfg.Backend.Timeout,
		cfg.Backend.ProductCacheSize,
		cfg.Backend.ProductCacheTTL,
		logger,
	)
	session := service.NewSession(client, store, resolver, cart, hub, logger)
	notifications := service.NewNotifications(client, resolver, logger)
	revalidator := service.NewRevalidator(cart, notifications, hub, logger)

	r := router.New(cart, session, client, notifications, revalidator, hub, logger)
	srv := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))
	sl := server.NewSecurityLayer(cfg.HTTP)

	var wg sync.WaitGroup
	wg.Add(2)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(srv)

	go func() {
		defer wg.Done()
		revalidator.Run(ctx, cfg.Revalidate.Interval)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// openStorage opens the key/value storage adapter selected by STORAGE_BACKEND.
func openStorage(ctx context.Context, cfg *config.Config) (model.KeyValueStore, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return memory.NewStore(), noop, nil

	case config.StorageFile:
		s, err := file.Open(cfg.Storage.FilePath)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil

	case config.StoragePostgres:
		db, err := postgres.NewConection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, noop, err
		}
		return postgres.NewKVRepository(db.DB, cfg.Storage.Namespace), func() { _ = db.Close() }, nil

	case config.StorageMinio:
		minioClient, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create minio client: %w", err)
		}
		s, err := storage.NewClient(ctx, minioClient, cfg.Minio.Bucket, cfg.Storage.Namespace)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	}

	return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
