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

	httpServer "github.com/dtroode/pastry-storefront/internal/api/http/server"
	"github.com/dtroode/pastry-storefront/internal/config"
	"github.com/dtroode/pastry-storefront/internal/devapi"
	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/server"
	"github.com/dtroode/pastry-storefront/internal/token"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	catalog := devapi.NewCatalog()
	if err := devapi.Seed(catalog); err != nil {
		logger.Fatal("failed to seed catalog", "error", err)
	}
	tokenManager := token.NewJWT(cfg.DevAPI.JWTSecret, cfg.DevAPI.TokenTTL)

	api := devapi.NewServer(catalog, tokenManager, logger)
	srv := httpServer.NewHTTPServer(api.Router(), fmt.Sprintf(":%s", cfg.DevAPI.Port))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting dev storefront API on", "address", srv.Address())
		if err := srv.Start(server.NewPlainListener()); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}
	wg.Wait()
}
