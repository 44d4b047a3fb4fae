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

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	adapter_http "github.com/aradsms/client_directory/internal/client_service/adapters/http"
	"github.com/aradsms/client_directory/internal/client_service/app"
	"github.com/aradsms/client_directory/internal/client_service/repository/postgres"
	"github.com/aradsms/client_directory/internal/platform/config"
	"github.com/aradsms/client_directory/internal/platform/database"
	"github.com/aradsms/client_directory/internal/platform/logger"
	"github.com/aradsms/client_directory/internal/platform/messagebroker"
)

const serviceName = "client-service"

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
	appLogger.Info("Client service starting...")
	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"http_port", cfg.HTTPPort,
		"nats_configured", cfg.NATSUrl != "",
		"ensure_schema", cfg.EnsureSchema,
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN, database.PoolConfig{
		MaxConns: cfg.PostgresMaxConns,
		MinConns: cfg.PostgresMinConns,
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if cfg.EnsureSchema {
		schema := postgres.NewPgSchemaManager(dbPool, appLogger)
		if err := schema.EnsureTables(mainCtx); err != nil {
			appLogger.Error("Failed to ensure client tables", "error", err)
			os.Exit(1)
		}
	}

	// NATS is optional; without it change events are not published.
	var publisher app.EventPublisher
	if cfg.NATSUrl != "" {
		natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
		if err != nil {
			appLogger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = natsClient
		appLogger.Info("NATS client connected", "url", cfg.NATSUrl)
	} else {
		appLogger.Warn("NATS URL not configured (APP_NATS_URL), client change events are disabled")
	}

	clientRepo := postgres.NewPgClientRepository(dbPool, appLogger)
	clientApp := app.NewApplication(clientRepo, publisher, appLogger)
	handler := adapter_http.NewClientHandler(clientApp, appLogger, validator.New())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           adapter_http.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed", "error", err)
			return err
		}
		return nil
	})

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)

	g.Go(func() error {
		select {
		case sig := <-stopSignal:
			appLogger.Info("Received termination signal", "signal", sig.String())
		case <-groupCtx.Done():
			appLogger.Info("Group context done, initiating shutdown", "error", groupCtx.Err())
		}
		mainCancel()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server shutdown failed", "error", err)
			return err
		}
		appLogger.Info("HTTP server stopped")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Service group encountered an error during run", "error", err)
	}
	appLogger.Info("Client service shut down successfully.")
}
