package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/Gio21sr/oberfit/internal/config"
	"github.com/Gio21sr/oberfit/internal/db"
	"github.com/Gio21sr/oberfit/internal/logger"
	"github.com/Gio21sr/oberfit/internal/server"
)

// @title Oberfit API
// @version 1.0
// @description Class scheduling and enrollment for the Oberfit gym.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Oberfit application", "delete_policy", string(cfg.DeletePolicy))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Connecting to database...", "driver", cfg.DatabaseDriver)
	database, err := db.Connect(ctx, cfg.DatabaseURL, db.Options{
		Driver:          cfg.DatabaseDriver,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnectAttempts: cfg.DBConnectAttempts,
		ConnectDelay:    cfg.DBConnectDelay,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	var rdb redis.UniversalClient
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, visitor limiter stays in-process", "addr", cfg.RedisAddr, "error", err)
			_ = client.Close()
		} else {
			rdb = client
			defer client.Close()
			logger.Info("Redis connected", "addr", cfg.RedisAddr)
		}
	}

	srv := server.New(database, cfg, rdb)

	if err := srv.EnsureAdmin(ctx); err != nil {
		logger.Fatalf("Failed to bootstrap admin: %v", err)
	}

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
