package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"merchant-sim/internal/config"
	"merchant-sim/internal/infrastructure/gateway"
	"merchant-sim/internal/infrastructure/metrics"
	"merchant-sim/internal/infrastructure/repositories"
	"merchant-sim/internal/interfaces/http/handlers"
	"merchant-sim/internal/usecases"
	"merchant-sim/pkg/logger"
	"merchant-sim/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	loadRoster = config.LoadRoster
	openDB     = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
		if cfg.Driver == "postgres" {
			return gorm.Open(postgres.New(postgres.Config{
				DSN:                  cfg.URL(),
				PreferSimpleProtocol: true,
			}), &gorm.Config{})
		}
		return gorm.Open(sqlite.Open(cfg.SqlitePath), &gorm.Config{})
	}
	newTokenStore = redis.NewTokenStore
	metricsReg    = func() prometheus.Registerer { return prometheus.DefaultRegisterer }
	runServer     = func(srv *http.Server) error { return srv.ListenAndServe() }
	notifyContext = func() (context.Context, context.CancelFunc) {
		return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := loadCfg()

	// Initialize Logger
	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to the state store
	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}

	store := repositories.NewMerchantStateRepository(db)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate state store: %w", err)
	}
	logger.Info(context.Background(), "State store ready", zap.String("driver", cfg.Database.Driver))

	// Optional shared token store
	var tokenStore usecases.SharedTokenStore
	if cfg.Redis.Enabled {
		if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		ts, err := newTokenStore(cfg.Redis.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to initialize token store: %w", err)
		}
		tokenStore = ts
		logger.Info(context.Background(), "Shared token store enabled")
	}

	// Load the merchant roster
	roster, err := loadRoster(cfg.Simulator.RosterPath)
	if err != nil {
		return err
	}
	logger.Info(context.Background(), "Roster loaded", zap.Int("merchants", len(roster)))

	// Collaborator clients and metrics sink
	authClient := gateway.NewAuthClient(cfg.Auth.URL)
	gatewayClient := gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.AppVersion)
	sink := metrics.NewSink(metricsReg())

	host := usecases.NewRuntimeHost(roster, usecases.HostDeps{
		Gateway:             gatewayClient,
		Auth:                authClient,
		Store:               store,
		Sink:                sink,
		ServiceClientID:     cfg.Auth.ServiceClientID,
		ServiceClientSecret: cfg.Auth.ServiceClientSecret,
		POSClientID:         cfg.Auth.POSClientID,
		POSClientSecret:     cfg.Auth.POSClientSecret,
		TokenStore:          tokenStore,
	})

	ctx, stop := notifyContext()
	defer stop()

	host.Start(ctx)

	// Status server feeding the external dashboard
	router := setupRouter(handlers.NewStatusHandler(sink))
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := runServer(srv); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	logger.Info(ctx, "Status server listening", zap.String("port", cfg.Server.Port))

	select {
	case err := <-serverErr:
		stop()
		host.Wait()
		return fmt.Errorf("status server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Shutdown signal received, draining runtimes")
	host.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}

	logger.Info(context.Background(), "Simulator stopped")
	return nil
}
