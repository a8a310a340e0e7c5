package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DennisWilmot/land-mapping-web/internal/config"
	"github.com/DennisWilmot/land-mapping-web/internal/database"
	"github.com/DennisWilmot/land-mapping-web/internal/dataset"
	"github.com/DennisWilmot/land-mapping-web/internal/handlers"
	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/middleware"
	"github.com/DennisWilmot/land-mapping-web/internal/repository"
	"github.com/DennisWilmot/land-mapping-web/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	startupTimeout  = 15 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting land mapping API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"storage":     cfg.Storage.Backend,
	})

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open selection store", err, map[string]interface{}{
			"backend": cfg.Storage.Backend,
		})
	}
	defer closeStore()

	// Initialize service layers
	loader := dataset.NewFileLoader(cfg.Data, log)
	parcelService, err := services.NewParcelService(loader, cfg.Classification, log)
	if err != nil {
		log.Fatal("Invalid classification configuration", err, nil)
	}

	loadCtx, cancelLoad := context.WithTimeout(ctx, startupTimeout)
	if _, err := parcelService.Reload(loadCtx); err != nil {
		// Keep serving; readiness reports 503 until an admin reload succeeds.
		log.Error("Initial dataset load failed", err, map[string]interface{}{
			"parcels": cfg.Data.ParcelsPath,
		})
	}
	cancelLoad()

	projectService := services.NewProjectService(ctx, store, log)
	selectionService := services.NewSelectionService(parcelService, projectService, log)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS))

	handlers.Register(router, handlers.Handlers{
		Health:    handlers.NewHealthHandler(parcelService, store, cfg.Server.Env),
		Parcels:   handlers.NewParcelHandler(parcelService),
		Selection: handlers.NewSelectionHandler(selectionService),
		Projects:  handlers.NewProjectHandler(projectService, selectionService),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}

// openStore builds the saved-selection repository for the configured
// backend. The returned func releases any connection it holds.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.SelectionRepository, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return repository.NewMemorySelectionRepository(), noop, nil

	case config.StorageFile:
		log.Info("Using file selection store", map[string]interface{}{
			"path": cfg.Storage.FilePath,
		})
		return repository.NewFileSelectionRepository(cfg.Storage.FilePath), noop, nil

	case config.StorageSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Storage.SQLitePath, log)
		if err != nil {
			return nil, noop, err
		}
		log.Info("SQLite selection store ready", map[string]interface{}{
			"path": cfg.Storage.SQLitePath,
		})
		return repository.NewSQLiteSelectionRepository(db), func() { _ = db.Close() }, nil

	case config.StorageRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Storage.RedisAddr)
		if err != nil {
			return nil, noop, err
		}
		log.Info("Redis selection store connected", map[string]interface{}{
			"addr": cfg.Storage.RedisAddr,
			"key":  cfg.Storage.RedisKey,
		})
		return repository.NewRedisSelectionRepository(rdb, cfg.Storage.RedisKey), func() { _ = rdb.Close() }, nil

	case config.StoragePostgres:
		db, err := database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		log.Info("Database connection established", map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"database": cfg.Database.Name,
			"pool_min": cfg.Database.PoolMin,
			"pool_max": cfg.Database.PoolMax,
		})
		repo, err := repository.NewPostgresSelectionRepository(db, log)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return repo, db.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
