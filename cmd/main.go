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
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/denysvitali/immich-go-backend/internal/access"
	"github.com/denysvitali/immich-go-backend/internal/assets"
	"github.com/denysvitali/immich-go-backend/internal/auth"
	"github.com/denysvitali/immich-go-backend/internal/config"
	"github.com/denysvitali/immich-go-backend/internal/db"
	"github.com/denysvitali/immich-go-backend/internal/jobs"
	"github.com/denysvitali/immich-go-backend/internal/middleware"
	"github.com/denysvitali/immich-go-backend/internal/sessions"
	"github.com/denysvitali/immich-go-backend/internal/storage"
	syncsvc "github.com/denysvitali/immich-go-backend/internal/sync"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
	"github.com/denysvitali/immich-go-backend/internal/timeline"
	"github.com/denysvitali/immich-go-backend/internal/trash"
	"github.com/denysvitali/immich-go-backend/internal/view"
)

// Build-time version metadata, set via -ldflags.
var (
	Version      = "dev"
	SourceCommit = "unknown"
	SourceRef    = "unknown"
)

var (
	cfgFile string
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "immich-go-backend",
	Short: "Immich Go Backend Server",
	Long:  `A Go implementation of the Immich backend server providing photo and video management capabilities.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Immich backend server",
	Long:  `Start the Immich backend server.`,
	RunE:  runServer,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Apply database migrations to set up or update the database schema.`,
	RunE:  runMigrations,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "./config.yaml"
	}

	var err error
	cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Setup logging
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	telemetryProvider, err := telemetry.NewProvider(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	database, err := db.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(ctx, database.DB()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	storageService, err := storage.NewService(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer storageService.Close()

	authService := auth.NewService(cfg.Auth, database.Queries)
	sessionService := sessions.NewService(database.Queries, logrus.StandardLogger())
	guard := access.NewGuard(database.Queries)

	assetService, err := assets.NewService(database.Queries, storageService)
	if err != nil {
		return fmt.Errorf("failed to initialize assets: %w", err)
	}
	timelineService, err := timeline.NewService(database.Queries)
	if err != nil {
		return fmt.Errorf("failed to initialize timeline: %w", err)
	}
	viewService, err := view.NewService(database.Queries)
	if err != nil {
		return fmt.Errorf("failed to initialize view: %w", err)
	}
	trashService := trash.NewService(database.Queries, storageService)
	syncService := syncsvc.NewService(database.Queries, logrus.StandardLogger())

	var jobService *jobs.Service
	if cfg.Jobs.Enabled {
		jobService, err = jobs.NewService(&jobs.Config{
			RedisAddr:   cfg.Jobs.RedisURL,
			Concurrency: cfg.Jobs.Workers,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize job queue: %w", err)
		}
		jobs.NewHandlers(assetService, storageService).RegisterAllHandlers(jobService, cfg.Features)
		if err := jobService.Start(); err != nil {
			return fmt.Errorf("failed to start job queue: %w", err)
		}
		defer jobService.Stop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORS())

	api := router.Group("/api")
	api.Use(authService.AuthMiddleware())

	assets.NewServer(assetService, trashService, timelineService, viewService, guard).RegisterRoutes(api)

	syncServer := syncsvc.NewServer(syncService)
	api.POST("/sync/stream", syncServer.Stream)
	api.GET("/sync/ack", syncServer.ListAck)
	api.POST("/sync/ack", syncServer.SetAck)
	api.DELETE("/sync/ack", syncServer.DeleteAck)
	api.POST("/sync/full-sync", syncServer.FullSync)
	api.POST("/sync/delta-sync", syncServer.DeltaSync)

	sessionServer := sessions.NewServer(sessionService)
	api.GET("/sessions", sessionServer.ListSessions)
	api.DELETE("/sessions/:id", sessionServer.DeleteSession)
	api.DELETE("/sessions", sessionServer.DeleteOtherSessions)
	api.POST("/auth/pin/unlock", sessionServer.UnlockWithPin)
	api.PUT("/auth/pin", sessionServer.SetPin)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	httpAddr := cfg.Server.Address
	httpServer := &http.Server{
		Addr:         httpAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logrus.Infof("Starting HTTP server on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("HTTP server failed")
		}
	}()

	<-sigCh
	logrus.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}
	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Failed to shutdown telemetry gracefully")
	}

	return nil
}

func runMigrations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	database, err := db.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	logrus.Info("Running database migrations...")

	if err := db.RunMigrations(ctx, database.DB()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.Info("Migrations completed successfully")

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Immich Go Backend\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Source Commit: %s\n", SourceCommit)
		fmt.Printf("Source Ref: %s\n", SourceRef)
	},
}
