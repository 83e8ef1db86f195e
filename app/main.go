package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/request-hub/app/adaptor"
	"github.com/lysyi3m/request-hub/app/api"
	"github.com/lysyi3m/request-hub/app/cfg"
	"github.com/lysyi3m/request-hub/app/database"
	"github.com/lysyi3m/request-hub/app/feed"
	"github.com/lysyi3m/request-hub/app/harvest"
	"github.com/lysyi3m/request-hub/app/playlist"
	"github.com/lysyi3m/request-hub/app/tasks"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if config == nil {
		return
	}

	setupLogging(config.Debug)

	slog.Info("Starting Request Hub", "version", config.Version, "timezone", time.Local.String())

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", config.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", config.DBPath, "schema_version", version, "dirty", dirty)

	configCache := adaptor.NewConfigCache(config.AdaptorsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load adaptor configurations", "dir", config.AdaptorsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Adaptor configurations loaded", "count", configCache.GetConfigCount(),
		"harvestable", len(configCache.GetHarvestableConfigs()))

	requestRepo := database.NewRequestRepository(db)
	playlistRepo := database.NewPlaylistRepository(db)

	registry := adaptor.NewRegistry(database.NewAdaptorRepository(db), adaptor.NewKeyIssuer(nil))
	history := harvest.NewHistory(database.NewHarvestRepository(db))
	builder := playlist.NewBuilder(playlistRepo)

	fetcher := tasks.NewFetcher(&http.Client{Timeout: 60 * time.Second}, config.UserAgent)

	scheduler := tasks.NewScheduler(configCache, registry, requestRepo, history, builder, fetcher,
		feed.NewParser(), feed.NewFilterer(), feed.NewContentExtractor(), tasks.Options{
			WorkerCount:    config.WorkerCount,
			Interval:       time.Duration(config.SchedulerInterval) * time.Second,
			BroadcastLimit: config.BroadcastLimit,
		})
	scheduler.Start()
	defer scheduler.Stop()

	if config.BroadcastSchedule != "" {
		broadcastCron, err := tasks.NewBroadcastCron(config.BroadcastSchedule, scheduler)
		if err != nil {
			slog.Error("Invalid broadcast schedule", "schedule", config.BroadcastSchedule, "error", err)
			os.Exit(1)
		}
		broadcastCron.Start()
		defer broadcastCron.Stop()
		slog.Info("Automatic broadcasts enabled", "schedule", config.BroadcastSchedule, "limit", config.BroadcastLimit)
	}

	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(requestRepo, playlistRepo, builder, history, registry, configCache,
		feed.NewGenerator(config.PublicURL(), config.Version), scheduler)
	router := api.NewServer(handler, config.APIAccessKey, config.Version)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", config.Port, "public_url", config.PublicURL(),
			"admin_api", config.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Request Hub shutdown complete")
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
