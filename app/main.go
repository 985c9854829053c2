package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomokif/linkvault/app/ai"
	"github.com/tomokif/linkvault/app/api"
	"github.com/tomokif/linkvault/app/cache"
	"github.com/tomokif/linkvault/app/cfg"
	"github.com/tomokif/linkvault/app/database"
	"github.com/tomokif/linkvault/app/feed"
	"github.com/tomokif/linkvault/app/guard"
	"github.com/tomokif/linkvault/app/limiter"
	"github.com/tomokif/linkvault/app/metadata"
	feedsync "github.com/tomokif/linkvault/app/sync"
	"github.com/tomokif/linkvault/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting LinkVault server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	bookmarkRepo := database.NewBookmarkRepository(db)

	hostValidator := guard.NewHostValidator()

	scrapeLimiter := limiter.NewSlidingWindow(appCfg.ScrapeRateLimit,
		time.Duration(appCfg.ScrapeRateWindow)*time.Second)
	metadataCache := cache.New[*metadata.Metadata](appCfg.CacheSize,
		time.Duration(appCfg.CacheTTL)*time.Second)
	extractor := metadata.NewExtractor(hostValidator, scrapeLimiter, metadataCache, appCfg.UserAgent)

	feedParser := feed.NewParser(hostValidator, appCfg.FeedUserAgent)
	engine := feedsync.NewEngine(feedParser, feedRepo, bookmarkRepo,
		appCfg.SyncBatchSize, appCfg.MaxFeedErrors)

	var aiService api.AIServiceInterface
	if appCfg.AnthropicAPIKey != "" {
		aiLimits, err := limiter.LoadActionLimits(appCfg.AILimitsFile)
		if err != nil {
			log.Fatalf("Failed to load AI rate limits: %v", err)
		}
		aiLimiter := limiter.NewActionLimiter(aiLimits, 24*time.Hour)
		completer := ai.NewAnthropicClient(appCfg.AnthropicAPIKey, appCfg.AnthropicModel)
		aiService = ai.NewService(completer, aiLimiter, bookmarkRepo, hostValidator, appCfg.UserAgent)
		slog.Info("AI endpoints enabled", "model", appCfg.AnthropicModel)
	} else {
		slog.Info("AI endpoints disabled (ANTHROPIC_API_KEY not set)")
	}

	scheduler := tasks.NewScheduler(engine, time.Duration(appCfg.SyncInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(feedRepo, extractor, feedParser, engine, aiService)
	server := api.NewServer(apiHandler, appCfg.CronSecret)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
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

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
