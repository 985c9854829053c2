package cfg

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

// or mirrors cmp.Or for strings; cmp.Or requires Go 1.22+.
func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func GetVersion() string {
	return or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./linkvault.db" description:"Path to the SQLite database file"`

	// Application configuration
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SyncInterval  int    `long:"sync-interval" env:"SYNC_INTERVAL" default:"1800" description:"Feed sync interval in seconds"`
	SyncBatchSize int    `long:"sync-batch-size" env:"SYNC_BATCH_SIZE" default:"5" description:"Number of feeds synced concurrently per batch"`
	MaxFeedErrors int    `long:"max-feed-errors" env:"MAX_FEED_ERRORS" default:"3" description:"Consecutive sync failures before a feed is deactivated"`
	CronSecret    string `long:"cron-secret" env:"CRON_SECRET" description:"Shared secret authorizing the batch sync endpoint (optional)"`

	// Outbound fetch configuration
	UserAgent        string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for page fetches"`
	FeedUserAgent    string `long:"feed-user-agent" env:"FEED_USER_AGENT" default:"LinkVault RSS Reader/1.0" description:"User agent string for feed fetches"`
	CacheSize        int    `long:"cache-size" env:"CACHE_SIZE" default:"500" description:"Maximum number of cached metadata responses"`
	CacheTTL         int    `long:"cache-ttl" env:"CACHE_TTL" default:"3600" description:"Metadata cache TTL in seconds"`
	ScrapeRateLimit  int    `long:"scrape-rate-limit" env:"SCRAPE_RATE_LIMIT" default:"20" description:"Metadata requests admitted per client IP per window"`
	ScrapeRateWindow int    `long:"scrape-rate-window" env:"SCRAPE_RATE_WINDOW" default:"60" description:"Metadata rate limit window in seconds"`

	// AI configuration
	AnthropicAPIKey string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key; AI endpoints are disabled when empty"`
	AnthropicModel  string `long:"anthropic-model" env:"ANTHROPIC_MODEL" default:"claude-3-5-haiku-latest" description:"Model used for summaries and tag suggestions"`
	AILimitsFile    string `long:"ai-limits-file" env:"AI_LIMITS_FILE" description:"YAML file overriding per-action AI rate limits (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:           raw.DBPath,
		Port:             raw.Port,
		SyncInterval:     raw.SyncInterval,
		SyncBatchSize:    raw.SyncBatchSize,
		MaxFeedErrors:    raw.MaxFeedErrors,
		CronSecret:       raw.CronSecret,
		UserAgent:        raw.UserAgent,
		FeedUserAgent:    raw.FeedUserAgent,
		CacheSize:        raw.CacheSize,
		CacheTTL:         raw.CacheTTL,
		ScrapeRateLimit:  raw.ScrapeRateLimit,
		ScrapeRateWindow: raw.ScrapeRateWindow,
		AnthropicAPIKey:  raw.AnthropicAPIKey,
		AnthropicModel:   raw.AnthropicModel,
		AILimitsFile:     raw.AILimitsFile,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
