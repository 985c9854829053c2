package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	Port          string
	SyncInterval  int
	SyncBatchSize int
	MaxFeedErrors int
	CronSecret    string

	// Outbound fetch configuration
	UserAgent        string
	FeedUserAgent    string
	CacheSize        int
	CacheTTL         int
	ScrapeRateLimit  int
	ScrapeRateWindow int

	// AI configuration
	AnthropicAPIKey string
	AnthropicModel  string
	AILimitsFile    string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
