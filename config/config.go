package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognized option of the scoring engine.
type Config struct {
	Port        string
	Environment string

	// Provider settings
	ProviderPriority []string      // adapter names in fallback order
	ProviderTimeout  time.Duration // per-call bound on one adapter fetch
	PrimaryBaseURL   string
	PrimaryAPIKey    string
	FallbackBaseURL  string

	// Result cache
	CacheTTL         time.Duration
	CacheNegativeTTL time.Duration // short TTL for DataUnavailable results
	CacheCapacity    int           // LRU bound
	DataVersion      string        // bumping this invalidates every cached key

	// Indicator windows
	MAShortWindow  int // short moving average, classically 5
	MAMidWindow    int // mid moving average, also the Bollinger window
	MALongWindow   int
	RSIPeriod      int
	BandK          float64 // Bollinger standard deviations
	VolumeWindow   int
	VolumeElevated float64 // ratio above which volume counts as elevated

	// Scoring weights, normalized 0..1 and summing to 1
	TrendWeight      float64
	MomentumWeight   float64
	VolatilityWeight float64
	VolumeWeight     float64
	// InsufficientHistoryPolicy is "partial" (renormalize weights over the
	// computable sub-scores) or "withhold" (no score, explicit marker).
	InsufficientHistoryPolicy string

	// Background jobs
	Watchlist          []string
	PrecomputeAt       string // daily HH:MM, after market close
	AlertSweepInterval time.Duration
	AlertFetchDelay    time.Duration // pause between watchlist symbols

	// Alerting
	TelegramToken  string
	TelegramChatID string

	// Operational history database
	HistoryDBPath string
}

var AppConfig *Config

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		ProviderPriority: getEnvList("PROVIDER_PRIORITY", []string{"krx", "naver"}),
		ProviderTimeout:  getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		PrimaryBaseURL:   getEnv("PRIMARY_BASE_URL", "https://api.krx-quotes.example.com"),
		PrimaryAPIKey:    getEnv("PRIMARY_API_KEY", ""),
		FallbackBaseURL:  getEnv("FALLBACK_BASE_URL", "https://finance.naver.com"),

		CacheTTL:         getEnvDuration("CACHE_TTL", 30*time.Minute),
		CacheNegativeTTL: getEnvDuration("CACHE_NEGATIVE_TTL", 60*time.Second),
		CacheCapacity:    getEnvInt("CACHE_CAPACITY", 512),
		DataVersion:      getEnv("DATA_VERSION", "v1"),

		MAShortWindow:  getEnvInt("MA_SHORT_WINDOW", 5),
		MAMidWindow:    getEnvInt("MA_MID_WINDOW", 20),
		MALongWindow:   getEnvInt("MA_LONG_WINDOW", 60),
		RSIPeriod:      getEnvInt("RSI_PERIOD", 14),
		BandK:          getEnvFloat("BAND_K", 2.0),
		VolumeWindow:   getEnvInt("VOLUME_WINDOW", 20),
		VolumeElevated: getEnvFloat("VOLUME_ELEVATED_RATIO", 1.5),

		TrendWeight:      getEnvFloat("TREND_WEIGHT", 0.40),
		MomentumWeight:   getEnvFloat("MOMENTUM_WEIGHT", 0.30),
		VolatilityWeight: getEnvFloat("VOLATILITY_WEIGHT", 0.20),
		VolumeWeight:     getEnvFloat("VOLUME_WEIGHT", 0.10),

		InsufficientHistoryPolicy: getEnv("INSUFFICIENT_HISTORY_POLICY", "partial"),

		Watchlist:          getEnvList("WATCHLIST", []string{"005930"}),
		PrecomputeAt:       getEnv("PRECOMPUTE_AT", "18:00"),
		AlertSweepInterval: getEnvDuration("ALERT_SWEEP_INTERVAL", time.Hour),
		AlertFetchDelay:    getEnvDuration("ALERT_FETCH_DELAY", time.Second),

		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),

		HistoryDBPath: getEnv("HISTORY_DB_PATH", "data/engine.db"),
	}

	if config.InsufficientHistoryPolicy != "partial" && config.InsufficientHistoryPolicy != "withhold" {
		log.Printf("Warning: unknown INSUFFICIENT_HISTORY_POLICY %q, using \"partial\"", config.InsufficientHistoryPolicy)
		config.InsufficientHistoryPolicy = "partial"
	}

	AppConfig = config
	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %g", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
