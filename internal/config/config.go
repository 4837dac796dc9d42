package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP API + WebSocket fanout
	HTTPAddr string

	// Historical flat files
	GamesURL     string
	MoneylineURL string

	// Live game + team statistics provider
	ESPNBaseURL string

	// Recent-form provider
	SportsDBBaseURL string

	// Every provider call is bounded by this timeout and throttled per client.
	ProviderTimeout time.Duration
	ProviderRPS     int

	// Pre-game model cache
	CacheBackend string // "sqlite", "redis", "memory"
	CachePath    string
	RedisAddr    string
	ModelTTL     time.Duration

	ModelWeightsPath string

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr: envStr("HTTP_ADDR", ":8088"),

		GamesURL:     envStr("NFLVERSE_GAMES_URL", "https://raw.githubusercontent.com/nflverse/nfldata/master/data/games.csv"),
		MoneylineURL: envStr("NFLVERSE_MONEYLINE_URL", "https://raw.githubusercontent.com/nflverse/nfldata/master/data/moneylines.csv"),

		ESPNBaseURL:     envStr("ESPN_BASE_URL", "https://site.api.espn.com/apis/site/v2/sports/football/nfl"),
		SportsDBBaseURL: envStr("SPORTSDB_BASE_URL", "https://www.thesportsdb.com/api/v1/json/3"),

		ProviderTimeout: envDuration("PROVIDER_TIMEOUT", 11*time.Second),
		ProviderRPS:     envInt("PROVIDER_RPS", 8),

		CacheBackend: strings.ToLower(envStr("CACHE_BACKEND", "sqlite")),
		CachePath:    envStr("CACHE_PATH", "data/squares_cache.db"),
		RedisAddr:    envStr("REDIS_ADDR", "localhost:6379"),
		ModelTTL:     envDuration("MODEL_TTL", 30*time.Minute),

		ModelWeightsPath: envStr("MODEL_WEIGHTS_PATH", "internal/config/model_weights.yaml"),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("11s", "30m") or bare seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
