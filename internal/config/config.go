package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	FlightPlanAPIKey  string
	FlightPlanBaseURL string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	FuelBaseURL string

	// HTTPTimeout bounds a single outbound HTTP call.
	HTTPTimeout time.Duration
	// UpstreamTimeout bounds everything an inbound request does upstream,
	// including rate-limit backoff.
	UpstreamTimeout time.Duration

	// Backoff on 429 from the flight plan database.
	RateLimitMaxRetries int
	RateLimitBaseDelay  time.Duration
	RateLimitMaxDelay   time.Duration // 0 = uncapped

	WeatherConcurrency int

	// Weather cache retention.
	WeatherCacheTTL    time.Duration // 0 disables caching
	WeatherCacheMax    int           // max cached positions (0 = unlimited)
	CachePruneInterval time.Duration

	AirportsFile    string // empty = embedded table
	DefaultAircraft string
	CORSOrigins     []string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.FlightPlanAPIKey = os.Getenv("FLIGHTPLAN_API_KEY")
	cfg.FlightPlanBaseURL = os.Getenv("FLIGHTPLAN_BASE_URL")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.FuelBaseURL = os.Getenv("FUEL_BASE_URL")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getenvDuration("UPSTREAM_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	if cfg.RateLimitMaxRetries, err = getenvInt("RATE_LIMIT_MAX_RETRIES", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitMaxRetries < 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MAX_RETRIES: must not be negative")
	}
	if cfg.RateLimitBaseDelay, err = getenvDuration("RATE_LIMIT_BASE_DELAY", "1s"); err != nil {
		return nil, err
	}
	if cfg.RateLimitBaseDelay <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BASE_DELAY: must be positive")
	}
	if cfg.RateLimitMaxDelay, err = getenvDuration("RATE_LIMIT_MAX_DELAY", "0s"); err != nil {
		return nil, err
	}

	if cfg.WeatherConcurrency, err = getenvInt("WEATHER_CONCURRENCY", 8); err != nil {
		return nil, err
	}

	if cfg.WeatherCacheTTL, err = getenvDuration("WEATHER_CACHE_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.WeatherCacheMax, err = getenvInt("WEATHER_CACHE_MAX", 5000); err != nil {
		return nil, err
	}
	if cfg.CachePruneInterval, err = getenvDuration("CACHE_PRUNE_INTERVAL", "5m"); err != nil {
		return nil, err
	}

	cfg.AirportsFile = os.Getenv("AIRPORTS_FILE")
	cfg.DefaultAircraft = getenvDefault("DEFAULT_AIRCRAFT", "60006b")
	cfg.CORSOrigins = splitList(getenvDefault("CORS_ORIGINS", "http://localhost:3000"))
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
