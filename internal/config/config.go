package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	OSRMBaseURL        string        `mapstructure:"OSRM_BASE_URL"`
	OSRMProfile        string        `mapstructure:"OSRM_PROFILE"`
	RoutingMode        string        `mapstructure:"ROUTING_MODE"`
	RoutingTimeout     time.Duration `mapstructure:"ROUTING_TIMEOUT"`
	RoutingMaxAttempts int           `mapstructure:"ROUTING_MAX_ATTEMPTS"`
	SegmentCacheTTL    time.Duration `mapstructure:"SEGMENT_CACHE_TTL"`
	PreviewConcurrency int           `mapstructure:"PREVIEW_CONCURRENCY"`
	SessionIdleTTL     time.Duration `mapstructure:"SESSION_IDLE_TTL"`

	SeedPath string `mapstructure:"SEED_PATH"`
}

const (
	RoutingModeOSRM  = "osrm"
	RoutingModeLocal = "local"
)

var keys = []string{
	"PORT", "DATABASE_URL", "DB_MAX_CONNS", "REDIS_ADDR", "REDIS_PASSWORD",
	"OSRM_BASE_URL", "OSRM_PROFILE", "ROUTING_MODE", "ROUTING_TIMEOUT",
	"ROUTING_MAX_ATTEMPTS", "SEGMENT_CACHE_TTL", "PREVIEW_CONCURRENCY", "SESSION_IDLE_TTL",
	"SEED_PATH",
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	v := viper.New()
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about when unmarshalling.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("OSRM_BASE_URL", "https://router.project-osrm.org")
	v.SetDefault("OSRM_PROFILE", "driving")
	v.SetDefault("ROUTING_MODE", RoutingModeOSRM)
	v.SetDefault("ROUTING_TIMEOUT", 8*time.Second)
	v.SetDefault("ROUTING_MAX_ATTEMPTS", 2)
	v.SetDefault("SEGMENT_CACHE_TTL", 24*time.Hour)
	v.SetDefault("PREVIEW_CONCURRENCY", 4)
	v.SetDefault("SESSION_IDLE_TTL", 30*time.Minute)
	v.SetDefault("SEED_PATH", "data/seeds/spots.json")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.RoutingMode {
	case RoutingModeOSRM, RoutingModeLocal:
	default:
		return fmt.Errorf("ROUTING_MODE must be %q or %q, got %q", RoutingModeOSRM, RoutingModeLocal, c.RoutingMode)
	}

	// Keep the road-snapping call bounded so a session never stays "processing".
	if c.RoutingTimeout <= 0 || c.RoutingTimeout > 30*time.Second {
		return fmt.Errorf("ROUTING_TIMEOUT must be in (0s, 30s], got %s", c.RoutingTimeout)
	}

	if c.RoutingMaxAttempts < 1 {
		return fmt.Errorf("ROUTING_MAX_ATTEMPTS must be >= 1, got %d", c.RoutingMaxAttempts)
	}

	if c.PreviewConcurrency < 1 {
		return fmt.Errorf("PREVIEW_CONCURRENCY must be >= 1, got %d", c.PreviewConcurrency)
	}

	if c.SessionIdleTTL < time.Minute {
		return fmt.Errorf("SESSION_IDLE_TTL must be >= 1m, got %s", c.SessionIdleTTL)
	}

	return nil
}
