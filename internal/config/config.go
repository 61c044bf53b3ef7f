package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
)

type Config struct {
	Addr         string
	DatabaseURL  string
	Workers      int
	PollInterval time.Duration
	Split        budget.Split
	EngineURL    string

	RapidAPIKey     string
	GeoapifyKey     string
	ProviderTimeout time.Duration
	ProviderRetries int
	ProviderRPS     float64

	KafkaBrokers []string
	KafkaTopic   string
	S3Bucket     string
	S3Prefix     string

	JWTKeysFile     string
	WriteScope      string
	AllowDebugToken bool
	DebugToken      string

	Production bool
}

const (
	defaultAddr         = ":8070"
	defaultWorkers      = 2
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 20 * time.Second
	defaultRetries      = 2
	defaultRPS          = 5
	defaultWriteScope   = "plan:write"
)

func Load() (Config, error) {
	cfg := Config{
		Addr:         getEnv("PLANNER_ADDR", defaultAddr),
		DatabaseURL:  firstNonEmpty(os.Getenv("PLANNER_DATABASE_URL"), os.Getenv("DATABASE_URL")),
		Workers:      getInt("PLANNER_WORKERS", defaultWorkers),
		PollInterval: getDuration("PLANNER_POLL_INTERVAL", defaultPollInterval),
		Split: budget.Split{
			FlightPct:   getInt("PLANNER_SPLIT_FLIGHT", budget.DefaultSplit.FlightPct),
			HotelPct:    getInt("PLANNER_SPLIT_HOTEL", budget.DefaultSplit.HotelPct),
			ActivityPct: getInt("PLANNER_SPLIT_ACTIVITY", budget.DefaultSplit.ActivityPct),
		},
		EngineURL: os.Getenv("PLANNER_ENGINE_URL"),

		RapidAPIKey:     os.Getenv("RAPIDAPI_KEY"),
		GeoapifyKey:     os.Getenv("GEOAPIFY_KEY"),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", defaultTimeout),
		ProviderRetries: getInt("PROVIDER_RETRIES", defaultRetries),
		ProviderRPS:     getFloat("PROVIDER_RPS", defaultRPS),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   os.Getenv("KAFKA_TOPIC"),
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3Prefix:     os.Getenv("S3_PREFIX"),

		JWTKeysFile:     os.Getenv("PLANNER_JWT_KEYS_FILE"),
		WriteScope:      getEnv("PLANNER_WRITE_SCOPE", defaultWriteScope),
		AllowDebugToken: getBool("PLANNER_ALLOW_DEBUG_TOKEN", false),
		DebugToken:      os.Getenv("PLANNER_DEBUG_TOKEN"),

		Production: os.Getenv("NODE_ENV") == "production",
	}
	if err := cfg.Split.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.Workers < 0 {
		return Config{}, fmt.Errorf("PLANNER_WORKERS must not be negative")
	}
	if cfg.AllowDebugToken && cfg.DebugToken == "" {
		return Config{}, fmt.Errorf("PLANNER_DEBUG_TOKEN required when PLANNER_ALLOW_DEBUG_TOKEN is set")
	}
	if cfg.Production {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL or PLANNER_DATABASE_URL required in production")
		}
		if cfg.AllowDebugToken {
			return Config{}, fmt.Errorf("PLANNER_ALLOW_DEBUG_TOKEN is forbidden in production")
		}
	}
	return cfg, nil
}

// KafkaEnabled reports whether job events go to Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
