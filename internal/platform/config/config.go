package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "github.com/potchii/data-match-system-sub000/pkg/platform/strings"
)

// Server captures process-level configuration for the registry matcher.
type Server struct {
	Addr           string
	DatabaseURL    string
	Redis          RedisConfig
	Kafka          KafkaConfig
	FuzzyThreshold float64
}

// RedisConfig holds connection tuning for the batch progress store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds broker addresses for the audit publisher. Empty Brokers
// disables Kafka and falls back to the in-memory publisher.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// DefaultFuzzyThreshold is the minimum mean name-similarity ratio the fuzzy
// match rule accepts.
const DefaultFuzzyThreshold = 0.85

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("REGISTRY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	threshold := DefaultFuzzyThreshold
	if raw := os.Getenv("REGISTRY_FUZZY_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 && v <= 1 {
			threshold = v
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = platformstrings.DedupeAndTrim(strings.Split(raw, ","))
	}
	auditTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "registry.audit"
	}

	return Server{
		Addr:        addr,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    brokers,
			AuditTopic: auditTopic,
		},
		FuzzyThreshold: threshold,
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
