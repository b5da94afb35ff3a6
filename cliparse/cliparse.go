// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Publisher selection constants
const (
	PublisherNone  = "none"
	PublisherRedis = "redis"
	PublisherKafka = "kafka"
)

type Config struct {
	DatabaseType  string
	DatabaseURL   string
	IdentitySalt  string
	Publisher     string
	RedisAddr     string
	RedisPassword string
	KafkaBrokers  []string
	KafkaTopic    string
}

// ParseFlags validates flags, falling back to environment variables.
// A .env file in the working directory is loaded first when present.
func ParseFlags(args []string) (Config, error) {
	// Missing .env is the normal case in production
	_ = godotenv.Load()

	var cfg Config
	var kafkaBrokers string

	fs := flag.NewFlagSet("pollcore", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.Publisher, "publisher", "", "Fan-out publisher (none, redis, or kafka)")
	fs.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for fan-out publishing")
	fs.StringVar(&kafkaBrokers, "kafka", "", "Comma-separated Kafka brokers")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", "", "Kafka topic for poll events")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.IdentitySalt, "identity-salt", "", "Identity salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("DATABASE_TYPE must be sqlite or postgres")
	}

	// Secrets - MUST be provided; the salt guards IP hashes and poll
	// password digests
	if cfg.IdentitySalt == "" {
		cfg.IdentitySalt = os.Getenv("IDENTITY_SALT")
	}
	if cfg.IdentitySalt == "" {
		return Config{}, errors.New("IDENTITY_SALT required")
	}

	if cfg.Publisher == "" {
		cfg.Publisher = os.Getenv("PUBLISHER")
		if cfg.Publisher == "" {
			cfg.Publisher = PublisherNone
		}
	}

	switch cfg.Publisher {
	case PublisherNone:
	case PublisherRedis:
		if cfg.RedisAddr == "" {
			cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		}
		if cfg.RedisAddr == "" {
			return Config{}, errors.New("REDIS_ADDR required when publisher is redis")
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	case PublisherKafka:
		if kafkaBrokers == "" {
			kafkaBrokers = os.Getenv("KAFKA_BROKERS")
		}
		for _, broker := range strings.Split(kafkaBrokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
		if len(cfg.KafkaBrokers) == 0 {
			return Config{}, errors.New("KAFKA_BROKERS required when publisher is kafka")
		}
		if cfg.KafkaTopic == "" {
			cfg.KafkaTopic = os.Getenv("KAFKA_TOPIC")
		}
		if cfg.KafkaTopic == "" {
			cfg.KafkaTopic = "poll-events"
		}
	default:
		return Config{}, errors.New("publisher must be none, redis, or kafka")
	}

	return cfg, nil
}
