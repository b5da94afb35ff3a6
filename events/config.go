// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"fmt"

	"pollcore/cliparse"
)

// NewFromConfig builds the publisher the configuration selects. The none
// publisher is a valid production choice for single-node deployments.
func NewFromConfig(ctx context.Context, cfg cliparse.Config) (Publisher, error) {
	switch cfg.Publisher {
	case cliparse.PublisherNone, "":
		return Nop{}, nil
	case cliparse.PublisherRedis:
		return NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisPassword)
	case cliparse.PublisherKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown publisher %q", cfg.Publisher)
	}
}
