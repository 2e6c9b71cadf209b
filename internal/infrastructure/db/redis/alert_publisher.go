package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/opsdesk/security-core/internal/core/domain"
)

const DefaultAlertChannel = "security:alerts"

// AlertPublisher publishes security alerts as JSON on a pub/sub channel.
type AlertPublisher struct {
	client  *redis.Client
	channel string
}

func NewAlertPublisher(client *redis.Client, channel string) *AlertPublisher {
	if channel == "" {
		channel = DefaultAlertChannel
	}
	return &AlertPublisher{client: client, channel: channel}
}

// Publish sends alert to the channel and returns the number of subscribers
// that received it.
func (p *AlertPublisher) Publish(ctx context.Context, alert domain.SecurityAlert) (int64, error) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return 0, fmt.Errorf("encode alert: %w", err)
	}
	n, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	return n, nil
}
