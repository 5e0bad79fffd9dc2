package events

import (
	"context"
	"encoding/json"
	"fmt"

	"freight-auction/internal/core/errs"

	"github.com/redis/go-redis/v9"
)

// RedisFeedPublisher pushes events onto per-shipment Redis channels so
// connected clients see settlements as they happen.
type RedisFeedPublisher struct {
	client        *redis.Client
	channelPrefix string
}

// NewRedisFeedPublisher creates a publisher from a redis:// URL. Events for
// shipment X go to channel "<prefix>.X".
func NewRedisFeedPublisher(redisURL, channelPrefix string) (*RedisFeedPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &RedisFeedPublisher{
		client:        redis.NewClient(opts),
		channelPrefix: channelPrefix,
	}, nil
}

// Channel returns the feed channel for a shipment.
func (r *RedisFeedPublisher) Channel(shipmentID string) string {
	return r.channelPrefix + "." + shipmentID
}

// Publish sends the event to the shipment's channel.
func (r *RedisFeedPublisher) Publish(ctx context.Context, event Envelope) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errs.Downstreamf("failed to marshal event: %v", err)
	}
	if err := r.client.Publish(ctx, r.Channel(event.ShipmentID), data).Err(); err != nil {
		return errs.Downstreamf("redis publish failed: %v", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisFeedPublisher) Close() error {
	return r.client.Close()
}
