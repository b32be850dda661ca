package redis

import (
	"context"
	"fmt"

	"dataplug/internal/core/domain"

	"github.com/redis/go-redis/v9"
)

const (
	usageEventStreamKey = keyPrefix + "usage_events"
	usageEventMaxLen    = 100000
)

// UsageEventRepository appends audit events to a capped Redis stream.
type UsageEventRepository struct {
	client *redis.Client
}

func NewUsageEventRepository(client *redis.Client) *UsageEventRepository {
	return &UsageEventRepository{client: client}
}

func (r *UsageEventRepository) Insert(ctx context.Context, event *domain.UsageEvent) error {
	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: usageEventStreamKey,
		MaxLen: usageEventMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"stream_id":  string(event.StreamID),
			"type":       string(event.Type),
			"created_at": event.CreatedAt.UnixNano(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append usage event: %w", err)
	}
	return nil
}
