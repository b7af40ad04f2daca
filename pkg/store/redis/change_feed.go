package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"floorsync/internal/model"
	"floorsync/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// DefaultChangeChannel channel carrying session change events
const DefaultChangeChannel = "floorsync:sessions:changes"

// ChangeFeed announces session writes to every server replica over pub/sub
type ChangeFeed struct {
	redis   *redis.Client
	channel string
}

// NewChangeFeed creates a feed on channel
func NewChangeFeed(redisClient *RedisClient, channel string) *ChangeFeed {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &ChangeFeed{redis: redisClient.GetClient(), channel: channel}
}

// Channel returns the pub/sub channel name
func (f *ChangeFeed) Channel() string {
	return f.channel
}

// Publish announces one change
func (f *ChangeFeed) Publish(ctx context.Context, event model.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := f.redis.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscribe delivers change events to handle until ctx is done. Malformed payloads are logged
// and skipped. The subscription is confirmed before Subscribe returns.
func (f *ChangeFeed) Subscribe(ctx context.Context, handle func(model.ChangeEvent)) error {
	sub := f.redis.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event model.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.WarnCtx(ctx, "skipping malformed change event on %s: %v", f.channel, err)
					continue
				}
				handle(event)
			}
		}
	}()
	return nil
}
