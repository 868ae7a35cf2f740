package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/go-redis/redis/v8"
)

// Publisher is the subset of *redis.Client used for realtime pushes.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher pushes notifications to a per-user pub/sub channel.
type RedisPublisher struct {
	client Publisher
	prefix string
}

func NewRedisPublisher(client Publisher, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) Name() string { return "redis" }

// ChannelFor returns the pub/sub channel carrying userID's notifications.
func (p *RedisPublisher) ChannelFor(userID uint) string {
	return fmt.Sprintf("%s:user:%d", p.prefix, userID)
}

func (p *RedisPublisher) Notify(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.ChannelFor(n.RecipientID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	return nil
}
