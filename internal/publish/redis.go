package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"hn-digest/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher announces finished digests on a pub/sub channel. Delivery
// only: nothing is stored, nothing is read back.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// PublishDigest sends the whole envelope as one JSON message.
func (p *RedisPublisher) PublishDigest(ctx context.Context, channel string, d model.Digest) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, channel, b).Err(); err != nil {
		return fmt.Errorf("publish digest to %s: %w", channel, err)
	}
	return nil
}
