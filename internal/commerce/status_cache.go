package commerce

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StatusCache decorates a Client with a Redis read-through cache for order
// status lookups. Writes (order creation, invoice dispatch) pass through
// untouched; only the read path is cached.
type StatusCache struct {
	Client

	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatusCache wraps the client. A nil redis client or zero TTL disables
// caching and the decorator degrades to pass-through.
func NewStatusCache(client Client, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *StatusCache {
	return &StatusCache{Client: client, redis: redisClient, ttl: ttl, logger: logger}
}

// GetOrderStatus returns a cached status when fresh, falling back to the
// upstream client. Cache failures are logged and never fail the read.
func (c *StatusCache) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	if c.redis == nil || c.ttl <= 0 {
		return c.Client.GetOrderStatus(ctx, orderID)
	}

	key := "order_status:" + orderID
	if cached, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var status OrderStatus
		if err := json.Unmarshal(cached, &status); err == nil {
			return &status, nil
		}
	}

	status, err := c.Client.GetOrderStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(status); err == nil {
		if err := c.redis.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("order status cache write failed", zap.Error(err))
		}
	}
	return status, nil
}
