package utils

import (
	"context"
	"log"
	"time"

	"verial/config"

	"github.com/go-redis/redis/v8"
)

// CacheClient is the generic cache client. The webhook handler uses it as an
// advisory fast-path dedupe on event ids; correctness never depends on it.
var CacheClient *redis.Client

// InitCache initializes the generic Redis cache client.
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := CacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

const eventDedupeTTL = 24 * time.Hour

// EventDedupeCache remembers payment events whose reconciliation completed,
// so duplicate deliveries can be acknowledged without re-running the
// reconciler. Entries are written only after a successful apply; any cache
// failure reads as "not seen" and the reconciler runs again, which is safe
// because applying is idempotent.
type EventDedupeCache struct {
	Client *redis.Client
}

func NewEventDedupeCache(client *redis.Client) *EventDedupeCache {
	return &EventDedupeCache{Client: client}
}

func (c *EventDedupeCache) SeenApplied(ctx context.Context, eventID string) bool {
	n, err := c.Client.Exists(ctx, "payevent:"+eventID).Result()
	return err == nil && n > 0
}

func (c *EventDedupeCache) MarkApplied(ctx context.Context, eventID string) {
	c.Client.Set(ctx, "payevent:"+eventID, 1, eventDedupeTTL)
}
