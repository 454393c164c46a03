// Package cache holds the Redis-backed cache of available-lot counts.
package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counts stores integers under a key prefix.  Redis errors are logged
// and treated as misses so a flaky cache never fails a read.
type Counts struct {
	rdb    *redis.Client
	prefix string
}

func NewCounts(rdb *redis.Client, prefix string) *Counts {
	return &Counts{rdb: rdb, prefix: prefix}
}

func (c *Counts) GetCount(ctx context.Context, key string) (int, bool) {
	n, err := c.rdb.Get(ctx, c.prefix+":"+key).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("availability-cache: get %s: %v", key, err)
		}
		return 0, false
	}
	return n, true
}

func (c *Counts) SetCount(ctx context.Context, key string, n int, ttl time.Duration) {
	if err := c.rdb.Set(ctx, c.prefix+":"+key, n, ttl).Err(); err != nil {
		log.Printf("availability-cache: set %s: %v", key, err)
	}
}
