package redis

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Cache struct {
	c      *rdb.Client
	prefix string
}

// New creates a Redis-backed cache.
func New(addr string, db int, password, prefix string) *Cache {
	return &Cache{
		c:      rdb.NewClient(&rdb.Options{Addr: addr, DB: db, Password: password}),
		prefix: prefix,
	}
}

// NewFromClient wraps an existing client. Used by tests and by callers
// that share a connection with the rate limiter.
func NewFromClient(c *rdb.Client, prefix string) *Cache {
	return &Cache{c: c, prefix: prefix}
}

// Client exposes the underlying connection for shared consumers.
func (r *Cache) Client() *rdb.Client { return r.c }

// Ping verifies connectivity at startup.
func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Get(k string) ([]byte, bool) {
	b, err := r.c.Get(context.Background(), r.prefix+k).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Cache) Set(k string, v []byte, ttl time.Duration) {
	_ = r.c.Set(context.Background(), r.prefix+k, v, ttl).Err()
}

func (r *Cache) Delete(k string) { _ = r.c.Del(context.Background(), r.prefix+k).Err() }
