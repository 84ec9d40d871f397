package source

import (
	"context"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// RedisReader reads every element of a Redis list.
type RedisReader struct {
	URL       string
	Key       string
	SkipBlank bool
}

// Read connects, runs LRANGE key 0 -1 and closes the connection.
func (r *RedisReader) Read(ctx context.Context) ([]string, error) {
	conn, err := redis.DialURLContext(ctx, r.URL, redis.DialConnectTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("dial redis: %w", err)
	}
	defer conn.Close()

	records, err := redis.Strings(redis.DoContext(conn, ctx, "LRANGE", r.Key, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("read list %s: %w", r.Key, err)
	}
	return clean(records, r.SkipBlank), nil
}
