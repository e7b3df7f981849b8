package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opensource-finance/credivist/internal/domain"
)

const (
	keyPrefix        = "credivist:"
	defaultRedisAddr = "localhost:6379"
	redisDialTimeout = 5 * time.Second
)

// windowIncr returns the new count for KEYS[1], arming a PEXPIRE of
// ARGV[1] milliseconds when the window opens.
var windowIncr = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RedisCache shares assessments and enquiry counters across instances.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache dials addr and fails unless the server answers PING.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = defaultRedisAddr
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return &RedisCache{rdb: rdb}, nil
}

// NewRedisCacheFromClient wraps an existing client without pinging it.
func NewRedisCacheFromClient(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func redisKey(tenantID, key string) (string, error) {
	k, err := scopedKey(tenantID, key)
	if err != nil {
		return "", err
	}
	return keyPrefix + k, nil
}

func (c *RedisCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	k, err := redisKey(tenantID, key)
	if err != nil {
		return nil, err
	}
	val, err := c.rdb.Get(ctx, k).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	k, err := redisKey(tenantID, key)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, k, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, tenantID string, key string) error {
	k, err := redisKey(tenantID, key)
	if err != nil {
		return err
	}
	return c.rdb.Del(ctx, k).Err()
}

func (c *RedisCache) GetAssessment(ctx context.Context, tenantID string, id string) (*domain.Assessment, error) {
	return loadAssessment(ctx, c, tenantID, id)
}

func (c *RedisCache) SetAssessment(ctx context.Context, tenantID string, a *domain.Assessment, ttl time.Duration) error {
	return storeAssessment(ctx, c, tenantID, a, ttl)
}

// IncrementCounter runs windowIncr so the count and its expiry are set
// atomically.
func (c *RedisCache) IncrementCounter(ctx context.Context, tenantID string, key string, span time.Duration) (int64, error) {
	k, err := redisKey(tenantID, counterPrefix+key)
	if err != nil {
		return 0, err
	}
	return windowIncr.Run(ctx, c.rdb, []string{k}, span.Milliseconds()).Int64()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
