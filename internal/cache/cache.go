// Package cache holds the assessment read cache and the enquiry counters:
// an in-process LRU, Redis, or both layered as L1/L2.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/credivist/internal/domain"
)

const (
	assessmentPrefix = "assessment:"
	counterPrefix    = "counter:"
	defaultL1TTL     = 5 * time.Minute
)

// New creates a cache from configuration.
//   - memory: LRU only
//   - redis: Redis, or LRU in front of Redis when EnableTwoPhase is set
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// ErrTenantRequired is returned for any call without a tenant.
var ErrTenantRequired = errors.New("cache: tenant id is required")

func scopedKey(tenantID, key string) (string, error) {
	if tenantID == "" {
		return "", ErrTenantRequired
	}
	return tenantID + ":" + key, nil
}

type byteStore interface {
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error
}

func loadAssessment(ctx context.Context, s byteStore, tenantID, id string) (*domain.Assessment, error) {
	data, err := s.Get(ctx, tenantID, assessmentPrefix+id)
	if err != nil || data == nil {
		return nil, err
	}
	var a domain.Assessment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode cached assessment %s: %w", id, err)
	}
	return &a, nil
}

func storeAssessment(ctx context.Context, s byteStore, tenantID string, a *domain.Assessment, ttl time.Duration) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("assessment id is required")
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.Set(ctx, tenantID, assessmentPrefix+a.ID, data, ttl)
}

// TwoPhaseCache reads the local LRU first and falls back to Redis,
// refilling the LRU on a Redis hit. Writes go to both.
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache connects to Redis and puts an LRU in front of it.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}
	return newTwoPhase(NewLRUCache(cfg.LocalMaxSize), remote, cfg.LocalTTL), nil
}

func newTwoPhase(local *LRUCache, remote *RedisCache, l1TTL time.Duration) *TwoPhaseCache {
	if l1TTL <= 0 {
		l1TTL = defaultL1TTL
	}
	return &TwoPhaseCache{local: local, remote: remote, l1TTL: l1TTL}
}

// Get retrieves from L1 first, then L2.
func (c *TwoPhaseCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	val, err := c.local.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	val, err = c.remote.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		_ = c.local.Set(ctx, tenantID, key, val, c.l1TTL)
	}
	return val, nil
}

// Set writes L1 with at most the L1 TTL and L2 with the full TTL.
func (c *TwoPhaseCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl > 0 {
		l1TTL = min(ttl, l1TTL)
	}
	if err := c.local.Set(ctx, tenantID, key, value, l1TTL); err != nil {
		return err
	}
	return c.remote.Set(ctx, tenantID, key, value, ttl)
}

// Delete removes from both layers.
func (c *TwoPhaseCache) Delete(ctx context.Context, tenantID string, key string) error {
	if err := c.local.Delete(ctx, tenantID, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, tenantID, key)
}

// GetAssessment reads a cached assessment through both layers.
func (c *TwoPhaseCache) GetAssessment(ctx context.Context, tenantID string, id string) (*domain.Assessment, error) {
	return loadAssessment(ctx, c, tenantID, id)
}

// SetAssessment caches an assessment in both layers.
func (c *TwoPhaseCache) SetAssessment(ctx context.Context, tenantID string, a *domain.Assessment, ttl time.Duration) error {
	return storeAssessment(ctx, c, tenantID, a, ttl)
}

// IncrementCounter always uses Redis so counts agree across nodes.
func (c *TwoPhaseCache) IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error) {
	return c.remote.IncrementCounter(ctx, tenantID, key, window)
}

// Ping checks both layers.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both layers.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 statistics.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}
