package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/opensource-finance/credivist/internal/domain"
)

const defaultLRUSize = 10000

// LRUCache keeps at most size entries, evicting the least recently read.
// Enquiry counters live beside the entries and are never evicted by reads.
type LRUCache struct {
	mu      sync.RWMutex
	size    int
	index   map[string]*list.Element
	recency *list.List
	windows map[string]*window
}

type lruItem struct {
	key     string
	value   []byte
	expires time.Time
}

type window struct {
	hits    int64
	closeAt time.Time
}

// NewLRUCache returns an empty cache holding up to size entries.
func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		size = defaultLRUSize
	}
	c := &LRUCache{size: size}
	c.reset()
	return c
}

func (c *LRUCache) reset() {
	c.index = make(map[string]*list.Element)
	c.recency = list.New()
	c.windows = make(map[string]*window)
}

func (c *LRUCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	k, err := scopedKey(tenantID, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[k]
	if !ok {
		return nil, nil
	}
	item := el.Value.(*lruItem)
	if time.Now().After(item.expires) {
		c.drop(el)
		return nil, nil
	}
	c.recency.MoveToFront(el)
	return item.value, nil
}

func (c *LRUCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	k, err := scopedKey(tenantID, key)
	if err != nil {
		return err
	}
	expires := time.Now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[k]; ok {
		item := el.Value.(*lruItem)
		item.value, item.expires = value, expires
		c.recency.MoveToFront(el)
		return nil
	}

	c.index[k] = c.recency.PushFront(&lruItem{key: k, value: value, expires: expires})
	for c.recency.Len() > c.size {
		c.drop(c.recency.Back())
	}
	return nil
}

func (c *LRUCache) Delete(ctx context.Context, tenantID string, key string) error {
	k, err := scopedKey(tenantID, key)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[k]; ok {
		c.drop(el)
	}
	return nil
}

func (c *LRUCache) GetAssessment(ctx context.Context, tenantID string, id string) (*domain.Assessment, error) {
	return loadAssessment(ctx, c, tenantID, id)
}

func (c *LRUCache) SetAssessment(ctx context.Context, tenantID string, a *domain.Assessment, ttl time.Duration) error {
	return storeAssessment(ctx, c, tenantID, a, ttl)
}

// IncrementCounter counts hits in a fixed window opened by the first hit.
// Closed windows are swept only when the counter table is full.
func (c *LRUCache) IncrementCounter(ctx context.Context, tenantID string, key string, span time.Duration) (int64, error) {
	k, err := scopedKey(tenantID, counterPrefix+key)
	if err != nil {
		return 0, err
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.windows[k]; ok && !now.After(w.closeAt) {
		w.hits++
		return w.hits, nil
	}
	if len(c.windows) >= c.size {
		for wk, w := range c.windows {
			if now.After(w.closeAt) {
				delete(c.windows, wk)
			}
		}
	}
	c.windows[k] = &window{hits: 1, closeAt: now.Add(span)}
	return 1, nil
}

func (c *LRUCache) Ping(ctx context.Context) error { return nil }

// Close empties the cache. It stays usable afterwards.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	return nil
}

// Stats reports the entry count and the configured capacity.
func (c *LRUCache) Stats() (size int, capacity int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recency.Len(), c.size
}

// drop unlinks el. Callers hold mu.
func (c *LRUCache) drop(el *list.Element) {
	if el == nil {
		return
	}
	c.recency.Remove(el)
	delete(c.index, el.Value.(*lruItem).key)
}
