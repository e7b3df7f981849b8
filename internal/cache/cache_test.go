package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/opensource-finance/credivist/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, tenantID, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, tenantID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, tenantID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, tenantID, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, tenantID, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		val, _ := cache.Get(ctx, tenantID, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		// Wait for expiration
		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, tenantID, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, tenantID, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, tenantID, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, tenantID, "d", []byte("4"), time.Minute)

		// 'b' should be evicted
		val, _ := smallCache.Get(ctx, tenantID, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		// 'a' should still be there
		val, _ = smallCache.Get(ctx, tenantID, "a")
		if val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		tenant1 := "tenant-001"
		tenant2 := "tenant-002"

		_ = cache.Set(ctx, tenant1, "shared-key", []byte("tenant1-value"), time.Minute)
		_ = cache.Set(ctx, tenant2, "shared-key", []byte("tenant2-value"), time.Minute)

		val1, _ := cache.Get(ctx, tenant1, "shared-key")
		val2, _ := cache.Get(ctx, tenant2, "shared-key")

		if string(val1) != "tenant1-value" {
			t.Errorf("expected 'tenant1-value', got '%s'", string(val1))
		}
		if string(val2) != "tenant2-value" {
			t.Errorf("expected 'tenant2-value', got '%s'", string(val2))
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		err := cache.Set(ctx, "", "key", []byte("value"), time.Minute)
		if err == nil {
			t.Error("expected error for empty tenantID")
		}

		_, err = cache.Get(ctx, "", "key")
		if err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("IncrementCounter", func(t *testing.T) {
		window := 100 * time.Millisecond

		count1, err := cache.IncrementCounter(ctx, tenantID, "enquiry:applicant-001", window)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if count1 != 1 {
			t.Errorf("expected count 1, got %d", count1)
		}

		count2, _ := cache.IncrementCounter(ctx, tenantID, "enquiry:applicant-001", window)
		if count2 != 2 {
			t.Errorf("expected count 2, got %d", count2)
		}

		// Wait for window to expire
		time.Sleep(150 * time.Millisecond)

		count3, _ := cache.IncrementCounter(ctx, tenantID, "enquiry:applicant-001", window)
		if count3 != 1 {
			t.Errorf("expected count 1 after window reset, got %d", count3)
		}
	})

	t.Run("AssessmentCache", func(t *testing.T) {
		a := &domain.Assessment{
			ID:          "asm-001",
			TenantID:    tenantID,
			ApplicantID: "applicant-001",
			Source:      domain.SourceTransaction,
			FinalScore:  712,
			Grade:       "Good",
		}

		if err := cache.SetAssessment(ctx, tenantID, a, time.Minute); err != nil {
			t.Fatalf("SetAssessment failed: %v", err)
		}

		got, err := cache.GetAssessment(ctx, tenantID, "asm-001")
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}
		if got == nil || got.FinalScore != 712 || got.Grade != "Good" {
			t.Errorf("unexpected cached assessment: %+v", got)
		}

		miss, err := cache.GetAssessment(ctx, "tenant-002", "asm-001")
		if err != nil || miss != nil {
			t.Errorf("expected miss for other tenant, got %+v, %v", miss, err)
		}

		if err := cache.SetAssessment(ctx, tenantID, &domain.Assessment{}, time.Minute); err == nil {
			t.Error("expected error for assessment without id")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, tenantID, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, tenantID, "k2", []byte("v2"), time.Minute)

		size, capacity := statsCache.Stats()
		if size != 2 {
			t.Errorf("expected size 2, got %d", size)
		}
		if capacity != 50 {
			t.Errorf("expected capacity 50, got %d", capacity)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, tenantID, "k", []byte("v"), time.Minute)

		err := testCache.Close()
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}

		// Cache should be empty after close
		val, _ := testCache.Get(ctx, tenantID, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type:         "memory",
			LocalMaxSize: 100,
		}

		cache, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		_, ok := cache.(*LRUCache)
		if !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type: "memcached",
		}

		_, err := New(cfg)
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestRedisCache(t *testing.T) {
	mr, rc := newTestRedis(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("SetAndGet", func(t *testing.T) {
		if err := rc.Set(ctx, tenantID, "k", []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if !mr.Exists("credivist:tenant-001:k") {
			t.Error("expected prefixed key in redis")
		}
		val, err := rc.Get(ctx, tenantID, "k")
		if err != nil || string(val) != "v" {
			t.Errorf("expected 'v', got %q (%v)", val, err)
		}
	})

	t.Run("Miss", func(t *testing.T) {
		val, err := rc.Get(ctx, tenantID, "missing")
		if err != nil || val != nil {
			t.Errorf("expected nil miss, got %q (%v)", val, err)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		_ = rc.Set(ctx, tenantID, "short", []byte("v"), time.Second)
		mr.FastForward(2 * time.Second)
		val, _ := rc.Get(ctx, tenantID, "short")
		if val != nil {
			t.Error("expected key to expire")
		}
	})

	t.Run("Assessment", func(t *testing.T) {
		a := &domain.Assessment{ID: "asm-9", FinalScore: 655, Grade: "Good"}
		if err := rc.SetAssessment(ctx, tenantID, a, time.Minute); err != nil {
			t.Fatalf("SetAssessment failed: %v", err)
		}
		got, err := rc.GetAssessment(ctx, tenantID, "asm-9")
		if err != nil || got == nil || got.FinalScore != 655 {
			t.Errorf("unexpected assessment %+v (%v)", got, err)
		}
	})

	t.Run("IncrementCounter", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			got, err := rc.IncrementCounter(ctx, tenantID, "enquiry:a", time.Minute)
			if err != nil {
				t.Fatalf("IncrementCounter failed: %v", err)
			}
			if got != want {
				t.Errorf("expected %d, got %d", want, got)
			}
		}
		mr.FastForward(2 * time.Minute)
		got, _ := rc.IncrementCounter(ctx, tenantID, "enquiry:a", time.Minute)
		if got != 1 {
			t.Errorf("expected window reset to 1, got %d", got)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if _, err := rc.Get(ctx, "", "k"); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})
}

func TestTwoPhaseCache(t *testing.T) {
	mr, rc := newTestRedis(t)
	c := newTwoPhase(NewLRUCache(10), rc, time.Minute)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("WritesBothLayers", func(t *testing.T) {
		if err := c.Set(ctx, tenantID, "k", []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if val, _ := c.local.Get(ctx, tenantID, "k"); string(val) != "v" {
			t.Error("expected value in L1")
		}
		if !mr.Exists("credivist:tenant-001:k") {
			t.Error("expected value in L2")
		}
	})

	t.Run("RefillsL1", func(t *testing.T) {
		_ = rc.Set(ctx, tenantID, "remote-only", []byte("r"), time.Hour)
		val, err := c.Get(ctx, tenantID, "remote-only")
		if err != nil || string(val) != "r" {
			t.Fatalf("expected 'r', got %q (%v)", val, err)
		}
		if local, _ := c.local.Get(ctx, tenantID, "remote-only"); string(local) != "r" {
			t.Error("expected L1 to be refilled from L2")
		}
	})

	t.Run("AssessmentReadThrough", func(t *testing.T) {
		_ = rc.SetAssessment(ctx, tenantID, &domain.Assessment{ID: "asm-2", FinalScore: 801}, time.Hour)
		got, err := c.GetAssessment(ctx, tenantID, "asm-2")
		if err != nil || got == nil || got.FinalScore != 801 {
			t.Errorf("unexpected assessment %+v (%v)", got, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Delete(ctx, tenantID, "k")
		if val, _ := c.Get(ctx, tenantID, "k"); val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("CountersUseRedis", func(t *testing.T) {
		n, err := c.IncrementCounter(ctx, tenantID, "enquiry:b", time.Minute)
		if err != nil || n != 1 {
			t.Fatalf("expected 1, got %d (%v)", n, err)
		}
		if !mr.Exists("credivist:tenant-001:counter:enquiry:b") {
			t.Error("expected counter in redis")
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := c.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func TestTenantRequiredEverywhere(t *testing.T) {
	ctx := context.Background()
	_, rc := newTestRedis(t)
	stores := map[string]domain.Cache{
		"lru":   NewLRUCache(10),
		"redis": rc,
	}
	for name, c := range stores {
		t.Run(name, func(t *testing.T) {
			if _, err := c.Get(ctx, "", "k"); !errors.Is(err, ErrTenantRequired) {
				t.Errorf("Get: expected ErrTenantRequired, got %v", err)
			}
			if err := c.Set(ctx, "", "k", []byte("v"), time.Minute); !errors.Is(err, ErrTenantRequired) {
				t.Errorf("Set: expected ErrTenantRequired, got %v", err)
			}
			if err := c.Delete(ctx, "", "k"); !errors.Is(err, ErrTenantRequired) {
				t.Errorf("Delete: expected ErrTenantRequired, got %v", err)
			}
			if _, err := c.IncrementCounter(ctx, "", "k", time.Minute); !errors.Is(err, ErrTenantRequired) {
				t.Errorf("IncrementCounter: expected ErrTenantRequired, got %v", err)
			}
		})
	}
}

func TestLRUUsableAfterClose(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2)
	_ = c.Set(ctx, "t", "a", []byte("1"), time.Minute)
	_ = c.Close()

	if err := c.Set(ctx, "t", "b", []byte("2"), time.Minute); err != nil {
		t.Fatalf("set after close: %v", err)
	}
	if v, _ := c.Get(ctx, "t", "b"); string(v) != "2" {
		t.Errorf("expected '2', got %q", v)
	}
	if n, _ := c.IncrementCounter(ctx, "t", "enquiry", time.Minute); n != 1 {
		t.Errorf("expected fresh counter, got %d", n)
	}
}
