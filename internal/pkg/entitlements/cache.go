package entitlements

import (
	"fmt"
	"time"

	"github.com/AshleyDunne/PayDesk/internal/pkg/cache"
)

// bulkCacheTTL bounds how stale a bulk (UI) access check may be. The
// single-item path never reads the cache, so content gating stays exact.
const bulkCacheTTL = 30 * time.Second

// AccessCache is the read-through cache used by the bulk access path.
type AccessCache interface {
	GetBool(key string) (value, ok bool)
	SetBool(key string, value bool, ttl time.Duration)
	Invalidate(keys ...string)
}

func accessCacheKey(userID, productID uint) string {
	return fmt.Sprintf("entitlements:access:%d:%d", userID, productID)
}

// redisCache backs AccessCache with the shared Redis client.
type redisCache struct{}

// NewRedisCache returns the Redis-backed access cache.
func NewRedisCache() AccessCache {
	return redisCache{}
}

func (redisCache) GetBool(key string) (bool, bool) {
	val, err := cache.Get(key)
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (redisCache) SetBool(key string, value bool, ttl time.Duration) {
	v := "0"
	if value {
		v = "1"
	}
	// Cache failures only cost a DB round trip on the next check.
	_ = cache.Set(key, v, ttl)
}

func (redisCache) Invalidate(keys ...string) {
	_ = cache.Delete(keys...)
}

// NopCache disables caching; every bulk check goes to the database.
type NopCache struct{}

func (NopCache) GetBool(string) (bool, bool)         { return false, false }
func (NopCache) SetBool(string, bool, time.Duration) {}
func (NopCache) Invalidate(...string)                {}
