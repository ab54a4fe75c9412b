package store

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"github.com/goboard/hotrank/internal/models"
)

// localCache is a small in-process cache in front of detail reads. Its TTL is
// capped below the primary entry's TTL so a locally served detail is never
// older than what the primary store would return after its own expiry.
type localCache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func newLocalCache(maxBytes int64, detailTTL time.Duration, logger *zap.Logger) (*localCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxBytes / 1024 * 10, // 10x expected item count at ~1KB each
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	ttl := detailTTL / 10
	if ttl < time.Second {
		ttl = time.Second
	}

	return &localCache{cache: c, ttl: ttl, logger: logger}, nil
}

func (lc *localCache) get(key string) (*models.Detail, bool) {
	v, ok := lc.cache.Get(key)
	if !ok {
		return nil, false
	}
	d, ok := v.(*models.Detail)
	if !ok {
		lc.logger.Warn("Dropping local cache entry of unexpected type", zap.String("key", key))
		lc.cache.Del(key)
		return nil, false
	}
	return d, true
}

func (lc *localCache) set(key string, detail *models.Detail) {
	cost := int64(len(detail.Title) + len(detail.Body) + len(detail.Author) + 64)
	lc.cache.SetWithTTL(key, detail, cost, lc.ttl)
}

func (lc *localCache) del(key string) {
	lc.cache.Del(key)
}

func (lc *localCache) close() {
	lc.cache.Close()
}
