package store

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/goboard/hotrank/internal/config"
)

// detailFilter tracks which detail keys have been written, so a negative
// test skips the primary-store round trip for a definite miss. The filter is
// persisted to the primary store and reloaded at startup; until it has been
// seeded (loaded, or fed at least one write) every test passes through, since
// an empty filter knows nothing about keys written by earlier processes.
type detailFilter struct {
	mu       sync.RWMutex
	filter   *bloom.BloomFilter
	cfg      config.BloomConfig
	seeded   atomic.Bool
	saveBusy atomic.Bool
}

func newDetailFilter(cfg config.BloomConfig) *detailFilter {
	return &detailFilter{
		filter: bloom.NewWithEstimates(cfg.ExpectedItems, cfg.FalsePositiveRate),
		cfg:    cfg,
	}
}

func (f *detailFilter) add(key string) {
	f.mu.Lock()
	f.filter.Add([]byte(key))
	f.mu.Unlock()
	f.seeded.Store(true)
}

func (f *detailFilter) test(key string) bool {
	if !f.seeded.Load() {
		return true
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.Test([]byte(key))
}

// load restores the persisted filter from the primary store. Best effort:
// on any failure the filter stays unseeded and passes everything through.
func (f *detailFilter) load(ctx context.Context, s *Store) {
	var data []byte
	err := s.do(ctx, "bloom_load", func(ctx context.Context) error {
		var err error
		data, err = s.client.Get(ctx, f.cfg.RedisKey).Bytes()
		if errors.Is(err, redis.Nil) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil {
		s.logger.Warn("Failed to load detail bloom filter, starting pass-through", zap.Error(err))
		return
	}
	if data == nil {
		return
	}

	filter := bloom.NewWithEstimates(f.cfg.ExpectedItems, f.cfg.FalsePositiveRate)
	if _, err := filter.ReadFrom(bytes.NewReader(data)); err != nil {
		s.logger.Warn("Failed to decode detail bloom filter, starting pass-through", zap.Error(err))
		return
	}

	f.mu.Lock()
	f.filter = filter
	f.mu.Unlock()
	f.seeded.Store(true)
}

// save persists the filter to the primary store. Concurrent saves collapse
// into one; failures are logged, the filter is rebuilt on the next write.
func (f *detailFilter) save(ctx context.Context, s *Store) {
	if !f.saveBusy.CompareAndSwap(false, true) {
		return
	}
	defer f.saveBusy.Store(false)

	f.mu.RLock()
	var buf bytes.Buffer
	_, err := f.filter.WriteTo(&buf)
	f.mu.RUnlock()
	if err != nil {
		s.logger.Error("Failed to serialize detail bloom filter", zap.Error(err))
		return
	}

	if err := s.do(ctx, "bloom_save", func(ctx context.Context) error {
		return s.client.Set(ctx, f.cfg.RedisKey, buf.Bytes(), 0).Err()
	}); err != nil {
		s.logger.Warn("Failed to persist detail bloom filter", zap.Error(err))
	}
}
