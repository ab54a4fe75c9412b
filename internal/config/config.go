// Package config holds the engine configuration.
package config

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/goboard/hotrank/internal/stats"
	"github.com/goboard/hotrank/pkg/serialization"
)

// Weights are the signed score deltas applied per domain event type.
type Weights struct {
	CommentAdded    float64
	CommentRemoved  float64
	ReactionAdded   float64
	ReactionRemoved float64
	Viewed          float64
}

// ResilienceConfig bounds primary-store operations.
type ResilienceConfig struct {
	Breaker     gobreaker.Settings
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	RetryJitter float64
	// OpTimeout caps a single primary-store operation including retries.
	// A timeout is the same failure class as an I/O error.
	OpTimeout time.Duration
}

// BloomConfig sizes the detail-key bloom filter.
type BloomConfig struct {
	ExpectedItems     uint
	FalsePositiveRate float64
	RedisKey          string
}

// Config is the full engine configuration.
type Config struct {
	Logger *zap.Logger
	Stats  stats.Collector
	Codec  serialization.Codec

	// SampleRate is the probability that a cache read is counted.
	SampleRate float64
	// HotKeyThreshold is the sampled-count bar above which a key is treated
	// as hot. Sampled counts approximate true traffic times SampleRate.
	HotKeyThreshold   uint64
	RefreshInterval   time.Duration
	ReconcileInterval time.Duration

	EventQueueSize     int
	FallbackShardCount int

	WeeklyTTL  time.Duration
	LegendTTL  time.Duration
	SummaryTTL time.Duration
	DetailTTL  time.Duration

	EnableLocalDetailCache bool
	MaxLocalBytes          int64

	Weights    Weights
	Resilience ResilienceConfig
	Bloom      BloomConfig
}

// Option mutates a Config during construction.
type Option func(*Config) error

var (
	ErrInvalidSampleRate = errors.New("sample rate must be in (0, 1]")
	ErrNilLogger         = errors.New("logger must not be nil")
)

// New creates a Config with production defaults, then applies options.
func New(options ...Option) (*Config, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Logger: logger,
		Stats:  stats.Noop{},
		Codec:  serialization.JSON{},

		SampleRate:        0.10,
		HotKeyThreshold:   100,
		RefreshInterval:   time.Minute,
		ReconcileInterval: 30 * time.Second,

		EventQueueSize:     4096,
		FallbackShardCount: 32,

		WeeklyTTL:  24 * time.Hour,
		LegendTTL:  24 * time.Hour,
		SummaryTTL: 5 * time.Minute,
		DetailTTL:  10 * time.Minute,

		EnableLocalDetailCache: true,
		MaxLocalBytes:          64 * 1024 * 1024,

		Weights: Weights{
			CommentAdded:    3.0,
			CommentRemoved:  -3.0,
			ReactionAdded:   2.0,
			ReactionRemoved: -2.0,
			Viewed:          0.1,
		},
		Resilience: ResilienceConfig{
			Breaker: gobreaker.Settings{
				Name:        "hotrank-primary",
				MaxRequests: 3,
				Interval:    60 * time.Second,
				Timeout:     30 * time.Second,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures > 5
				},
			},
			MaxRetries:  3,
			BaseDelay:   50 * time.Millisecond,
			MaxDelay:    500 * time.Millisecond,
			RetryJitter: 0.2,
			OpTimeout:   2 * time.Second,
		},
		Bloom: BloomConfig{
			ExpectedItems:     100_000,
			FalsePositiveRate: 0.01,
			RedisKey:          "bloom:detail",
		},
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.SampleRate <= 0 || cfg.SampleRate > 1 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.Logger == nil {
		return nil, ErrNilLogger
	}
	return cfg, nil
}

// WithLogger sets a custom logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.Logger = logger
		}
		return nil
	}
}

// WithStats sets the metrics collector.
func WithStats(collector stats.Collector) Option {
	return func(c *Config) error {
		if collector != nil {
			c.Stats = collector
		}
		return nil
	}
}

// WithSampleRate sets the read-sampling probability.
func WithSampleRate(rate float64) Option {
	return func(c *Config) error {
		if rate <= 0 || rate > 1 {
			return ErrInvalidSampleRate
		}
		c.SampleRate = rate
		return nil
	}
}

// WithWeights overrides the per-event score weights.
func WithWeights(w Weights) Option {
	return func(c *Config) error {
		c.Weights = w
		return nil
	}
}

// WithHotKeyThreshold sets the sampled-count bar for TTL refresh.
func WithHotKeyThreshold(threshold uint64) Option {
	return func(c *Config) error {
		c.HotKeyThreshold = threshold
		return nil
	}
}

// WithLocalDetailCache toggles the in-process detail cache.
func WithLocalDetailCache(enabled bool) Option {
	return func(c *Config) error {
		c.EnableLocalDetailCache = enabled
		return nil
	}
}

// WithCodec sets the payload codec by name.
func WithCodec(name string) Option {
	return func(c *Config) error {
		switch name {
		case serialization.JSONType:
			c.Codec = serialization.JSON{}
		case serialization.GobType:
			c.Codec = serialization.Gob{}
		default:
			return errors.New("unsupported serialization type: " + name)
		}
		return nil
	}
}
