package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// duration parses YAML scalars like "5m" or "24h".
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

// fileConfig is the YAML-facing subset of Config. Zero values mean
// "keep the default".
type fileConfig struct {
	SampleRate        float64  `yaml:"sample_rate"`
	HotKeyThreshold   uint64   `yaml:"hot_key_threshold"`
	RefreshInterval   duration `yaml:"refresh_interval"`
	ReconcileInterval duration `yaml:"reconcile_interval"`

	EventQueueSize     int `yaml:"event_queue_size"`
	FallbackShardCount int `yaml:"fallback_shard_count"`

	WeeklyTTL  duration `yaml:"weekly_ttl"`
	LegendTTL  duration `yaml:"legend_ttl"`
	SummaryTTL duration `yaml:"summary_ttl"`
	DetailTTL  duration `yaml:"detail_ttl"`

	Serialization string `yaml:"serialization"`

	Weights struct {
		CommentAdded    *float64 `yaml:"comment_added"`
		CommentRemoved  *float64 `yaml:"comment_removed"`
		ReactionAdded   *float64 `yaml:"reaction_added"`
		ReactionRemoved *float64 `yaml:"reaction_removed"`
		Viewed          *float64 `yaml:"viewed"`
	} `yaml:"weights"`
}

// FromFile returns an Option that overlays settings from a YAML file.
func FromFile(path string) Option {
	return func(c *Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}

		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}

		if fc.SampleRate != 0 {
			c.SampleRate = fc.SampleRate
		}
		if fc.HotKeyThreshold != 0 {
			c.HotKeyThreshold = fc.HotKeyThreshold
		}
		if fc.RefreshInterval != 0 {
			c.RefreshInterval = time.Duration(fc.RefreshInterval)
		}
		if fc.ReconcileInterval != 0 {
			c.ReconcileInterval = time.Duration(fc.ReconcileInterval)
		}
		if fc.EventQueueSize != 0 {
			c.EventQueueSize = fc.EventQueueSize
		}
		if fc.FallbackShardCount != 0 {
			c.FallbackShardCount = fc.FallbackShardCount
		}
		if fc.WeeklyTTL != 0 {
			c.WeeklyTTL = time.Duration(fc.WeeklyTTL)
		}
		if fc.LegendTTL != 0 {
			c.LegendTTL = time.Duration(fc.LegendTTL)
		}
		if fc.SummaryTTL != 0 {
			c.SummaryTTL = time.Duration(fc.SummaryTTL)
		}
		if fc.DetailTTL != 0 {
			c.DetailTTL = time.Duration(fc.DetailTTL)
		}
		if fc.Serialization != "" {
			if err := WithCodec(fc.Serialization)(c); err != nil {
				return err
			}
		}

		if w := fc.Weights.CommentAdded; w != nil {
			c.Weights.CommentAdded = *w
		}
		if w := fc.Weights.CommentRemoved; w != nil {
			c.Weights.CommentRemoved = *w
		}
		if w := fc.Weights.ReactionAdded; w != nil {
			c.Weights.ReactionAdded = *w
		}
		if w := fc.Weights.ReactionRemoved; w != nil {
			c.Weights.ReactionRemoved = *w
		}
		if w := fc.Weights.Viewed; w != nil {
			c.Weights.Viewed = *w
		}
		return nil
	}
}
