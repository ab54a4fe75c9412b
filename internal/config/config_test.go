package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaults(t *testing.T) {
	cfg, err := New(WithLogger(zap.NewNop()))
	require.NoError(t, err)

	require.InDelta(t, 0.10, cfg.SampleRate, 1e-9)
	require.Equal(t, uint64(100), cfg.HotKeyThreshold)
	require.Equal(t, 24*time.Hour, cfg.WeeklyTTL)
	require.Equal(t, 24*time.Hour, cfg.LegendTTL)
	require.Equal(t, 5*time.Minute, cfg.SummaryTTL)
	require.InDelta(t, 3.0, cfg.Weights.CommentAdded, 1e-9)
	require.InDelta(t, -3.0, cfg.Weights.CommentRemoved, 1e-9)
	require.NotNil(t, cfg.Stats)
	require.NotNil(t, cfg.Codec)
}

func TestInvalidSampleRate(t *testing.T) {
	_, err := New(WithSampleRate(0))
	require.ErrorIs(t, err, ErrInvalidSampleRate)

	_, err = New(WithSampleRate(1.5))
	require.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestUnsupportedCodec(t *testing.T) {
	_, err := New(WithCodec("xml"))
	require.Error(t, err)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotrank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sample_rate: 0.25
hot_key_threshold: 50
weekly_ttl: 12h
summary_ttl: 2m
serialization: gob
weights:
  comment_added: 5
  viewed: 0
`), 0o600))

	cfg, err := New(WithLogger(zap.NewNop()), FromFile(path))
	require.NoError(t, err)

	require.InDelta(t, 0.25, cfg.SampleRate, 1e-9)
	require.Equal(t, uint64(50), cfg.HotKeyThreshold)
	require.Equal(t, 12*time.Hour, cfg.WeeklyTTL)
	require.Equal(t, 2*time.Minute, cfg.SummaryTTL)
	require.InDelta(t, 5.0, cfg.Weights.CommentAdded, 1e-9)
	require.InDelta(t, 0.0, cfg.Weights.Viewed, 1e-9, "explicit zero weight must override the default")
	require.InDelta(t, -3.0, cfg.Weights.CommentRemoved, 1e-9, "unset weights keep defaults")

	// Untouched settings keep their defaults.
	require.Equal(t, 24*time.Hour, cfg.LegendTTL)
}

func TestFromFileInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotrank.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weekly_ttl: later\n"), 0o600))

	_, err := New(WithLogger(zap.NewNop()), FromFile(path))
	require.Error(t, err)
}
