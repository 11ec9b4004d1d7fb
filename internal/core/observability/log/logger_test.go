package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type point struct{}

func (p point) String() string { return "point" }

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":        LevelInfo,
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core), LevelDebug)

	logger.With(String("component", "test")).Info("shot",
		Float64("power", 3),
		Int("ticks", 2),
		Duration("interval", 50*time.Millisecond),
		Stringer("origin", point{}),
		Error(errors.New("boom")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "test", fields["component"])
	assert.Equal(t, 3.0, fields["power"])
	assert.Equal(t, int64(2), fields["ticks"])
	assert.Equal(t, "point", fields["origin"])
	assert.Equal(t, "boom", fields["error"])
}

func TestSetLevelSharedWithChildren(t *testing.T) {
	logger := NewNop()
	child := logger.With(String("k", "v"))

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, child.GetLevel())
}
