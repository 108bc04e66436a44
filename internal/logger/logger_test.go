package logger

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/iraa22/WHEELWISE-B/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"}, "test")
	assert.Error(t, err)
}

func TestNew_Level(t *testing.T) {
	log, err := New(config.LogConfig{Level: "warn"}, "test")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestWatermillAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewWatermillAdapter(zap.New(core)).With(watermill.LogFields{"topic": "auth.state"})

	adapter.Info("subscribed", watermill.LogFields{"subscriber": 1})
	adapter.Error("publish failed", errors.New("closed"), nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "subscribed", entries[0].Message)
	assert.Equal(t, "auth.state", entries[0].ContextMap()["topic"])
	assert.Equal(t, "closed", entries[1].ContextMap()["error"])
}
