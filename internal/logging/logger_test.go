package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"Story-Atlas/server/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("json debug", func(t *testing.T) {
		logger, err := New(config.LoggingConfig{Level: "debug", Format: "json"})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("console warn", func(t *testing.T) {
		logger, err := New(config.LoggingConfig{Level: "warn", Format: "console"})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := New(config.LoggingConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := New(config.LoggingConfig{Level: "info", Format: "xml"})
		assert.Error(t, err)
	})
}
