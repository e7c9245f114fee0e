// Package logging includes tests for the zap logger helpers.
package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	require.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	require.Same(t, l, OrNop(l))
}

func TestBadgerLoggerRoutesLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	bl := NewBadgerLogger(zap.New(core))

	bl.Errorf("compaction failed: %d", 1)
	bl.Warningf("slow write")
	bl.Infof("opened table")
	bl.Debugf("gc tick")

	entries := logs.All()
	require.Len(t, entries, 4)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.Equal(t, "compaction failed: 1", entries[0].Message)
	require.Equal(t, "badger", entries[0].LoggerName)
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, zapcore.DebugLevel, entries[2].Level)
	require.Equal(t, zapcore.DebugLevel, entries[3].Level)
}
