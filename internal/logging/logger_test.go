package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerValidatesConfig(t *testing.T) {
	_, err := NewLogger(&Config{Level: "nope", Format: "json"})
	require.Error(t, err)

	_, err = NewLogger(&Config{Level: "info", Format: "xml"})
	require.Error(t, err)

	logger, err := NewLogger(NewDefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, logger.Underlying())
}

func TestLevelFromString(t *testing.T) {
	level, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, level)

	level, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	_, err = LevelFromString("bogus")
	require.Error(t, err)
}

func TestContextFieldsCarryBatchID(t *testing.T) {
	logger := NewTestLogger()

	ctx := WithBatchID(context.Background(), "batch-42")
	logger.Info(ctx, "run started", zap.Int("files", 3))

	entries := logger.FilterMessage("run started").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "batch-42", fields["batch_id"])
	assert.Equal(t, int64(3), fields["files"])
}

func TestContextFieldsWithoutBatchID(t *testing.T) {
	assert.Nil(t, ContextFields(context.Background()))
}

func TestTestLoggerAssertLogged(t *testing.T) {
	logger := NewTestLogger()
	logger.Warn(context.Background(), "degraded vector")
	logger.AssertLogged(t, zapcore.WarnLevel, "degraded")
}
