package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{z: zap.New(core)}, logs
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, "warn", LevelWarn.String())
}

func TestWith_AddsFields(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)

	log.With(Component("checkin")).WithRequestID("req-1").Info("checked in",
		LearnerID("l1"), Track("data"), XPAmount(5))
	log.Debug("dropped")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "checkin", fields["component"])
	assert.Equal(t, "req-1", fields[RequestIDKey])
	assert.Equal(t, "l1", fields["learner_id"])
	assert.EqualValues(t, 5, fields["xp"])
}

func TestErr_NilIsSkipped(t *testing.T) {
	log, logs := observed(zapcore.DebugLevel)
	log.Warn("a", Err(nil))
	log.Warn("b", Err(errors.New("boom")))

	all := logs.All()
	require.Len(t, all, 2)
	assert.NotContains(t, all[0].ContextMap(), "error")
	assert.Equal(t, "boom", all[1].ContextMap()["error"])
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, FromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))

	log, logs := observed(zapcore.InfoLevel)
	ctx = WithContext(ContextWithRequestID(ctx, "req-9"), log)
	FromContext(ctx).Info("hello")
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-9", RequestIDFromContext(ctx))
}

func TestNew(t *testing.T) {
	log, err := New(Options{Level: LevelWarn, Format: "console", ServiceName: "ledger-test"})
	require.NoError(t, err)
	log.Info("not shown")
	log.Sync()

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}
