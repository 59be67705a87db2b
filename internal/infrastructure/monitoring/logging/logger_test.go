package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_JSONFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "info", Format: "json", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormatWithDefaults(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_InvalidOutputPath(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/econsom/app.log"}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestZapLogger_FieldsAreTyped(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Info("matrix built",
		String("stage", "matrix"),
		Int("countries", 12),
		Int64("cells", 96),
		Float64("coverage", 0.75),
		Bool("imputed", true),
		Strings("indicators", []string{"GDP", "CPI"}),
		Duration("took", 3*time.Millisecond),
		Err(errors.New("boom")),
		Any("grid", [2]int{6, 6}),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "matrix built", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "matrix", ctx["stage"])
	assert.Equal(t, int64(12), ctx["countries"])
	assert.Equal(t, 0.75, ctx["coverage"])
	assert.Equal(t, true, ctx["imputed"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	l, logs := newObservedLogger(zapcore.WarnLevel)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	assert.Equal(t, 2, logs.Len())
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Named("trainer").With(String("component", "som")).Info("step")

	entry := logs.All()[0]
	assert.Equal(t, "trainer", entry.LoggerName)
	assert.Equal(t, "som", entry.ContextMap()["component"])
}

func TestZapLogger_WithContextAddsIdentifiers(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithRunID(ctx, "run-9")
	l.WithContext(ctx).Info("analysis started")
	l.WithContext(context.Background()).Info("no ids")

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "req-1", all[0].ContextMap()["request_id"])
	assert.Equal(t, "run-9", all[0].ContextMap()["run_id"])
	assert.NotContains(t, all[1].ContextMap(), "request_id")
}

func TestContextHelpers_NilAndMissing(t *testing.T) {
	//nolint:staticcheck // nil context is tolerated deliberately
	assert.Equal(t, "", RequestIDFromContext(nil))
	assert.Equal(t, "", RunIDFromContext(context.Background()))
}

func TestErr_NilError(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("msg")
		l.Info("msg")
		l.Warn("msg")
		l.Error("msg")
		l.With(String("k", "v")).Named("x").WithContext(context.Background()).Info("msg")
	})
	assert.NoError(t, l.Sync())
}

func TestDefault_SetAndGet(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	l, _ := newObservedLogger(zapcore.InfoLevel)
	SetDefault(l)
	assert.Same(t, l, Default())

	SetDefault(nil)
	assert.Same(t, l, Default(), "nil must not replace the default logger")
}

//Personal.AI order the ending
