package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davidbz/venicedesk/internal/observability"
)

func TestEventBus_Publish(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	bus := observability.NewEventBus(zap.New(core))

	ctx := observability.WithRequestID(context.Background(), "req-1")
	bus.Publish(ctx, "model.deprecation", map[string]interface{}{"model_id": "old-model"})

	entries := logs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	require.Equal(t, "model.deprecation", fields["event"])
	require.Equal(t, "old-model", fields["model_id"])
	require.Equal(t, "req-1", fields["request_id"])
}

func TestEventBus_NilIsNoop(t *testing.T) {
	var bus *observability.EventBus

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), "ratelimit.low", nil)
	})
}

func TestFromContext_EnrichesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	observability.SetLogger(zap.New(core))
	t.Cleanup(func() { observability.SetLogger(nil) })

	ctx := context.Background()
	ctx = observability.WithTraceID(ctx, "trace-1")
	ctx = observability.WithRequestID(ctx, "req-1")
	ctx = observability.WithOperation(ctx, "chat")
	ctx = observability.WithModel(ctx, "llama-3.3-70b")

	observability.FromContext(ctx).Info("hello")

	fields := logs.All()[0].ContextMap()
	require.Equal(t, "trace-1", fields["trace_id"])
	require.Equal(t, "req-1", fields["request_id"])
	require.Equal(t, "chat", fields["operation"])
	require.Equal(t, "llama-3.3-70b", fields["model"])
	require.NotContains(t, fields, "span_id")
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { observability.SetLogger(nil) })

	logger, err := observability.InitLogger(&observability.LogConfig{Level: "debug"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = observability.InitLogger(&observability.LogConfig{Level: "loud"})
	require.Error(t, err)
}

func TestGenerateIDs(t *testing.T) {
	require.Len(t, observability.GenerateTraceID(), 32)
	require.Len(t, observability.GenerateSpanID(), 16)
	require.NotEqual(t, observability.GenerateRequestID(), observability.GenerateRequestID())
}
