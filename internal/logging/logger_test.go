package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInfoWritesJSONWithTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, false, "info")

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	Info(ctx).Int("slot_id", 3).Msg("slot assigned")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "slot assigned", entry["message"])
	assert.Equal(t, float64(3), entry["slot_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["traceId"])
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, false, "warn")

	Debug(context.Background()).Msg("hidden")
	Info(context.Background()).Msg("hidden too")
	assert.Empty(t, buf.String())

	Warn(context.Background()).Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
