package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) attribute.Value {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestStartToolSpan(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := StartToolSpan(context.Background(), "calendar_find_free_slots",
		attribute.String(SpanAttrAccount, "work"))
	assert.NotEmpty(t, GetTraceID(ctx))
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "tool.calendar_find_free_slots", ended[0].Name())
	assert.Equal(t, trace.SpanKindServer, ended[0].SpanKind())
	assert.Equal(t, "calendar_find_free_slots", spanAttr(ended[0], SpanAttrTool).AsString())
	assert.Equal(t, "work", spanAttr(ended[0], SpanAttrAccount).AsString())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
}

func TestStartSourceSpan_Error(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSourceSpan(context.Background(), "ics", OperationListEvents)
	SetSpanError(span, errors.New("feed unavailable"))
	SetSpanError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "calendar.ics.list_events", ended[0].Name())
	assert.Equal(t, trace.SpanKindClient, ended[0].SpanKind())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "feed unavailable", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}

func TestStartSearchSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSearchSpan(context.Background(), attribute.Int(SpanAttrDuration, 30))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "availability.find_slots", ended[0].Name())
	assert.Equal(t, int64(30), spanAttr(ended[0], SpanAttrDuration).AsInt64())
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}
