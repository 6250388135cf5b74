package trace

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledSpansAreNoops(t *testing.T) {
	require.NoError(t, Init(Options{Enabled: false}))

	ctx, span := StartSpan(context.Background(), "fetch", "AAPL")
	defer span.End()

	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
}

func TestStdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, ServiceName: "pricewatch-test", Writer: &buf}))

	ctx, span := StartSpan(context.Background(), "evaluate", "AAPL")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
	End(span, errors.New("boom"))

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "evaluate"`)
	assert.Contains(t, buf.String(), "boom")
}
