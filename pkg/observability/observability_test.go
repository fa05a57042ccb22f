package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniportal/assistant/pkg/config"
)

func TestInitGlobalTracerDisabled(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)

	// The noop provider still hands out usable spans.
	_, span := tp.Tracer("test").Start(context.Background(), "test_span")
	span.End()
}

func TestZeroValueMetricsAreNoop(t *testing.T) {
	var m *PrometheusMetrics

	// Must not panic with nil receiver or zero instruments.
	m.RecordPipelineRun(context.Background(), time.Second, "embedding", errors.New("boom"))
	m.RecordLLMCall(context.Background(), "gpt-4o-mini", time.Second, 10, 5, nil)
	m.RecordAgentForward(context.Background(), "library", time.Second, nil)

	zero := &PrometheusMetrics{}
	zero.RecordPipelineRun(context.Background(), time.Second, "", nil)
}

func TestGlobalMetricsDispatch(t *testing.T) {
	recorded := &recordingMetrics{}
	SetGlobalMetrics(recorded)
	defer SetGlobalMetrics(nil)

	RecordPipelineRun(context.Background(), time.Second, "search", errors.New("boom"))
	RecordLLMCall(context.Background(), "gpt-4o-mini", time.Second, 10, 5, nil)
	RecordAgentForward(context.Background(), "library", time.Second, nil)

	assert.Equal(t, 1, recorded.pipelineRuns)
	assert.Equal(t, 1, recorded.llmCalls)
	assert.Equal(t, 1, recorded.forwards)
}

type recordingMetrics struct {
	pipelineRuns int
	llmCalls     int
	forwards     int
}

func (r *recordingMetrics) RecordPipelineRun(context.Context, time.Duration, string, error) {
	r.pipelineRuns++
}

func (r *recordingMetrics) RecordLLMCall(context.Context, string, time.Duration, int, int, error) {
	r.llmCalls++
}

func (r *recordingMetrics) RecordAgentForward(context.Context, string, time.Duration, error) {
	r.forwards++
}
