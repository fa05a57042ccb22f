package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/uniportal/assistant/pkg/config"
)

var (
	globalMetrics Metrics
	metricsMu     sync.RWMutex
)

// Metrics records the portal's domain events. A nil implementation is a
// valid no-op; callers never need to nil-check.
type Metrics interface {
	RecordPipelineRun(ctx context.Context, duration time.Duration, failedStage string, err error)
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)
	RecordAgentForward(ctx context.Context, alias string, duration time.Duration, err error)
}

// InitMetrics builds the OTel meter backed by the Prometheus exporter. The
// exporter registers with the default prometheus registry, which the HTTP
// server exposes on /metrics.
func InitMetrics(ctx context.Context, cfg config.MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)
	meter := meterProvider.Meter("assistant")

	pipelineDuration, err := meter.Float64Histogram(
		"assistant_pipeline_duration_seconds",
		metric.WithDescription("Retrieval pipeline run duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline duration histogram: %w", err)
	}

	pipelineRuns, err := meter.Int64Counter(
		"assistant_pipeline_runs_total",
		metric.WithDescription("Total retrieval pipeline runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline runs counter: %w", err)
	}

	pipelineErrors, err := meter.Int64Counter(
		"assistant_pipeline_errors_total",
		metric.WithDescription("Total retrieval pipeline failures by stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline errors counter: %w", err)
	}

	llmDuration, err := meter.Float64Histogram(
		"assistant_llm_request_duration_seconds",
		metric.WithDescription("Generation request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	llmInputTokens, err := meter.Int64Counter(
		"assistant_llm_tokens_input_total",
		metric.WithDescription("Total prompt tokens sent to the generation model"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}

	llmOutputTokens, err := meter.Int64Counter(
		"assistant_llm_tokens_output_total",
		metric.WithDescription("Total completion tokens from the generation model"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}

	llmErrors, err := meter.Int64Counter(
		"assistant_llm_errors_total",
		metric.WithDescription("Total generation failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	forwardDuration, err := meter.Float64Histogram(
		"assistant_agent_forward_duration_seconds",
		metric.WithDescription("Forwarded agent ask duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward duration histogram: %w", err)
	}

	forwardCalls, err := meter.Int64Counter(
		"assistant_agent_forwards_total",
		metric.WithDescription("Total asks forwarded to agents"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward calls counter: %w", err)
	}

	forwardErrors, err := meter.Int64Counter(
		"assistant_agent_forward_errors_total",
		metric.WithDescription("Total forwarded ask failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward errors counter: %w", err)
	}

	return &PrometheusMetrics{
		pipelineDuration: pipelineDuration,
		pipelineRuns:     pipelineRuns,
		pipelineErrors:   pipelineErrors,
		llmDuration:      llmDuration,
		llmInputTokens:   llmInputTokens,
		llmOutputTokens:  llmOutputTokens,
		llmErrors:        llmErrors,
		forwardDuration:  forwardDuration,
		forwardCalls:     forwardCalls,
		forwardErrors:    forwardErrors,
	}, nil
}

// PrometheusMetrics implements Metrics on OTel instruments. The zero value
// is a no-op, used when metrics are disabled.
type PrometheusMetrics struct {
	pipelineDuration metric.Float64Histogram
	pipelineRuns     metric.Int64Counter
	pipelineErrors   metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrors       metric.Int64Counter

	forwardDuration metric.Float64Histogram
	forwardCalls    metric.Int64Counter
	forwardErrors   metric.Int64Counter
}

func (m *PrometheusMetrics) RecordPipelineRun(ctx context.Context, duration time.Duration, failedStage string, err error) {
	if m == nil || m.pipelineDuration == nil {
		return
	}

	m.pipelineDuration.Record(ctx, duration.Seconds())
	m.pipelineRuns.Add(ctx, 1)

	if err != nil {
		m.pipelineErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", failedStage),
		))
	}
}

func (m *PrometheusMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.llmDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
	}

	m.llmDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.llmInputTokens.Add(ctx, int64(inputTokens), metric.WithAttributes(attrs...))
	m.llmOutputTokens.Add(ctx, int64(outputTokens), metric.WithAttributes(attrs...))

	if err != nil {
		m.llmErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordAgentForward(ctx context.Context, alias string, duration time.Duration, err error) {
	if m == nil || m.forwardDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("alias", alias),
	}

	m.forwardDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.forwardCalls.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil {
		m.forwardErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}

// RecordPipelineRun dispatches to the global recorder when one is installed.
func RecordPipelineRun(ctx context.Context, duration time.Duration, failedStage string, err error) {
	if m := GetGlobalMetrics(); m != nil {
		m.RecordPipelineRun(ctx, duration, failedStage, err)
	}
}

// RecordLLMCall dispatches to the global recorder when one is installed.
func RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m := GetGlobalMetrics(); m != nil {
		m.RecordLLMCall(ctx, model, duration, inputTokens, outputTokens, err)
	}
}

// RecordAgentForward dispatches to the global recorder when one is installed.
func RecordAgentForward(ctx context.Context, alias string, duration time.Duration, err error) {
	if m := GetGlobalMetrics(); m != nil {
		m.RecordAgentForward(ctx, alias, duration, err)
	}
}
