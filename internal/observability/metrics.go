package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics provides the gateway's Prometheus instrumentation: provider
// dispatch latency/outcome, token usage, OLAP query latency, and dataset
// materialization counts.
type Metrics struct {
	// ProviderRequestDuration measures provider HTTP latency in seconds.
	// Labels: provider, model.
	ProviderRequestDuration *prometheus.HistogramVec

	// ProviderRequestTotal counts provider requests by outcome.
	// Labels: provider, model, status (success|client_error|server_error).
	ProviderRequestTotal *prometheus.CounterVec

	// ProviderTokensTotal tracks token consumption.
	// Labels: provider, model, kind (input|output).
	ProviderTokensTotal *prometheus.CounterVec

	// StreamChunksTotal counts chunks delivered over a streaming response.
	// Labels: provider, kind (text|tool_call|thought).
	StreamChunksTotal *prometheus.CounterVec

	// QueryBuilderDuration measures time spent building a query (not
	// executing it — building is pure in-process work, but its cost scales
	// with filter-tree size and is worth tracking for large trees).
	// Labels: output_source (inference|demonstration).
	QueryBuilderDuration *prometheus.HistogramVec

	// OLAPQueryDuration measures OLAP HTTP round-trip latency.
	// Labels: operation (select|insert).
	OLAPQueryDuration *prometheus.HistogramVec

	// OLAPQueryTotal counts OLAP requests by outcome.
	// Labels: operation, status (success|error).
	OLAPQueryTotal *prometheus.CounterVec

	// DatapointsMaterialized counts rows written by dataset insertion.
	// Labels: dataset_name, function_name.
	DatapointsMaterialized *prometheus.CounterVec

	// DatapointsStaled counts soft-deletes.
	// Labels: dataset_name.
	DatapointsStaled *prometheus.CounterVec

	// ErrorTotal counts classified errors by taxonomy kind.
	// Labels: kind (see internal/gatewayerr), provider.
	ErrorTotal *prometheus.CounterVec
}

// NewMetrics creates gateway metrics registered against reg. Passing a
// fresh prometheus.NewRegistry() per test (rather than the global default
// registerer) keeps repeated construction safe for table-driven tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProviderRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_provider_request_duration_seconds",
				Help:    "Duration of provider inference requests in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		ProviderRequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_provider_requests_total",
				Help: "Total provider requests by outcome",
			},
			[]string{"provider", "model", "status"},
		),
		ProviderTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_provider_tokens_total",
				Help: "Total tokens consumed by provider and kind",
			},
			[]string{"provider", "model", "kind"},
		),
		StreamChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_stream_chunks_total",
				Help: "Total streaming chunks delivered by kind",
			},
			[]string{"provider", "kind"},
		),
		QueryBuilderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_query_builder_duration_seconds",
				Help:    "Time spent building an inference-log query",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
			},
			[]string{"output_source"},
		),
		OLAPQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_olap_query_duration_seconds",
				Help:    "OLAP store round-trip latency",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),
		OLAPQueryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_olap_queries_total",
				Help: "Total OLAP queries by outcome",
			},
			[]string{"operation", "status"},
		),
		DatapointsMaterialized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_datapoints_materialized_total",
				Help: "Total datapoints written by dataset materialization",
			},
			[]string{"dataset_name", "function_name"},
		),
		DatapointsStaled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_datapoints_staled_total",
				Help: "Total datapoints soft-deleted",
			},
			[]string{"dataset_name"},
		),
		ErrorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_errors_total",
				Help: "Total classified errors by taxonomy kind",
			},
			[]string{"kind", "provider"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.ProviderRequestDuration, m.ProviderRequestTotal, m.ProviderTokensTotal,
			m.StreamChunksTotal, m.QueryBuilderDuration, m.OLAPQueryDuration,
			m.OLAPQueryTotal, m.DatapointsMaterialized, m.DatapointsStaled, m.ErrorTotal,
		)
	}
	return m
}

// RecordProviderRequest records the outcome of one non-streaming or
// streaming inference call.
func (m *Metrics) RecordProviderRequest(provider, model, status string, durationSeconds float64, inputTokens, outputTokens int64) {
	m.ProviderRequestTotal.WithLabelValues(provider, model, status).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if inputTokens > 0 {
		m.ProviderTokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.ProviderTokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// RecordStreamChunk records one delivered chunk of a streaming response.
func (m *Metrics) RecordStreamChunk(provider, kind string) {
	m.StreamChunksTotal.WithLabelValues(provider, kind).Inc()
}

// RecordOLAPQuery records one OLAP HTTP round trip.
func (m *Metrics) RecordOLAPQuery(operation, status string, durationSeconds float64) {
	m.OLAPQueryTotal.WithLabelValues(operation, status).Inc()
	m.OLAPQueryDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordMaterialization records rows written during dataset insertion.
func (m *Metrics) RecordMaterialization(datasetName, functionName string, rows int) {
	m.DatapointsMaterialized.WithLabelValues(datasetName, functionName).Add(float64(rows))
}

// RecordStale records one datapoint soft-delete.
func (m *Metrics) RecordStale(datasetName string) {
	m.DatapointsStaled.WithLabelValues(datasetName).Inc()
}

// RecordError records one classified error observed anywhere in the gateway.
func (m *Metrics) RecordError(kind, provider string) {
	m.ErrorTotal.WithLabelValues(kind, provider).Inc()
}
