package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordProviderRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordProviderRequest("anthropic", "claude-3-opus", "success", 1.25, 100, 50)

	if got := testutil.ToFloat64(m.ProviderRequestTotal.WithLabelValues("anthropic", "claude-3-opus", "success")); got != 1 {
		t.Errorf("ProviderRequestTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ProviderTokensTotal.WithLabelValues("anthropic", "claude-3-opus", "input")); got != 100 {
		t.Errorf("input tokens = %v, want 100", got)
	}
	if got := testutil.ToFloat64(m.ProviderTokensTotal.WithLabelValues("anthropic", "claude-3-opus", "output")); got != 50 {
		t.Errorf("output tokens = %v, want 50", got)
	}
}

func TestRecordMaterializationAndStale(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordMaterialization("d1", "extract_entities", 5)
	m.RecordMaterialization("d1", "extract_entities", 3)
	m.RecordStale("d1")

	if got := testutil.ToFloat64(m.DatapointsMaterialized.WithLabelValues("d1", "extract_entities")); got != 8 {
		t.Errorf("DatapointsMaterialized = %v, want 8", got)
	}
	if got := testutil.ToFloat64(m.DatapointsStaled.WithLabelValues("d1")); got != 1 {
		t.Errorf("DatapointsStaled = %v, want 1", got)
	}
}

func TestMultipleRegistriesIndependent(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	m1 := NewMetrics(reg1)
	m2 := NewMetrics(reg2)

	m1.RecordError("InferenceClient", "groq")

	if got := testutil.ToFloat64(m1.ErrorTotal.WithLabelValues("InferenceClient", "groq")); got != 1 {
		t.Errorf("m1 ErrorTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m2.ErrorTotal.WithLabelValues("InferenceClient", "groq")); got != 0 {
		t.Errorf("m2 ErrorTotal = %v, want 0 (registries must be independent)", got)
	}
}
