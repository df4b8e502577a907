package dataset

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/haasonsaas/llmgateway/internal/clickhouse"
	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/querybuilder"
)

func testCatalog() *querybuilder.StaticCatalog {
	return querybuilder.NewStaticCatalog(
		map[string]querybuilder.FunctionKind{"extract_entities": querybuilder.FunctionKindChat},
		map[string]querybuilder.MetricInfo{},
	)
}

// newTestManager returns a Manager pointed at a test server, plus the
// captured request's body and query string for inspection.
func newTestManager(t *testing.T, handler http.HandlerFunc) (*Manager, *clickhouse.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := clickhouse.New(clickhouse.Config{Endpoint: server.URL})
	return NewManager(client, testCatalog()), client
}

func jsonLines(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestValidateDatasetNameRejectsReserved(t *testing.T) {
	cases := []string{"builder", "tensorzero::internal", ""}
	for _, name := range cases {
		if err := ValidateDatasetName(name); err == nil || err.Kind != gatewayerr.KindInvalidRequest {
			t.Errorf("ValidateDatasetName(%q) = %v, want KindInvalidRequest", name, err)
		}
	}
	if err := ValidateDatasetName("my-dataset"); err != nil {
		t.Errorf("ValidateDatasetName(valid) = %v, want nil", err)
	}
}

func TestCountMatchingRejectsLimitOffset(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("store must not be contacted when params carry limit/offset")
	})
	_, err := m.CountMatching(context.Background(), querybuilder.ListInferencesParams{
		FunctionName: "extract_entities",
		Limit:        10,
	})
	if err == nil || err.Kind != gatewayerr.KindInvalidRequest {
		t.Fatalf("err = %v, want KindInvalidRequest", err)
	}
}

func TestCountMatchingReturnsCount(t *testing.T) {
	var gotBody string
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		w.Write(jsonLines(`{"count":5}`))
	})
	count, err := m.CountMatching(context.Background(), querybuilder.ListInferencesParams{FunctionName: "extract_entities"})
	if err != nil {
		t.Fatalf("CountMatching() error = %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
	if !strings.Contains(gotBody, "SELECT toUInt32(count()) AS count FROM (") {
		t.Errorf("unexpected count query: %s", gotBody)
	}
}

// TestMaterializeIsIdempotent is scenario S5: materializing the same
// dataset/params pair twice returns the match count the first time and
// zero the second, because the anti-join leaves nothing for the second
// call to insert.
func TestMaterializeIsIdempotent(t *testing.T) {
	var callIndex int
	var insertBodies []string
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body := string(b)
		if strings.HasPrefix(body, "INSERT INTO") {
			insertBodies = append(insertBodies, body)
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusOK)
		if callIndex == 0 {
			w.Write(jsonLines(`{"count":5}`))
		} else {
			w.Write(jsonLines(`{"count":0}`))
		}
		callIndex++
	})

	params := querybuilder.ListInferencesParams{FunctionName: "extract_entities"}

	written1, err := m.Materialize(context.Background(), "d1", querybuilder.FunctionKindChat, params)
	if err != nil {
		t.Fatalf("first Materialize() error = %v", err)
	}
	if written1 != 5 {
		t.Errorf("first written_rows = %d, want 5", written1)
	}
	if len(insertBodies) != 1 {
		t.Fatalf("expected exactly one INSERT after the first call, got %d", len(insertBodies))
	}

	written2, err := m.Materialize(context.Background(), "d1", querybuilder.FunctionKindChat, params)
	if err != nil {
		t.Fatalf("second Materialize() error = %v", err)
	}
	if written2 != 0 {
		t.Errorf("second written_rows = %d, want 0", written2)
	}
	if len(insertBodies) != 1 {
		t.Errorf("expected no additional INSERT on the second call, got %d total", len(insertBodies))
	}
}

func TestMaterializeRejectsReservedDatasetName(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("store must not be contacted for a reserved dataset name")
	})
	_, err := m.Materialize(context.Background(), "builder", querybuilder.FunctionKindChat, querybuilder.ListInferencesParams{FunctionName: "extract_entities"})
	if err == nil || err.Kind != gatewayerr.KindInvalidRequest {
		t.Fatalf("err = %v, want KindInvalidRequest", err)
	}
}

func TestGetReturnsDatapointNotFoundOnMiss(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	_, err := m.Get(context.Background(), "d1", "018f3e1e-0000-7000-8000-000000000000", false)
	if err == nil || err.Kind != gatewayerr.KindDatapointNotFound {
		t.Fatalf("err = %v, want KindDatapointNotFound", err)
	}
	if err.Dataset != "d1" {
		t.Errorf("Dataset = %q, want d1", err.Dataset)
	}
}

func TestGetDecodesMatchingRow(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(jsonLines(`{"dataset_name":"d1","function_name":"extract_entities","id":"018f3e1e-0000-7000-8000-000000000000","input":"hi","tool_params":"","output_schema":"","tags":{},"auxiliary":"","is_deleted":false,"is_custom":false,"type":"chat"}`))
	})
	dp, err := m.Get(context.Background(), "d1", "018f3e1e-0000-7000-8000-000000000000", false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if dp.FunctionName != "extract_entities" || dp.DatasetName != "d1" {
		t.Errorf("unexpected datapoint: %+v", dp)
	}
	if !dp.Live() {
		t.Errorf("expected datapoint to be live")
	}
}

func TestAdjacencyReturnsNeighbors(t *testing.T) {
	var gotQuery url.Values
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
		w.Write(jsonLines(`{"next_id":"018f3e1e-0000-7000-8000-000000000002","previous_id":null}`))
	})
	prev, next, err := m.Adjacency(context.Background(), "d1", "018f3e1e-0000-7000-8000-000000000001")
	if err != nil {
		t.Fatalf("Adjacency() error = %v", err)
	}
	if prev != nil {
		t.Errorf("previous = %v, want nil", *prev)
	}
	if next == nil || *next != "018f3e1e-0000-7000-8000-000000000002" {
		t.Errorf("next = %v, want 018f3e1e-0000-7000-8000-000000000002", next)
	}
	if gotQuery.Get("param_p0") != "d1" {
		t.Errorf("param_p0 = %q, want d1", gotQuery.Get("param_p0"))
	}
}

func TestCustomInsertRejectsReservedName(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("store must not be contacted for a reserved dataset name")
	})
	err := m.CustomInsert(context.Background(), querybuilder.FunctionKindChat, Datapoint{
		DatasetName:  "tensorzero::internal",
		FunctionName: "extract_entities",
		ID:           "018f3e1e-0000-7000-8000-000000000000",
		Input:        "hi",
	})
	if err == nil || err.Kind != gatewayerr.KindInvalidRequest {
		t.Fatalf("err = %v, want KindInvalidRequest", err)
	}
}

func TestCustomInsertWritesThroughNonBatchedPath(t *testing.T) {
	var gotBody string
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	})
	err := m.CustomInsert(context.Background(), querybuilder.FunctionKindJSON, Datapoint{
		DatasetName:  "d1",
		FunctionName: "classify",
		ID:           "018f3e1e-0000-7000-8000-000000000000",
		Input:        "hi",
	})
	if err != nil {
		t.Fatalf("CustomInsert() error = %v", err)
	}
	if !strings.Contains(gotBody, "INSERT INTO JsonInferenceDatapoint") {
		t.Errorf("unexpected insert target: %s", gotBody)
	}
	if !strings.Contains(gotBody, "output_schema") {
		t.Errorf("expected output_schema column for a json datapoint: %s", gotBody)
	}
}

func strPtr(s string) *string { return &s }

func TestCustomInsertValidatesOutputAgainstSchema(t *testing.T) {
	var gotBody string
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	})
	err := m.CustomInsert(context.Background(), querybuilder.FunctionKindJSON, Datapoint{
		DatasetName:  "d1",
		FunctionName: "classify",
		ID:           "018f3e1e-0000-7000-8000-000000000000",
		Input:        "hi",
		Output:       strPtr(`{"foo":"bar"}`),
		OutputSchema: `{"type":"object","properties":{"foo":{"type":"string"}},"required":["foo"]}`,
	})
	if err != nil {
		t.Fatalf("CustomInsert() error = %v", err)
	}
	if gotBody == "" {
		t.Fatal("expected the insert to reach the store")
	}
}

func TestCustomInsertRejectsOutputViolatingSchema(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("store must not be contacted when output violates its own schema")
	})
	err := m.CustomInsert(context.Background(), querybuilder.FunctionKindJSON, Datapoint{
		DatasetName:  "d1",
		FunctionName: "classify",
		ID:           "018f3e1e-0000-7000-8000-000000000000",
		Input:        "hi",
		Output:       strPtr(`{"foo":123}`),
		OutputSchema: `{"type":"object","properties":{"foo":{"type":"string"}},"required":["foo"]}`,
	})
	if err == nil || err.Kind != gatewayerr.KindInvalidRequest {
		t.Fatalf("err = %v, want KindInvalidRequest", err)
	}
}

func TestListDatasetRowsUnionsBothTables(t *testing.T) {
	var gotBody string
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		w.Write(jsonLines(
			`{"id":"1","function_name":"extract_entities","updated_at":"2026-01-01T00:00:00Z"}`,
			`{"id":"2","function_name":"classify","updated_at":"2026-01-02T00:00:00Z"}`,
		))
	})
	rows, err := m.ListDatasetRows(context.Background(), "d1", 0, 0)
	if err != nil {
		t.Fatalf("ListDatasetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if !strings.Contains(gotBody, "FROM ChatInferenceDatapoint") || !strings.Contains(gotBody, "FROM JsonInferenceDatapoint") {
		t.Errorf("expected both datapoint tables unioned: %s", gotBody)
	}
}

func TestGetDatasetMetadataGroupsByFunction(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(jsonLines(
			`{"function_name":"classify","count":3}`,
			`{"function_name":"extract_entities","count":7}`,
		))
	})
	meta, err := m.GetDatasetMetadata(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetDatasetMetadata() error = %v", err)
	}
	if len(meta) != 2 || meta[1].Count != 7 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}
