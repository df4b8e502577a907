package querybuilder

import "github.com/haasonsaas/llmgateway/internal/clickhouse"

// Catalog resolves the function/metric names a query references. Function
// config loading is explicitly out of scope (spec.md §1 Non-goals), so the
// builder takes this narrow interface instead of owning a config layer;
// the caller supplies whatever already-parsed function/metric registry it
// has. MetricKind distinguishes float- from boolean-valued metrics so the
// builder can pick the right feedback table without re-deriving it from
// the filter node type (a metric referenced only from an OrderByTerm has
// no filter node to infer it from).
type Catalog interface {
	FunctionExists(name string) bool
	// FunctionKind reports whether name is a chat or json function. Only
	// meaningful when FunctionExists(name) is true.
	FunctionKind(name string) (FunctionKind, bool)
	ResolveMetric(name string) (MetricInfo, bool)
}

// FunctionKind distinguishes the two inference-log tables a function's
// rows live in.
type FunctionKind string

const (
	FunctionKindChat FunctionKind = "chat"
	FunctionKindJSON FunctionKind = "json"
)

// MetricInfo is what the builder needs to know about a metric to generate
// its join: which feedback table it lives in and which inference-log
// column its join key is.
type MetricInfo struct {
	Kind  MetricKind
	Level MetricLevel
}

// MetricKind selects the feedback table a metric's value is read from.
type MetricKind string

const (
	MetricKindFloat   MetricKind = "float"
	MetricKindBoolean MetricKind = "boolean"
)

func (k MetricKind) feedbackTable() string {
	if k == MetricKindBoolean {
		return "BooleanMetricFeedback"
	}
	return "FloatMetricFeedback"
}

func (k MetricKind) paramType() clickhouse.ParamType {
	if k == MetricKindBoolean {
		return clickhouse.TypeBool
	}
	return clickhouse.TypeFloat64
}

// StaticCatalog is an in-memory Catalog built from already-parsed Go
// structs, matching the ambient "no file format is read by this module"
// constraint: whatever upstream component does parse function/metric
// config hands the builder a StaticCatalog instead of a path.
type StaticCatalog struct {
	functions map[string]FunctionKind
	metrics   map[string]MetricInfo
}

// NewStaticCatalog builds a Catalog from an explicit function-name-to-kind
// map and a metric-name-to-info map.
func NewStaticCatalog(functions map[string]FunctionKind, metrics map[string]MetricInfo) *StaticCatalog {
	fns := make(map[string]FunctionKind, len(functions))
	for k, v := range functions {
		fns[k] = v
	}
	m := make(map[string]MetricInfo, len(metrics))
	for k, v := range metrics {
		m[k] = v
	}
	return &StaticCatalog{functions: fns, metrics: m}
}

func (c *StaticCatalog) FunctionExists(name string) bool {
	_, ok := c.functions[name]
	return ok
}

func (c *StaticCatalog) FunctionKind(name string) (FunctionKind, bool) {
	kind, ok := c.functions[name]
	return kind, ok
}

func (c *StaticCatalog) ResolveMetric(name string) (MetricInfo, bool) {
	info, ok := c.metrics[name]
	return info, ok
}
