// Package querybuilder turns a ListInferencesParams filter/order/pagination
// spec into a single parameterized SQL string plus its bound parameter
// list, per spec.md §4.3. Every caller-supplied scalar becomes a named
// {pN:Type} placeholder; no value is ever interpolated into the SQL text
// itself.
package querybuilder

import "github.com/haasonsaas/llmgateway/internal/clickhouse"

// OutputSource selects whether the returned "output" column is the
// inference's own output or the most recent demonstration feedback value.
type OutputSource string

const (
	OutputSourceInference     OutputSource = "inference"
	OutputSourceDemonstration OutputSource = "demonstration"
)

// CompareOp is a scalar comparison operator usable on metrics, tags, and
// timestamps.
type CompareOp string

const (
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpEqual        CompareOp = "="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
	OpNotEqual     CompareOp = "!="
)

func (o CompareOp) sql() string { return string(o) }

// MetricLevel names which inference-log column a metric's feedback joins
// against: an inference-level metric keys on the row's own id, an
// episode-level metric keys on its episode_id.
type MetricLevel string

const (
	LevelInference MetricLevel = "inference"
	LevelEpisode   MetricLevel = "episode"
)

func (l MetricLevel) column() string {
	if l == LevelEpisode {
		return "episode_id"
	}
	return "id"
}

// Filter is one node of the recursive filter tree described in spec.md
// §4.3. The concrete types below are the only implementations; the
// interface is closed to this package's callers by an unexported marker
// method, the same pattern internal/credentials uses for Location.
type Filter interface {
	filterNode()
}

// FloatMetricFilter compares a float-valued metric's latest feedback value.
type FloatMetricFilter struct {
	Name  string
	Op    CompareOp
	Value float64
}

func (FloatMetricFilter) filterNode() {}

// BooleanMetricFilter compares a boolean-valued metric's latest feedback
// value for equality; spec.md's filter tree gives boolean metrics no
// comparison operator, only an expected value.
type BooleanMetricFilter struct {
	Name  string
	Value bool
}

func (BooleanMetricFilter) filterNode() {}

// TagFilter compares one tag's value. Op is restricted to equality/
// inequality per spec.md §4.3.
type TagFilter struct {
	Key   string
	Op    CompareOp // OpEqual or OpNotEqual
	Value string
}

func (TagFilter) filterNode() {}

// TimeFilter compares the inference's timestamp. Value is parsed store-side
// by parseDateTimeBestEffort, so it travels as a String parameter.
type TimeFilter struct {
	Op    CompareOp
	Value string
}

func (TimeFilter) filterNode() {}

// AndFilter is true iff every child is true; per spec.md's NULL-semantics
// convention, a child whose metric has no feedback row is coerced to false.
type AndFilter struct{ Children []Filter }

func (AndFilter) filterNode() {}

// OrFilter is true iff any child is true; a missing-feedback child is also
// coerced to false (not true) inside Or, matching spec.md's convention.
type OrFilter struct{ Children []Filter }

func (OrFilter) filterNode() {}

// NotFilter negates its child; per spec.md's documented (and deliberately
// unfixed) convention, a missing-feedback child is coerced to true before
// negation, so NOT of an absent metric is true.
type NotFilter struct{ Child Filter }

func (NotFilter) filterNode() {}

// OrderByField selects what an OrderByTerm sorts on.
type OrderByField string

const (
	OrderByTimestamp      OrderByField = "timestamp"
	OrderByMetric         OrderByField = "metric"
	OrderBySearchRelevance OrderByField = "search_relevance"
)

// OrderByTerm is one ORDER BY term. MetricName is only meaningful when
// Field is OrderByMetric.
type OrderByTerm struct {
	Field      OrderByField
	MetricName string
	Descending bool
}

// ListInferencesParams is the query builder's sole input, per spec.md
// §4.3. Limit/Offset default to 20/0 when left at their zero value (the
// caller cannot distinguish "unset" from literal zero for Offset, matching
// the spec's stated defaults rather than using pointers for every field).
type ListInferencesParams struct {
	FunctionName string // "" means absent
	VariantName  string // "" means absent; requires FunctionName

	Filters Filter // nil means no filter

	OrderBy []OrderByTerm

	OutputSource OutputSource

	SearchQuery    string
	hasSearchQuery bool

	Limit  int
	Offset int
}

// WithSearchQuery sets the experimental full-text search query and marks it
// present, distinguishing a caller-supplied empty string from "absent" the
// way a pointer field would, without forcing every caller to take an
// address of a string literal.
func (p ListInferencesParams) WithSearchQuery(q string) ListInferencesParams {
	p.SearchQuery = q
	p.hasSearchQuery = true
	return p
}

func (p ListInferencesParams) hasSearchQueryExperimental() bool {
	return p.hasSearchQuery
}

func (p ListInferencesParams) effectiveLimit() int {
	if p.Limit <= 0 {
		return 20
	}
	return p.Limit
}

func (p ListInferencesParams) effectiveOffset() int {
	if p.Offset < 0 {
		return 0
	}
	return p.Offset
}

// QueryParameter re-exports clickhouse.QueryParameter so callers of this
// package never need to import internal/clickhouse directly just to read
// Build's second return value.
type QueryParameter = clickhouse.QueryParameter
