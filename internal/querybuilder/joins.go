package querybuilder

import (
	"fmt"

	"github.com/haasonsaas/llmgateway/internal/clickhouse"
)

// joinKey identifies one (metric_type, metric_name, level) triple. Two
// filter leaves (or a filter leaf and an OrderByTerm) referencing the same
// triple must reuse the same LEFT JOIN, per spec.md invariant 6.
type joinKey struct {
	kind  MetricKind
	name  string
	level MetricLevel
}

// joinRegistry deduplicates metric-feedback LEFT JOINs within a single
// Build call. It is owned exclusively by that call, per spec.md §5
// ("The JoinRegistry inside a single query build is owned by that
// build") — never share one across builds.
type joinRegistry struct {
	aliasFor map[joinKey]string
	order    []joinKey
	clauses  map[joinKey]string
}

func newJoinRegistry() *joinRegistry {
	return &joinRegistry{
		aliasFor: make(map[joinKey]string),
		clauses:  make(map[joinKey]string),
	}
}

// register returns the alias for key, minting a new jK alias and LEFT JOIN
// clause the first time key is seen and reusing it on every subsequent
// call. mintMetricNameParam is only invoked on the minting path — a dedup
// hit reuses the parameter already bound for the first occurrence instead
// of binding a new one, which is what makes join dedup also param-count
// deterministic (invariant 6).
func (r *joinRegistry) register(key joinKey, mintMetricNameParam func() clickhouse.QueryParameter) string {
	if existing, ok := r.aliasFor[key]; ok {
		return existing
	}
	metricNameParam := mintMetricNameParam()
	alias := fmt.Sprintf("j%d", len(r.order))
	r.aliasFor[key] = alias
	r.order = append(r.order, key)
	r.clauses[key] = fmt.Sprintf(
		"LEFT JOIN (SELECT target_id, argMax(value, timestamp) AS value FROM %s WHERE metric_name = %s GROUP BY target_id) AS %s ON i.%s = %s.target_id",
		key.kind.feedbackTable(), metricNameParam.Placeholder(), alias, key.level.column(), alias,
	)
	return alias
}

// clausesInOrder returns every LEFT JOIN clause in first-seen order, for
// deterministic SQL assembly (invariant 5).
func (r *joinRegistry) clausesInOrder() []string {
	out := make([]string, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.clauses[key])
	}
	return out
}
