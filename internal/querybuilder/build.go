package querybuilder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/haasonsaas/llmgateway/internal/clickhouse"
	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
)

// builder holds the state owned by a single Build call: the monotonic
// parameter counter and the join-deduplication registry. Per spec.md §5,
// neither is ever shared across calls.
type builder struct {
	catalog Catalog
	joins   *joinRegistry
	params  []clickhouse.QueryParameter
	next    int
}

func newBuilder(catalog Catalog) *builder {
	return &builder{catalog: catalog, joins: newJoinRegistry()}
}

func (b *builder) mint(typ clickhouse.ParamType, value any) clickhouse.QueryParameter {
	p := clickhouse.QueryParameter{Name: strconv.Itoa(b.next), Type: typ, Value: value}
	b.next++
	b.params = append(b.params, p)
	return p
}

// Build renders params into a parameterized SQL string and its bound
// parameter list, per spec.md §4.3's 8-step algorithm. All client-error
// validation (unknown function/metric, variant_name without function_name,
// SearchRelevance ordering without a search query) runs before any SQL
// text or parameter is produced, so a rejected call never touches the
// store (scenario S4, invariant 8's sibling for querying rather than
// inserting).
func Build(params ListInferencesParams, catalog Catalog) (string, []clickhouse.QueryParameter, *gatewayerr.Error) {
	if err := validate(params, catalog); err != nil {
		return "", nil, err
	}

	b, core, orderSQL, err := buildCore(params, catalog)
	if err != nil {
		return "", nil, err
	}

	limitParam := b.mint(clickhouse.TypeUInt64, uint64(params.effectiveLimit()))
	offsetParam := b.mint(clickhouse.TypeUInt64, uint64(params.effectiveOffset()))

	sql := fmt.Sprintf("%s%s LIMIT %s OFFSET %s FORMAT JSONEachRow", core, orderSQL, limitParam.Placeholder(), offsetParam.Placeholder())

	return sql, b.params, nil
}

// BuildSubquery renders the same select as Build but without LIMIT/OFFSET or
// the FORMAT tail, for embedding as a nested subquery the way the dataset
// manager's count-matching and materialize operations do (spec.md §4.4:
// "composes the same subquery used by insertion"). params must not set a
// non-default Limit/Offset; those belong to the enclosing query, not the
// embedded one.
func BuildSubquery(params ListInferencesParams, catalog Catalog) (string, []clickhouse.QueryParameter, *gatewayerr.Error) {
	if params.Limit != 0 || params.Offset != 0 {
		return "", nil, gatewayerr.New(gatewayerr.KindInvalidRequest, "subquery params must not set limit or offset")
	}
	if err := validate(params, catalog); err != nil {
		return "", nil, err
	}
	b, core, orderSQL, err := buildCore(params, catalog)
	if err != nil {
		return "", nil, err
	}
	return core + orderSQL, b.params, nil
}

// buildCore renders the select's body (select/from/joins/where) and its
// ORDER BY clause, minting every parameter except limit/offset. Both Build
// and BuildSubquery share it so the embedded and top-level forms of a query
// stay in lockstep.
func buildCore(params ListInferencesParams, catalog Catalog) (*builder, string, string, *gatewayerr.Error) {
	b := newBuilder(catalog)

	var wherePredicates []string

	if params.FunctionName != "" {
		p := b.mint(clickhouse.TypeString, params.FunctionName)
		wherePredicates = append(wherePredicates, fmt.Sprintf("i.function_name = %s", p.Placeholder()))
	}
	if params.VariantName != "" {
		p := b.mint(clickhouse.TypeString, params.VariantName)
		wherePredicates = append(wherePredicates, fmt.Sprintf("i.variant_name = %s", p.Placeholder()))
	}
	if params.Filters != nil {
		filterSQL, err := b.renderFilter(params.Filters)
		if err != nil {
			return nil, "", "", err
		}
		wherePredicates = append(wherePredicates, filterSQL)
	}

	orderByParts, err := b.renderOrderBy(params.OrderBy)
	if err != nil {
		return nil, "", "", err
	}

	var searchSelectCols string
	if params.hasSearchQueryExperimental() {
		pS := b.mint(clickhouse.TypeString, params.SearchQuery)
		searchSelectCols = fmt.Sprintf(
			", countSubstringsCaseInsensitiveUTF8(i.input, %s) AS input_term_frequency, countSubstringsCaseInsensitiveUTF8(i.output, %s) AS output_term_frequency, input_term_frequency + output_term_frequency AS total_term_frequency",
			pS.Placeholder(), pS.Placeholder(),
		)
		wherePredicates = append(wherePredicates, "total_term_frequency > 0")
	}

	demoJoin := ""
	if params.OutputSource == OutputSourceDemonstration {
		demoJoin = " INNER JOIN (SELECT inference_id, argMax(value, timestamp) AS value FROM DemonstrationFeedback GROUP BY inference_id) AS demo_f ON i.id = demo_f.inference_id"
	}

	joinSQL := ""
	if clauses := b.joins.clausesInOrder(); len(clauses) > 0 {
		joinSQL = " " + strings.Join(clauses, " ")
	}

	whereSQL := ""
	if len(wherePredicates) > 0 {
		whereSQL = " WHERE " + strings.Join(wherePredicates, " AND ")
	}

	renderTable := func(kind FunctionKind) string {
		return fmt.Sprintf("SELECT %s%s FROM %s AS i%s%s%s",
			columnsFor(kind, params.OutputSource), searchSelectCols, tableFor(kind), demoJoin, joinSQL, whereSQL)
	}

	var core string
	if params.FunctionName != "" {
		kind, _ := catalog.FunctionKind(params.FunctionName)
		core = renderTable(kind)
	} else {
		core = fmt.Sprintf("SELECT * FROM (%s UNION ALL %s)", renderTable(FunctionKindChat), renderTable(FunctionKindJSON))
	}

	orderSQL := ""
	if len(orderByParts) > 0 {
		orderSQL = " ORDER BY " + strings.Join(orderByParts, ", ")
	}

	return b, core, orderSQL, nil
}

// renderFilter walks the filter tree in post-order, per spec.md §4.3 step
// 4: each metric leaf registers (or reuses) its LEFT JOIN before its
// comparison is rendered, and each combinator wraps its children in the
// documented COALESCE convention before joining them.
func (b *builder) renderFilter(f Filter) (string, *gatewayerr.Error) {
	switch v := f.(type) {
	case FloatMetricFilter:
		info, _ := b.catalog.ResolveMetric(v.Name) // presence checked by validate
		alias := b.joins.register(joinKey{kind: MetricKindFloat, name: v.Name, level: info.Level}, func() clickhouse.QueryParameter {
			return b.mint(clickhouse.TypeString, v.Name)
		})
		valueParam := b.mint(clickhouse.TypeFloat64, v.Value)
		return fmt.Sprintf("%s.value %s %s", alias, v.Op.sql(), valueParam.Placeholder()), nil

	case BooleanMetricFilter:
		info, _ := b.catalog.ResolveMetric(v.Name)
		alias := b.joins.register(joinKey{kind: MetricKindBoolean, name: v.Name, level: info.Level}, func() clickhouse.QueryParameter {
			return b.mint(clickhouse.TypeString, v.Name)
		})
		valueParam := b.mint(clickhouse.TypeBool, v.Value)
		return fmt.Sprintf("%s.value = %s", alias, valueParam.Placeholder()), nil

	case TagFilter:
		keyParam := b.mint(clickhouse.TypeString, v.Key)
		valueParam := b.mint(clickhouse.TypeString, v.Value)
		return fmt.Sprintf("i.tags[%s] %s %s", keyParam.Placeholder(), v.Op.sql(), valueParam.Placeholder()), nil

	case TimeFilter:
		valueParam := b.mint(clickhouse.TypeString, v.Value)
		return fmt.Sprintf("i.timestamp %s parseDateTimeBestEffort(%s)", v.Op.sql(), valueParam.Placeholder()), nil

	case AndFilter:
		return b.renderCombinator(v.Children, " AND ")

	case OrFilter:
		return b.renderCombinator(v.Children, " OR ")

	case NotFilter:
		child, err := b.renderFilter(v.Child)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT (COALESCE(%s, 1))", child), nil

	default:
		return "", gatewayerr.New(gatewayerr.KindInvalidRequest, "unsupported filter node")
	}
}

// renderCombinator renders And/Or's children, each wrapped in
// COALESCE(child, missingValue) so a metric with no feedback row
// evaluates to false under both combinators (spec.md §4.3 step 4,
// invariant 7).
func (b *builder) renderCombinator(children []Filter, joiner string) (string, *gatewayerr.Error) {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		s, err := b.renderFilter(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("COALESCE(%s, 0)", s))
	}
	return "(" + strings.Join(parts, joiner) + ")", nil
}

// renderOrderBy renders every ORDER BY term, registering (or reusing) a
// metric join for OrderByMetric terms, per spec.md §4.3 step 5.
func (b *builder) renderOrderBy(terms []OrderByTerm) ([]string, *gatewayerr.Error) {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		var col string
		switch t.Field {
		case OrderByTimestamp:
			col = "i.timestamp"
		case OrderByMetric:
			info, _ := b.catalog.ResolveMetric(t.MetricName)
			alias := b.joins.register(joinKey{kind: info.Kind, name: t.MetricName, level: info.Level}, func() clickhouse.QueryParameter {
				return b.mint(clickhouse.TypeString, t.MetricName)
			})
			col = alias + ".value"
		case OrderBySearchRelevance:
			col = "total_term_frequency"
		default:
			return nil, gatewayerr.New(gatewayerr.KindInvalidRequest, "unsupported order-by field")
		}
		dir := "ASC"
		if t.Descending {
			dir = "DESC"
		}
		out = append(out, fmt.Sprintf("%s %s NULLS LAST", col, dir))
	}
	return out, nil
}

// validate runs every client-error check spec.md §4.3 names, entirely
// before Build mints a single parameter.
func validate(params ListInferencesParams, catalog Catalog) *gatewayerr.Error {
	if params.VariantName != "" && params.FunctionName == "" {
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "variant_name requires function_name")
	}
	if params.FunctionName != "" && !catalog.FunctionExists(params.FunctionName) {
		return gatewayerr.New(gatewayerr.KindUnknownFunction, "unknown function").WithName(params.FunctionName)
	}
	if params.Filters != nil {
		if err := validateFilter(params.Filters, catalog); err != nil {
			return err
		}
	}
	for _, t := range params.OrderBy {
		switch t.Field {
		case OrderByMetric:
			if _, ok := catalog.ResolveMetric(t.MetricName); !ok {
				return gatewayerr.New(gatewayerr.KindUnknownMetric, "unknown metric").WithName(t.MetricName)
			}
		case OrderBySearchRelevance:
			if !params.hasSearchQueryExperimental() {
				return gatewayerr.New(gatewayerr.KindInvalidRequest, "ordering by search relevance requires search_query_experimental")
			}
		case OrderByTimestamp:
		default:
			return gatewayerr.New(gatewayerr.KindInvalidRequest, "unsupported order-by field")
		}
	}
	return nil
}

func validateFilter(f Filter, catalog Catalog) *gatewayerr.Error {
	switch v := f.(type) {
	case FloatMetricFilter:
		if _, ok := catalog.ResolveMetric(v.Name); !ok {
			return gatewayerr.New(gatewayerr.KindUnknownMetric, "unknown metric").WithName(v.Name)
		}
	case BooleanMetricFilter:
		if _, ok := catalog.ResolveMetric(v.Name); !ok {
			return gatewayerr.New(gatewayerr.KindUnknownMetric, "unknown metric").WithName(v.Name)
		}
	case TagFilter, TimeFilter:
		// no catalog reference to validate
	case AndFilter:
		for _, c := range v.Children {
			if err := validateFilter(c, catalog); err != nil {
				return err
			}
		}
	case OrFilter:
		for _, c := range v.Children {
			if err := validateFilter(c, catalog); err != nil {
				return err
			}
		}
	case NotFilter:
		return validateFilter(v.Child, catalog)
	default:
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "unsupported filter node")
	}
	return nil
}
