package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/llmgateway/internal/clickhouse"
	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/querybuilder"
)

// Manager is the dataset/datapoint materialization layer described in
// spec.md §4.4. It composes the query builder's subqueries the same way
// the store's own count-matching and materialize operations do, rather
// than re-deriving filter/join SQL of its own.
type Manager struct {
	client  *clickhouse.Client
	catalog querybuilder.Catalog
}

// NewManager constructs a Manager over an already-configured clickhouse
// Client and the Catalog used to resolve the function/metric names a
// materialization's ListInferencesParams may reference.
func NewManager(client *clickhouse.Client, catalog querybuilder.Catalog) *Manager {
	return &Manager{client: client, catalog: catalog}
}

func datapointTable(kind querybuilder.FunctionKind) string {
	if kind == querybuilder.FunctionKindJSON {
		return "JsonInferenceDatapoint"
	}
	return "ChatInferenceDatapoint"
}

func typeColumn(kind querybuilder.FunctionKind) string {
	if kind == querybuilder.FunctionKindJSON {
		return "output_schema"
	}
	return "tool_params"
}

func wrapStoreErr(err error) *gatewayerr.Error {
	if err == nil {
		return nil
	}
	if gerr, ok := err.(*gatewayerr.Error); ok {
		return gerr
	}
	return gatewayerr.Wrap(gatewayerr.KindInferenceServer, err, "dataset manager store call failed")
}

// paramMinter mints clickhouse.QueryParameters with monotonic names
// starting from an explicit offset, so a dataset operation's own
// parameters never collide with the names a composed querybuilder
// subquery already minted.
type paramMinter struct{ next int }

func newParamMinter(startAt int) *paramMinter { return &paramMinter{next: startAt} }

func (m *paramMinter) mint(typ clickhouse.ParamType, value any) clickhouse.QueryParameter {
	p := clickhouse.QueryParameter{Name: strconv.Itoa(m.next), Type: typ, Value: value}
	m.next++
	return p
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// validateOutputAgainstSchema checks a json-function datapoint's output
// against its own output_schema column before the row is written, the one
// place this package can reject a malformed custom datapoint before it
// reaches the store rather than after (spec.md §4.4 "Custom insert").
func validateOutputAgainstSchema(schemaJSON, outputJSON string) *gatewayerr.Error {
	schema, err := jsonschema.CompileString("datapoint_output_schema.json", schemaJSON)
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.KindSerialization, err, "invalid output_schema")
	}
	var v any
	if err := json.Unmarshal([]byte(outputJSON), &v); err != nil {
		return gatewayerr.Wrap(gatewayerr.KindSerialization, err, "output is not valid JSON")
	}
	if err := schema.Validate(v); err != nil {
		return gatewayerr.Wrap(gatewayerr.KindInvalidRequest, err, "output does not conform to output_schema")
	}
	return nil
}

// CountMatching reports how many inference rows match params, independent
// of any dataset, per spec.md §4.4 "Count-matching inferences". It rejects
// params carrying a non-default limit/offset (those belong to the list
// operation, not a count).
func (m *Manager) CountMatching(ctx context.Context, params querybuilder.ListInferencesParams) (uint32, *gatewayerr.Error) {
	sub, subParams, err := querybuilder.BuildSubquery(params, m.catalog)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf("SELECT toUInt32(count()) AS count FROM (%s) FORMAT JSONEachRow", sub)
	return m.selectCount(ctx, "count_matching_inferences", sql, subParams)
}

func (m *Manager) selectCount(ctx context.Context, operation, sql string, params []clickhouse.QueryParameter) (uint32, *gatewayerr.Error) {
	rows, selErr := m.client.Select(ctx, operation, sql, params)
	if selErr != nil {
		return 0, wrapStoreErr(selErr)
	}
	defer rows.Close()
	if !rows.Next() {
		if rerr := rows.Err(); rerr != nil {
			return 0, wrapStoreErr(rerr)
		}
		return 0, nil
	}
	var row struct {
		Count uint32 `json:"count"`
	}
	if err := rows.Scan(&row); err != nil {
		return 0, wrapStoreErr(err)
	}
	return row.Count, nil
}

// Materialize inserts every inference row matching params into dataset,
// skipping rows already materialized under the same
// (dataset_name, function_name, source_inference_id) triple (spec.md §4.4
// "Materialize (insert) datapoints"). It returns the number of rows
// written: running it twice with identical parameters returns the match
// count on the first call and 0 on the second (invariant 4, scenario S5),
// because the anti-join against already-materialized rows leaves nothing
// for the second call to insert.
func (m *Manager) Materialize(ctx context.Context, datasetName string, kind querybuilder.FunctionKind, params querybuilder.ListInferencesParams) (uint32, *gatewayerr.Error) {
	if err := ValidateDatasetName(datasetName); err != nil {
		return 0, err
	}

	innerSQL, subParams, err := querybuilder.BuildSubquery(params, m.catalog)
	if err != nil {
		return 0, err
	}
	// auxiliary and name have no source column on ChatInference/
	// JsonInference; they are synthesized here as the literal defaults a
	// materialized (non-custom) datapoint always carries.
	subquery := fmt.Sprintf("SELECT *, '' AS auxiliary, NULL AS name FROM (%s)", innerSQL)

	mint := newParamMinter(len(subParams))
	datasetParam := mint.mint(clickhouse.TypeString, datasetName)
	antiJoinParams := append(append([]clickhouse.QueryParameter{}, subParams...), datasetParam)

	table := datapointTable(kind)
	antiJoin := fmt.Sprintf(
		`FROM (%s) AS subquery
LEFT JOIN %s AS existing FINAL
  ON %s = existing.dataset_name
 AND subquery.function_name = existing.function_name
 AND subquery.id = existing.source_inference_id
 AND existing.staled_at IS NULL
WHERE existing.source_inference_id IS NULL`,
		subquery, table, datasetParam.Placeholder(),
	)

	countSQL := fmt.Sprintf("SELECT toUInt32(count()) AS count %s FORMAT JSONEachRow", antiJoin)
	count, countErr := m.selectCount(ctx, "materialize_count", countSQL, antiJoinParams)
	if countErr != nil {
		return 0, countErr
	}
	if count == 0 {
		return 0, nil
	}

	insertSQL := fmt.Sprintf(
		`INSERT INTO %s
SELECT
  %s AS dataset_name,
  subquery.function_name,
  generateUUIDv7() AS id,
  subquery.episode_id,
  subquery.input,
  subquery.output,
  subquery.%s,
  subquery.tags,
  subquery.auxiliary,
  false AS is_deleted,
  now64() AS updated_at,
  NULL AS staled_at,
  subquery.id AS source_inference_id,
  false AS is_custom,
  subquery.name
%s`,
		table, datasetParam.Placeholder(), typeColumn(kind), antiJoin,
	)
	if execErr := m.client.Exec(ctx, "materialize_insert", insertSQL, antiJoinParams); execErr != nil {
		return 0, wrapStoreErr(execErr)
	}
	return count, nil
}

// Stale soft-deletes a datapoint by inserting a verbatim copy of its
// current row with staled_at/updated_at set to now, rather than updating
// in place (spec.md §4.4 "Stale a datapoint"). FINAL read mode then
// returns this newer row for the id.
func (m *Manager) Stale(ctx context.Context, datasetName string, kind querybuilder.FunctionKind, id string) *gatewayerr.Error {
	if err := ValidateDatasetName(datasetName); err != nil {
		return err
	}
	table := datapointTable(kind)
	mint := newParamMinter(0)
	datasetParam := mint.mint(clickhouse.TypeString, datasetName)
	idParam := mint.mint(clickhouse.TypeUUID, id)

	// Column order mirrors Materialize's INSERT ... SELECT exactly (spec.md
	// §4.4: dataset_name, function_name, id, episode_id, input, output,
	// type-specific field, tags, auxiliary, is_deleted, updated_at,
	// staled_at, source_inference_id, is_custom, name) since both write
	// the same physical table and ClickHouse INSERT ... SELECT matches
	// columns positionally.
	sql := fmt.Sprintf(
		`INSERT INTO %s
SELECT
  dataset_name, function_name, id, episode_id, input, output, %s, tags, auxiliary,
  is_deleted, now64() AS updated_at, now64() AS staled_at, source_inference_id, is_custom, name
FROM %s FINAL
WHERE dataset_name = %s AND id = %s AND staled_at IS NULL`,
		table, typeColumn(kind), table, datasetParam.Placeholder(), idParam.Placeholder(),
	)
	return wrapStoreErr(m.client.Exec(ctx, "stale_datapoint", sql, []clickhouse.QueryParameter{datasetParam, idParam}))
}

// Get fetches a single datapoint by dataset name and id, unioning the chat
// and json tables with column alignment (spec.md §4.4 "Get a single
// datapoint"). A miss returns KindDatapointNotFound.
func (m *Manager) Get(ctx context.Context, datasetName, id string, includeStaled bool) (*Datapoint, *gatewayerr.Error) {
	mint := newParamMinter(0)
	datasetParam := mint.mint(clickhouse.TypeString, datasetName)
	idParam := mint.mint(clickhouse.TypeUUID, id)

	staledClause := " AND staled_at IS NULL"
	if includeStaled {
		staledClause = ""
	}
	selectFor := func(kind querybuilder.FunctionKind) string {
		toolParams, outputSchema := "''", "''"
		if kind == querybuilder.FunctionKindChat {
			toolParams = "tool_params"
		} else {
			outputSchema = "output_schema"
		}
		return fmt.Sprintf(
			"SELECT dataset_name, function_name, id, name, episode_id, input, output, %s AS tool_params, %s AS output_schema, tags, auxiliary, is_deleted, source_inference_id, is_custom, staled_at, updated_at, '%s' AS type FROM %s FINAL WHERE dataset_name = %s AND id = %s%s",
			toolParams, outputSchema, kind, datapointTable(kind), datasetParam.Placeholder(), idParam.Placeholder(), staledClause,
		)
	}
	sql := fmt.Sprintf("SELECT * FROM (%s UNION ALL %s) FORMAT JSONEachRow",
		selectFor(querybuilder.FunctionKindChat), selectFor(querybuilder.FunctionKindJSON))

	rows, err := m.client.Select(ctx, "get_datapoint", sql, []clickhouse.QueryParameter{datasetParam, idParam})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()
	if !rows.Next() {
		if rerr := rows.Err(); rerr != nil {
			return nil, wrapStoreErr(rerr)
		}
		return nil, gatewayerr.New(gatewayerr.KindDatapointNotFound, "datapoint not found").WithDatapoint(datasetName, id)
	}
	var dp Datapoint
	if err := rows.Scan(&dp); err != nil {
		return nil, wrapStoreErr(err)
	}
	return &dp, nil
}

// Adjacency returns the previous and next live datapoint ids in the
// dataset's UUIDv7 (time) order, per spec.md §4.4 "Adjacency navigation".
// Either may be nil at a dataset boundary.
func (m *Manager) Adjacency(ctx context.Context, datasetName, id string) (previous, next *string, gerr *gatewayerr.Error) {
	mint := newParamMinter(0)
	datasetParam := mint.mint(clickhouse.TypeString, datasetName)
	idParam := mint.mint(clickhouse.TypeUUID, id)

	sql := fmt.Sprintf(`
WITH DatasetIds AS (
  SELECT toUInt128(id) AS u FROM ChatInferenceDatapoint WHERE dataset_name = %[1]s AND staled_at IS NULL
  UNION ALL
  SELECT toUInt128(id) AS u FROM JsonInferenceDatapoint WHERE dataset_name = %[1]s AND staled_at IS NULL
)
SELECT
  NULLIF((SELECT uint_to_uuid(min(u)) FROM DatasetIds WHERE u > toUInt128(%[2]s)), toUUID('00000000-0000-0000-0000-000000000000')) AS next_id,
  NULLIF((SELECT uint_to_uuid(max(u)) FROM DatasetIds WHERE u < toUInt128(%[2]s)), toUUID('00000000-0000-0000-0000-000000000000')) AS previous_id
FORMAT JSONEachRow`, datasetParam.Placeholder(), idParam.Placeholder())

	rows, err := m.client.Select(ctx, "adjacency", sql, []clickhouse.QueryParameter{datasetParam, idParam})
	if err != nil {
		return nil, nil, wrapStoreErr(err)
	}
	defer rows.Close()
	if !rows.Next() {
		if rerr := rows.Err(); rerr != nil {
			return nil, nil, wrapStoreErr(rerr)
		}
		return nil, nil, nil
	}
	var row struct {
		NextID     *string `json:"next_id"`
		PreviousID *string `json:"previous_id"`
	}
	if err := rows.Scan(&row); err != nil {
		return nil, nil, wrapStoreErr(err)
	}
	return row.PreviousID, row.NextID, nil
}

// CustomInsert writes a caller-authored datapoint through the non-batched
// path, per spec.md §4.4 "Custom insert". tool_params/tags are serialized
// as the dialect expects ("" for an absent chat tool_params, "{}" for an
// absent json output_schema), and the dataset name is validated against
// the reserved list before any query is dispatched.
func (m *Manager) CustomInsert(ctx context.Context, kind querybuilder.FunctionKind, dp Datapoint) *gatewayerr.Error {
	if err := ValidateDatasetName(dp.DatasetName); err != nil {
		return err
	}
	if dp.ID == "" {
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "custom datapoint requires an id")
	}

	tagsJSON, jsonErr := json.Marshal(dp.Tags)
	if jsonErr != nil {
		return gatewayerr.Wrap(gatewayerr.KindSerialization, jsonErr, "failed to serialize datapoint tags")
	}

	typeSpecific := dp.ToolParams
	if kind == querybuilder.FunctionKindJSON {
		typeSpecific = dp.OutputSchema
		if typeSpecific == "" {
			typeSpecific = "{}"
		}
		if dp.Output != nil {
			if err := validateOutputAgainstSchema(typeSpecific, *dp.Output); err != nil {
				return err
			}
		}
	}

	mint := newParamMinter(0)
	datasetParam := mint.mint(clickhouse.TypeString, dp.DatasetName)
	functionParam := mint.mint(clickhouse.TypeString, dp.FunctionName)
	idParam := mint.mint(clickhouse.TypeUUID, dp.ID)
	inputParam := mint.mint(clickhouse.TypeString, dp.Input)
	outputParam := mint.mint(clickhouse.TypeString, derefOrEmpty(dp.Output))
	typeSpecificParam := mint.mint(clickhouse.TypeString, typeSpecific)
	tagsParam := mint.mint(clickhouse.TypeString, string(tagsJSON))

	params := []clickhouse.QueryParameter{datasetParam, functionParam, idParam, inputParam, outputParam, typeSpecificParam, tagsParam}
	sql := fmt.Sprintf(
		"INSERT INTO %s (dataset_name, function_name, id, input, output, %s, tags, is_deleted, is_custom, updated_at) VALUES (%s, %s, %s, %s, %s, %s, %s, false, true, now64())",
		datapointTable(kind), typeColumn(kind),
		datasetParam.Placeholder(), functionParam.Placeholder(), idParam.Placeholder(),
		inputParam.Placeholder(), outputParam.Placeholder(), typeSpecificParam.Placeholder(), tagsParam.Placeholder(),
	)
	return wrapStoreErr(m.client.Exec(ctx, "custom_insert_datapoint", sql, params))
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

func effectiveOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// ListDatasetRows returns one dataset's live datapoints, newest first, per
// SPEC_FULL.md §4.4.1's supplement (grounded in dataset_queries.rs's
// get_dataset_rows).
func (m *Manager) ListDatasetRows(ctx context.Context, datasetName string, limit, offset int) ([]DatasetRow, *gatewayerr.Error) {
	if err := ValidateDatasetName(datasetName); err != nil {
		return nil, err
	}
	mint := newParamMinter(0)
	datasetParam := mint.mint(clickhouse.TypeString, datasetName)
	limitParam := mint.mint(clickhouse.TypeUInt64, uint64(effectiveLimit(limit)))
	offsetParam := mint.mint(clickhouse.TypeUInt64, uint64(effectiveOffset(offset)))

	selectFor := func(kind querybuilder.FunctionKind) string {
		return fmt.Sprintf("SELECT id, function_name, name, updated_at FROM %s FINAL WHERE dataset_name = %s AND staled_at IS NULL",
			datapointTable(kind), datasetParam.Placeholder())
	}
	sql := fmt.Sprintf(
		"SELECT * FROM (%s UNION ALL %s) ORDER BY updated_at DESC LIMIT %s OFFSET %s FORMAT JSONEachRow",
		selectFor(querybuilder.FunctionKindChat), selectFor(querybuilder.FunctionKindJSON),
		limitParam.Placeholder(), offsetParam.Placeholder(),
	)

	rows, err := m.client.Select(ctx, "list_dataset_rows", sql, []clickhouse.QueryParameter{datasetParam, limitParam, offsetParam})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()
	var out []DatasetRow
	for rows.Next() {
		var row DatasetRow
		if serr := rows.Scan(&row); serr != nil {
			return nil, wrapStoreErr(serr)
		}
		out = append(out, row)
	}
	if rerr := rows.Err(); rerr != nil {
		return nil, wrapStoreErr(rerr)
	}
	return out, nil
}

// GetDatasetMetadata returns per-function live-datapoint counts for a
// dataset, per SPEC_FULL.md §4.4.1's supplement (grounded in
// dataset_queries.rs's get_dataset_metadata).
func (m *Manager) GetDatasetMetadata(ctx context.Context, datasetName string) ([]DatasetMetadata, *gatewayerr.Error) {
	if err := ValidateDatasetName(datasetName); err != nil {
		return nil, err
	}
	mint := newParamMinter(0)
	datasetParam := mint.mint(clickhouse.TypeString, datasetName)

	selectFor := func(kind querybuilder.FunctionKind) string {
		return fmt.Sprintf("SELECT function_name FROM %s FINAL WHERE dataset_name = %s AND staled_at IS NULL",
			datapointTable(kind), datasetParam.Placeholder())
	}
	sql := fmt.Sprintf(
		"SELECT function_name, toUInt64(count()) AS count FROM (%s UNION ALL %s) GROUP BY function_name ORDER BY function_name FORMAT JSONEachRow",
		selectFor(querybuilder.FunctionKindChat), selectFor(querybuilder.FunctionKindJSON),
	)

	rows, err := m.client.Select(ctx, "get_dataset_metadata", sql, []clickhouse.QueryParameter{datasetParam})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()
	var out []DatasetMetadata
	for rows.Next() {
		var row DatasetMetadata
		if serr := rows.Scan(&row); serr != nil {
			return nil, wrapStoreErr(serr)
		}
		out = append(out, row)
	}
	if rerr := rows.Err(); rerr != nil {
		return nil, wrapStoreErr(rerr)
	}
	return out, nil
}
