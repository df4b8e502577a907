// Package dataset implements the materialization layer over the
// inference-log store: turning historical inference rows into addressable,
// versioned datapoints for evaluation and fine-tuning, per spec.md §4.4.
package dataset

import (
	"strings"
	"time"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/querybuilder"
)

// reservedPrefix is the namespace the core reserves for its own tooling;
// no caller-supplied function, metric, model, provider, tool, or dataset
// name may start with it (spec.md §3 "Reserved names").
const reservedPrefix = "tensorzero::"

// reservedDatasetName is the one literal dataset name reserved outside the
// tensorzero:: namespace.
const reservedDatasetName = "builder"

// ValidateDatasetName rejects a reserved or empty dataset name before any
// query is dispatched (invariant 8, scenario S8's sibling).
func ValidateDatasetName(name string) *gatewayerr.Error {
	if name == "" {
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "dataset name must not be empty")
	}
	if name == reservedDatasetName || strings.HasPrefix(name, reservedPrefix) {
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "dataset name is reserved").WithName(name)
	}
	return nil
}

// Datapoint is one row of ChatInferenceDatapoint or JsonInferenceDatapoint,
// per spec.md §3 "Dataset records". Both tables are read through this one
// shape; tool_params is empty for json datapoints and output_schema is
// empty for chat ones, the same column-alignment convention the query
// builder uses for ChatInference/JsonInference.
type Datapoint struct {
	DatasetName       string                    `json:"dataset_name"`
	FunctionName      string                    `json:"function_name"`
	ID                string                    `json:"id"`
	Name              *string                   `json:"name,omitempty"`
	EpisodeID         *string                   `json:"episode_id,omitempty"`
	Input             string                    `json:"input"`
	Output            *string                   `json:"output,omitempty"`
	ToolParams        string                    `json:"tool_params"`
	OutputSchema      string                    `json:"output_schema"`
	Tags              map[string]string         `json:"tags"`
	Auxiliary         string                    `json:"auxiliary"`
	IsDeleted         bool                      `json:"is_deleted"`
	SourceInferenceID *string                   `json:"source_inference_id,omitempty"`
	IsCustom          bool                      `json:"is_custom"`
	StaledAt          *time.Time                `json:"staled_at,omitempty"`
	UpdatedAt         time.Time                 `json:"updated_at"`
	Type              querybuilder.FunctionKind `json:"type"`
}

// Live reports whether the datapoint is not staled (spec.md §3 invariant
// (a): "a datapoint is live iff staled_at IS NULL").
func (d Datapoint) Live() bool { return d.StaledAt == nil }

// DatasetRow is one row of a dataset's paginated listing, per SPEC_FULL.md
// §4.4.1's supplemental ListDatasetRows.
type DatasetRow struct {
	ID           string    `json:"id"`
	FunctionName string    `json:"function_name"`
	Name         *string   `json:"name,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DatasetMetadata is one function's aggregate live-datapoint count within a
// dataset, per SPEC_FULL.md §4.4.1's supplemental GetDatasetMetadata.
type DatasetMetadata struct {
	FunctionName string `json:"function_name"`
	Count        uint64 `json:"count"`
}
