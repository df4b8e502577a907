package querybuilder

import "fmt"

// tableFor returns the inference-log table name for a function kind.
func tableFor(kind FunctionKind) string {
	if kind == FunctionKindJSON {
		return "JsonInference"
	}
	return "ChatInference"
}

// columnsFor renders the column-aligned SELECT list for one table per
// spec.md §4.3 step 1: chat rows carry tool_params and fill output_schema
// with '', json rows carry output_schema and fill tool_params with '', and
// both carry a literal type discriminator so a UNION ALL of the two stays
// column-aligned. When outputSource is demonstration, output is read from
// the joined demo_f alias and the inference's own output is additionally
// exposed as dispreferred_outputs, per spec.md §4.3 step 3.
func columnsFor(kind FunctionKind, outputSource OutputSource) string {
	toolParams := "''"
	outputSchema := "''"
	if kind == FunctionKindChat {
		toolParams = "i.tool_params"
	} else {
		outputSchema = "i.output_schema"
	}

	outputCol := "i.output"
	dispreferred := ""
	if outputSource == OutputSourceDemonstration {
		outputCol = "demo_f.value"
		dispreferred = ", [i.output] AS dispreferred_outputs"
	}

	return fmt.Sprintf(
		"i.id, i.function_name, i.variant_name, i.episode_id, i.timestamp, i.input, %s AS output, %s AS tool_params, %s AS output_schema, i.tags, '%s' AS type%s",
		outputCol, toolParams, outputSchema, kind, dispreferred,
	)
}
