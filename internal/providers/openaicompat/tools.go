package openaicompat

import (
	"encoding/json"

	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// Tool is a Chat Completions tool definition.
type Tool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

// BuildTools converts the cross-provider tool list. Returns nil when tool
// choice is "none", omitting the tools array entirely.
func BuildTools(tc *inference.ToolConfig) []Tool {
	if tc == nil || tc.ToolChoice.Kind == inference.ToolChoiceNone {
		return nil
	}
	out := make([]Tool, 0, len(tc.ToolsAvailable))
	for _, t := range tc.ToolsAvailable {
		var wt Tool
		wt.Type = "function"
		wt.Function.Name = t.Name
		wt.Function.Description = t.Description
		wt.Function.Parameters = t.Parameters
		out = append(out, wt)
	}
	return out
}

// BuildToolChoice maps the cross-provider tool choice to the Chat
// Completions encoding: a bare string for auto/required/none, or an object
// naming a specific function.
func BuildToolChoice(tc *inference.ToolConfig) any {
	if tc == nil {
		return nil
	}
	switch tc.ToolChoice.Kind {
	case inference.ToolChoiceAuto:
		return "auto"
	case inference.ToolChoiceRequired:
		return "required"
	case inference.ToolChoiceNone:
		return "none"
	case inference.ToolChoiceSpecific:
		return map[string]any{
			"type":     "function",
			"function": map[string]string{"name": tc.ToolChoice.Name},
		}
	default:
		return nil
	}
}
