package providers

import (
	"strings"

	"github.com/haasonsaas/llmgateway/pkg/inference"
)

const jsonModeDirective = "Respond using JSON."

// NeedsJSONModePrefix reports whether the json-mode coercion rule applies:
// function_type is json, json_mode is on or strict, and neither the system
// prompt nor any message content already mentions "json" (case-insensitive).
func NeedsJSONModePrefix(req *inference.ModelInferenceRequest) bool {
	if req.FunctionType != inference.FunctionJSON {
		return false
	}
	if req.JSONMode != inference.JSONModeOn && req.JSONMode != inference.JSONModeStrict {
		return false
	}
	return !mentionsJSON(req)
}

// ApplyJSONModePrefix returns the system prompt to actually send, per the
// coercion rule's exact concatenation shape: "Respond using JSON.\n\n" plus
// the caller's system when one is present, or just the directive alone.
func ApplyJSONModePrefix(req *inference.ModelInferenceRequest) string {
	if !NeedsJSONModePrefix(req) {
		return req.System
	}
	if req.System == "" {
		return jsonModeDirective
	}
	return jsonModeDirective + "\n\n" + req.System
}

func mentionsJSON(req *inference.ModelInferenceRequest) bool {
	if strings.Contains(strings.ToLower(req.System), "json") {
		return true
	}
	for _, m := range req.Messages {
		for _, c := range m.Content {
			if c.Kind == inference.BlockText && strings.Contains(strings.ToLower(c.Text), "json") {
				return true
			}
		}
	}
	return false
}

// PrefillAssistantJSON is the synthetic assistant turn appended for
// providers (Anthropic) that do not natively guarantee JSON output, to
// coerce a single top-level JSON object.
const PrefillAssistantJSON = "Here is the JSON requested:\n{"

// ReattachJSONPrefill re-prepends the opening brace stripped by the
// prefill turn onto the model's raw output text, reconstructing the full
// JSON object the caller expects.
func ReattachJSONPrefill(modelOutput string) string {
	return "{" + modelOutput
}

// ToolResultFanOut splits a user message's content into the tool-result
// blocks (to be emitted as separate role:"tool" messages, OpenAI-family
// idiom) and the remaining content (text/file/thought blocks, re-emitted
// as a single role:"user" message). A ToolCall block inside a user message
// is the caller's error to avoid, per the tool-translation rule; this
// helper does not validate that case, callers must reject it themselves.
func ToolResultFanOut(content []inference.ContentBlock) (toolResults []inference.ContentBlock, rest []inference.ContentBlock) {
	for _, c := range content {
		if c.Kind == inference.BlockToolResult {
			toolResults = append(toolResults, c)
		} else {
			rest = append(rest, c)
		}
	}
	return toolResults, rest
}

// HasToolCallInUserMessage reports whether a user message's content
// illegally contains a ToolCall block.
func HasToolCallInUserMessage(content []inference.ContentBlock) bool {
	for _, c := range content {
		if c.Kind == inference.BlockToolCall {
			return true
		}
	}
	return false
}

// SingleTextBlock reports whether content is exactly one Text block, the
// condition under which OpenAI-family adapters must serialize content as a
// bare string rather than an array.
func SingleTextBlock(content []inference.ContentBlock) (text string, ok bool) {
	if len(content) == 1 && content[0].Kind == inference.BlockText {
		return content[0].Text, true
	}
	return "", false
}
