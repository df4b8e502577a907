package anthropic

import (
	"encoding/json"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// wireUsage is Anthropic's usage block.
type wireUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

// wireResponseBody is the non-streaming /v1/messages response shape.
type wireResponseBody struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Role       string          `json:"role"`
	Content    []wireContent   `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
	Usage      wireUsage       `json:"usage"`
}

// finishReasonFromStopReason maps Anthropic's stop_reason to the
// provider-agnostic FinishReason enum per §4.2a's finish-reasons table.
func finishReasonFromStopReason(stopReason string) inference.FinishReason {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return inference.FinishStop
	case "max_tokens":
		return inference.FinishLength
	case "tool_use":
		return inference.FinishToolCall
	default:
		return inference.FinishUnknown
	}
}

// convertOutputBlock maps one Anthropic response content block back to the
// cross-provider ContentBlockOutput shape.
func convertOutputBlock(c wireContent, jsonPrefillActive bool) inference.ContentBlockOutput {
	switch c.Type {
	case "text":
		text := c.Text
		if jsonPrefillActive {
			text = providers.ReattachJSONPrefill(text)
		}
		return inference.Text(text)
	case "tool_use":
		return inference.ToolCall(c.ID, c.Name, string(c.Input))
	case "thinking":
		return inference.Thought(c.Thinking, c.Signature)
	default:
		raw, _ := json.Marshal(c)
		return inference.UnknownBlock(raw, "anthropic")
	}
}

func parseResponseBody(raw []byte, jsonPrefillActive bool) (*wireResponseBody, []inference.ContentBlockOutput, *gatewayerr.Error) {
	var body wireResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, nil, gatewayerr.Wrap(gatewayerr.KindOutputParsing, err, "failed to parse anthropic response body").
			WithRaw("", string(raw))
	}
	output := make([]inference.ContentBlockOutput, 0, len(body.Content))
	for _, c := range body.Content {
		output = append(output, convertOutputBlock(c, jsonPrefillActive))
	}
	return &body, output, nil
}

func usageFromWire(u wireUsage) inference.Usage {
	return inference.Usage{
		InputTokens:      u.InputTokens,
		OutputTokens:     u.OutputTokens,
		CacheReadTokens:  u.CacheReadInputTokens,
		CacheWriteTokens: u.CacheCreationInputTokens,
	}
}
