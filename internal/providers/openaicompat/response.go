package openaicompat

import (
	"encoding/json"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// responseMessage is a Chat Completions response message.
type responseMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

type responseChoice struct {
	Index        int             `json:"index"`
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type responseUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// ChatCompletionResponse is the non-streaming Chat Completions response
// shape shared by every OpenAI-compatible vendor this gateway targets.
type ChatCompletionResponse struct {
	ID      string            `json:"id"`
	Choices []responseChoice  `json:"choices"`
	Usage   responseUsage     `json:"usage"`
}

// FinishReasonFromOpenAI maps a Chat Completions finish_reason to the
// cross-provider enum. An empty string is treated as absent/unknown per
// §4.2b's empty-string tolerance, not a parse error.
func FinishReasonFromOpenAI(reason string) inference.FinishReason {
	switch reason {
	case "stop":
		return inference.FinishStop
	case "length":
		return inference.FinishLength
	case "tool_calls":
		return inference.FinishToolCall
	case "content_filter":
		return inference.FinishContentFilter
	default:
		return inference.FinishUnknown
	}
}

// ParseResponse parses a non-streaming Chat Completions body into the
// cross-provider output shape.
func ParseResponse(raw []byte) (*ChatCompletionResponse, []inference.ContentBlockOutput, *gatewayerr.Error) {
	var body ChatCompletionResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, nil, gatewayerr.Wrap(gatewayerr.KindOutputParsing, err, "failed to parse chat completions response body").
			WithRaw("", string(raw))
	}
	if len(body.Choices) == 0 {
		return &body, nil, nil
	}
	msg := body.Choices[0].Message
	output := make([]inference.ContentBlockOutput, 0, 1+len(msg.ToolCalls))
	if msg.Content != "" {
		output = append(output, inference.Text(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		output = append(output, inference.ToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}
	return &body, output, nil
}

// UsageFromResponse extracts token usage from a parsed response.
func UsageFromResponse(body *ChatCompletionResponse) inference.Usage {
	return inference.Usage{InputTokens: body.Usage.PromptTokens, OutputTokens: body.Usage.CompletionTokens}
}

// ChoiceFinishReason exposes the first choice's finish reason, tolerating a
// response with no choices.
func ChoiceFinishReason(body *ChatCompletionResponse) inference.FinishReason {
	if len(body.Choices) == 0 {
		return inference.FinishUnknown
	}
	return FinishReasonFromOpenAI(body.Choices[0].FinishReason)
}
