package llama

import (
	"encoding/json"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers/openaicompat"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// wireContent is Llama's non-streaming text-content shape.
type wireContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// wireToolCall is Llama's non-streaming tool-call shape.
type wireToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireCompletionMessage struct {
	Role       string        `json:"role"`
	StopReason string        `json:"stop_reason"`
	Content    *wireContent  `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls"`
}

type wireMetric struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}

// wireResponseBody is Llama's non-streaming response envelope.
type wireResponseBody struct {
	ID               string                 `json:"id"`
	CompletionMessage wireCompletionMessage `json:"completion_message"`
	Metrics          []wireMetric           `json:"metrics"`
}

// finishReasonFromStopReason maps Llama's stop_reason values onto the
// cross-provider enum; Llama reuses the OpenAI-family vocabulary
// (stop/length/tool_calls/content_filter) for this field.
func finishReasonFromStopReason(stopReason string) inference.FinishReason {
	return openaicompat.FinishReasonFromOpenAI(stopReason)
}

func usageFromMetrics(metrics []wireMetric) inference.Usage {
	var u inference.Usage
	for _, m := range metrics {
		switch m.Metric {
		case "num_prompt_tokens":
			u.InputTokens = int64(m.Value)
		case "num_completion_tokens":
			u.OutputTokens = int64(m.Value)
		}
	}
	return u
}

// parseResponseBody parses Llama's non-streaming response, selecting the
// text or tool-call branch per §4.2b's "Llama response shape" rule.
func parseResponseBody(raw []byte) (*wireResponseBody, []inference.ContentBlockOutput, *gatewayerr.Error) {
	var body wireResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, nil, gatewayerr.Wrap(gatewayerr.KindOutputParsing, err, "failed to parse llama response body").
			WithRaw("", string(raw))
	}

	var output []inference.ContentBlockOutput
	msg := body.CompletionMessage
	if len(msg.ToolCalls) > 0 {
		for _, tc := range msg.ToolCalls {
			output = append(output, inference.ToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
		}
	} else if msg.Content != nil {
		output = append(output, inference.Text(msg.Content.Text))
	}

	return &body, output, nil
}
