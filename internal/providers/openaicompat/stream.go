package openaicompat

import (
	"encoding/json"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// StreamChunk is one Groq-style SSE data frame.
type StreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *responseUsage `json:"usage"`
}

// ToolCallTracker maintains the running (index -> id) map a Groq-style
// stream needs: the vendor sends id/name only on the first frame per tool
// call index, and omits them on subsequent argument-delta frames.
type ToolCallTracker struct {
	seenIDs []string
}

// Resolve records a new id at idx if one was just sent, or looks up the id
// previously seen at idx when the frame omits it. An idx beyond the seen
// range (with no id offered) is a protocol error per §4.2b.
func (t *ToolCallTracker) Resolve(idx int, id string) (string, *gatewayerr.Error) {
	for len(t.seenIDs) <= idx {
		t.seenIDs = append(t.seenIDs, "")
	}
	if id != "" {
		t.seenIDs[idx] = id
	}
	if t.seenIDs[idx] == "" {
		return "", gatewayerr.New(gatewayerr.KindOutputParsing, "tool call delta references an index with no previously seen id")
	}
	return t.seenIDs[idx], nil
}

// ParseStreamChunk unmarshals one SSE data payload into a StreamChunk.
func ParseStreamChunk(data string) (*StreamChunk, *gatewayerr.Error) {
	var chunk StreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindOutputParsing, err, "failed to parse chat completions stream chunk").WithRaw("", data)
	}
	return &chunk, nil
}

// ChunksFromStreamChunk converts one parsed StreamChunk into zero or more
// cross-provider chunks, resolving tool-call ids through tracker and
// treating an empty finish_reason as absent per §4.2b's tolerance rule.
func ChunksFromStreamChunk(chunk *StreamChunk, tracker *ToolCallTracker, rawChunk string) ([]inference.ProviderInferenceResponseChunk, *gatewayerr.Error) {
	var out []inference.ProviderInferenceResponseChunk
	if len(chunk.Choices) == 0 {
		if chunk.Usage != nil {
			u := inference.Usage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
			out = append(out, inference.ProviderInferenceResponseChunk{Usage: &u, RawChunk: rawChunk})
		}
		return out, nil
	}

	choice := chunk.Choices[0]
	if choice.Delta.Content != "" {
		out = append(out, inference.ProviderInferenceResponseChunk{
			Text:     &inference.TextChunk{Text: choice.Delta.Content},
			RawChunk: rawChunk,
		})
	}
	for _, tc := range choice.Delta.ToolCalls {
		idx := 0
		if tc.Index != nil {
			idx = *tc.Index
		}
		id, err := tracker.Resolve(idx, tc.ID)
		if err != nil {
			return nil, err
		}
		var rawName *string
		if tc.Function.Name != "" {
			name := tc.Function.Name
			rawName = &name
		}
		out = append(out, inference.ProviderInferenceResponseChunk{
			ToolCall: &inference.ToolCallChunk{ID: id, RawName: rawName, RawArguments: tc.Function.Arguments},
			RawChunk: rawChunk,
		})
	}
	if choice.FinishReason != "" {
		fr := FinishReasonFromOpenAI(choice.FinishReason)
		var u *inference.Usage
		if chunk.Usage != nil {
			uu := inference.Usage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
			u = &uu
		}
		out = append(out, inference.ProviderInferenceResponseChunk{FinishReason: &fr, Usage: u, RawChunk: rawChunk})
	}
	return out, nil
}

// DoneTerminator is the OpenAI-family SSE terminator payload.
const DoneTerminator = "[DONE]"
