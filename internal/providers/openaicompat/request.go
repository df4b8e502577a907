package openaicompat

import (
	"encoding/json"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// RequestBody is the outgoing Chat Completions POST body.
type RequestBody struct {
	Model          string     `json:"model"`
	Messages       []Message  `json:"messages"`
	MaxTokens      int        `json:"max_tokens,omitempty"`
	Temperature    *float64   `json:"temperature,omitempty"`
	TopP           *float64   `json:"top_p,omitempty"`
	Stop           []string   `json:"stop,omitempty"`
	Stream         bool       `json:"stream,omitempty"`
	Tools          []Tool     `json:"tools,omitempty"`
	ToolChoice     any        `json:"tool_choice,omitempty"`
	ResponseFormat any        `json:"response_format,omitempty"`
}

// BuildRequestBody constructs the Chat Completions body for req. system is
// req.System after the caller has already applied any JSON-mode directive
// prefix (providers.ApplyJSONModePrefix), since that coercion is identical
// across OpenAI-compatible vendors.
func BuildRequestBody(model string, req *inference.ModelInferenceRequest) (*RequestBody, []byte, *gatewayerr.Error) {
	system := providers.ApplyJSONModePrefix(req)

	messages, _, err := BuildMessages(system, req.Messages)
	if err != nil {
		return nil, nil, err
	}

	body := &RequestBody{
		Model:      model,
		Messages:   messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
		Stream:      req.Stream,
		Tools:       BuildTools(req.ToolConfig),
		ToolChoice:  BuildToolChoice(req.ToolConfig),
	}
	if req.MaxTokens != nil {
		body.MaxTokens = int(*req.MaxTokens)
	}
	if req.FunctionType == inference.FunctionJSON &&
		(req.JSONMode == inference.JSONModeOn || req.JSONMode == inference.JSONModeStrict) {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	raw, mErr := json.Marshal(body)
	if mErr != nil {
		return nil, nil, gatewayerr.Wrap(gatewayerr.KindSerialization, mErr, "failed to serialize chat completions request body")
	}

	if req.ExtraBody != nil {
		raw, mErr = mergeExtraBody(raw, req.ExtraBody)
		if mErr != nil {
			return nil, nil, gatewayerr.Wrap(gatewayerr.KindSerialization, mErr, "failed to apply extra_body overrides")
		}
	}

	return body, raw, nil
}

func mergeExtraBody(base, extra []byte) ([]byte, error) {
	var baseMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, err
	}
	var extraMap map[string]json.RawMessage
	if err := json.Unmarshal(extra, &extraMap); err != nil {
		return nil, err
	}
	for k, v := range extraMap {
		baseMap[k] = v
	}
	return json.Marshal(baseMap)
}

// ValidateLlamaParams enforces the Llama family's parameter bounds
// (top_p in [0,1], temperature in [0,2]) before dispatch, per §4.2b.
func ValidateLlamaParams(req *inference.ModelInferenceRequest) *gatewayerr.Error {
	if req.TopP != nil && (*req.TopP < 0 || *req.TopP > 1) {
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "top_p must be within [0, 1]")
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "temperature must be within [0, 2]")
	}
	return nil
}
