package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// wireMessage is the Anthropic Messages API message shape.
type wireMessage struct {
	Role    string        `json:"role"`
	Content []wireContent `json:"content"`
}

// wireContent is a tagged union over Anthropic's content block types. Only
// the fields relevant to Type are populated.
type wireContent struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string            `json:"tool_use_id,omitempty"`
	Content   []wireTextContent `json:"content,omitempty"`

	Source *wireImageSource `json:"source,omitempty"`

	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	// Unknown block passthrough: when Type is empty, Raw holds the exact
	// bytes to reinsert verbatim into the outgoing body.
	Raw json.RawMessage `json:"-"`
}

type wireTextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type wireToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// wireRequestBody is the outgoing POST body to /v1/messages.
type wireRequestBody struct {
	Model         string           `json:"model"`
	Messages      []wireMessage    `json:"messages"`
	System        string           `json:"system,omitempty"`
	MaxTokens     int              `json:"max_tokens"`
	Temperature   *float64         `json:"temperature,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Stream        bool             `json:"stream,omitempty"`
	Tools         []wireTool       `json:"tools,omitempty"`
	ToolChoice    *wireToolChoice  `json:"tool_choice,omitempty"`
}

const listeningPlaceholder = "[listening]"

// reshapeMessages enforces Anthropic's message-ordering invariants: the
// first message must be user, and the last message must not be assistant
// unless the caller intends continuation (signalled by the caller simply
// not appending a synthetic closer — this adapter always closes on
// assistant-last, matching the spec's "unless caller intends continuation"
// carve-out being handled by the caller never invoking a turn that way).
func reshapeMessages(messages []inference.RequestMessage) []inference.RequestMessage {
	out := make([]inference.RequestMessage, 0, len(messages)+2)
	if len(messages) == 0 || messages[0].Role != inference.RoleUser {
		out = append(out, inference.RequestMessage{
			Role:    inference.RoleUser,
			Content: []inference.ContentBlock{inference.Text(listeningPlaceholder)},
		})
	}
	out = append(out, messages...)
	if len(out) > 0 && out[len(out)-1].Role == inference.RoleAssistant {
		out = append(out, inference.RequestMessage{
			Role:    inference.RoleUser,
			Content: []inference.ContentBlock{inference.Text(listeningPlaceholder)},
		})
	}
	return out
}

// convertContentBlock maps one ContentBlock to its Anthropic wire shape per
// the §4.2a content-blocks mapping table.
func convertContentBlock(b inference.ContentBlock) (wireContent, *gatewayerr.Error) {
	switch b.Kind {
	case inference.BlockText:
		return wireContent{Type: "text", Text: b.Text}, nil
	case inference.BlockToolCall:
		var obj map[string]any
		if err := json.Unmarshal([]byte(b.ToolCallArgumentsJSON), &obj); err != nil {
			return wireContent{}, gatewayerr.New(gatewayerr.KindInvalidMessage,
				"tool call arguments must parse as a JSON object").WithName(b.ToolCallName)
		}
		return wireContent{Type: "tool_use", ID: b.ToolCallID, Name: b.ToolCallName, Input: json.RawMessage(b.ToolCallArgumentsJSON)}, nil
	case inference.BlockToolResult:
		return wireContent{
			Type:      "tool_result",
			ToolUseID: b.ToolResultID,
			Content:   []wireTextContent{{Type: "text", Text: b.ToolResultString}},
		}, nil
	case inference.BlockFile:
		return wireContent{
			Type: "image",
			Source: &wireImageSource{
				Type:      "base64",
				MediaType: b.FileMimeType,
				Data:      b.FileBase64Data,
			},
		}, nil
	case inference.BlockThought:
		return wireContent{Type: "thinking", Thinking: b.ThoughtText, Signature: b.ThoughtSignature}, nil
	case inference.BlockUnknown:
		return wireContent{Raw: b.UnknownRawJSON}, nil
	default:
		return wireContent{}, gatewayerr.New(gatewayerr.KindInvalidMessage, fmt.Sprintf("unsupported content block kind %q", b.Kind))
	}
}

func convertMessage(m inference.RequestMessage) (wireMessage, *gatewayerr.Error) {
	content := make([]wireContent, 0, len(m.Content))
	for _, b := range m.Content {
		wc, err := convertContentBlock(b)
		if err != nil {
			return wireMessage{}, err
		}
		content = append(content, wc)
	}
	return wireMessage{Role: string(m.Role), Content: content}, nil
}

func convertToolChoice(tc *inference.ToolConfig) *wireToolChoice {
	if tc == nil {
		return nil
	}
	switch tc.ToolChoice.Kind {
	case inference.ToolChoiceAuto:
		return &wireToolChoice{Type: "auto"}
	case inference.ToolChoiceRequired:
		return &wireToolChoice{Type: "any"}
	case inference.ToolChoiceSpecific:
		return &wireToolChoice{Type: "tool", Name: tc.ToolChoice.Name}
	case inference.ToolChoiceNone:
		return nil // tools omitted entirely; see convertTools
	default:
		return nil
	}
}

func convertTools(tc *inference.ToolConfig) []wireTool {
	if tc == nil || tc.ToolChoice.Kind == inference.ToolChoiceNone {
		return nil
	}
	out := make([]wireTool, 0, len(tc.ToolsAvailable))
	for _, t := range tc.ToolsAvailable {
		out = append(out, wireTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}
	return out
}

// buildRequestBody constructs the Anthropic-native JSON body for req,
// applying message reshaping and JSON-mode coercion, and returns both the
// struct (for programmatic access, e.g. by tests) and its exact serialized
// bytes (for raw_request capture).
func buildRequestBody(model string, req *inference.ModelInferenceRequest) (*wireRequestBody, []byte, *gatewayerr.Error) {
	messages := reshapeMessages(req.Messages)

	needsJSONPrefill := req.FunctionType == inference.FunctionJSON &&
		(req.JSONMode == inference.JSONModeOn || req.JSONMode == inference.JSONModeStrict)
	if needsJSONPrefill {
		messages = append(messages, inference.RequestMessage{
			Role:    inference.RoleAssistant,
			Content: []inference.ContentBlock{inference.Text(providers.PrefillAssistantJSON)},
		})
	}

	wireMessages := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wm, err := convertMessage(m)
		if err != nil {
			return nil, nil, err
		}
		wireMessages = append(wireMessages, wm)
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = int(*req.MaxTokens)
	}

	body := &wireRequestBody{
		Model:         model,
		Messages:      wireMessages,
		System:        providers.ApplyJSONModePrefix(req),
		MaxTokens:     maxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.StopSequences,
		Stream:        req.Stream,
		Tools:         convertTools(req.ToolConfig),
		ToolChoice:    convertToolChoice(req.ToolConfig),
	}

	raw, mErr := json.Marshal(body)
	if mErr != nil {
		return nil, nil, gatewayerr.Wrap(gatewayerr.KindSerialization, mErr, "failed to serialize anthropic request body")
	}

	if req.ExtraBody != nil {
		raw, mErr = mergeExtraBody(raw, req.ExtraBody)
		if mErr != nil {
			return nil, nil, gatewayerr.Wrap(gatewayerr.KindSerialization, mErr, "failed to apply extra_body overrides")
		}
	}

	return body, raw, nil
}

// mergeExtraBody applies caller-supplied top-level overrides onto the
// generated body, the per-provider escape hatch.
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
