// Package openaicompat holds the body-construction, tool conversion, and
// streaming accumulation logic shared by every OpenAI-compatible Chat
// Completions vendor (Groq, Llama). Per-vendor packages own only the thin
// transport and envelope differences §4.2b calls out.
package openaicompat

import (
	"encoding/json"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// Message is one Chat Completions message. Content is handled with custom
// marshaling: a single text block serializes as a bare string for
// compatibility with older OpenAI-compatible servers, per §4.2b; anything
// else serializes as a content-part array.
type Message struct {
	Role       string
	Text       string // used when len(Parts) == 0 and role isn't "tool"
	Parts      []ContentPart
	ToolCalls  []ToolCall
	ToolCallID string // only set on role "tool"
}

type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type ToolCall struct {
	Index    *int   `json:"index,omitempty"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// wireMessage is Message's JSON-on-the-wire shape; MarshalJSON on Message
// picks between a bare string and a content-part array.
type wireMessage struct {
	Role       string        `json:"role"`
	Content    any           `json:"content,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{Role: m.Role, ToolCalls: m.ToolCalls, ToolCallID: m.ToolCallID}
	switch {
	case len(m.Parts) > 0:
		w.Content = m.Parts
	case m.Role == "tool" || m.Text != "" || (len(m.ToolCalls) == 0 && m.Role != "assistant"):
		w.Content = m.Text
	}
	return json.Marshal(w)
}

// BuildMessages converts the cross-provider message list (plus the system
// prompt) into Chat Completions messages. ToolResult blocks found in a user
// message are fanned out into separate tool-role messages; Thought blocks
// are dropped (most OpenAI-compatibles do not support them).
func BuildMessages(system string, messages []inference.RequestMessage) ([]Message, bool, *gatewayerr.Error) {
	out := make([]Message, 0, len(messages)+1)
	droppedThought := false

	if system != "" {
		out = append(out, Message{Role: "system", Text: system})
	}

	for _, m := range messages {
		var parts []ContentPart
		var toolCalls []ToolCall
		var singleText string
		textBlockCount := 0

		for _, b := range m.Content {
			switch b.Kind {
			case inference.BlockText:
				textBlockCount++
				singleText = b.Text
				parts = append(parts, ContentPart{Type: "text", Text: b.Text})
			case inference.BlockToolCall:
				idx := len(toolCalls)
				tc := ToolCall{Index: &idx, ID: b.ToolCallID, Type: "function"}
				tc.Function.Name = b.ToolCallName
				tc.Function.Arguments = b.ToolCallArgumentsJSON
				toolCalls = append(toolCalls, tc)
			case inference.BlockToolResult:
				out = append(out, Message{Role: "tool", Text: b.ToolResultString, ToolCallID: b.ToolResultID})
			case inference.BlockFile:
				parts = append(parts, ContentPart{Type: "image_url", ImageURL: &struct {
					URL string `json:"url"`
				}{URL: "data:" + b.FileMimeType + ";base64," + b.FileBase64Data}})
			case inference.BlockThought:
				droppedThought = true
			case inference.BlockUnknown:
				// Unknown blocks never originated from this provider family;
				// drop silently rather than guess at reinterpretation.
			default:
				return nil, droppedThought, gatewayerr.New(gatewayerr.KindInvalidMessage, "unsupported content block kind")
			}
		}

		if len(toolCalls) == 0 && len(parts) == 0 {
			continue // the whole message was a tool result fan-out, already appended
		}

		role := string(m.Role)
		if len(toolCalls) > 0 {
			role = "assistant"
		}

		msg := Message{Role: role, ToolCalls: toolCalls}
		if len(parts) == 1 && textBlockCount == 1 && len(toolCalls) == 0 {
			msg.Text = singleText
		} else if len(parts) > 0 {
			msg.Parts = parts
		}
		out = append(out, msg)
	}

	return out, droppedThought, nil
}
