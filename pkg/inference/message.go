// Package inference defines the cross-provider message and response model
// that every vendor adapter converts to and from. Nothing in this package
// is provider-specific; it is the shape the rest of the gateway (query
// builder, dataset manager, logging) agrees on regardless of which vendor
// served a given inference.
package inference

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role is the author of a request message. The system prompt is carried
// as a separate ModelInferenceRequest field, never as a message role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlock is a tagged union of the content a message can carry. Exactly
// one of the typed fields is populated per block; Kind identifies which.
// Unknown blocks round-trip verbatim through providers that did not
// originate them and MUST NOT be interpreted by any adapter other than the
// one that reads raw_json back out.
type ContentBlockKind string

const (
	BlockText       ContentBlockKind = "text"
	BlockToolCall   ContentBlockKind = "tool_call"
	BlockToolResult ContentBlockKind = "tool_result"
	BlockFile       ContentBlockKind = "file"
	BlockThought    ContentBlockKind = "thought"
	BlockUnknown    ContentBlockKind = "unknown"
)

// ContentBlock is one block of a message's content array.
type ContentBlock struct {
	Kind ContentBlockKind

	// Text: populated when Kind == BlockText.
	Text string

	// ToolCall: populated when Kind == BlockToolCall.
	ToolCallID            string
	ToolCallName          string
	ToolCallArgumentsJSON string

	// ToolResult: populated when Kind == BlockToolResult.
	ToolResultID     string
	ToolResultName   string
	ToolResultString string

	// File: populated when Kind == BlockFile.
	FileMimeType   string
	FileBase64Data string
	FileStorageRef string

	// Thought: populated when Kind == BlockThought.
	ThoughtText      string
	ThoughtSignature string

	// Unknown: populated when Kind == BlockUnknown. RawJSON is the
	// untouched bytes as received from OriginatingProvider; adapters for
	// any other provider must pass it through unmodified rather than
	// attempt to interpret it.
	UnknownRawJSON           json.RawMessage
	UnknownOriginatingProvider string
}

// Text builds a Text content block.
func Text(s string) ContentBlock { return ContentBlock{Kind: BlockText, Text: s} }

// ToolCall builds a ToolCall content block. argumentsJSON is the tool
// call's arguments serialized as a JSON object string, not a parsed value;
// adapters validate it parses as an object only where the vendor requires it
// (see Anthropic's tool_use mapping).
func ToolCall(id, name, argumentsJSON string) ContentBlock {
	return ContentBlock{Kind: BlockToolCall, ToolCallID: id, ToolCallName: name, ToolCallArgumentsJSON: argumentsJSON}
}

// ToolResult builds a ToolResult content block.
func ToolResult(id, name, result string) ContentBlock {
	return ContentBlock{Kind: BlockToolResult, ToolResultID: id, ToolResultName: name, ToolResultString: result}
}

// File builds a File content block. Exactly one of base64Data or storageRef
// should be set by the caller; the adapter layer does not enforce this.
func File(mimeType, base64Data, storageRef string) ContentBlock {
	return ContentBlock{Kind: BlockFile, FileMimeType: mimeType, FileBase64Data: base64Data, FileStorageRef: storageRef}
}

// Thought builds a Thought content block.
func Thought(text, signature string) ContentBlock {
	return ContentBlock{Kind: BlockThought, ThoughtText: text, ThoughtSignature: signature}
}

// UnknownBlock preserves a block this codebase does not understand, tagged
// with the provider that produced it so only that provider's adapter ever
// reinterprets it.
func UnknownBlock(raw json.RawMessage, originatingProvider string) ContentBlock {
	return ContentBlock{Kind: BlockUnknown, UnknownRawJSON: raw, UnknownOriginatingProvider: originatingProvider}
}

// RequestMessage is one turn of the conversation sent to a provider.
type RequestMessage struct {
	Role    Role
	Content []ContentBlock
}

// ToolChoiceKind selects how a provider should pick among available tools.
type ToolChoiceKind string

const (
	ToolChoiceNone     ToolChoiceKind = "none"
	ToolChoiceAuto     ToolChoiceKind = "auto"
	ToolChoiceRequired ToolChoiceKind = "required"
	ToolChoiceSpecific ToolChoiceKind = "specific"
)

// ToolChoice pairs a ToolChoiceKind with the tool name when Kind ==
// ToolChoiceSpecific.
type ToolChoice struct {
	Kind ToolChoiceKind
	Name string // only meaningful when Kind == ToolChoiceSpecific
}

// Tool describes one function a model may call.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema
}

// ToolConfig is the tool-use configuration of a request.
type ToolConfig struct {
	ToolsAvailable     []Tool
	ToolChoice         ToolChoice
	ParallelToolCalls  *bool // nil means "let the provider decide"
}

// JSONMode controls whether and how strictly a response must be JSON.
type JSONMode string

const (
	JSONModeOff    JSONMode = "off"
	JSONModeOn     JSONMode = "on"
	JSONModeStrict JSONMode = "strict"
)

// FunctionType distinguishes free-form chat functions from structured-output
// JSON functions; see the json-mode coercion invariant this feeds.
type FunctionType string

const (
	FunctionChat FunctionType = "chat"
	FunctionJSON FunctionType = "json"
)

// ModelInferenceRequest is the provider-agnostic description of a single
// inference call. Every adapter's request-construction pipeline starts here.
type ModelInferenceRequest struct {
	// Model is the vendor-native model identifier to target (e.g.
	// "claude-sonnet-4-20250514", "llama-3.3-70b-versatile"). Model
	// routing/variant selection is a config-layer concern outside this
	// core; by the time a request reaches an adapter, Model is resolved.
	Model string

	Messages []RequestMessage
	System   string // empty means absent, not an empty system prompt

	ToolConfig *ToolConfig

	Temperature      *float64
	TopP             *float64
	MaxTokens        *int64
	Seed             *int64
	StopSequences    []string
	PresencePenalty  *float64
	FrequencyPenalty *float64

	JSONMode     JSONMode
	FunctionType FunctionType
	OutputSchema json.RawMessage // only meaningful when FunctionType == FunctionJSON

	Stream bool

	// ExtraBody is a JSON-patch-style set of overrides merged into the
	// provider-native body after construction, the caller's escape hatch
	// for vendor parameters this type does not model.
	ExtraBody    json.RawMessage
	ExtraHeaders map[string]string

	// EpisodeID groups this inference with others from the same
	// conversation. When nil, the inference writer defaults it to the
	// inference's own generated id.
	EpisodeID *uuid.UUID
}

// FinishReason is the provider-agnostic reason an inference stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishToolCall      FinishReason = "tool_call"
	FinishUnknown       FinishReason = "unknown"
)

// Usage is the token accounting attached to a provider response. This
// mirrors internal/usage.Usage's shape deliberately; that package is the
// aggregation layer over values of this type.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
}

// ContentBlockOutput is a content block as returned by a provider. It
// reuses ContentBlock's tagged-union shape; providers only ever emit Text,
// ToolCall, Thought, or Unknown blocks in output (never ToolResult or File).
type ContentBlockOutput = ContentBlock

// ProviderInferenceResponse is the fully materialized, non-streaming result
// of a single adapter's infer call.
type ProviderInferenceResponse struct {
	Output       []ContentBlockOutput
	Usage        Usage
	FinishReason FinishReason
	Latency      time.Duration

	// RawRequest and RawResponse are the exact transport bytes, never
	// re-serialized from the parsed request/response values.
	RawRequest  string
	RawResponse string

	// System and InputMessages echo what was actually sent, after any
	// adapter-side reshaping (synthetic messages, JSON-mode coercion).
	System        string
	InputMessages []RequestMessage
}

// TextChunk is a streamed fragment of assistant text.
type TextChunk struct {
	Text string
	ID   string
}

// ToolCallChunk is a streamed fragment of a tool call. RawName is only
// present on the chunk that opens the tool call; subsequent chunks for the
// same block carry only RawArguments deltas.
type ToolCallChunk struct {
	ID            string
	RawName       *string
	RawArguments  string
}

// ThoughtChunk is a streamed fragment of reasoning/thinking content.
type ThoughtChunk struct {
	Text      string
	Signature string
}

// ProviderInferenceResponseChunk is one frame of a streaming inference.
// Exactly one of Text, ToolCall, or Thought is populated unless the frame
// carries only usage/finish-reason metadata (e.g. a terminal frame).
type ProviderInferenceResponseChunk struct {
	Text     *TextChunk
	ToolCall *ToolCallChunk
	Thought  *ThoughtChunk

	Usage        *Usage
	FinishReason *FinishReason

	// RawChunk is the exact bytes of the frame as received (one SSE
	// "data:" payload, or one line of a vendor's custom envelope).
	RawChunk string
	Latency  time.Duration
}

// InferenceCredentials is the per-request map of dynamic credential names
// to resolved secret values, supplied by the caller at invoke time for any
// provider configured with a dynamic credential location.
type InferenceCredentials map[string]string

// Tags is an arbitrary string-to-string label set threaded from a request
// through the inference log row to dataset rows and filter leaves. The
// empty string is not a valid key.
type Tags map[string]string

// Validate rejects an empty-string key, mirroring the original source's tag
// validation.
func (t Tags) Validate() error {
	if _, ok := t[""]; ok {
		return errEmptyTagKey
	}
	return nil
}
