package providers

import (
	"testing"

	"github.com/haasonsaas/llmgateway/pkg/inference"
)

func TestApplyJSONModePrefixAddsDirective(t *testing.T) {
	req := &inference.ModelInferenceRequest{
		FunctionType: inference.FunctionJSON,
		JSONMode:     inference.JSONModeOn,
		System:       "You are a helpful assistant.",
	}
	got := ApplyJSONModePrefix(req)
	want := "Respond using JSON.\n\nYou are a helpful assistant."
	if got != want {
		t.Errorf("ApplyJSONModePrefix() = %q, want %q", got, want)
	}
}

func TestApplyJSONModePrefixNoSystem(t *testing.T) {
	req := &inference.ModelInferenceRequest{
		FunctionType: inference.FunctionJSON,
		JSONMode:     inference.JSONModeStrict,
	}
	got := ApplyJSONModePrefix(req)
	if got != "Respond using JSON." {
		t.Errorf("ApplyJSONModePrefix() = %q", got)
	}
}

func TestApplyJSONModePrefixSkippedWhenAlreadyMentioned(t *testing.T) {
	req := &inference.ModelInferenceRequest{
		FunctionType: inference.FunctionJSON,
		JSONMode:     inference.JSONModeOn,
		System:       "Respond in valid JSON format.",
	}
	got := ApplyJSONModePrefix(req)
	if got != req.System {
		t.Errorf("ApplyJSONModePrefix() = %q, want unchanged system prompt", got)
	}
}

func TestApplyJSONModePrefixSkippedWhenModeOff(t *testing.T) {
	req := &inference.ModelInferenceRequest{
		FunctionType: inference.FunctionJSON,
		JSONMode:     inference.JSONModeOff,
		System:       "hello",
	}
	if got := ApplyJSONModePrefix(req); got != "hello" {
		t.Errorf("ApplyJSONModePrefix() = %q, want unchanged", got)
	}
}

func TestApplyJSONModePrefixSkippedWhenChatFunction(t *testing.T) {
	req := &inference.ModelInferenceRequest{
		FunctionType: inference.FunctionChat,
		JSONMode:     inference.JSONModeStrict,
		System:       "hello",
	}
	if got := ApplyJSONModePrefix(req); got != "hello" {
		t.Errorf("ApplyJSONModePrefix() = %q, want unchanged for chat function type", got)
	}
}

func TestMentionsJSONInMessageContent(t *testing.T) {
	req := &inference.ModelInferenceRequest{
		FunctionType: inference.FunctionJSON,
		JSONMode:     inference.JSONModeOn,
		Messages: []inference.RequestMessage{
			{Role: inference.RoleUser, Content: []inference.ContentBlock{inference.Text("give me JSON please")}},
		},
	}
	if NeedsJSONModePrefix(req) {
		t.Error("expected no prefix needed when a message already mentions json")
	}
}

func TestReattachJSONPrefill(t *testing.T) {
	got := ReattachJSONPrefill(`"key": "value"}`)
	if got != `{"key": "value"}` {
		t.Errorf("ReattachJSONPrefill() = %q", got)
	}
}

func TestToolResultFanOut(t *testing.T) {
	content := []inference.ContentBlock{
		inference.Text("here is the result"),
		inference.ToolResult("call_1", "get_weather", "72F"),
		inference.ToolResult("call_2", "get_time", "noon"),
	}
	results, rest := ToolResultFanOut(content)
	if len(results) != 2 {
		t.Fatalf("got %d tool results, want 2", len(results))
	}
	if len(rest) != 1 || rest[0].Text != "here is the result" {
		t.Fatalf("rest = %+v", rest)
	}
}

func TestHasToolCallInUserMessage(t *testing.T) {
	content := []inference.ContentBlock{inference.ToolCall("c1", "f", "{}")}
	if !HasToolCallInUserMessage(content) {
		t.Error("expected ToolCall to be detected in user message content")
	}
	if HasToolCallInUserMessage([]inference.ContentBlock{inference.Text("hi")}) {
		t.Error("expected no ToolCall detected in plain text content")
	}
}

func TestSingleTextBlock(t *testing.T) {
	text, ok := SingleTextBlock([]inference.ContentBlock{inference.Text("hello")})
	if !ok || text != "hello" {
		t.Errorf("SingleTextBlock() = (%q, %v)", text, ok)
	}
	_, ok = SingleTextBlock([]inference.ContentBlock{inference.Text("a"), inference.Text("b")})
	if ok {
		t.Error("expected SingleTextBlock to reject multi-block content")
	}
}
