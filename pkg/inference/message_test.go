package inference

import (
	"encoding/json"
	"testing"
)

func TestContentBlockConstructors(t *testing.T) {
	tc := ToolCall("call_1", "get_weather", `{"city":"nyc"}`)
	if tc.Kind != BlockToolCall || tc.ToolCallID != "call_1" || tc.ToolCallName != "get_weather" {
		t.Errorf("ToolCall() = %+v", tc)
	}

	tr := ToolResult("call_1", "get_weather", "72F")
	if tr.Kind != BlockToolResult || tr.ToolResultString != "72F" {
		t.Errorf("ToolResult() = %+v", tr)
	}

	f := File("image/png", "base64data", "")
	if f.Kind != BlockFile || f.FileMimeType != "image/png" {
		t.Errorf("File() = %+v", f)
	}

	th := Thought("reasoning text", "sig")
	if th.Kind != BlockThought || th.ThoughtSignature != "sig" {
		t.Errorf("Thought() = %+v", th)
	}

	raw := json.RawMessage(`{"weird":true}`)
	u := UnknownBlock(raw, "gemini")
	if u.Kind != BlockUnknown || u.UnknownOriginatingProvider != "gemini" {
		t.Errorf("UnknownBlock() = %+v", u)
	}
	if string(u.UnknownRawJSON) != string(raw) {
		t.Error("UnknownBlock did not preserve raw bytes verbatim")
	}
}

func TestTagsValidate(t *testing.T) {
	tests := []struct {
		name    string
		tags    Tags
		wantErr bool
	}{
		{"empty map", Tags{}, false},
		{"valid keys", Tags{"env": "prod", "team": "eval"}, false},
		{"empty key rejected", Tags{"": "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tags.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestModelInferenceRequestJSONModeDefaults(t *testing.T) {
	req := ModelInferenceRequest{
		Messages:     []RequestMessage{{Role: RoleUser, Content: []ContentBlock{Text("hi")}}},
		JSONMode:     JSONModeOff,
		FunctionType: FunctionChat,
	}
	if req.JSONMode != JSONModeOff {
		t.Errorf("JSONMode = %v, want off", req.JSONMode)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content[0].Text != "hi" {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
}
