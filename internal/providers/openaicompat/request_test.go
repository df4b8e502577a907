package openaicompat

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/llmgateway/pkg/inference"
)

func TestBuildRequestBodyJSONModeSetsResponseFormat(t *testing.T) {
	req := &inference.ModelInferenceRequest{
		FunctionType: inference.FunctionJSON,
		JSONMode:     inference.JSONModeOn,
		Messages: []inference.RequestMessage{
			{Role: inference.RoleUser, Content: []inference.ContentBlock{inference.Text("give me x")}},
		},
	}
	body, raw, err := BuildRequestBody("llama-3.3-70b-versatile", req)
	if err != nil {
		t.Fatalf("BuildRequestBody() error = %v", err)
	}
	if body.ResponseFormat == nil {
		t.Error("ResponseFormat is nil, want json_object format set")
	}
	if body.Messages[0].Role != "system" {
		t.Fatalf("Messages[0] = %+v, want a system message for the json-mode directive", body.Messages[0])
	}

	var decoded map[string]any
	json.Unmarshal(raw, &decoded)
	if decoded["response_format"] == nil {
		t.Error("serialized body missing response_format")
	}
}

func TestValidateLlamaParamsRejectsOutOfRangeTopP(t *testing.T) {
	bad := 1.5
	req := &inference.ModelInferenceRequest{TopP: &bad}
	if err := ValidateLlamaParams(req); err == nil {
		t.Fatal("expected error for top_p outside [0,1]")
	}
}

func TestValidateLlamaParamsRejectsOutOfRangeTemperature(t *testing.T) {
	bad := 2.5
	req := &inference.ModelInferenceRequest{Temperature: &bad}
	if err := ValidateLlamaParams(req); err == nil {
		t.Fatal("expected error for temperature outside [0,2]")
	}
}

func TestValidateLlamaParamsAcceptsInRangeValues(t *testing.T) {
	topP, temp := 0.9, 1.2
	req := &inference.ModelInferenceRequest{TopP: &topP, Temperature: &temp}
	if err := ValidateLlamaParams(req); err != nil {
		t.Fatalf("ValidateLlamaParams() error = %v, want nil for in-range values", err)
	}
}

func TestBuildRequestBodyExtraBodyOverride(t *testing.T) {
	req := &inference.ModelInferenceRequest{
		Messages: []inference.RequestMessage{
			{Role: inference.RoleUser, Content: []inference.ContentBlock{inference.Text("hi")}},
		},
		ExtraBody: json.RawMessage(`{"seed":7}`),
	}
	_, raw, err := BuildRequestBody("llama-3.3-70b-versatile", req)
	if err != nil {
		t.Fatalf("BuildRequestBody() error = %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(raw, &decoded)
	if decoded["seed"] != float64(7) {
		t.Errorf("decoded[seed] = %v, want 7", decoded["seed"])
	}
}
