package llama

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haasonsaas/llmgateway/internal/credentials"
	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

func staticCred(key string) credentials.Location {
	return credentials.Static{Secret: key}
}

func TestInferTextResponse(t *testing.T) {
	const responseBody = `{"id":"r1","completion_message":{"role":"assistant","stop_reason":"stop","content":{"type":"text","text":"hi there"}},"metrics":[{"metric":"num_prompt_tokens","value":8,"unit":"tokens"},{"metric":"num_completion_tokens","value":3,"unit":"tokens"}]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(responseBody))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL, CredentialLocation: staticCred("test-key")})
	req := &inference.ModelInferenceRequest{
		Messages: []inference.RequestMessage{
			{Role: inference.RoleUser, Content: []inference.ContentBlock{inference.Text("hi")}},
		},
	}

	resp, err := p.Infer(t.Context(), req, nil)
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if len(resp.Output) != 1 || resp.Output[0].Text != "hi there" {
		t.Errorf("Output = %+v", resp.Output)
	}
	if resp.Usage.InputTokens != 8 || resp.Usage.OutputTokens != 3 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if resp.FinishReason != inference.FinishStop {
		t.Errorf("FinishReason = %v, want stop", resp.FinishReason)
	}
	if resp.RawResponse != responseBody {
		t.Errorf("RawResponse = %q, want exact transport bytes", resp.RawResponse)
	}
}

func TestInferToolCallResponse(t *testing.T) {
	const responseBody = `{"id":"r1","completion_message":{"role":"assistant","stop_reason":"tool_calls","tool_calls":[{"id":"t1","function":{"name":"search","arguments":"{\"q\":\"x\"}"}}]},"metrics":[]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(responseBody))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL, CredentialLocation: staticCred("test-key")})
	req := &inference.ModelInferenceRequest{
		Messages: []inference.RequestMessage{
			{Role: inference.RoleUser, Content: []inference.ContentBlock{inference.Text("search for x")}},
		},
	}

	resp, err := p.Infer(t.Context(), req, nil)
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if len(resp.Output) != 1 || resp.Output[0].ToolCallID != "t1" || resp.Output[0].ToolCallName != "search" {
		t.Errorf("Output = %+v", resp.Output)
	}
	if resp.FinishReason != inference.FinishToolCall {
		t.Errorf("FinishReason = %v, want tool_call", resp.FinishReason)
	}
}

func TestInferRejectsOutOfRangeTopP(t *testing.T) {
	p := New(Config{BaseURL: "http://unused.invalid", CredentialLocation: staticCred("test-key")})
	badTopP := 1.2
	req := &inference.ModelInferenceRequest{
		TopP: &badTopP,
		Messages: []inference.RequestMessage{
			{Role: inference.RoleUser, Content: []inference.ContentBlock{inference.Text("hi")}},
		},
	}
	_, err := p.Infer(t.Context(), req, nil)
	var gerr *gatewayerr.Error
	if !gatewayerr.As(err, &gerr) || gerr.Kind != gatewayerr.KindInvalidRequest {
		t.Fatalf("err = %v, want KindInvalidRequest for out-of-range top_p", err)
	}
}
