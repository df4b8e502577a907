package groq

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// TestInferStreamToolCallIDContinuation exercises scenario S6 end-to-end
// through the real SSE transport, not just the openaicompat accumulator.
func TestInferStreamToolCallIDContinuation(t *testing.T) {
	var sseBody strings.Builder
	frames := []string{
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"t1","function":{"name":"f"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"a\":"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1}"}}]}}]}`,
	}
	for _, f := range frames {
		sseBody.WriteString("data: " + f + "\n\n")
	}
	sseBody.WriteString("data: [DONE]\n\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(sseBody.String()))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL, CredentialLocation: staticCred("test-key")})
	req := &inference.ModelInferenceRequest{
		Messages: []inference.RequestMessage{
			{Role: inference.RoleUser, Content: []inference.ContentBlock{inference.Text("what's 1+1")}},
		},
	}

	stream, _, err := p.InferStream(t.Context(), req, nil)
	if err != nil {
		t.Fatalf("InferStream() error = %v", err)
	}

	var id string
	var args strings.Builder
	ctx := t.Context()
	for {
		chunk, ok := stream.Next(ctx)
		if !ok {
			break
		}
		if chunk.ToolCall != nil {
			id = chunk.ToolCall.ID
			args.WriteString(chunk.ToolCall.RawArguments)
		}
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream.Err() = %v", err)
	}
	if id != "t1" {
		t.Errorf("ID = %q, want t1", id)
	}
	if args.String() != `{"a":1}` {
		t.Errorf("args = %q, want %q", args.String(), `{"a":1}`)
	}
}
