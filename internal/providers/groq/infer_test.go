package groq

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haasonsaas/llmgateway/internal/credentials"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

func staticCred(key string) credentials.Location {
	return credentials.Static{Secret: key}
}

func TestInferRawBytesFidelity(t *testing.T) {
	const responseBody = `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}],"usage":{"prompt_tokens":4,"completion_tokens":2}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != "Bearer test-key" {
			t.Errorf("authorization = %q, want Bearer test-key", r.Header.Get("authorization"))
		}
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
	if resp.RawResponse != responseBody {
		t.Errorf("RawResponse = %q, want exact transport bytes", resp.RawResponse)
	}
	if len(resp.Output) != 1 || resp.Output[0].Text != "hi there" {
		t.Errorf("Output = %+v", resp.Output)
	}
	if resp.FinishReason != inference.FinishStop {
		t.Errorf("FinishReason = %v, want stop", resp.FinishReason)
	}
}

func TestBatchInferenceUnsupported(t *testing.T) {
	p := New(Config{CredentialLocation: staticCred("test-key")})
	_, err := p.StartBatchInference(t.Context(), nil, nil)
	if err == nil {
		t.Fatal("expected an error for unsupported batch inference")
	}
}
