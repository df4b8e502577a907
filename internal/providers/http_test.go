package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
)

func TestDispatchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{}`))
	result, gerr := Dispatch(context.Background(), srv.Client(), req, `{}`)
	if gerr != nil {
		t.Fatalf("Dispatch() error = %v", gerr)
	}
	if result.Status != 200 || result.RawResponse != `{"ok":true}` {
		t.Errorf("result = %+v", result)
	}
}

func TestDispatchClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate_limited"}`))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{}`))
	_, gerr := Dispatch(context.Background(), srv.Client(), req, `{"model":"x"}`)
	if gerr == nil {
		t.Fatal("expected an error for 429 response")
	}
	if gerr.Kind != gatewayerr.KindInferenceClient {
		t.Errorf("Kind = %v, want KindInferenceClient", gerr.Kind)
	}
	if gerr.Status != 429 {
		t.Errorf("Status = %d, want 429", gerr.Status)
	}
	if gerr.RawRequest != `{"model":"x"}` || gerr.RawResponse != `{"error":"rate_limited"}` {
		t.Errorf("raw request/response not preserved: %+v", gerr)
	}
}

func TestDispatchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{}`))
	_, gerr := Dispatch(context.Background(), srv.Client(), req, `{}`)
	if gerr == nil || gerr.Kind != gatewayerr.KindInferenceServer {
		t.Fatalf("expected KindInferenceServer, got %v", gerr)
	}
}
