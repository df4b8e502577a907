package providers

import (
	"context"
	"io"
	"net/http"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
)

// DispatchResult is the outcome of a non-streaming HTTP round trip: the
// exact response bytes (never re-serialized), the status code, and
// whatever headers the caller asked to retain.
type DispatchResult struct {
	Status      int
	RawResponse string
	Header      http.Header
}

// Dispatch sends req over client and returns the raw response body as
// text, preserving the exact bytes for raw_response capture regardless of
// whether the status indicates success. rawRequest is only used to attach
// context to the returned error; it is never re-derived from req.
func Dispatch(ctx context.Context, client *http.Client, req *http.Request, rawRequest string) (*DispatchResult, *gatewayerr.Error) {
	req = req.WithContext(ctx)

	resp, err := client.Do(req)
	if err != nil {
		return nil, gatewayerr.Wrap(ClassifyTransportError(err), err, "request failed").
			WithRaw(rawRequest, "")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindInferenceServer, err, "failed to read response body").
			WithStatus(resp.StatusCode).
			WithRaw(rawRequest, "")
	}

	raw := string(body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := gatewayerr.ClassifyStatus(resp.StatusCode)
		return nil, gatewayerr.New(kind, "vendor returned a non-2xx status").
			WithStatus(resp.StatusCode).
			WithRaw(rawRequest, raw)
	}

	return &DispatchResult{Status: resp.StatusCode, RawResponse: raw, Header: resp.Header}, nil
}
