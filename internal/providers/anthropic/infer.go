package anthropic

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

func (p *Provider) apiKey(creds inference.InferenceCredentials) (string, *gatewayerr.Error) {
	v, err := p.credential.Value(creds)
	if err != nil {
		return "", gatewayerr.Wrap(gatewayerr.KindAPIKeyMissing, err, "anthropic credential not available").WithProvider("anthropic")
	}
	return v, nil
}

func (p *Provider) newHTTPRequest(ctx context.Context, path string, body []byte, apiKey string, extraHeaders map[string]string) (*http.Request, *gatewayerr.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindSerialization, err, "failed to construct anthropic http request")
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("x-api-key", apiKey)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Infer performs a single non-streaming inference call.
func (p *Provider) Infer(ctx context.Context, req *inference.ModelInferenceRequest, creds inference.InferenceCredentials) (*inference.ProviderInferenceResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	key, kErr := p.apiKey(creds)
	if kErr != nil {
		return nil, kErr
	}

	_, rawRequest, bErr := buildRequestBody(model, req)
	if bErr != nil {
		return nil, bErr
	}

	httpReq, hErr := p.newHTTPRequest(ctx, "/v1/messages", rawRequest, key, req.ExtraHeaders)
	if hErr != nil {
		return nil, hErr
	}

	start := time.Now()
	result, dErr := providers.Dispatch(ctx, p.httpClient, httpReq, string(rawRequest))
	latency := time.Since(start)
	if dErr != nil {
		if p.metrics != nil {
			p.metrics.RecordError(string(dErr.Kind), "anthropic")
		}
		return nil, dErr
	}

	jsonPrefillActive := req.FunctionType == inference.FunctionJSON &&
		(req.JSONMode == inference.JSONModeOn || req.JSONMode == inference.JSONModeStrict)

	body, output, pErr := parseResponseBody([]byte(result.RawResponse), jsonPrefillActive)
	if pErr != nil {
		pErr.RawRequest = string(rawRequest)
		return nil, pErr
	}

	if p.metrics != nil {
		p.metrics.RecordProviderRequest("anthropic", model, "success", latency.Seconds(), body.Usage.InputTokens, body.Usage.OutputTokens)
	}

	return &inference.ProviderInferenceResponse{
		Output:        output,
		Usage:         usageFromWire(body.Usage),
		FinishReason:  finishReasonFromStopReason(body.StopReason),
		Latency:       latency,
		RawRequest:    string(rawRequest),
		RawResponse:   result.RawResponse,
		System:        providers.ApplyJSONModePrefix(req),
		InputMessages: req.Messages,
	}, nil
}

