package llama

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers"
	"github.com/haasonsaas/llmgateway/internal/providers/openaicompat"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

func (p *Provider) apiKey(creds inference.InferenceCredentials) (string, *gatewayerr.Error) {
	v, err := p.credential.Value(creds)
	if err != nil {
		return "", gatewayerr.Wrap(gatewayerr.KindAPIKeyMissing, err, "llama credential not available").WithProvider("llama")
	}
	return v, nil
}

func (p *Provider) newHTTPRequest(ctx context.Context, body []byte, apiKey string, extraHeaders map[string]string) (*http.Request, *gatewayerr.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindSerialization, err, "failed to construct llama http request")
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+apiKey)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Infer performs a single non-streaming inference call.
func (p *Provider) Infer(ctx context.Context, req *inference.ModelInferenceRequest, creds inference.InferenceCredentials) (*inference.ProviderInferenceResponse, error) {
	if vErr := openaicompat.ValidateLlamaParams(req); vErr != nil {
		return nil, vErr
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}
	key, kErr := p.apiKey(creds)
	if kErr != nil {
		return nil, kErr
	}

	_, rawRequest, bErr := openaicompat.BuildRequestBody(model, req)
	if bErr != nil {
		return nil, bErr
	}

	httpReq, hErr := p.newHTTPRequest(ctx, rawRequest, key, req.ExtraHeaders)
	if hErr != nil {
		return nil, hErr
	}

	start := time.Now()
	result, dErr := providers.Dispatch(ctx, p.httpClient, httpReq, string(rawRequest))
	latency := time.Since(start)
	if dErr != nil {
		if p.metrics != nil {
			p.metrics.RecordError(string(dErr.Kind), "llama")
		}
		return nil, dErr
	}

	body, output, pErr := parseResponseBody([]byte(result.RawResponse))
	if pErr != nil {
		pErr.RawRequest = string(rawRequest)
		return nil, pErr
	}

	usage := usageFromMetrics(body.Metrics)
	if p.metrics != nil {
		p.metrics.RecordProviderRequest("llama", model, "success", latency.Seconds(), usage.InputTokens, usage.OutputTokens)
	}

	return &inference.ProviderInferenceResponse{
		Output:        output,
		Usage:         usage,
		FinishReason:  finishReasonFromStopReason(body.CompletionMessage.StopReason),
		Latency:       latency,
		RawRequest:    string(rawRequest),
		RawResponse:   result.RawResponse,
		System:        providers.ApplyJSONModePrefix(req),
		InputMessages: req.Messages,
	}, nil
}
