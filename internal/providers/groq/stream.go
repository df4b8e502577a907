package groq

import (
	"context"
	"io"
	"net/http"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers"
	"github.com/haasonsaas/llmgateway/internal/providers/openaicompat"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// InferStream performs a single streaming inference call against Groq's
// Chat Completions endpoint.
func (p *Provider) InferStream(ctx context.Context, req *inference.ModelInferenceRequest, creds inference.InferenceCredentials) (inference.ChunkStream, string, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	key, kErr := p.apiKey(creds)
	if kErr != nil {
		return inference.ChunkStream{}, "", kErr
	}

	reqCopy := *req
	reqCopy.Stream = true
	_, rawRequest, bErr := openaicompat.BuildRequestBody(model, &reqCopy)
	if bErr != nil {
		return inference.ChunkStream{}, "", bErr
	}

	httpReq, hErr := p.newHTTPRequest(ctx, rawRequest, key, req.ExtraHeaders)
	if hErr != nil {
		return inference.ChunkStream{}, "", hErr
	}
	httpReq.Header.Set("accept", "text/event-stream")

	resp, doErr := p.httpClient.Do(httpReq)
	if doErr != nil {
		return inference.ChunkStream{}, string(rawRequest), gatewayerr.Wrap(providers.ClassifyTransportError(doErr), doErr, "groq stream request failed").
			WithRaw(string(rawRequest), "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return inference.ChunkStream{}, string(rawRequest), gatewayerr.New(gatewayerr.ClassifyStatus(resp.StatusCode), "groq returned a non-2xx status for a streaming request").
			WithStatus(resp.StatusCode).WithRaw(string(rawRequest), "")
	}

	chunks := make(chan inference.ProviderInferenceResponseChunk)
	errs := make(chan error, 1)

	go runStream(ctx, resp.Body, chunks, errs)

	return inference.NewChunkStream(chunks, errs), string(rawRequest), nil
}

func runStream(ctx context.Context, body io.ReadCloser, chunks chan<- inference.ProviderInferenceResponseChunk, errs chan<- error) {
	defer close(chunks)
	defer body.Close()

	var tracker openaicompat.ToolCallTracker

	err := providers.ParseSSEStream(body, func(ev providers.SSEEvent) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ev.Data == "" || ev.Data == openaicompat.DoneTerminator {
			return nil
		}
		chunk, pErr := openaicompat.ParseStreamChunk(ev.Data)
		if pErr != nil {
			return pErr
		}
		out, cErr := openaicompat.ChunksFromStreamChunk(chunk, &tracker, ev.Raw)
		if cErr != nil {
			return cErr
		}
		for _, c := range out {
			chunks <- c
		}
		return nil
	})
	if err != nil {
		errs <- err
	}
}
