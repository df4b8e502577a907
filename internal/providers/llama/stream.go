package llama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers"
	"github.com/haasonsaas/llmgateway/internal/providers/openaicompat"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// streamEndedSentinel is an undocumented but observed benign stream
// terminator: a bare "Stream ended" text payload instead of a proper
// stop/done/end event.
const streamEndedSentinel = "Stream ended"

// streamFrame is Llama's SSE envelope: {id, event:{event_type, delta}}.
type streamFrame struct {
	ID    string `json:"id"`
	Event struct {
		EventType string `json:"event_type"`
		Delta     struct {
			Text      string         `json:"text"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"delta"`
	} `json:"event"`
}

// InferStream performs a single streaming inference call.
func (p *Provider) InferStream(ctx context.Context, req *inference.ModelInferenceRequest, creds inference.InferenceCredentials) (inference.ChunkStream, string, error) {
	if vErr := openaicompat.ValidateLlamaParams(req); vErr != nil {
		return inference.ChunkStream{}, "", vErr
	}

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
		return inference.ChunkStream{}, string(rawRequest), gatewayerr.Wrap(providers.ClassifyTransportError(doErr), doErr, "llama stream request failed").
			WithRaw(string(rawRequest), "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return inference.ChunkStream{}, string(rawRequest), gatewayerr.New(gatewayerr.ClassifyStatus(resp.StatusCode), "llama returned a non-2xx status for a streaming request").
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
		if ev.Data == "" {
			return nil
		}
		if ev.Data == streamEndedSentinel {
			fr := inference.FinishStop
			chunks <- inference.ProviderInferenceResponseChunk{FinishReason: &fr, RawChunk: ev.Raw}
			return nil
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(ev.Data), &frame); err != nil {
			return gatewayerr.Wrap(gatewayerr.KindOutputParsing, err, "failed to parse llama stream event").WithRaw("", ev.Data)
		}

		switch frame.Event.EventType {
		case "start":
			return nil
		case "text":
			chunks <- inference.ProviderInferenceResponseChunk{
				Text:     &inference.TextChunk{Text: frame.Event.Delta.Text},
				RawChunk: ev.Raw,
			}
			return nil
		case "tool_calls":
			for i, tc := range frame.Event.Delta.ToolCalls {
				id, tErr := tracker.Resolve(i, tc.ID)
				if tErr != nil {
					return tErr
				}
				var rawName *string
				if tc.Function.Name != "" {
					name := tc.Function.Name
					rawName = &name
				}
				chunks <- inference.ProviderInferenceResponseChunk{
					ToolCall: &inference.ToolCallChunk{ID: id, RawName: rawName, RawArguments: tc.Function.Arguments},
					RawChunk: ev.Raw,
				}
			}
			return nil
		case "stop", "done", "end":
			fr := inference.FinishStop
			chunks <- inference.ProviderInferenceResponseChunk{FinishReason: &fr, RawChunk: ev.Raw}
			return nil
		case "error":
			return gatewayerr.New(gatewayerr.KindInferenceServer, "llama stream error").WithProvider("llama")
		default:
			return nil
		}
	})
	if err != nil {
		errs <- err
	}
}
