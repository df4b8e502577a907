package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// streamEvent is the union of Anthropic SSE event payloads this adapter
// interprets. Only the fields relevant to the event's type are populated.
type streamEvent struct {
	Type string `json:"type"`

	Message *struct {
		Usage wireUsage `json:"usage"`
	} `json:"message"`

	Index        int `json:"index"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`

	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		Thinking    string `json:"thinking"`
		Signature   string `json:"signature"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`

	Usage *wireUsage `json:"usage"`

	ErrorDetail *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// openToolBlock tracks the running (id, name) of the tool_use block
// currently open in a single stream, per the §4.2a streaming state machine:
// this state belongs to the stream and is never shared across streams.
type openToolBlock struct {
	index int
	id    string
	name  string
	open  bool
}

// InferStream performs a single streaming inference call, returning a
// ChunkStream the caller drains until exhaustion.
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
	_, rawRequest, bErr := buildRequestBody(model, &reqCopy)
	if bErr != nil {
		return inference.ChunkStream{}, "", bErr
	}

	httpReq, hErr := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(rawRequest))
	if hErr != nil {
		return inference.ChunkStream{}, "", gatewayerr.Wrap(gatewayerr.KindSerialization, hErr, "failed to construct anthropic streaming request")
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("x-api-key", key)
	httpReq.Header.Set("accept", "text/event-stream")
	for k, v := range req.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, doErr := p.httpClient.Do(httpReq)
	if doErr != nil {
		return inference.ChunkStream{}, string(rawRequest), gatewayerr.Wrap(providers.ClassifyTransportError(doErr), doErr, "anthropic stream request failed").
			WithRaw(string(rawRequest), "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return inference.ChunkStream{}, string(rawRequest), gatewayerr.New(gatewayerr.ClassifyStatus(resp.StatusCode), "anthropic returned a non-2xx status for a streaming request").
			WithStatus(resp.StatusCode).WithRaw(string(rawRequest), "")
	}

	chunks := make(chan inference.ProviderInferenceResponseChunk)
	errs := make(chan error, 1)

	go p.runStream(ctx, resp.Body, chunks, errs)

	return inference.NewChunkStream(chunks, errs), string(rawRequest), nil
}

func (p *Provider) runStream(ctx context.Context, body io.ReadCloser, chunks chan<- inference.ProviderInferenceResponseChunk, errs chan<- error) {
	defer close(chunks)
	defer body.Close()

	var tool openToolBlock
	start := time.Now()

	err := providers.ParseSSEStream(body, func(ev providers.SSEEvent) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ev.Data == "" {
			return nil
		}
		return p.handleStreamEvent(ev, &tool, chunks, time.Since(start))
	})
	if err != nil {
		errs <- err
	}
}

func (p *Provider) handleStreamEvent(ev providers.SSEEvent, tool *openToolBlock, chunks chan<- inference.ProviderInferenceResponseChunk, elapsed time.Duration) error {
	var payload streamEvent
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		return gatewayerr.Wrap(gatewayerr.KindOutputParsing, err, "failed to parse anthropic stream event").WithRaw("", ev.Data)
	}

	switch payload.Type {
	case "message_start":
		if payload.Message != nil {
			u := usageFromWire(payload.Message.Usage)
			chunks <- inference.ProviderInferenceResponseChunk{Usage: &u, RawChunk: ev.Raw, Latency: elapsed}
		}
		return nil

	case "content_block_start":
		if payload.ContentBlock != nil && payload.ContentBlock.Type == "tool_use" {
			*tool = openToolBlock{index: payload.Index, id: payload.ContentBlock.ID, name: payload.ContentBlock.Name, open: true}
		}
		return nil

	case "content_block_delta":
		return p.handleContentBlockDelta(payload, tool, ev, chunks, elapsed)

	case "content_block_stop":
		if tool.open && tool.index == payload.Index {
			tool.open = false
		}
		return nil

	case "message_delta":
		if payload.Delta != nil && payload.Delta.StopReason != "" {
			fr := finishReasonFromStopReason(payload.Delta.StopReason)
			var u *inference.Usage
			if payload.Usage != nil {
				uu := usageFromWire(*payload.Usage)
				u = &uu
			}
			chunks <- inference.ProviderInferenceResponseChunk{FinishReason: &fr, Usage: u, RawChunk: ev.Raw, Latency: elapsed}
		}
		return nil

	case "message_stop":
		return nil

	case "ping":
		return nil

	case "error":
		msg := "anthropic stream error"
		if payload.ErrorDetail != nil {
			msg = payload.ErrorDetail.Message
		}
		return gatewayerr.New(gatewayerr.KindInferenceServer, msg).WithProvider("anthropic")

	default:
		return nil
	}
}

func (p *Provider) handleContentBlockDelta(payload streamEvent, tool *openToolBlock, ev providers.SSEEvent, chunks chan<- inference.ProviderInferenceResponseChunk, elapsed time.Duration) error {
	if payload.Delta == nil {
		return nil
	}
	switch payload.Delta.Type {
	case "text_delta":
		chunks <- inference.ProviderInferenceResponseChunk{
			Text:     &inference.TextChunk{Text: payload.Delta.Text},
			RawChunk: ev.Raw,
			Latency:  elapsed,
		}
		return nil
	case "input_json_delta":
		if !tool.open || tool.index != payload.Index {
			return gatewayerr.New(gatewayerr.KindOutputParsing, "input_json_delta received with no open tool_use block").WithProvider("anthropic")
		}
		chunks <- inference.ProviderInferenceResponseChunk{
			ToolCall: &inference.ToolCallChunk{ID: tool.id, RawArguments: payload.Delta.PartialJSON},
			RawChunk: ev.Raw,
			Latency:  elapsed,
		}
		return nil
	case "thinking_delta":
		chunks <- inference.ProviderInferenceResponseChunk{
			Thought:  &inference.ThoughtChunk{Text: payload.Delta.Thinking},
			RawChunk: ev.Raw,
			Latency:  elapsed,
		}
		return nil
	case "signature_delta":
		chunks <- inference.ProviderInferenceResponseChunk{
			Thought:  &inference.ThoughtChunk{Signature: payload.Delta.Signature},
			RawChunk: ev.Raw,
			Latency:  elapsed,
		}
		return nil
	default:
		return nil
	}
}
