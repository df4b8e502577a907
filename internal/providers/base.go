// Package providers holds the shared provider-adapter contract and the
// infrastructure every vendor package (anthropic, groq, llama) builds on:
// the BaseProvider retry helper, the raw-bytes-preserving HTTP dispatch
// path, and the SSE frame scanner.
package providers

import (
	"context"
	"time"

	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// Provider is the four-operation contract every vendor adapter implements.
// All four operations suspend on network I/O; InferStream additionally
// suspends per received chunk.
type Provider interface {
	Name() string
	Infer(ctx context.Context, req *inference.ModelInferenceRequest, creds inference.InferenceCredentials) (*inference.ProviderInferenceResponse, error)
	InferStream(ctx context.Context, req *inference.ModelInferenceRequest, creds inference.InferenceCredentials) (inference.ChunkStream, string, error)
	StartBatchInference(ctx context.Context, reqs []*inference.ModelInferenceRequest, creds inference.InferenceCredentials) (inference.BatchHandle, error)
	PollBatchInference(ctx context.Context, handle inference.BatchHandle) (*inference.BatchPollResult, error)
}

// BaseProvider holds shared retry configuration for vendor adapters. Unlike
// a naive HTTP retry wrapper, Retry here is deliberately scoped to
// pre-flight steps (credential resolution, body construction) — the
// vendor call itself is never retried inside an adapter; failover across
// providers is an orchestration-layer decision outside this package.
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// NewBaseProvider creates a base provider with sane defaults.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return BaseProvider{name: name, maxRetries: maxRetries, retryDelay: retryDelay}
}

// Name returns the provider's registered name.
func (b *BaseProvider) Name() string { return b.name }

// Retry executes op with linear backoff if isRetryable returns true. It is
// intended for pre-flight failures only (e.g. a file-based credential that
// transiently failed to read), never for the vendor HTTP call itself.
func (b *BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if isRetryable == nil || !isRetryable(err) {
			return err
		}
		if attempt >= b.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.retryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}
