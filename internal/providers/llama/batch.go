package llama

import (
	"context"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// StartBatchInference is unsupported: Llama has no batch inference API.
func (p *Provider) StartBatchInference(ctx context.Context, reqs []*inference.ModelInferenceRequest, creds inference.InferenceCredentials) (inference.BatchHandle, error) {
	return inference.BatchHandle{}, gatewayerr.New(gatewayerr.KindUnsupportedBatchInference, "llama does not support batch inference").WithProvider("llama")
}

// PollBatchInference is unsupported: Llama has no batch inference API.
func (p *Provider) PollBatchInference(ctx context.Context, handle inference.BatchHandle) (*inference.BatchPollResult, error) {
	return nil, gatewayerr.New(gatewayerr.KindUnsupportedBatchInference, "llama does not support batch inference").WithProvider("llama")
}
