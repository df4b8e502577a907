package groq

import (
	"context"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// StartBatchInference is unsupported: Groq has no batch inference API.
func (p *Provider) StartBatchInference(ctx context.Context, reqs []*inference.ModelInferenceRequest, creds inference.InferenceCredentials) (inference.BatchHandle, error) {
	return inference.BatchHandle{}, gatewayerr.New(gatewayerr.KindUnsupportedBatchInference, "groq does not support batch inference").WithProvider("groq")
}

// PollBatchInference is unsupported: Groq has no batch inference API.
func (p *Provider) PollBatchInference(ctx context.Context, handle inference.BatchHandle) (*inference.BatchPollResult, error) {
	return nil, gatewayerr.New(gatewayerr.KindUnsupportedBatchInference, "groq does not support batch inference").WithProvider("groq")
}
