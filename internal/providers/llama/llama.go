// Package llama implements the gateway's Llama API adapter. Request
// construction and tool conversion reuse internal/providers/openaicompat;
// the streaming envelope and non-streaming response shape are Llama's own,
// per §4.2b.
package llama

import (
	"net/http"
	"time"

	"github.com/haasonsaas/llmgateway/internal/credentials"
	"github.com/haasonsaas/llmgateway/internal/observability"
	"github.com/haasonsaas/llmgateway/internal/providers"
)

const (
	defaultBaseURL    = "https://api.llama.com/v1"
	defaultCredEnvVar = "LLAMA_API_KEY"
	defaultModel      = "Llama-4-Maverick-17B-128E-Instruct-FP8"
)

// Config configures a Provider instance.
type Config struct {
	BaseURL            string
	CredentialLocation credentials.Location
	MaxRetries         int
	RetryDelay         time.Duration
	HTTPClient         *http.Client
	Metrics            *observability.Metrics
	Tracer             *observability.Tracer
}

// Provider is the Llama API adapter.
type Provider struct {
	providers.BaseProvider

	baseURL    string
	credential credentials.Credential
	httpClient *http.Client
	metrics    *observability.Metrics
	tracer     *observability.Tracer
}

// New builds a Llama provider.
func New(config Config) *Provider {
	base := config.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	var cred credentials.Credential
	if config.CredentialLocation != nil {
		cred = credentials.Resolve("llama", config.CredentialLocation)
	} else {
		cred = credentials.ResolveDefault("llama", defaultCredEnvVar)
	}

	return &Provider{
		BaseProvider: providers.NewBaseProvider("llama", config.MaxRetries, config.RetryDelay),
		baseURL:      base,
		credential:   cred,
		httpClient:   httpClient,
		metrics:      config.Metrics,
		tracer:       config.Tracer,
	}
}
