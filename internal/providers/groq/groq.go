// Package groq implements the gateway's Groq adapter: a thin layer over
// the shared OpenAI-compatible Chat Completions body builder and stream
// accumulator in internal/providers/openaicompat.
package groq

import (
	"net/http"
	"time"

	"github.com/haasonsaas/llmgateway/internal/credentials"
	"github.com/haasonsaas/llmgateway/internal/observability"
	"github.com/haasonsaas/llmgateway/internal/providers"
)

const (
	defaultBaseURL    = "https://api.groq.com/openai/v1"
	defaultCredEnvVar = "GROQ_API_KEY"
	defaultModel      = "llama-3.3-70b-versatile"
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

// Provider is the Groq Chat Completions adapter.
type Provider struct {
	providers.BaseProvider

	baseURL    string
	credential credentials.Credential
	httpClient *http.Client
	metrics    *observability.Metrics
	tracer     *observability.Tracer
}

// New builds a Groq provider.
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
		cred = credentials.Resolve("groq", config.CredentialLocation)
	} else {
		cred = credentials.ResolveDefault("groq", defaultCredEnvVar)
	}

	return &Provider{
		BaseProvider: providers.NewBaseProvider("groq", config.MaxRetries, config.RetryDelay),
		baseURL:      base,
		credential:   cred,
		httpClient:   httpClient,
		metrics:      config.Metrics,
		tracer:       config.Tracer,
	}
}
