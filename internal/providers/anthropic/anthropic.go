// Package anthropic implements the gateway's Anthropic Messages API
// adapter: request construction, the content-block mapping table, the
// streaming state machine, and Message Batches for batch inference.
package anthropic

import (
	"net/http"
	"time"

	"github.com/haasonsaas/llmgateway/internal/credentials"
	"github.com/haasonsaas/llmgateway/internal/observability"
	"github.com/haasonsaas/llmgateway/internal/providers"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	anthropicVersion  = "2023-06-01"
	defaultMaxTokens  = 4096
	defaultCredEnvVar = "ANTHROPIC_API_KEY"
	defaultModel      = "claude-sonnet-4-20250514"
)

// Config configures a Provider instance. CredentialLocation defaults to
// the process-wide env-resolved default (ANTHROPIC_API_KEY) when nil.
type Config struct {
	BaseURL            string
	CredentialLocation credentials.Location
	MaxRetries         int
	RetryDelay         time.Duration
	HTTPClient         *http.Client
	Metrics            *observability.Metrics
	Tracer             *observability.Tracer
}

// Provider is the Anthropic Messages API adapter.
type Provider struct {
	providers.BaseProvider

	baseURL    string
	credential credentials.Credential
	httpClient *http.Client
	metrics    *observability.Metrics
	tracer     *observability.Tracer
}

// New builds an Anthropic provider. Credential resolution never fails
// construction; a missing key surfaces as ApiKeyMissing on first Infer
// call, per the credential resolver's deferred-validation policy.
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
		cred = credentials.Resolve("anthropic", config.CredentialLocation)
	} else {
		cred = credentials.ResolveDefault("anthropic", defaultCredEnvVar)
	}

	return &Provider{
		BaseProvider: providers.NewBaseProvider("anthropic", config.MaxRetries, config.RetryDelay),
		baseURL:      base,
		credential:   cred,
		httpClient:   httpClient,
		metrics:      config.Metrics,
		tracer:       config.Tracer,
	}
}
