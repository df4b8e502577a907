package anthropic

import (
	"testing"

	"github.com/haasonsaas/llmgateway/internal/credentials"
	"github.com/haasonsaas/llmgateway/internal/providers"
)

func staticCred(key string) credentials.Location {
	return credentials.Static{Secret: key}
}

// sseEventFor builds an SSEEvent directly from a data payload, bypassing the
// scanner, for tests that exercise handleStreamEvent in isolation.
func sseEventFor(t *testing.T, data string) providers.SSEEvent {
	t.Helper()
	return providers.SSEEvent{Data: data, Raw: "data: " + data + "\n"}
}
