package providers

import (
	"errors"
	"net"
	"strings"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
)

// ClassifyTransportError turns a transport-level failure (one that never
// produced an HTTP status code at all: connect failure, DNS failure,
// context deadline) into a gatewayerr.Kind. Timeouts classify as
// KindInferenceClient carrying the transport error text, per the
// concurrency model's timeout-surfacing rule; everything else transport-
// level classifies as KindInferenceServer since it is potentially
// retry-eligible.
func ClassifyTransportError(err error) gatewayerr.Kind {
	if err == nil {
		return gatewayerr.KindInferenceServer
	}
	if isTimeout(err) {
		return gatewayerr.KindInferenceClient
	}
	return gatewayerr.KindInferenceServer
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "deadline exceeded") ||
		strings.Contains(strings.ToLower(err.Error()), "timeout")
}
