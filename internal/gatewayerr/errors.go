// Package gatewayerr is the gateway's closed error taxonomy. Every error
// that crosses a package boundary from provider adapters, the query
// builder, or the dataset manager is a *Error carrying one of the Kind
// values below; nothing else is allowed to leak past those layers as a
// raw error, so callers can switch on Kind once instead of doing string
// matching or type assertions against a dozen unrelated error types.
package gatewayerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags the taxonomy. See the Surface column on each constant for how
// the HTTP layer maps a Kind to a response.
type Kind string

const (
	// KindConfig: misconfigured provider or unknown credential location.
	// Surface: startup fatal.
	KindConfig Kind = "config"
	// KindInvalidRequest: caller asked for something the gateway cannot
	// express. Surface: 4xx.
	KindInvalidRequest Kind = "invalid_request"
	// KindInvalidMessage: caller's message tree violates provider rules.
	// Surface: 4xx.
	KindInvalidMessage Kind = "invalid_message"
	// KindAPIKeyMissing: required dynamic key absent at invoke time.
	// Surface: 4xx.
	KindAPIKeyMissing Kind = "api_key_missing"
	// KindInferenceClient: vendor returned 4xx. Surface: forwarded.
	KindInferenceClient Kind = "inference_client"
	// KindInferenceServer: vendor returned 5xx or an unparseable
	// response. Surface: retry-eligible.
	KindInferenceServer Kind = "inference_server"
	// KindSerialization: request body could not be built. Surface: 5xx.
	KindSerialization Kind = "serialization"
	// KindOutputParsing: response shape violated the vendor contract.
	// Surface: 5xx.
	KindOutputParsing Kind = "output_parsing"
	// KindUnknownFunction: query/config references an absent function.
	// Surface: 4xx.
	KindUnknownFunction Kind = "unknown_function"
	// KindUnknownMetric: query/config references an absent metric.
	// Surface: 4xx.
	KindUnknownMetric Kind = "unknown_metric"
	// KindUnknownModel: query/config references an absent model.
	// Surface: 4xx.
	KindUnknownModel Kind = "unknown_model"
	// KindUnknownTool: query/config references an absent tool.
	// Surface: 4xx.
	KindUnknownTool Kind = "unknown_tool"
	// KindUnknownCandidate: query/config references an absent candidate.
	// Surface: 4xx.
	KindUnknownCandidate Kind = "unknown_candidate"
	// KindDatapointNotFound: absent row. Surface: 404.
	KindDatapointNotFound Kind = "datapoint_not_found"
	// KindClickHouseDeserialization: row failed to decode. Surface: 5xx.
	KindClickHouseDeserialization Kind = "clickhouse_deserialization"
	// KindUnsupportedBatchInference: vendor doesn't offer batch
	// inference. Surface: 4xx.
	KindUnsupportedBatchInference Kind = "unsupported_batch_inference"
)

// IsRetryable reports whether a failure of this kind may succeed on retry.
func (k Kind) IsRetryable() bool {
	return k == KindInferenceServer
}

// HTTPStatus maps a Kind to the status code the outer HTTP layer should
// use when none is already attached to the error (e.g. KindInferenceClient
// carries its own vendor-forwarded status instead).
func (k Kind) HTTPStatus() int {
	switch k {
	case KindDatapointNotFound:
		return http.StatusNotFound
	case KindInvalidRequest, KindInvalidMessage, KindAPIKeyMissing,
		KindUnknownFunction, KindUnknownMetric, KindUnknownModel,
		KindUnknownTool, KindUnknownCandidate, KindUnsupportedBatchInference:
		return http.StatusBadRequest
	case KindConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is the gateway's single structured error type. Fields beyond Kind
// and Message are populated only where the Kind makes them meaningful.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Provider/Model/Status/RawRequest/RawResponse: KindInferenceClient,
	// KindInferenceServer.
	Provider    string
	Model       string
	Status      int
	RawRequest  string
	RawResponse string

	// Dataset/DatapointID: KindDatapointNotFound.
	Dataset     string
	DatapointID string

	// Name: the absent function/metric/model/tool/candidate name for the
	// KindUnknown* family.
	Name string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	switch e.Kind {
	case KindInferenceClient, KindInferenceServer:
		if e.Provider != "" {
			msg = fmt.Sprintf("%s (provider=%s status=%d)", msg, e.Provider, e.Status)
		}
	case KindDatapointNotFound:
		msg = fmt.Sprintf("%s (dataset=%s id=%s)", msg, e.Dataset, e.DatapointID)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithProvider attaches the originating provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithModel attaches the requested model name.
func (e *Error) WithModel(model string) *Error {
	e.Model = model
	return e
}

// WithStatus attaches the vendor's HTTP status code.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// WithRaw attaches the exact request/response transport bytes so the
// failure is diagnosable without re-issuing the call.
func (e *Error) WithRaw(rawRequest, rawResponse string) *Error {
	e.RawRequest = rawRequest
	e.RawResponse = rawResponse
	return e
}

// WithDatapoint attaches the dataset name and datapoint id for a
// KindDatapointNotFound error.
func (e *Error) WithDatapoint(dataset, datapointID string) *Error {
	e.Dataset = dataset
	e.DatapointID = datapointID
	return e
}

// WithName attaches the absent reference name for the KindUnknown* family.
func (e *Error) WithName(name string) *Error {
	e.Name = name
	return e
}

// ClassifyStatus maps a vendor HTTP status code to KindInferenceClient
// (4xx among {400,401,403,429}) or KindInferenceServer (anything else
// non-2xx), per the shared provider-adapter contract's response handling
// rules.
func ClassifyStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return KindInferenceClient
	default:
		return KindInferenceServer
	}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

// As extracts a *Error from err's chain, mirroring errors.As.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}
