package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/providers"
	"github.com/haasonsaas/llmgateway/pkg/inference"
)

// batchRequestEntry is one element of the Message Batches API's request
// array: a caller-supplied custom_id paired with the normal /v1/messages
// body for that request.
type batchRequestEntry struct {
	CustomID string          `json:"custom_id"`
	Params   json.RawMessage `json:"params"`
}

type batchCreateResponse struct {
	ID             string `json:"id"`
	ProcessingStatus string `json:"processing_status"`
}

type batchStatusResponse struct {
	ID               string `json:"id"`
	ProcessingStatus string `json:"processing_status"`
	ResultsURL       string `json:"results_url"`
}

// batchResultLine is one line of the batch results file (JSONL), returned
// once processing_status is "ended".
type batchResultLine struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string            `json:"type"`
		Message *wireResponseBody `json:"message"`
	} `json:"result"`
}

// StartBatchInference submits a Message Batches job covering every request
// in reqs, using its index (as a string) for custom_id so poll results can
// be matched back to the original order.
func (p *Provider) StartBatchInference(ctx context.Context, reqs []*inference.ModelInferenceRequest, creds inference.InferenceCredentials) (inference.BatchHandle, error) {
	key, kErr := p.apiKey(creds)
	if kErr != nil {
		return inference.BatchHandle{}, kErr
	}

	entries := make([]batchRequestEntry, 0, len(reqs))
	for i, r := range reqs {
		model := r.Model
		if model == "" {
			model = defaultModel
		}
		_, rawRequest, bErr := buildRequestBody(model, r)
		if bErr != nil {
			return inference.BatchHandle{}, bErr
		}
		entries = append(entries, batchRequestEntry{CustomID: customIDForIndex(i), Params: rawRequest})
	}

	payload, mErr := json.Marshal(map[string]any{"requests": entries})
	if mErr != nil {
		return inference.BatchHandle{}, gatewayerr.Wrap(gatewayerr.KindSerialization, mErr, "failed to serialize batch request")
	}

	httpReq, hErr := p.newHTTPRequest(ctx, "/v1/messages/batches", payload, key, nil)
	if hErr != nil {
		return inference.BatchHandle{}, hErr
	}

	result, dErr := providers.Dispatch(ctx, p.httpClient, httpReq, string(payload))
	if dErr != nil {
		return inference.BatchHandle{}, dErr
	}

	var created batchCreateResponse
	if err := json.Unmarshal([]byte(result.RawResponse), &created); err != nil {
		return inference.BatchHandle{}, gatewayerr.Wrap(gatewayerr.KindOutputParsing, err, "failed to parse batch create response").
			WithRaw(string(payload), result.RawResponse)
	}

	return inference.BatchHandle{Provider: "anthropic", ProviderBatchID: created.ID}, nil
}

// PollBatchInference checks a batch job's status and, once ended,
// downloads and parses its results file.
func (p *Provider) PollBatchInference(ctx context.Context, handle inference.BatchHandle) (*inference.BatchPollResult, error) {
	key, kErr := p.apiKey(nil)
	if kErr != nil {
		return nil, kErr
	}

	statusReq, rErr := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/messages/batches/"+handle.ProviderBatchID, nil)
	if rErr != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindSerialization, rErr, "failed to construct batch status request")
	}
	statusReq.Header.Set("x-api-key", key)
	statusReq.Header.Set("anthropic-version", anthropicVersion)

	result, dErr := providers.Dispatch(ctx, p.httpClient, statusReq, "")
	if dErr != nil {
		return nil, dErr
	}

	var status batchStatusResponse
	if err := json.Unmarshal([]byte(result.RawResponse), &status); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindOutputParsing, err, "failed to parse batch status response").
			WithRaw("", result.RawResponse)
	}

	if status.ProcessingStatus != "ended" {
		return &inference.BatchPollResult{Status: inference.BatchPending}, nil
	}

	resultsReq, rErr := http.NewRequestWithContext(ctx, http.MethodGet, status.ResultsURL, nil)
	if rErr != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindSerialization, rErr, "failed to construct batch results request")
	}
	resultsReq.Header.Set("x-api-key", key)
	resultsReq.Header.Set("anthropic-version", anthropicVersion)

	resultsResult, dErr2 := providers.Dispatch(ctx, p.httpClient, resultsReq, "")
	if dErr2 != nil {
		return nil, dErr2
	}

	responses, pErr := parseBatchResultsJSONL(resultsResult.RawResponse)
	if pErr != nil {
		return nil, pErr
	}

	return &inference.BatchPollResult{Status: inference.BatchReady, Responses: responses}, nil
}

func parseBatchResultsJSONL(body string) ([]*inference.ProviderInferenceResponse, *gatewayerr.Error) {
	lines := splitJSONLines(body)
	byIndex := map[int]*inference.ProviderInferenceResponse{}
	maxIndex := -1

	for _, line := range lines {
		if line == "" {
			continue
		}
		var entry batchResultLine
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.KindClickHouseDeserialization, err, "failed to parse batch result line")
		}
		idx, ok := indexFromCustomID(entry.CustomID)
		if !ok || entry.Result.Message == nil {
			continue
		}
		if idx > maxIndex {
			maxIndex = idx
		}
		output := make([]inference.ContentBlockOutput, 0, len(entry.Result.Message.Content))
		for _, c := range entry.Result.Message.Content {
			output = append(output, convertOutputBlock(c, false))
		}
		byIndex[idx] = &inference.ProviderInferenceResponse{
			Output:       output,
			Usage:        usageFromWire(entry.Result.Message.Usage),
			FinishReason: finishReasonFromStopReason(entry.Result.Message.StopReason),
			RawResponse:  line,
		}
	}

	responses := make([]*inference.ProviderInferenceResponse, maxIndex+1)
	for i := range responses {
		responses[i] = byIndex[i]
	}
	return responses, nil
}

func splitJSONLines(body string) []string {
	return strings.Split(strings.TrimRight(body, "\n"), "\n")
}

const customIDPrefix = "req-"

func customIDForIndex(i int) string {
	return customIDPrefix + strconv.Itoa(i)
}

func indexFromCustomID(id string) (int, bool) {
	if !strings.HasPrefix(id, customIDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, customIDPrefix))
	return n, err == nil
}
