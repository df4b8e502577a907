// Package clickhouse is the gateway's OLAP HTTP transport. No ClickHouse
// Go driver exists in the retrieved example corpus, so this package talks
// to the store the way ClickHouse's own HTTP interface works: a POST of
// the generated SQL text with caller-supplied scalars bound as param_pN
// query-string entries, decoding a newline-delimited (FORMAT JSONEachRow)
// response body. It is the one place this gateway reaches net/http
// directly instead of a vendor client.
package clickhouse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haasonsaas/llmgateway/internal/backoff"
	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
	"github.com/haasonsaas/llmgateway/internal/observability"
)

// Config configures a Client.
type Config struct {
	// Endpoint is the ClickHouse HTTP interface URL, e.g.
	// "http://localhost:8123".
	Endpoint string
	Database string
	Username string
	Password string

	HTTPClient *http.Client
	Metrics    *observability.Metrics

	// MaxAttempts bounds retries of retryable (5xx, connection reset)
	// queries. Zero selects a default of 3.
	MaxAttempts int
	// RetryPolicy overrides the default backoff policy between attempts.
	RetryPolicy backoff.BackoffPolicy
}

// Client issues parameterized SQL against a ClickHouse-shaped OLAP store
// over its HTTP interface.
type Client struct {
	endpoint    string
	database    string
	username    string
	password    string
	httpClient  *http.Client
	metrics     *observability.Metrics
	maxAttempts int
	retryPolicy backoff.BackoffPolicy
}

// New constructs a Client from cfg, applying sane defaults for anything
// left zero-valued.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryPolicy := cfg.RetryPolicy
	if retryPolicy == (backoff.BackoffPolicy{}) {
		retryPolicy = backoff.DefaultPolicy()
	}
	return &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		database:    cfg.Database,
		username:    cfg.Username,
		password:    cfg.Password,
		httpClient:  httpClient,
		metrics:     cfg.Metrics,
		maxAttempts: maxAttempts,
		retryPolicy: retryPolicy,
	}
}

// Select runs a SELECT-shaped query and returns its JSONEachRow rows for
// decoding. operation labels the call for metrics (e.g. "list_inferences",
// "adjacency", "dataset_row"); it carries no semantic meaning to the store.
func (c *Client) Select(ctx context.Context, operation, sql string, params []QueryParameter) (*Rows, error) {
	body, err := c.do(ctx, operation, "select", sql, params)
	if err != nil {
		return nil, err
	}
	return newRows(body), nil
}

// Exec runs an INSERT/other statement that returns no rows. operation
// labels the call for metrics the same way Select's does.
func (c *Client) Exec(ctx context.Context, operation, sql string, params []QueryParameter) error {
	body, err := c.do(ctx, operation, "insert", sql, params)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

func (c *Client) do(ctx context.Context, operation, metricOp, sql string, params []QueryParameter) (io.ReadCloser, error) {
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.attempt(ctx, sql, params)
		if err == nil {
			if c.metrics != nil {
				c.metrics.RecordOLAPQuery(metricOp, "success", time.Since(start).Seconds())
			}
			return resp.Body, nil
		}
		lastErr = err

		gerr, _ := err.(*gatewayerr.Error)
		retryable := gerr != nil && gerr.Kind.IsRetryable()
		if !retryable || attempt == c.maxAttempts {
			break
		}
		if sleepErr := backoff.SleepWithBackoff(ctx, c.retryPolicy, attempt); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	if c.metrics != nil {
		c.metrics.RecordOLAPQuery(metricOp, "error", time.Since(start).Seconds())
	}
	if gerr, ok := lastErr.(*gatewayerr.Error); ok {
		return nil, gerr
	}
	return nil, gatewayerr.Wrap(gatewayerr.KindInferenceServer, lastErr, fmt.Sprintf("clickhouse %s failed after retries", operation))
}

// attempt performs a single HTTP round trip, always returning a
// *gatewayerr.Error so do's retry loop can classify retryability by Kind.
func (c *Client) attempt(ctx context.Context, sql string, params []QueryParameter) (*http.Response, error) {
	u, buildErr := c.buildURL(params)
	if buildErr != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindSerialization, buildErr, "failed to build clickhouse request")
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBufferString(sql))
	if reqErr != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindSerialization, reqErr, "failed to build clickhouse request")
	}
	req.Header.Set("content-type", "text/plain")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindInferenceServer, doErr, "clickhouse request failed")
	}
	if resp.StatusCode >= 500 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, gatewayerr.New(gatewayerr.KindInferenceServer, "clickhouse returned a server error").
			WithStatus(resp.StatusCode).WithRaw(sql, string(raw))
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, gatewayerr.New(gatewayerr.KindClickHouseDeserialization, "clickhouse rejected the query").
			WithStatus(resp.StatusCode).WithRaw(sql, string(raw))
	}
	return resp, nil
}

func (c *Client) buildURL(params []QueryParameter) (string, error) {
	q := url.Values{}
	if c.database != "" {
		q.Set("database", c.database)
	}
	for _, p := range params {
		encoded, err := p.encode()
		if err != nil {
			return "", err
		}
		q.Set("param_p"+p.Name, encoded)
	}
	return c.endpoint + "/?" + q.Encode(), nil
}
