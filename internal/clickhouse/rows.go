package clickhouse

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/haasonsaas/llmgateway/internal/gatewayerr"
)

// Rows iterates a FORMAT JSONEachRow response body: one JSON object per
// line. It is a single-pass, forward-only cursor over the live HTTP
// response, mirroring the lazy ChunkStream shape the provider adapters use
// for SSE.
type Rows struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cur     []byte
	err     error
}

// maxRowBytes bounds a single JSONEachRow line; inference input/output
// blobs can be large, so this is well above bufio.Scanner's 64KiB default.
const maxRowBytes = 16 * 1024 * 1024

func newRows(body io.ReadCloser) *Rows {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRowBytes)
	return &Rows{body: body, scanner: scanner}
}

// Next advances to the next row, returning false when the stream is
// exhausted or an error occurred (distinguish via Err).
func (r *Rows) Next() bool {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		r.cur = append(r.cur[:0], line...)
		return true
	}
	if err := r.scanner.Err(); err != nil {
		r.err = err
	}
	return false
}

// Scan decodes the current row into dest.
func (r *Rows) Scan(dest any) error {
	if err := json.Unmarshal(r.cur, dest); err != nil {
		return gatewayerr.Wrap(gatewayerr.KindClickHouseDeserialization, err, "failed to decode JSONEachRow row")
	}
	return nil
}

// Err returns the first error encountered while scanning, if any.
func (r *Rows) Err() error {
	if r.err != nil {
		return gatewayerr.Wrap(gatewayerr.KindClickHouseDeserialization, r.err, "failed reading clickhouse response body")
	}
	return nil
}

// Close releases the underlying HTTP response body. Callers MUST call
// Close once done, typically via defer immediately after Select returns.
func (r *Rows) Close() error {
	return r.body.Close()
}
