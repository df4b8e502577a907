package inference

import "context"

// ChunkStream is a finite, not-restartable, single-consumer sequence of
// streaming chunks produced by one infer_stream call. Restarting a stream
// requires a new call to the adapter's InferStream method; there is no
// seek or replay.
type ChunkStream struct {
	chunks <-chan ProviderInferenceResponseChunk
	errs   <-chan error
}

// NewChunkStream wraps the channels a provider adapter's streaming goroutine
// writes to. The adapter closes chunks when the underlying transport is
// exhausted and sends at most one value on errs beforehand if the stream
// ended abnormally.
func NewChunkStream(chunks <-chan ProviderInferenceResponseChunk, errs <-chan error) ChunkStream {
	return ChunkStream{chunks: chunks, errs: errs}
}

// Next blocks for the next chunk, returning ok == false once the stream is
// exhausted. Callers should check Err after ok is false to distinguish a
// clean end-of-stream from a transport failure.
func (s ChunkStream) Next(ctx context.Context) (chunk ProviderInferenceResponseChunk, ok bool) {
	select {
	case c, open := <-s.chunks:
		return c, open
	case <-ctx.Done():
		return ProviderInferenceResponseChunk{}, false
	}
}

// Err returns the terminal error, if any, after Next has returned ok ==
// false. It does not block if the adapter goroutine has already finished.
func (s ChunkStream) Err() error {
	select {
	case err := <-s.errs:
		return err
	default:
		return nil
	}
}

// BatchStatus is the lifecycle state of a started batch inference job.
type BatchStatus string

const (
	BatchPending BatchStatus = "pending"
	BatchReady   BatchStatus = "ready"
)

// BatchHandle identifies a provider-side batch job. ProviderBatchID is
// opaque to the gateway; only the owning adapter interprets it.
type BatchHandle struct {
	ProviderBatchID string
	Provider        string
}

// BatchPollResult is the outcome of polling a batch handle. When Status ==
// BatchPending, Responses is nil. When Status == BatchReady, Responses has
// one entry per request in the original start_batch_inference call, in
// the same order; a request that failed independently is represented by a
// nil response rather than failing the whole poll.
type BatchPollResult struct {
	Status    BatchStatus
	Responses []*ProviderInferenceResponse
}
