// Package usage aggregates token usage across provider inferences.
//
// Cost estimation is deliberately not part of this package: billing is a
// declared non-goal of the gateway (spec §1). Only raw token counts, which
// flow into the OLAP ChatInference/JsonInference usage columns, are tracked
// here.
package usage

import (
	"fmt"
	"sync"
	"time"
)

// Usage is the token accounting for a single inference, matching the
// ProviderInferenceResponse.usage shape.
type Usage struct {
	InputTokens      int64 `json:"input_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
	CacheReadTokens  int64 `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int64 `json:"cache_write_tokens,omitempty"`
}

// Total returns the sum of every token category.
func (u *Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheReadTokens + u.CacheWriteTokens
}

// Add accumulates another usage record into this one. Streaming adapters
// call this once per usage-bearing chunk (Anthropic: message_start and
// message_delta both carry partial usage; Groq/Llama: the final chunk only).
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.CacheWriteTokens += other.CacheWriteTokens
}

// Record is one inference's usage, tagged for aggregation.
type Record struct {
	InferenceID  string    `json:"inference_id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	FunctionName string    `json:"function_name,omitempty"`
	Usage        Usage     `json:"usage"`
	Timestamp    time.Time `json:"timestamp"`
}

// Tracker accumulates usage records in a bounded ring, keyed by
// provider:model and by function_name, for in-process reporting
// (e.g. a /debug endpoint); durable accounting lives in the OLAP log.
type Tracker struct {
	mu         sync.RWMutex
	records    []Record
	byProvider map[string]*Usage
	byFunction map[string]*Usage
	maxAge     time.Duration
	maxCount   int
}

// TrackerConfig configures retention for the in-memory tracker.
type TrackerConfig struct {
	MaxAge   time.Duration
	MaxCount int
}

// DefaultTrackerConfig returns a one-day, ten-thousand-record retention window.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{MaxAge: 24 * time.Hour, MaxCount: 10000}
}

// NewTracker creates a usage tracker with the given retention config.
func NewTracker(config TrackerConfig) *Tracker {
	if config.MaxAge <= 0 {
		config.MaxAge = 24 * time.Hour
	}
	if config.MaxCount <= 0 {
		config.MaxCount = 10000
	}
	return &Tracker{
		records:    make([]Record, 0),
		byProvider: make(map[string]*Usage),
		byFunction: make(map[string]*Usage),
		maxAge:     config.MaxAge,
		maxCount:   config.MaxCount,
	}
}

// Record adds a usage record and updates running totals.
func (t *Tracker) Record(r Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	t.records = append(t.records, r)

	key := r.Provider + ":" + r.Model
	if t.byProvider[key] == nil {
		t.byProvider[key] = &Usage{}
	}
	t.byProvider[key].Add(&r.Usage)

	if r.FunctionName != "" {
		if t.byFunction[r.FunctionName] == nil {
			t.byFunction[r.FunctionName] = &Usage{}
		}
		t.byFunction[r.FunctionName].Add(&r.Usage)
	}

	t.pruneLocked()
}

func (t *Tracker) pruneLocked() {
	cutoff := time.Now().Add(-t.maxAge)
	startIdx := len(t.records)
	for i, r := range t.records {
		if r.Timestamp.After(cutoff) {
			startIdx = i
			break
		}
	}
	if startIdx > 0 {
		t.records = t.records[startIdx:]
	}
	if len(t.records) > t.maxCount {
		t.records = t.records[len(t.records)-t.maxCount:]
	}
}

// GetProviderTotals returns accumulated usage for a provider:model pair.
func (t *Tracker) GetProviderTotals(provider, model string) *Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if u := t.byProvider[provider+":"+model]; u != nil {
		cp := *u
		return &cp
	}
	return nil
}

// GetFunctionTotals returns accumulated usage for a function name.
func (t *Tracker) GetFunctionTotals(functionName string) *Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if u := t.byFunction[functionName]; u != nil {
		cp := *u
		return &cp
	}
	return nil
}

// GetRecentRecords returns up to limit of the most recently recorded entries.
func (t *Tracker) GetRecentRecords(limit int) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if limit <= 0 || limit > len(t.records) {
		limit = len(t.records)
	}
	start := len(t.records) - limit
	result := make([]Record, limit)
	copy(result, t.records[start:])
	return result
}

// FormatTokenCount formats a token count for human-readable display.
func FormatTokenCount(count int64) string {
	switch {
	case count <= 0:
		return "0"
	case count >= 1_000_000:
		return fmt.Sprintf("%.1fm", float64(count)/1_000_000)
	case count >= 10_000:
		return fmt.Sprintf("%dk", count/1_000)
	case count >= 1_000:
		return fmt.Sprintf("%.1fk", float64(count)/1_000)
	default:
		return fmt.Sprintf("%d", count)
	}
}

// FormatUsageDetailed renders a usage record's breakdown for logs.
func FormatUsageDetailed(u *Usage) string {
	if u == nil {
		return "no usage"
	}
	parts := make([]string, 0, 4)
	if u.InputTokens > 0 {
		parts = append(parts, "in:"+FormatTokenCount(u.InputTokens))
	}
	if u.OutputTokens > 0 {
		parts = append(parts, "out:"+FormatTokenCount(u.OutputTokens))
	}
	if u.CacheReadTokens > 0 {
		parts = append(parts, "cache-r:"+FormatTokenCount(u.CacheReadTokens))
	}
	if u.CacheWriteTokens > 0 {
		parts = append(parts, "cache-w:"+FormatTokenCount(u.CacheWriteTokens))
	}
	if len(parts) == 0 {
		return "0 tokens"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return FormatTokenCount(u.Total()) + " tokens (" + out + ")"
}
