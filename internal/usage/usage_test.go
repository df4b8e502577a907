package usage

import (
	"testing"
	"time"
)

func TestUsage_Total(t *testing.T) {
	u := &Usage{
		InputTokens:      100,
		OutputTokens:     200,
		CacheReadTokens:  50,
		CacheWriteTokens: 25,
	}

	if u.Total() != 375 {
		t.Errorf("Total() = %d, want 375", u.Total())
	}
}

func TestUsage_Add(t *testing.T) {
	u1 := &Usage{InputTokens: 100, OutputTokens: 200}
	u2 := &Usage{InputTokens: 50, OutputTokens: 75}

	u1.Add(u2)

	if u1.InputTokens != 150 {
		t.Errorf("InputTokens = %d, want 150", u1.InputTokens)
	}
	if u1.OutputTokens != 275 {
		t.Errorf("OutputTokens = %d, want 275", u1.OutputTokens)
	}
}

func TestUsage_AddNil(t *testing.T) {
	u := &Usage{InputTokens: 100}
	u.Add(nil)
	if u.InputTokens != 100 {
		t.Error("adding nil should not change usage")
	}
}

func TestFormatTokenCount(t *testing.T) {
	tests := []struct {
		count int64
		want  string
	}{
		{0, "0"},
		{-10, "0"},
		{500, "500"},
		{1000, "1.0k"},
		{1500, "1.5k"},
		{10000, "10k"},
		{15000, "15k"},
		{100000, "100k"},
		{1000000, "1.0m"},
		{1500000, "1.5m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := FormatTokenCount(tt.count)
			if got != tt.want {
				t.Errorf("FormatTokenCount(%d) = %q, want %q", tt.count, got, tt.want)
			}
		})
	}
}

func TestTracker_Record(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	tracker.Record(Record{
		Provider:     "anthropic",
		Model:        "claude-3-sonnet",
		FunctionName: "extract_entities",
		Usage:        Usage{InputTokens: 100, OutputTokens: 200},
	})

	totals := tracker.GetProviderTotals("anthropic", "claude-3-sonnet")
	if totals == nil {
		t.Fatal("expected totals")
	}
	if totals.InputTokens != 100 {
		t.Errorf("InputTokens = %d, want 100", totals.InputTokens)
	}

	fnTotals := tracker.GetFunctionTotals("extract_entities")
	if fnTotals == nil {
		t.Fatal("expected function totals")
	}
	if fnTotals.Total() != 300 {
		t.Errorf("function total = %d, want 300", fnTotals.Total())
	}
}

func TestTracker_GetRecentRecords(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	for i := 0; i < 5; i++ {
		tracker.Record(Record{
			InferenceID: string(rune('A' + i)),
			Provider:    "test",
			Model:       "test",
			Usage:       Usage{InputTokens: int64(i * 100)},
		})
	}

	records := tracker.GetRecentRecords(3)
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
	if records[0].InferenceID != "C" {
		t.Errorf("first record InferenceID = %s, want C", records[0].InferenceID)
	}
}

func TestTracker_PerProviderAggregation(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	tracker.Record(Record{Provider: "anthropic", Model: "claude", Usage: Usage{InputTokens: 100}})
	tracker.Record(Record{Provider: "anthropic", Model: "claude", Usage: Usage{InputTokens: 200}})
	tracker.Record(Record{Provider: "groq", Model: "llama-3.3-70b", Usage: Usage{InputTokens: 50}})

	claudeUsage := tracker.GetProviderTotals("anthropic", "claude")
	if claudeUsage == nil || claudeUsage.InputTokens != 300 {
		t.Error("claude usage incorrect")
	}

	groqUsage := tracker.GetProviderTotals("groq", "llama-3.3-70b")
	if groqUsage == nil || groqUsage.InputTokens != 50 {
		t.Error("groq usage incorrect")
	}
}

func TestTracker_PruneOld(t *testing.T) {
	config := TrackerConfig{
		MaxAge:   100 * time.Millisecond,
		MaxCount: 1000,
	}
	tracker := NewTracker(config)

	tracker.Record(Record{
		Provider:  "test",
		Model:     "test",
		Usage:     Usage{InputTokens: 100},
		Timestamp: time.Now().Add(-200 * time.Millisecond),
	})

	tracker.Record(Record{
		Provider: "test",
		Model:    "test",
		Usage:    Usage{InputTokens: 50},
	})

	records := tracker.GetRecentRecords(100)
	if len(records) != 1 {
		t.Errorf("expected 1 record after pruning, got %d", len(records))
	}
}

func TestFormatUsageDetailed(t *testing.T) {
	u := &Usage{
		InputTokens:  1000,
		OutputTokens: 500,
	}
	formatted := FormatUsageDetailed(u)
	if formatted != "1.5k tokens (in:1.0k, out:500)" {
		t.Errorf("FormatUsageDetailed() = %q", formatted)
	}
}

func TestFormatUsageDetailedNil(t *testing.T) {
	if FormatUsageDetailed(nil) != "no usage" {
		t.Error("nil usage should format as 'no usage'")
	}
}
