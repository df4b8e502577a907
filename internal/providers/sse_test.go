package providers

import (
	"strings"
	"testing"
)

func TestParseSSEStreamMultipleEvents(t *testing.T) {
	input := "event: message_start\ndata: {\"type\":\"message_start\"}\n\n" +
		"event: content_block_delta\ndata: {\"delta\":\"hel\"}\n\n" +
		"event: message_stop\ndata: {}\n\n"

	var events []SSEEvent
	err := ParseSSEStream(strings.NewReader(input), func(ev SSEEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("ParseSSEStream() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].EventType != "message_start" {
		t.Errorf("events[0].EventType = %q", events[0].EventType)
	}
	if events[1].Data != `{"delta":"hel"}` {
		t.Errorf("events[1].Data = %q", events[1].Data)
	}
}

func TestParseSSEStreamMultiLineData(t *testing.T) {
	input := "data: line1\ndata: line2\n\n"
	var got []SSEEvent
	err := ParseSSEStream(strings.NewReader(input), func(ev SSEEvent) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("ParseSSEStream() error = %v", err)
	}
	if len(got) != 1 || got[0].Data != "line1\nline2" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseSSEStreamHandlerErrorStopsScan(t *testing.T) {
	input := "data: one\n\ndata: two\n\ndata: three\n\n"
	count := 0
	stopErr := ParseSSEStream(strings.NewReader(input), func(ev SSEEvent) error {
		count++
		if count == 2 {
			return errTestStop
		}
		return nil
	})
	if stopErr != errTestStop {
		t.Fatalf("err = %v, want errTestStop", stopErr)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (stopped early)", count)
	}
}

func TestParseSSEStreamIgnoresCommentsAndIDFields(t *testing.T) {
	input := ": this is a comment\nid: 42\nretry: 1000\ndata: payload\n\n"
	var got []SSEEvent
	err := ParseSSEStream(strings.NewReader(input), func(ev SSEEvent) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("ParseSSEStream() error = %v", err)
	}
	if len(got) != 1 || got[0].Data != "payload" {
		t.Fatalf("got %+v", got)
	}
}

var errTestStop = &testStopError{}

type testStopError struct{}

func (*testStopError) Error() string { return "stop" }
