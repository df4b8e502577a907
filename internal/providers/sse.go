package providers

import (
	"bufio"
	"io"
	"strings"
)

// SSEEvent is one parsed server-sent-event frame: an optional event type
// and the (possibly multi-line) data payload, plus the raw bytes of the
// frame exactly as received, for raw_response-style capture.
type SSEEvent struct {
	EventType string
	Data      string
	Raw       string
}

// ParseSSEStream scans reader for server-sent-event frames and invokes
// handler once per frame. It stops at the first handler error or at EOF.
// Comment lines (":") and "id:"/"retry:" fields are preserved in the frame's
// raw bytes but not otherwise interpreted.
func ParseSSEStream(reader io.Reader, handler func(event SSEEvent) error) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	var dataLines []string
	var rawLines []string

	flush := func() error {
		if eventType == "" && len(dataLines) == 0 {
			return nil
		}
		ev := SSEEvent{
			EventType: eventType,
			Data:      strings.Join(dataLines, "\n"),
			Raw:       strings.Join(rawLines, "\n"),
		}
		eventType = ""
		dataLines = nil
		rawLines = nil
		return handler(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}

		rawLines = append(rawLines, line)

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		default:
			// comment (":") or id:/retry: fields: kept in Raw, otherwise ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}
