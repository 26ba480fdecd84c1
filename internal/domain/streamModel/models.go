package streamModel

import "fmt"

type EventType string

const (
	EventStart      EventType = "start"
	EventTranscript EventType = "transcript"
	EventEnd        EventType = "end"
)

// TranscriptionEvent is the envelope pushed by the ingest process.
// Events are immutable once emitted; ordering within a stream is
// timestamp-monotonic as guaranteed by the producer.
type TranscriptionEvent struct {
	Type      EventType         `json:"type"`
	StreamId  string            `json:"streamId"`
	Timestamp float64           `json:"timestamp"`
	Data      TranscriptionData `json:"data"`
}

type TranscriptionData struct {
	Text       string   `json:"text,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	IsFinal    bool     `json:"is_final,omitempty"`
}

// ValidationError names the violated field so the ingest process can see
// exactly what it sent wrong. Rejections are synchronous, never silent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: field %q %s", e.Field, e.Reason)
}

func (e TranscriptionEvent) Validate() error {
	if e.StreamId == "" {
		return &ValidationError{Field: "streamId", Reason: "is required"}
	}
	switch e.Type {
	case EventStart, EventEnd:
		return nil
	case EventTranscript:
		if e.Data.Text == "" {
			return &ValidationError{Field: "data.text", Reason: "is required for transcript events"}
		}
		return nil
	case "":
		return &ValidationError{Field: "type", Reason: "is required"}
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("has unknown value %q", e.Type)}
	}
}
