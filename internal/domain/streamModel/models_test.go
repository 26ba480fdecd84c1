package streamModel

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		event     TranscriptionEvent
		wantField string
	}{
		{"valid start", TranscriptionEvent{Type: EventStart, StreamId: "s1"}, ""},
		{"valid end", TranscriptionEvent{Type: EventEnd, StreamId: "s1"}, ""},
		{"valid transcript", TranscriptionEvent{Type: EventTranscript, StreamId: "s1", Data: TranscriptionData{Text: "hello"}}, ""},
		{"missing stream id", TranscriptionEvent{Type: EventStart}, "streamId"},
		{"missing type", TranscriptionEvent{StreamId: "s1"}, "type"},
		{"unknown type", TranscriptionEvent{Type: "pause", StreamId: "s1"}, "type"},
		{"transcript without text", TranscriptionEvent{Type: EventTranscript, StreamId: "s1"}, "data.text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("expected violated field %q, got %q", tt.wantField, ve.Field)
			}
		})
	}
}
