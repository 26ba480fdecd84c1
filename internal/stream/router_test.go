package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/StreamAPI/internal/domain/streamModel"
)

type mockTranscriptStore struct {
	lines map[string][]string
	err   error
}

func (m *mockTranscriptStore) AppendLine(ctx context.Context, streamId, text string) error {
	if m.err != nil {
		return m.err
	}
	if m.lines == nil {
		m.lines = make(map[string][]string)
	}
	m.lines[streamId] = append(m.lines[streamId], text)
	return nil
}

func (m *mockTranscriptStore) GetLines(ctx context.Context, streamId string) ([]string, error) {
	return m.lines[streamId], nil
}

func TestHandleEvent_RejectsInvalid(t *testing.T) {
	router := NewRouter(NewRegistry(), nil)

	err := router.HandleEvent(context.Background(), streamModel.TranscriptionEvent{Type: "bogus", StreamId: "s1"})
	var ve *streamModel.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestHandleEvent_LateSubscriberSeesOnlyEnd(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, nil)
	ctx := context.Background()

	must := func(ev streamModel.TranscriptionEvent) {
		t.Helper()
		if err := router.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("HandleEvent failed: %v", err)
		}
	}

	must(streamModel.TranscriptionEvent{Type: streamModel.EventStart, StreamId: "s1"})
	must(transcriptEvent("s1", "before anyone joined"))

	sub := registry.Subscribe("s1", "conn-1")

	must(streamModel.TranscriptionEvent{Type: streamModel.EventEnd, StreamId: "s1"})

	var got []streamModel.TranscriptionEvent
	for ev := range sub.Events() {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].Type != streamModel.EventEnd {
		t.Fatalf("late subscriber must receive only the end event, got %+v", got)
	}
	if sub.CloseReason() != CloseStreamEnded {
		t.Errorf("expected clean stream-ended close, got %q", sub.CloseReason())
	}

	//the stream is gone; further fanout is a no-op
	if delivered := registry.Fanout("s1", transcriptEvent("s1", "after end")); delivered != 0 {
		t.Errorf("expected no delivery after stream end, got %d", delivered)
	}
}

func TestHandleEvent_PersistsFinalTranscripts(t *testing.T) {
	store := &mockTranscriptStore{}
	router := NewRouter(NewRegistry(), store)
	ctx := context.Background()

	partial := transcriptEvent("s1", "partial words")
	if err := router.HandleEvent(ctx, partial); err != nil {
		t.Fatal(err)
	}

	final := transcriptEvent("s1", "a full sentence")
	final.Data.IsFinal = true
	if err := router.HandleEvent(ctx, final); err != nil {
		t.Fatal(err)
	}

	lines, _ := store.GetLines(ctx, "s1")
	if len(lines) != 1 || lines[0] != "a full sentence" {
		t.Fatalf("expected only the final line persisted, got %v", lines)
	}
}

func TestHandleEvent_TranscriptStoreFailureIsNotFatal(t *testing.T) {
	store := &mockTranscriptStore{err: errors.New("redis down")}
	registry := NewRegistry()
	router := NewRouter(registry, store)

	sub := registry.Subscribe("s1", "conn-1")

	ev := transcriptEvent("s1", "still delivered")
	ev.Data.IsFinal = true
	if err := router.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("store failure must not surface to the webhook caller: %v", err)
	}
	if got := drain(sub); len(got) != 1 {
		t.Fatalf("live delivery must still happen, got %d events", len(got))
	}
}
