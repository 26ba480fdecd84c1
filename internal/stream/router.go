package stream

import (
	"context"

	"github.com/akolanti/StreamAPI/internal/domain/streamModel"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

// TranscriptStore receives final transcript lines as they are routed, so the
// transcript so far can be read back later. Fan-out itself stays live-only.
type TranscriptStore interface {
	AppendLine(ctx context.Context, streamId string, text string) error
	GetLines(ctx context.Context, streamId string) ([]string, error)
}

// Router receives transcription events from the ingest process and fans them
// out to every subscriber of the event's stream.
type Router struct {
	registry    *Registry
	transcripts TranscriptStore
	logger      *logger_i.Logger
}

func NewRouter(registry *Registry, transcripts TranscriptStore) *Router {
	return &Router{
		registry:    registry,
		transcripts: transcripts,
		logger:      logger_i.NewLogger("EventRouter"),
	}
}

// HandleEvent validates and routes one event. Validation failures are
// returned to the caller as a *streamModel.ValidationError; they are never
// silently dropped. Delivery itself never blocks on a slow subscriber.
func (r *Router) HandleEvent(ctx context.Context, event streamModel.TranscriptionEvent) error {
	if err := event.Validate(); err != nil {
		r.logger.Warn("rejected event", "error", err)
		return err
	}

	switch event.Type {
	case streamModel.EventStart:
		r.registry.Register(event.StreamId)
		r.registry.Fanout(event.StreamId, event)

	case streamModel.EventTranscript:
		delivered := r.registry.Fanout(event.StreamId, event)
		r.logger.Debug("routed transcript", "streamId", event.StreamId, "delivered", delivered)
		if event.Data.IsFinal && r.transcripts != nil {
			if err := r.transcripts.AppendLine(ctx, event.StreamId, event.Data.Text); err != nil {
				//the live fan-out already happened; losing a transcript line is not fatal
				r.logger.Error("failed to persist transcript line", "streamId", event.StreamId, "error", err)
			}
		}

	case streamModel.EventEnd:
		r.registry.Fanout(event.StreamId, event)
		subs := r.registry.Deregister(event.StreamId)
		for _, sub := range subs {
			sub.close(CloseStreamEnded)
		}
		r.logger.Info("stream ended", "streamId", event.StreamId, "closedSubscribers", len(subs))
	}

	return nil
}
