package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/akolanti/StreamAPI/internal/adapter/utils"
	"github.com/akolanti/StreamAPI/internal/api"
	"github.com/akolanti/StreamAPI/internal/domain/streamModel"
	"github.com/akolanti/StreamAPI/internal/stream"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

var (
	streamOnce   sync.Once
	_eventRouter *stream.Router
	_registry    *stream.Registry
	_transcripts stream.TranscriptStore
	logRH        *logger_i.Logger
)

func InitStreamHandlers(eventRouter *stream.Router, registry *stream.Registry, transcripts stream.TranscriptStore) {
	streamOnce.Do(func() {
		_eventRouter = eventRouter
		_registry = registry
		_transcripts = transcripts
		logRH = logger_i.NewLogger("StreamHandlers")
		logRH.Info("Starting stream handlers")
	})
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// WebhookHandler godoc
// @Summary      Ingest a transcription event
// @Description  Accepts one transcription event from the producer and fans it out to the stream's subscribers.
// @Tags         Streaming
// @Accept       json
// @Produce      json
// @Success      202  {object}  api.WebhookAck      "Event accepted and routed"
// @Failure      400  {object}  api.ErrorResponse   "Malformed body or invalid event (names the violated field)"
// @Router       /webhook [post]
func WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	var event streamModel.TranscriptionEvent
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logRH.Error("Couldn't close the webhook reader :", err)
		}
	}(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		logRH.Warn("Bad webhook body", "error:", err)
		WriteErrorResponse(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	if err := _eventRouter.HandleEvent(r.Context(), event); err != nil {
		var validationErr *streamModel.ValidationError
		if errors.As(err, &validationErr) {
			WriteErrorResponse(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		WriteErrorResponse(w, http.StatusInternalServerError, "could not route event")
		return
	}

	writeJsonResponse(w, http.StatusAccepted, api.WebhookAck{Status: "accepted", StreamId: event.StreamId})
}

// GetStreamsHandler godoc
// @Summary      List active streams
// @Description  Returns the currently registered streams with their live subscriber counts.
// @Tags         Streaming
// @Produce      json
// @Success      200  {array}  stream.StreamInfo
// @Router       /streams [get]
func GetStreamsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	writeJsonResponse(w, http.StatusOK, _registry.ActiveStreams())
}

// GetTranscriptHandler godoc
// @Summary      Read the rolling transcript of a stream
// @Description  Returns the final transcript lines persisted so far for the stream.
// @Tags         Streaming
// @Produce      json
// @Success      200  {object}  api.TranscriptResponse
// @Failure      503  {object}  api.ErrorResponse "Transcript storage unavailable"
// @Router       /streams/{id}/transcript [get]
func GetTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	streamId := utils.GetChiURLParam(r, "id")
	if _transcripts == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "transcript storage unavailable")
		return
	}

	lines, err := _transcripts.GetLines(r.Context(), streamId)
	if err != nil {
		logRH.Error("could not read transcript", "streamId", streamId, "error", err.Error())
		WriteErrorResponse(w, http.StatusInternalServerError, "could not read transcript")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.TranscriptResponse{StreamId: streamId, Lines: lines})
}
