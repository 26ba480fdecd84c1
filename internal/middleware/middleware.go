package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/StreamAPI/internal/handlers"
	"github.com/akolanti/StreamAPI/internal/metrics"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var GetHandler = Wrap(handlers.GetHandler)

var WebhookHandler = Wrap(handlers.WebhookHandler)
var GetStreamsHandler = Wrap(handlers.GetStreamsHandler)
var GetTranscriptHandler = Wrap(handlers.GetTranscriptHandler)

var PostDocumentHandler = Wrap(handlers.PostDocumentHandler)
var GetDocumentHandler = Wrap(handlers.GetDocumentHandler)
var ListDocumentsHandler = Wrap(handlers.ListDocumentsHandler)
var PatchDocumentHandler = Wrap(handlers.PatchDocumentHandler)
var DeleteDocumentHandler = Wrap(handlers.DeleteDocumentHandler)

// WsHandler only injects the trace and authenticates - the status recorder
// must stay out of the chain because the upgrade needs the raw http.Hijacker.
var WsHandler = WrapUpgrade(handlers.WsTranscriptionHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func WrapUpgrade(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		re := processRequest(requestResponseStruct{req: r, writer: w})
		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(w, re.req)
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Info("New request received")
	//TODO:make this cleaner
	re = injectTrace(re)
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	re = rateLimiter(re)
	return re
}
