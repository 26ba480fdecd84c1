package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var eventsFannedOut = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "stream_events_fanned_out_total",
	Help: "Transcription events delivered to subscriber queues, by stream",
}, []string{"stream"})

var subscriberDrops = promauto.NewCounter(prometheus.CounterOpts{
	Name: "stream_subscriber_dropped_events_total",
	Help: "Events evicted from a full subscriber queue (bounded staleness)",
})

var activeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "stream_active_subscribers",
	Help: "Currently connected stream subscribers",
})

var activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "stream_active_streams",
	Help: "Currently registered live streams",
})

var countRunsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "pipeline_runs_in_queue",
	Help: "Number of pipeline runs waiting for a worker",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start a worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active pipeline workers",
})

var chunksEmbedded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pipeline_chunks_embedded_total",
	Help: "Chunks embedded and acknowledged by the vector store",
})

var reconcilerRedrives = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reconciler_redrives_total",
	Help: "Documents re-enqueued by the consistency reconciler",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) CaptureWriteHeaderMetrics(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementEventsFannedOut(streamId string) { eventsFannedOut.WithLabelValues(streamId).Inc() }
func IncrementSubscriberDrops()                { subscriberDrops.Inc() }
func IncrementActiveSubscribers()              { activeSubscribers.Inc() }
func DecrementActiveSubscribers()              { activeSubscribers.Dec() }
func IncrementActiveStreams()                  { activeStreams.Inc() }
func DecrementActiveStreams()                  { activeStreams.Dec() }

func IncrementRunsInQueue() { countRunsInQueue.Inc() }
func DecrementRunsInQueue() { countRunsInQueue.Dec() }

func StartDispatcherSignalCount() { dispatcherSignalCount.Inc() }

func IncrementActiveWorkerCount() { activeWorkerCount.Inc() }
func DecrementActiveWorkerCount() { activeWorkerCount.Dec() }

func IncrementChunksEmbedded()    { chunksEmbedded.Inc() }
func IncrementReconcilerRedrives() { reconcilerRedrives.Inc() }

var runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "pipeline_run_duration_seconds",
	Help:    "Total time spent in a document pipeline run.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 300},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureRunMetrics(label string, timeElapsed time.Duration) {
	runDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
