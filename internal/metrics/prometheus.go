package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the TTS streaming service
type Metrics struct {
	// Stream lifecycle metrics
	ActiveStreams    prometheus.Gauge
	StreamsStarted   prometheus.Counter
	StreamsCompleted prometheus.Counter
	StreamsFailed    prometheus.Counter
	StreamDuration   prometheus.Histogram
	TimeToFirstFrame prometheus.Histogram

	// Delivery metrics
	FramesEmitted prometheus.Counter
	BytesEmitted  prometheus.Counter
	InputChars    prometheus.Counter

	// Synthesis metrics
	BatchesSynthesized prometheus.Counter
	SynthesisFailures  prometheus.Counter
	BatchDuration      prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Stream lifecycle metrics
		ActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tts_active_streams",
			Help: "Current number of active audio streams",
		}),
		StreamsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tts_streams_started_total",
			Help: "Total number of streaming requests started",
		}),
		StreamsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tts_streams_completed_total",
			Help: "Total number of streams completed successfully",
		}),
		StreamsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tts_streams_failed_total",
			Help: "Total number of streams terminated by an error",
		}),
		StreamDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tts_stream_duration_seconds",
			Help:    "Wall-clock duration of streaming requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7 minutes
		}),
		TimeToFirstFrame: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tts_time_to_first_frame_seconds",
			Help:    "Latency from request start to the first emitted audio frame",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),

		// Delivery metrics
		FramesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tts_frames_emitted_total",
			Help: "Total number of fixed-size audio frames emitted to clients",
		}),
		BytesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tts_bytes_emitted_total",
			Help: "Total number of audio bytes emitted to clients, headers included",
		}),
		InputChars: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tts_input_chars_total",
			Help: "Total number of input text characters accepted for synthesis",
		}),

		// Synthesis metrics
		BatchesSynthesized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tts_batches_synthesized_total",
			Help: "Total number of text batches sent to the synthesis backend",
		}),
		SynthesisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tts_synthesis_failures_total",
			Help: "Total number of synthesis backend failures",
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tts_batch_duration_seconds",
			Help:    "Duration of individual batch synthesis calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tts_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tts_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tts_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordStreamStarted marks a new stream as active
func (m *Metrics) RecordStreamStarted(inputChars int) {
	m.StreamsStarted.Inc()
	m.ActiveStreams.Inc()
	m.InputChars.Add(float64(inputChars))
}

// RecordStreamCompleted marks a stream as finished successfully
func (m *Metrics) RecordStreamCompleted(durationSeconds float64) {
	m.StreamsCompleted.Inc()
	m.ActiveStreams.Dec()
	m.StreamDuration.Observe(durationSeconds)
}

// RecordStreamFailed marks a stream as terminated by an error
func (m *Metrics) RecordStreamFailed(durationSeconds float64) {
	m.StreamsFailed.Inc()
	m.ActiveStreams.Dec()
	m.StreamDuration.Observe(durationSeconds)
}

// RecordFirstFrame records the latency to the first emitted frame
func (m *Metrics) RecordFirstFrame(latencySeconds float64) {
	m.TimeToFirstFrame.Observe(latencySeconds)
}

// RecordFrameEmitted records one emitted frame of the given size
func (m *Metrics) RecordFrameEmitted(sizeBytes int) {
	m.FramesEmitted.Inc()
	m.BytesEmitted.Add(float64(sizeBytes))
}

// RecordHeaderEmitted records header or lead-in bytes written to a client
func (m *Metrics) RecordHeaderEmitted(sizeBytes int) {
	m.BytesEmitted.Add(float64(sizeBytes))
}

// RecordBatchSynthesized records one completed batch synthesis call
func (m *Metrics) RecordBatchSynthesized(durationSeconds float64) {
	m.BatchesSynthesized.Inc()
	m.BatchDuration.Observe(durationSeconds)
}

// RecordSynthesisFailure increments the synthesis failures counter
func (m *Metrics) RecordSynthesisFailure() {
	m.SynthesisFailures.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
