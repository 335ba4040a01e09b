package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/tts-stream-service/internal/config"
	"github.com/skypro1111/tts-stream-service/internal/metrics"
	"github.com/skypro1111/tts-stream-service/internal/stream"
	"github.com/skypro1111/tts-stream-service/internal/synth"
	"github.com/skypro1111/tts-stream-service/internal/voices"
)

// SynthStats exposes synthesis backend client statistics for /stats.
type SynthStats interface {
	GetStats() synth.ClientStats
}

// HTTPServer provides the streaming and monitoring HTTP endpoints
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	streamer   *stream.Streamer
	synthStats SynthStats
	metrics    *metrics.Metrics

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates the HTTP API server
func NewHTTPServer(cfg config.ServerConfig, logger *slog.Logger, appConfig *config.Config,
	streamer *stream.Streamer, synthStats SynthStats, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		streamer:   streamer,
		synthStats: synthStats,
		metrics:    m,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler:     mux,
		ReadTimeout: cfg.GetReadTimeout(),
		IdleTimeout: cfg.GetIdleTimeout(),
		// No WriteTimeout: streaming responses run as long as their audio.
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Streaming synthesis endpoints
	mux.HandleFunc("/v1/audio/speech/stream", h.withMetrics("/v1/audio/speech/stream", h.handleSpeechStream))
	mux.HandleFunc("/api/tts/stream", h.withMetrics("/api/tts/stream", h.handleTTSStream))

	// Voice catalog
	mux.HandleFunc("/v1/audio/voices", h.withMetrics("/v1/audio/voices", h.handleVoices))

	// Monitoring endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Wrap the response writer to capture the status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code while
// passing Flush through for streaming handlers.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// errorResponse writes a structured JSON error
func errorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// speechStreamRequest is the body of POST /v1/audio/speech/stream
type speechStreamRequest struct {
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// ttsStreamRequest is the body of POST /api/tts/stream
type ttsStreamRequest struct {
	Text    string `json:"text"`
	Voice   string `json:"voice"`
	UseCUDA bool   `json:"use_cuda"`
}

// handleSpeechStream implements POST /v1/audio/speech/stream: a WAV stream
// delivered at real-time playback pace.
func (h *HTTPServer) handleSpeechStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req speechStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Input == "" {
		errorResponse(w, http.StatusBadRequest, "missing input text")
		return
	}

	h.streamAudio(w, r, stream.Request{
		Input:  req.Input,
		Voice:  h.resolveVoice(req.Voice),
		Policy: stream.PolicyPaced,
	}, "audio/wav")
}

// handleTTSStream implements POST /api/tts/stream: maximum-throughput
// delivery with a silence lead-in for client buffering.
func (h *HTTPServer) handleTTSStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ttsStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Text == "" {
		errorResponse(w, http.StatusBadRequest, "missing input text")
		return
	}

	h.streamAudio(w, r, stream.Request{
		Input:  req.Text,
		Voice:  h.resolveVoice(req.Voice),
		Policy: stream.PolicyUnpaced,
	}, "application/octet-stream")
}

// resolveVoice falls back to the configured default for empty or unknown
// voice names.
func (h *HTTPServer) resolveVoice(name string) string {
	if name == "" {
		return h.config.Synthesis.DefaultVoice
	}

	if _, ok := voices.Lookup(name); !ok {
		h.logger.Warn("Unknown voice requested, using default",
			slog.String("voice", name),
			slog.String("default", h.config.Synthesis.DefaultVoice),
		)
		return h.config.Synthesis.DefaultVoice
	}

	return name
}

// streamAudio runs the orchestrator against the response writer. Once
// streaming has begun, errors surface only as early stream termination.
func (h *HTTPServer) streamAudio(w http.ResponseWriter, r *http.Request, req stream.Request, contentType string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		errorResponse(w, http.StatusInternalServerError, "streaming unsupported by transport")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	fw := &flushWriter{w: w, f: flusher}

	// The request context is cancelled when the client disconnects, which
	// stops further producer invocation.
	if err := h.streamer.Stream(r.Context(), fw, req); err != nil {
		h.logger.Warn("Streaming request terminated early",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// flushWriter flushes after every write so frames reach the client as they
// are emitted rather than sitting in the response buffer.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err != nil {
		return n, err
	}
	fw.f.Flush()
	return n, nil
}

// handleVoices implements GET /v1/audio/voices
func (h *HTTPServer) handleVoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	all := voices.All()
	if len(all) == 0 {
		errorResponse(w, http.StatusNotFound, "no voices available")
		return
	}

	response := map[string]interface{}{
		"status":    "ok",
		"voices":    voices.Names(),
		"languages": voices.Languages(),
		"default":   h.config.Synthesis.DefaultVoice,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uptime := time.Since(h.startTime)
	synthStats := h.synthStats.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "tts-stream-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"synthesis_backend": map[string]interface{}{
				"endpoint":        h.config.Synthesis.Endpoint,
				"total_requests":  synthStats.TotalRequests,
				"success_rate":    synthStats.SuccessRate,
				"active_requests": synthStats.ActiveRequests,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Return sanitized configuration (the synthesis API key is omitted)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"port":         h.config.Server.Port,
			"bind_address": h.config.Server.BindAddress,
			"read_timeout": h.config.Server.ReadTimeout,
			"idle_timeout": h.config.Server.IdleTimeout,
		},
		"audio": map[string]interface{}{
			"sample_rate":        h.config.Audio.SampleRate,
			"channels":           h.config.Audio.Channels,
			"bit_depth":          h.config.Audio.BitDepth,
			"frame_duration_ms":  h.config.Audio.FrameDurationMs,
			"lead_in_silence_ms": h.config.Audio.LeadInSilenceMs,
		},
		"batching": map[string]interface{}{
			"max_chars": h.config.Batching.MaxChars,
		},
		"synthesis": map[string]interface{}{
			"endpoint":        h.config.Synthesis.Endpoint,
			"timeout":         h.config.Synthesis.Timeout,
			"max_concurrent":  h.config.Synthesis.MaxConcurrent,
			"read_chunk_size": h.config.Synthesis.ReadChunkSize,
			"default_voice":   h.config.Synthesis.DefaultVoice,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"synthesis": h.synthStats.GetStats(),
		"delivery": map[string]interface{}{
			"frame_bytes":    h.streamer.Config().FrameBytes(),
			"frame_duration": h.streamer.Config().FrameDuration.String(),
			"batch_budget":   h.streamer.Config().BatchBudget,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "TTS Streaming Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /v1/audio/speech/stream": "Stream WAV audio at playback pace",
			"POST /api/tts/stream":         "Stream audio at maximum throughput",
			"GET /v1/audio/voices":         "List available voices",
			"GET /health":                  "Service health check",
			"GET /config":                  "Get service configuration",
			"GET /stats":                   "Get service statistics",
			"GET /metrics":                 "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
