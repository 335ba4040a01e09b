package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skypro1111/tts-stream-service/internal/config"
	"github.com/skypro1111/tts-stream-service/internal/metrics"
	"github.com/skypro1111/tts-stream-service/internal/server"
	"github.com/skypro1111/tts-stream-service/internal/stream"
	"github.com/skypro1111/tts-stream-service/internal/synth"
	"github.com/skypro1111/tts-stream-service/internal/text"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "tts-stream-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.Server.Port),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("frame_duration_ms", cfg.Audio.FrameDurationMs),
		slog.Int("batch_max_chars", cfg.Batching.MaxChars),
		slog.String("synthesis_endpoint", cfg.Synthesis.Endpoint),
		slog.String("default_voice", cfg.Synthesis.DefaultVoice),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize the synthesis backend client
	synthClient, err := synth.NewClient(synth.Config{
		Endpoint:      cfg.Synthesis.Endpoint,
		APIKey:        cfg.Synthesis.APIKey,
		Timeout:       cfg.Synthesis.GetTimeoutDuration(),
		MaxConcurrent: cfg.Synthesis.MaxConcurrent,
		ReadChunkSize: cfg.Synthesis.ReadChunkSize,
	})
	if err != nil {
		logger.Error("Failed to create synthesis client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Synthesis client initialized",
		slog.String("endpoint", cfg.Synthesis.Endpoint),
		slog.Int("max_concurrent", cfg.Synthesis.MaxConcurrent),
	)

	// Initialize the streaming orchestrator
	streamer, err := stream.NewStreamer(logger, synthClient, text.NewRuleSegmenter(), appMetrics, stream.Config{
		SampleRate:    cfg.Audio.SampleRate,
		BitsPerSample: cfg.Audio.BitDepth,
		Channels:      cfg.Audio.Channels,
		FrameDuration: cfg.Audio.GetFrameDuration(),
		BatchBudget:   cfg.Batching.MaxChars,
		LeadInSilence: cfg.Audio.GetLeadInSilence(),
	})
	if err != nil {
		logger.Error("Failed to create streamer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Streamer initialized",
		slog.Int("frame_bytes", streamer.Config().FrameBytes()),
		slog.Duration("frame_duration", cfg.Audio.GetFrameDuration()),
	)

	// Initialize and start the HTTP API server
	httpServer := server.NewHTTPServer(cfg.Server, logger, cfg, streamer, synthClient, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop the HTTP server; in-flight streams finish or are cut off at the
	// shutdown deadline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Get final statistics
	stats := synthClient.GetStats()
	logger.Info("Final synthesis statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Uint64("total_bytes", stats.TotalBytes),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
