package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/skypro1111/tts-stream-service/internal/audio"
	"github.com/skypro1111/tts-stream-service/internal/synth"
	"github.com/skypro1111/tts-stream-service/internal/text"
)

func testConfig() Config {
	return Config{
		SampleRate:    24000,
		BitsPerSample: 16,
		Channels:      1,
		FrameDuration: 50 * time.Millisecond,
		BatchBudget:   1000,
		LeadInSilence: 100 * time.Millisecond,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStreamer(t *testing.T, producer synth.Producer, cfg Config) *Streamer {
	t.Helper()

	s, err := NewStreamer(testLogger(), producer, text.NewRuleSegmenter(), nil, cfg)
	if err != nil {
		t.Fatalf("NewStreamer failed: %v", err)
	}
	return s
}

func TestConfigFrameBytes(t *testing.T) {
	cfg := testConfig()

	// 50ms of 16-bit mono 24kHz audio
	if got := cfg.FrameBytes(); got != 2400 {
		t.Errorf("Expected frame size 2400 bytes, got %d", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"bad bit depth", func(c *Config) { c.BitsPerSample = 12 }},
		{"zero channels", func(c *Config) { c.Channels = 0 }},
		{"zero frame duration", func(c *Config) { c.FrameDuration = 0 }},
		{"zero batch budget", func(c *Config) { c.BatchBudget = 0 }},
		{"negative lead-in", func(c *Config) { c.LeadInSilence = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}

	if err := testConfig().Validate(); err != nil {
		t.Errorf("Valid config rejected: %v", err)
	}
}

func TestStreamShortInput(t *testing.T) {
	const frameBytes = 2400

	// One batch worth of audio: 2.5 frames of PCM in irregular chunks.
	producer := &synth.MockProducer{
		ChunkBytes:     1000,
		ChunksPerBatch: 6,
		Fill:           0x7F,
	}

	cfg := testConfig()
	s := newTestStreamer(t, producer, cfg)

	var out bytes.Buffer
	err := s.Stream(context.Background(), &out, Request{
		Input:  "Hello world.",
		Voice:  "tara",
		Policy: PolicyUnpaced,
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if producer.Calls() != 1 {
		t.Errorf("Expected 1 producer invocation for short input, got %d", producer.Calls())
	}

	data := out.Bytes()

	if err := audio.ValidateStreamHeader(data); err != nil {
		t.Errorf("Stream does not start with a valid streaming WAV header: %v", err)
	}

	// Everything after the header must be frame-aligned: the lead-in silence
	// block plus N full frames plus one padded tail.
	body := data[audio.HeaderSize:]
	silenceBytes := 24000 * 2 / 10 // 100ms at 24kHz 16-bit mono

	pcm := body[silenceBytes:]
	if len(pcm)%frameBytes != 0 {
		t.Errorf("PCM body of %d bytes is not a multiple of frame size %d", len(pcm), frameBytes)
	}

	// 6000 producer bytes → 2 full frames + 1 padded frame.
	if len(pcm) != 3*frameBytes {
		t.Errorf("Expected 3 frames (%d bytes), got %d", 3*frameBytes, len(pcm))
	}

	// Padding is silence, audio is the fill byte.
	if pcm[0] != 0x7F {
		t.Error("Expected audio bytes at the front of the PCM body")
	}
	if pcm[len(pcm)-1] != 0 {
		t.Error("Expected zero padding at the tail of the final frame")
	}
}

func TestStreamLongInputBatchesInOrder(t *testing.T) {
	producer := &synth.MockProducer{
		ChunkBytes:     2400,
		ChunksPerBatch: 1,
	}

	s := newTestStreamer(t, producer, testConfig())

	// ~2500 chars of sentences.
	sentence := "This sentence pads the input with a reasonable number of characters."
	var sb strings.Builder
	for sb.Len() < 2500 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(sentence)
	}
	input := sb.String()

	var out bytes.Buffer
	err := s.Stream(context.Background(), &out, Request{Input: input, Voice: "tara", Policy: PolicyUnpaced})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if producer.Calls() < 3 {
		t.Errorf("Expected at least 3 producer invocations for %d chars, got %d", len(input), producer.Calls())
	}

	// Batches arrive in input order and reconstruct the sentence sequence.
	joined := strings.Join(producer.Batches(), " ")
	if joined != input {
		t.Error("Producer batches out of order or lossy")
	}

	for i, batch := range producer.Batches() {
		if len(batch) > 1000 {
			t.Errorf("Batch %d exceeds budget: %d chars", i, len(batch))
		}
	}
}

func TestStreamProducerErrorAbortsRemainingBatches(t *testing.T) {
	producer := &synth.MockProducer{
		ChunkBytes:      2400,
		ChunksPerBatch:  2,
		FailOnBatch:     2,
		FailAfterChunks: 1,
	}

	s := newTestStreamer(t, producer, testConfig())

	// Three batches of ~600 chars each.
	sentence := strings.Repeat("x", 599) + "."
	input := sentence + " " + sentence + " " + sentence

	var out bytes.Buffer
	err := s.Stream(context.Background(), &out, Request{Input: input, Voice: "tara", Policy: PolicyUnpaced})

	if err == nil {
		t.Fatal("Expected stream error from failing producer")
	}

	if !errors.Is(err, ErrProducer) {
		t.Errorf("Expected ErrProducer classification, got %v", err)
	}

	// Batch three must never be invoked.
	if producer.Calls() != 2 {
		t.Errorf("Expected exactly 2 producer invocations, got %d", producer.Calls())
	}

	// Frames from batch one (2 frames) plus the one chunk of batch two that
	// arrived before the failure; no padded flush after an error.
	data := out.Bytes()
	if err := audio.ValidateStreamHeader(data); err != nil {
		t.Errorf("Truncated stream must still be WAV-prefixed: %v", err)
	}

	silenceBytes := 24000 * 2 / 10
	pcm := data[audio.HeaderSize+silenceBytes:]
	if len(pcm) != 3*2400 {
		t.Errorf("Expected 3 frames before the failure, got %d bytes", len(pcm))
	}
}

func TestStreamPacedTiming(t *testing.T) {
	// 5 frames available instantly from the producer.
	producer := &synth.MockProducer{
		ChunkBytes:     2400,
		ChunksPerBatch: 5,
	}

	cfg := testConfig()
	s := newTestStreamer(t, producer, cfg)

	var out bytes.Buffer
	start := time.Now()
	err := s.Stream(context.Background(), &out, Request{Input: "Hi.", Voice: "tara", Policy: PolicyPaced})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	// Pacing inserts one frame duration per emitted full frame.
	if minimum := 4 * cfg.FrameDuration; elapsed < minimum {
		t.Errorf("Paced stream finished in %s, expected at least %s", elapsed, minimum)
	}

	// Paced policy has no lead-in silence: header then frames.
	pcm := out.Bytes()[audio.HeaderSize:]
	if len(pcm) != 5*2400 {
		t.Errorf("Expected 5 frames, got %d bytes", len(pcm))
	}
}

func TestStreamUnpacedFasterThanPlayback(t *testing.T) {
	producer := &synth.MockProducer{
		ChunkBytes:     2400,
		ChunksPerBatch: 10,
	}

	cfg := testConfig()
	cfg.LeadInSilence = 0
	s := newTestStreamer(t, producer, cfg)

	var out bytes.Buffer
	start := time.Now()
	err := s.Stream(context.Background(), &out, Request{Input: "Hi.", Voice: "tara", Policy: PolicyUnpaced})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	// 10 frames represent 500ms of playback; unpaced emission must not
	// throttle to playback speed.
	if elapsed > 250*time.Millisecond {
		t.Errorf("Unpaced stream took %s, expected well under playback duration", elapsed)
	}

	if len(out.Bytes()) != audio.HeaderSize+10*2400 {
		t.Errorf("Unexpected stream length %d", len(out.Bytes()))
	}
}

func TestStreamEmptyChunksIgnored(t *testing.T) {
	producer := &synth.MockProducer{
		ChunkBytes:     0, // every chunk is empty
		ChunksPerBatch: 5,
	}

	cfg := testConfig()
	cfg.LeadInSilence = 0
	s := newTestStreamer(t, producer, cfg)

	var out bytes.Buffer
	err := s.Stream(context.Background(), &out, Request{Input: "Hi.", Voice: "tara", Policy: PolicyUnpaced})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	// Only the header: no frames, no padded tail.
	if len(out.Bytes()) != audio.HeaderSize {
		t.Errorf("Expected header only for empty producer output, got %d bytes", len(out.Bytes()))
	}
}

// failingWriter fails every write after the first n.
type failingWriter struct {
	writes int
	failAt int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	if f.writes > f.failAt {
		return 0, fmt.Errorf("connection reset")
	}
	return len(p), nil
}

func TestStreamTransportErrorCancelsProducer(t *testing.T) {
	producer := &synth.MockProducer{
		ChunkBytes:     2400,
		ChunksPerBatch: 100,
		ChunkDelay:     time.Millisecond,
	}

	cfg := testConfig()
	cfg.LeadInSilence = 0
	s := newTestStreamer(t, producer, cfg)

	// Header write succeeds, first frame write fails.
	w := &failingWriter{failAt: 1}

	err := s.Stream(context.Background(), w, Request{Input: "Hi.", Voice: "tara", Policy: PolicyUnpaced})

	if err == nil {
		t.Fatal("Expected transport error")
	}

	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport classification, got %v", err)
	}
}

func TestSessionThroughput(t *testing.T) {
	sess := newSession(120, "tara")
	sess.recordBytes(44)
	sess.recordFrame(2400)
	sess.recordFrame(2400)
	sess.finish()

	if sess.FramesEmitted != 2 {
		t.Errorf("Expected 2 frames, got %d", sess.FramesEmitted)
	}

	if sess.BytesEmitted != 44+4800 {
		t.Errorf("Expected %d bytes, got %d", 44+4800, sess.BytesEmitted)
	}

	if _, ok := sess.TimeToFirstFrame(); !ok {
		t.Error("Expected first-frame latency to be recorded")
	}

	chars, frames, kb := sess.Throughput()
	if chars <= 0 || frames <= 0 || kb <= 0 {
		t.Errorf("Expected positive throughput, got %f chars/s %f frames/s %f KB/s", chars, frames, kb)
	}
}
