package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/skypro1111/tts-stream-service/internal/audio"
	"github.com/skypro1111/tts-stream-service/internal/metrics"
	"github.com/skypro1111/tts-stream-service/internal/synth"
	"github.com/skypro1111/tts-stream-service/internal/text"
)

// DeliveryPolicy controls the pacing of frame emission.
type DeliveryPolicy int

const (
	// PolicyPaced inserts an inter-frame delay equal to the frame's playback
	// duration, throttling delivery to approximate real-time playback speed.
	PolicyPaced DeliveryPolicy = iota

	// PolicyUnpaced emits frames as fast as the producer supplies data and
	// the transport accepts them. A fixed block of silence is prepended after
	// the header to give the client a playback head-start buffer.
	PolicyUnpaced
)

// String returns the policy name for logging.
func (p DeliveryPolicy) String() string {
	switch p {
	case PolicyPaced:
		return "paced"
	case PolicyUnpaced:
		return "unpaced"
	default:
		return "unknown"
	}
}

// Sentinel errors classifying stream failures. Producer errors terminate the
// stream early; transport errors additionally cancel any in-flight synthesis
// since the client is gone.
var (
	ErrProducer  = errors.New("synthesis producer failure")
	ErrTransport = errors.New("transport failure")
)

// Config contains the fixed output format and delivery parameters.
type Config struct {
	SampleRate    int           // output sample rate in Hz
	BitsPerSample int           // output bit depth
	Channels      int           // output channel count
	FrameDuration time.Duration // playback duration of one frame
	BatchBudget   int           // character budget per synthesis batch
	LeadInSilence time.Duration // silence prepended under the unpaced policy
}

// FrameBytes returns the size in bytes of one playback frame.
func (c Config) FrameBytes() int {
	samples := int(int64(c.SampleRate) * int64(c.FrameDuration) / int64(time.Second))
	return samples * (c.BitsPerSample / 8) * c.Channels
}

// silenceBytes returns the byte length of the unpaced lead-in silence block.
func (c Config) silenceBytes() int {
	samples := int(int64(c.SampleRate) * int64(c.LeadInSilence) / int64(time.Second))
	return samples * (c.BitsPerSample / 8) * c.Channels
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}

	if c.BitsPerSample <= 0 || c.BitsPerSample%8 != 0 {
		return fmt.Errorf("bits per sample must be a positive multiple of 8, got %d", c.BitsPerSample)
	}

	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}

	if c.FrameDuration <= 0 {
		return fmt.Errorf("frame duration must be positive, got %s", c.FrameDuration)
	}

	if c.BatchBudget <= 0 {
		return fmt.Errorf("batch budget must be positive, got %d", c.BatchBudget)
	}

	if c.LeadInSilence < 0 {
		return fmt.Errorf("lead-in silence cannot be negative, got %s", c.LeadInSilence)
	}

	if c.FrameBytes() == 0 {
		return fmt.Errorf("frame duration %s too short for one sample at %d Hz", c.FrameDuration, c.SampleRate)
	}

	return nil
}

// Request describes one streaming synthesis request.
type Request struct {
	Input  string
	Voice  string
	Policy DeliveryPolicy
}

// Streamer drives streaming synthesis requests. One Streamer serves all
// requests; per-request state lives in a Session owned by the handling
// goroutine, so Stream is safe for concurrent use.
type Streamer struct {
	logger    *slog.Logger
	producer  synth.Producer
	segmenter text.Segmenter
	metrics   *metrics.Metrics
	config    Config
}

// NewStreamer creates a streaming orchestrator.
func NewStreamer(logger *slog.Logger, producer synth.Producer, segmenter text.Segmenter,
	m *metrics.Metrics, config Config) (*Streamer, error) {

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stream config: %w", err)
	}

	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}

	if segmenter == nil {
		return nil, fmt.Errorf("segmenter cannot be nil")
	}

	return &Streamer{
		logger:    logger,
		producer:  producer,
		segmenter: segmenter,
		metrics:   m,
		config:    config,
	}, nil
}

// Config returns the streamer's delivery configuration.
func (s *Streamer) Config() Config {
	return s.config
}

// Stream runs one synthesis request to completion, writing the WAV header
// and frame-aligned PCM to w. It returns nil on success, an ErrProducer
// wrapped error when synthesis fails mid-stream, or an ErrTransport wrapped
// error when the client write fails or the context is cancelled. In every
// case the bytes already written form a well-formed WAV-prefixed stream; the
// client must treat early termination as failure.
func (s *Streamer) Stream(ctx context.Context, w io.Writer, req Request) error {
	// Cancelling stops in-flight synthesis as soon as the client is gone
	// rather than generating audio nobody will hear.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := newSession(len(req.Input), req.Voice)

	if s.metrics != nil {
		s.metrics.RecordStreamStarted(sess.InputChars)
	}

	s.logger.Info("Stream started",
		slog.String("session_id", sess.ID),
		slog.String("policy", req.Policy.String()),
		slog.String("voice", req.Voice),
		slog.Int("input_chars", sess.InputChars),
	)

	err := s.run(ctx, cancel, w, req, sess)

	sess.finish()
	s.report(sess, req, err)

	return err
}

// run walks the stream through header emission, batch synthesis, frame
// draining, and the padded flush.
func (s *Streamer) run(ctx context.Context, cancel context.CancelFunc, w io.Writer, req Request, sess *Session) error {
	header, err := audio.StreamHeader(s.config.SampleRate, s.config.BitsPerSample, s.config.Channels)
	if err != nil {
		return fmt.Errorf("failed to build stream header: %w", err)
	}

	if err := s.writeRaw(w, header, sess); err != nil {
		cancel()
		return err
	}

	// Head-start buffer for the client before real audio arrives.
	if req.Policy == PolicyUnpaced && s.config.LeadInSilence > 0 {
		silence := make([]byte, s.config.silenceBytes())
		if err := s.writeRaw(w, silence, sess); err != nil {
			cancel()
			return err
		}
	}

	fb, err := audio.NewFrameBuffer(s.config.FrameBytes())
	if err != nil {
		return fmt.Errorf("failed to create frame buffer: %w", err)
	}

	batches := text.BatchText(req.Input, s.config.BatchBudget, s.segmenter)
	sess.Batches = len(batches)

	for i, batch := range batches {
		if err := s.streamBatch(ctx, cancel, w, req, sess, fb, batch, i+1, len(batches)); err != nil {
			return err
		}
	}

	tail, err := fb.FlushPadded()
	if err != nil {
		return fmt.Errorf("failed to flush frame buffer: %w", err)
	}

	if tail != nil {
		// The final padded frame is never followed by a pacing delay.
		if err := s.emitFrame(ctx, w, tail, sess, PolicyUnpaced); err != nil {
			cancel()
			return err
		}
	}

	return nil
}

// streamBatch synthesizes one batch and emits every full frame its output
// completes. Batches run strictly sequentially; batch N+1 is not invoked
// until batch N has fully streamed.
func (s *Streamer) streamBatch(ctx context.Context, cancel context.CancelFunc, w io.Writer, req Request,
	sess *Session, fb *audio.FrameBuffer, batch string, index, total int) error {

	batchStart := time.Now()
	chunks, errs := s.producer.Synthesize(ctx, batch, req.Voice)

	for chunk := range chunks {
		// Zero-length producer chunks carry no audio and must not reset
		// pacing or counters.
		if len(chunk) == 0 {
			continue
		}

		fb.Append(chunk)

		for {
			frame, ok := fb.DrainFrame()
			if !ok {
				break
			}

			if err := s.emitFrame(ctx, w, frame, sess, req.Policy); err != nil {
				cancel()
				// Unblock the producer goroutine before returning.
				for range chunks {
				}
				<-errs
				return err
			}
		}
	}

	if err := <-errs; err != nil {
		if s.metrics != nil {
			s.metrics.RecordSynthesisFailure()
		}
		return fmt.Errorf("%w: batch %d/%d: %v", ErrProducer, index, total, err)
	}

	if s.metrics != nil {
		s.metrics.RecordBatchSynthesized(time.Since(batchStart).Seconds())
	}

	return nil
}

// emitFrame writes one frame and, under the paced policy, suspends for the
// frame's playback duration. The suspension is per-request; concurrent
// streams are unaffected.
func (s *Streamer) emitFrame(ctx context.Context, w io.Writer, frame []byte, sess *Session, policy DeliveryPolicy) error {
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	sess.recordFrame(len(frame))

	if s.metrics != nil {
		s.metrics.RecordFrameEmitted(len(frame))
		if sess.FramesEmitted == 1 {
			if ttff, ok := sess.TimeToFirstFrame(); ok {
				s.metrics.RecordFirstFrame(ttff.Seconds())
			}
		}
	}

	if policy == PolicyPaced {
		select {
		case <-time.After(s.config.FrameDuration):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		}
	}

	return nil
}

// writeRaw writes non-frame bytes (header, lead-in silence) to the client.
func (s *Streamer) writeRaw(w io.Writer, data []byte, sess *Session) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	sess.recordBytes(len(data))

	if s.metrics != nil {
		s.metrics.RecordHeaderEmitted(len(data))
	}

	return nil
}

// report logs delivery metrics at stream end. Reporting is a side effect
// only and never affects the response.
func (s *Streamer) report(sess *Session, req Request, streamErr error) {
	charsPerSec, framesPerSec, kbPerSec := sess.Throughput()

	attrs := []any{
		slog.String("session_id", sess.ID),
		slog.String("policy", req.Policy.String()),
		slog.Int("input_chars", sess.InputChars),
		slog.Int("batches", sess.Batches),
		slog.Uint64("frames_emitted", sess.FramesEmitted),
		slog.Uint64("bytes_emitted", sess.BytesEmitted),
		slog.Duration("elapsed", sess.Elapsed()),
		slog.Float64("chars_per_sec", charsPerSec),
		slog.Float64("frames_per_sec", framesPerSec),
		slog.Float64("kb_per_sec", kbPerSec),
	}

	if streamErr != nil {
		attrs = append(attrs, slog.String("error", streamErr.Error()))
		s.logger.Error("Stream terminated", attrs...)

		if s.metrics != nil {
			s.metrics.RecordStreamFailed(sess.Elapsed().Seconds())
		}
		return
	}

	s.logger.Info("Stream completed", attrs...)

	if s.metrics != nil {
		s.metrics.RecordStreamCompleted(sess.Elapsed().Seconds())
	}
}
