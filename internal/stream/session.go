package stream

import (
	"time"

	"github.com/google/uuid"
)

// Session is the per-request delivery state. It is owned exclusively by the
// request's streaming goroutine; no cross-request sharing.
type Session struct {
	ID         string
	Voice      string
	InputChars int
	StartTime  time.Time

	BytesEmitted  uint64
	FramesEmitted uint64
	Batches       int

	firstFrameAt time.Time
	endTime      time.Time
}

// newSession creates the delivery state for one streaming request.
func newSession(inputChars int, voice string) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Voice:      voice,
		InputChars: inputChars,
		StartTime:  time.Now(),
	}
}

// recordBytes accounts for non-frame bytes (header, lead-in silence).
func (s *Session) recordBytes(n int) {
	s.BytesEmitted += uint64(n)
}

// recordFrame accounts for one emitted audio frame.
func (s *Session) recordFrame(n int) {
	if s.FramesEmitted == 0 {
		s.firstFrameAt = time.Now()
	}
	s.FramesEmitted++
	s.BytesEmitted += uint64(n)
}

// finish stamps the session end time.
func (s *Session) finish() {
	s.endTime = time.Now()
}

// Elapsed returns the session's wall-clock duration so far, or its final
// duration once finished.
func (s *Session) Elapsed() time.Duration {
	if !s.endTime.IsZero() {
		return s.endTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// TimeToFirstFrame returns the latency to the first emitted frame, and
// whether a frame was emitted at all.
func (s *Session) TimeToFirstFrame() (time.Duration, bool) {
	if s.firstFrameAt.IsZero() {
		return 0, false
	}
	return s.firstFrameAt.Sub(s.StartTime), true
}

// Throughput computes the session's delivery rates. Rates are zero for a
// zero-length session.
func (s *Session) Throughput() (charsPerSec, framesPerSec, kbPerSec float64) {
	elapsed := s.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0, 0, 0
	}

	charsPerSec = float64(s.InputChars) / elapsed
	framesPerSec = float64(s.FramesEmitted) / elapsed
	kbPerSec = float64(s.BytesEmitted) / elapsed / 1024

	return charsPerSec, framesPerSec, kbPerSec
}
