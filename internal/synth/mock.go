package synth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMockSynthesis is the error injected by a MockProducer configured to fail.
var ErrMockSynthesis = errors.New("mock synthesis failure")

// MockProducer is a scripted Producer for tests. Each Synthesize call yields
// ChunksPerBatch chunks of ChunkBytes bytes filled with Fill, optionally
// pausing ChunkDelay between chunks. FailOnBatch (1-based) makes that batch
// emit FailAfterChunks chunks and then an error.
type MockProducer struct {
	ChunkBytes     int
	ChunksPerBatch int
	Fill           byte
	ChunkDelay     time.Duration
	FailOnBatch    int
	FailAfterChunks int

	mu      sync.Mutex
	calls   int
	batches []string
	voices  []string
}

// Synthesize yields the scripted chunk sequence for one batch.
func (m *MockProducer) Synthesize(ctx context.Context, text, voice string) (<-chan []byte, <-chan error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.batches = append(m.batches, text)
	m.voices = append(m.voices, voice)
	m.mu.Unlock()

	chunks := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		for i := 0; i < m.ChunksPerBatch; i++ {
			if m.FailOnBatch == call && i >= m.FailAfterChunks {
				errs <- ErrMockSynthesis
				return
			}

			if m.ChunkDelay > 0 {
				select {
				case <-time.After(m.ChunkDelay):
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}

			chunk := make([]byte, m.ChunkBytes)
			for j := range chunk {
				chunk[j] = m.Fill
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return chunks, errs
}

// Calls returns how many batches have been synthesized.
func (m *MockProducer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Batches returns the batch texts received, in invocation order.
func (m *MockProducer) Batches() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.batches))
	copy(out, m.batches)
	return out
}

// Voices returns the voice names received, in invocation order.
func (m *MockProducer) Voices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.voices))
	copy(out, m.voices)
	return out
}
