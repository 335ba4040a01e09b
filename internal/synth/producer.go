package synth

import (
	"context"
)

// Producer synthesizes speech for one text batch. The chunk channel carries
// raw PCM bytes (int16 little-endian, mono, fixed sample rate) and is closed
// when the batch is complete. The error channel delivers at most one error;
// a synthesis failure terminates the chunk sequence. The sequence is finite
// and not restartable.
type Producer interface {
	Synthesize(ctx context.Context, text, voice string) (<-chan []byte, <-chan error)
}
