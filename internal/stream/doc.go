// Package stream implements the real-time audio streaming orchestrator. It
// drives text batches sequentially through the synthesis producer, re-chunks
// the producer's irregular PCM output into fixed playback frames, prefixes
// the stream with a cached WAV header, and emits frames under a paced or
// unpaced delivery policy while tracking per-request delivery metrics.
package stream
