// Package synth defines the producer contract for the speech synthesis
// backend and provides its HTTP client implementation. The backend is an
// opaque collaborator: given a text batch and a voice, it yields a finite
// lazy sequence of raw PCM chunks (int16 little-endian, mono) at a pace set
// by model throughput.
package synth
