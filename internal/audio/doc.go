// Package audio handles PCM re-buffering and WAV framing for streamed speech.
// It implements the fixed-size frame re-chunker that turns irregular producer
// output into playback-aligned frames, and the cached streaming WAV header
// builder that prefixes every audio response.
package audio
