package audio

import (
	"fmt"
)

// FrameBuffer accumulates variable-sized PCM byte chunks and re-slices them
// into fixed-size playback frames in arrival order. A FrameBuffer is owned
// exclusively by one streaming request and is not safe for concurrent use.
//
// Internally the buffer keeps a read cursor instead of shifting remaining
// bytes to the front on every drain, so draining a frame is O(frameBytes)
// regardless of how much audio is still buffered. Storage grows by at least
// doubling and never shrinks for the lifetime of the buffer.
type FrameBuffer struct {
	frameBytes int

	data  []byte
	read  int // start of unconsumed bytes
	write int // end of unconsumed bytes

	flushed bool
}

// NewFrameBuffer creates a frame buffer emitting frames of exactly frameBytes.
func NewFrameBuffer(frameBytes int) (*FrameBuffer, error) {
	if frameBytes <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameBytes)
	}

	return &FrameBuffer{
		frameBytes: frameBytes,
		// Room for a few frames up front; producer chunks are usually
		// smaller than one frame.
		data: make([]byte, 4*frameBytes),
	}, nil
}

// FrameBytes returns the fixed frame size in bytes.
func (fb *FrameBuffer) FrameBytes() int {
	return fb.frameBytes
}

// Buffered returns the number of unconsumed bytes currently held.
func (fb *FrameBuffer) Buffered() int {
	return fb.write - fb.read
}

// Append adds raw PCM bytes to the buffer tail. Zero-length chunks are
// ignored. Amortized O(1) per byte.
func (fb *FrameBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	if fb.write+len(chunk) > len(fb.data) {
		fb.makeRoom(len(chunk))
	}

	copy(fb.data[fb.write:], chunk)
	fb.write += len(chunk)
}

// makeRoom guarantees space for n more bytes at the write position, first by
// compacting already-consumed bytes away, then by growing storage with at
// least doubling.
func (fb *FrameBuffer) makeRoom(n int) {
	buffered := fb.write - fb.read

	// Compact: consumed bytes in [0, read) are dead space.
	if fb.read > 0 {
		copy(fb.data, fb.data[fb.read:fb.write])
		fb.read = 0
		fb.write = buffered
	}

	if fb.write+n <= len(fb.data) {
		return
	}

	newCap := len(fb.data) * 2
	for newCap < fb.write+n {
		newCap *= 2
	}

	grown := make([]byte, newCap)
	copy(grown, fb.data[:fb.write])
	fb.data = grown
}

// DrainFrame removes and returns the next full frame in FIFO order. The
// returned slice is a fresh copy of exactly FrameBytes bytes. ok is false
// when fewer than FrameBytes bytes are buffered.
func (fb *FrameBuffer) DrainFrame() (frame []byte, ok bool) {
	if fb.write-fb.read < fb.frameBytes {
		return nil, false
	}

	frame = make([]byte, fb.frameBytes)
	copy(frame, fb.data[fb.read:fb.read+fb.frameBytes])
	fb.read += fb.frameBytes

	return frame, true
}

// FlushPadded returns the final partial frame zero-padded to exactly
// FrameBytes, or nil if no bytes remain. Padding with silence rather than
// truncating keeps every emitted frame frame-aligned, including the last.
// It must be called at most once, after all producer output for the request
// has been appended and drained.
func (fb *FrameBuffer) FlushPadded() ([]byte, error) {
	if fb.flushed {
		return nil, fmt.Errorf("frame buffer already flushed")
	}
	fb.flushed = true

	remaining := fb.write - fb.read
	if remaining == 0 {
		return nil, nil
	}

	if remaining >= fb.frameBytes {
		return nil, fmt.Errorf("flush called with %d bytes buffered, full frames must be drained first", remaining)
	}

	frame := make([]byte, fb.frameBytes)
	copy(frame, fb.data[fb.read:fb.write])
	fb.read = fb.write

	return frame, nil
}
