package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
)

// HeaderSize is the length in bytes of the streaming WAV header.
const HeaderSize = 44

// streamingSizeSentinel marks the RIFF and data chunk sizes as unknown.
// Tolerant decoders treat the all-ones value as an unbounded data chunk,
// which is what a live stream needs; the header is never patched afterwards.
const streamingSizeSentinel = 0xFFFFFFFF

// WAVHeader represents the header structure of a streaming WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes, or sentinel when streaming
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of data bytes, or sentinel when streaming
}

// headerKey identifies one output format in the header cache.
type headerKey struct {
	sampleRate    int
	bitsPerSample int
	channels      int
}

// Streaming headers are immutable once built, so a single process-wide cache
// serves every request. The key space is tiny (one entry per supported output
// format) and entries are never evicted.
var (
	headerCacheMu sync.RWMutex
	headerCache   = make(map[headerKey][]byte)
)

// StreamHeader returns the 44-byte WAV header for an unbounded PCM stream
// with the given format. Repeated calls with identical parameters return the
// identical cached slice, so callers must not modify the result.
func StreamHeader(sampleRate, bitsPerSample, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if bitsPerSample <= 0 || bitsPerSample%8 != 0 {
		return nil, fmt.Errorf("bits per sample must be a positive multiple of 8, got %d", bitsPerSample)
	}

	if channels <= 0 {
		return nil, fmt.Errorf("channels must be positive, got %d", channels)
	}

	key := headerKey{sampleRate: sampleRate, bitsPerSample: bitsPerSample, channels: channels}

	headerCacheMu.RLock()
	cached, ok := headerCache[key]
	headerCacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	built, err := buildStreamHeader(sampleRate, bitsPerSample, channels)
	if err != nil {
		return nil, err
	}

	headerCacheMu.Lock()
	defer headerCacheMu.Unlock()

	// A concurrent request may have raced us to the insert; keep the first
	// entry so every caller sees the same slice.
	if existing, ok := headerCache[key]; ok {
		return existing, nil
	}
	headerCache[key] = built

	return built, nil
}

// buildStreamHeader packs a streaming WAV header for the given format.
func buildStreamHeader(sampleRate, bitsPerSample, channels int) ([]byte, error) {
	blockAlign := uint16(channels) * uint16(bitsPerSample) / 8
	byteRate := uint32(sampleRate) * uint32(blockAlign)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     streamingSizeSentinel,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      byteRate,
		BlockAlign:    blockAlign,
		BitsPerSample: uint16(bitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: streamingSizeSentinel,
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	return buf.Bytes(), nil
}

// ValidateStreamHeader validates the fixed layout of a streaming WAV header.
func ValidateStreamHeader(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("WAV header too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV header: missing RIFF tag")
	}

	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV header: missing WAVE format")
	}

	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV header: missing fmt chunk")
	}

	if string(data[36:40]) != "data" {
		return fmt.Errorf("invalid WAV header: missing data chunk")
	}

	if binary.LittleEndian.Uint32(data[4:8]) != streamingSizeSentinel {
		return fmt.Errorf("invalid streaming WAV header: file size is not the streaming sentinel")
	}

	if binary.LittleEndian.Uint32(data[40:44]) != streamingSizeSentinel {
		return fmt.Errorf("invalid streaming WAV header: data size is not the streaming sentinel")
	}

	return nil
}
