package main

import (
	"encoding/binary"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"time"
)

// Standalone fake inference backend for local development. It accepts the
// same JSON request the service sends and streams a sine tone as raw int16
// PCM, chunked to mimic incremental model output.

type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

const (
	sampleRate     = 24000
	toneFrequency  = 440.0
	chunkSamples   = 1200 // 50ms of audio per chunk
	secondsPerChar = 0.06 // rough speech rate to size the output
)

func synthesizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req synthesisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.Text == "" {
		http.Error(w, "Missing text", http.StatusBadRequest)
		return
	}

	totalSamples := int(float64(len(req.Text)) * secondsPerChar * sampleRate)
	if totalSamples < chunkSamples {
		totalSamples = chunkSamples
	}

	log.Printf("🎤 SYNTHESIS REQUEST: voice=%s chars=%d samples=%d", req.Voice, len(req.Text), totalSamples)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)

	chunk := make([]byte, chunkSamples*2)
	sent := 0
	for sent < totalSamples {
		n := chunkSamples
		if totalSamples-sent < n {
			n = totalSamples - sent
		}

		for i := 0; i < n; i++ {
			sample := int16(8000 * math.Sin(2*math.Pi*toneFrequency*float64(sent+i)/sampleRate))
			binary.LittleEndian.PutUint16(chunk[i*2:], uint16(sample))
		}

		if _, err := w.Write(chunk[:n*2]); err != nil {
			log.Printf("❌ Client disconnected after %d samples", sent)
			return
		}
		flusher.Flush()
		sent += n

		// Simulate incremental model generation
		time.Sleep(10 * time.Millisecond)
	}

	log.Printf("✅ SYNTHESIS COMPLETE: %d samples (%d bytes)", sent, sent*2)
}

func main() {
	http.HandleFunc("/v1/synthesize", synthesizeHandler)

	port := ":5006"
	log.Printf("🚀 Test Synthesis Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s/v1/synthesize", port)
	log.Println("💡 Update your config to use: http://localhost:5006/v1/synthesize")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
