package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Client streams PCM audio from the inference backend over HTTP. The backend
// accepts a JSON request and answers with a chunked body of raw int16 PCM;
// chunk boundaries follow model generation and carry no framing of their own.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Limits in-flight synthesis requests

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalBytes      uint64

	mu sync.RWMutex
}

// Config contains synthesis client configuration
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxConcurrent int
	ReadChunkSize int
}

// synthesisRequest is the JSON body sent to the inference backend.
type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	SuccessRate     float64 `json:"success_rate"`
	TotalBytes      uint64  `json:"total_bytes"`
	ActiveRequests  int     `json:"active_requests"`
}

// NewClient creates a new synthesis HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	if config.ReadChunkSize <= 0 {
		config.ReadChunkSize = 4096
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Synthesize sends one text batch to the backend and streams the PCM
// response. The returned channels are closed when the batch completes; a
// failure at any point is delivered on the error channel and terminates the
// chunk sequence.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (<-chan []byte, <-chan error) {
	chunks := make(chan []byte, 4)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		// Acquire semaphore to bound in-flight requests
		select {
		case c.semaphore <- struct{}{}:
			defer func() { <-c.semaphore }()
		case <-ctx.Done():
			errs <- ctx.Err()
			return
		}

		c.incrementTotalRequests()

		if err := c.streamRequest(ctx, text, voice, chunks); err != nil {
			c.incrementFailedRequests()
			errs <- err
			return
		}

		c.incrementSuccessRequests()
	}()

	return chunks, errs
}

// streamRequest performs the HTTP request and forwards PCM chunks from the
// response body until EOF.
func (c *Client) streamRequest(ctx context.Context, text, voice string, chunks chan<- []byte) error {
	body, err := json.Marshal(synthesisRequest{Text: text, Voice: voice})
	if err != nil {
		return fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/octet-stream")
	httpReq.Header.Set("User-Agent", "TTS-Stream-Service/1.0")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies are short JSON payloads; cap the read defensively.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("synthesis backend HTTP error %d: %s", resp.StatusCode, string(msg))
	}

	buf := make([]byte, c.config.ReadChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.addBytes(uint64(n))

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read synthesis stream: %w", readErr)
		}
	}
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) addBytes(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalBytes += n
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalBytes:      c.totalBytes,
		ActiveRequests:  len(c.semaphore),
	}
}
