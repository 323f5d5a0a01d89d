// Package infer provides the HTTP client for the remote sign recognition
// service.
package infer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTransport indicates a network or HTTP-level failure.
var ErrTransport = errors.New("inference transport error")

// ErrInvalidResponse indicates the service answered but the body could
// not be parsed into a prediction.
var ErrInvalidResponse = errors.New("invalid inference response")

// Alternate is a lower-ranked candidate label.
type Alternate struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// RawPrediction is one completed inference result. LatencyMs is the
// measured round-trip time, not the latency the service reports about
// itself, because displayed responsiveness must include the network.
type RawPrediction struct {
	Label      string
	Confidence float64
	Alternates []Alternate
	LatencyMs  int64
}

// Payload is one submission to the service: a single feature vector in
// static mode or an ordered frame sequence in sequence mode, plus source
// metadata.
type Payload struct {
	Frames [][]float64
	Mode   string
	Width  int
	Height int
}

// Predictor is the inference boundary the pipeline depends on.
type Predictor interface {
	Predict(ctx context.Context, p Payload) (*RawPrediction, error)
}

// Client is a stateless request/response wrapper around the remote
// service. Single-flight discipline is the pipeline's job, not the
// client's.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Landmarks [][]float64 `json:"landmarks"`
	Mode      string      `json:"mode,omitempty"`
	Width     int         `json:"width,omitempty"`
	Height    int         `json:"height,omitempty"`
}

type predictResponse struct {
	Text           string      `json:"text"`
	Confidence     float64     `json:"confidence"`
	Alternates     []Alternate `json:"alternates,omitempty"`
	ModelLatencyMs float64     `json:"model_latency_ms,omitempty"`
}

// Predict submits the payload to the service's /predict endpoint and
// returns the parsed prediction with measured round-trip latency.
func (c *Client) Predict(ctx context.Context, p Payload) (*RawPrediction, error) {
	body, err := json.Marshal(predictRequest{
		Landmarks: p.Frames,
		Mode:      p.Mode,
		Width:     p.Width,
		Height:    p.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if pr.Text == "" {
		return nil, fmt.Errorf("%w: empty label", ErrInvalidResponse)
	}
	if pr.Confidence < 0 || pr.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %f out of range", ErrInvalidResponse, pr.Confidence)
	}

	return &RawPrediction{
		Label:      pr.Text,
		Confidence: pr.Confidence,
		Alternates: pr.Alternates,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Health probes the service's /health endpoint. Used at startup to log
// whether the remote model is reachable; a failure is not fatal.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}
	return nil
}
