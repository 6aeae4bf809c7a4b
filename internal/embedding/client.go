// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

// Package embedding provides implementations of the text-encoding
// collaborator consumed by the recommendation pipeline.
package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/blockfeed/internal/metrics"
)

// ClientConfig configures the remote embedding API client.
type ClientConfig struct {
	// URL is the embeddings endpoint.
	URL string `koanf:"url"`

	// APIKey is sent as a bearer token.
	APIKey string `koanf:"api_key"`

	// Model is the embedding model identifier.
	Model string `koanf:"model"`

	// Timeout bounds a single API call.
	Timeout time.Duration `koanf:"timeout"`

	// BatchSize caps texts per API call; larger inputs are chunked.
	BatchSize int `koanf:"batch_size"`
}

// Client calls a hosted embedding API (Voyage-style JSON protocol) behind a
// circuit breaker, so a degraded provider trips fast instead of stalling
// every model rebuild and content query.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[][]float32]
	logger  zerolog.Logger
}

// NewClient creates an embedding API client.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("embedding url is required")
	}
	if cfg.Model == "" {
		cfg.Model = "voyage-3-lite"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}

	logger = logger.With().Str("component", "embedding").Logger()

	breaker := gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:        "embedding-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
	}, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Encode returns one vector per input text, preserving order. Large inputs
// are chunked by the configured batch size.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.encodeBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (c *Client) encodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()

	vectors, err := c.breaker.Execute(func() ([][]float32, error) {
		return c.callAPI(ctx, texts)
	})

	metrics.EncoderDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.EncoderRequests.WithLabelValues("success").Inc()
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		metrics.EncoderRequests.WithLabelValues("open").Inc()
	default:
		metrics.EncoderRequests.WithLabelValues("error").Inc()
	}
	if err != nil {
		return nil, fmt.Errorf("embedding api: %w", err)
	}
	return vectors, nil
}

func (c *Client) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: c.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp embeddingResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("api returned %d embeddings for %d texts", len(apiResp.Data), len(texts))
	}

	vectors := make([][]float32, len(apiResp.Data))
	for i, d := range apiResp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
