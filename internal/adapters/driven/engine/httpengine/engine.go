// Package httpengine provides an answer-engine adapter that speaks to a
// remote retrieval-and-answer service over HTTP.
package httpengine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.AnswerEngine = (*Engine)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8731"
	DefaultTimeout = 10 * time.Minute
)

// Config holds configuration for the HTTP engine adapter.
type Config struct {
	// BaseURL is the engine API base URL (default: http://localhost:8731).
	BaseURL string

	// Timeout is the request timeout (default: 10m). Runs can be long;
	// cancellation normally arrives through the context, not the timeout.
	Timeout time.Duration
}

// Engine drives a remote retrieval-and-answer engine. The engine is a
// black box: one POST carries the question and tuning settings, the
// response carries the answer and ranked evidence. When streaming, the
// engine sends NDJSON lines with incremental chunks before the final
// result line.
type Engine struct {
	client  *http.Client
	baseURL string
}

// runRequest is the engine /v1/run request format.
type runRequest struct {
	Question string  `json:"question"`
	Cutoff   float64 `json:"relevance_cutoff"`
	MaxSrc   int     `json:"max_sources,omitempty"`
	TopK     int     `json:"evidence_k,omitempty"`
	Corpus   any     `json:"corpus,omitempty"`
	Stream   bool    `json:"stream,omitempty"`
}

// runLine is one NDJSON line of a streaming run response. Exactly one of
// Chunk or the final answer fields is populated per line.
type runLine struct {
	Chunk    string           `json:"chunk,omitempty"`
	Answer   string           `json:"answer,omitempty"`
	Contexts []domain.Context `json:"contexts,omitempty"`
	Done     bool             `json:"done,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// NewEngine creates a new HTTP engine adapter.
func NewEngine(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Engine{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// Run executes one retrieval-and-answer pass. With onChunk set the
// request asks for a streaming response and relays each chunk line as it
// arrives; otherwise the response is a single JSON body.
func (e *Engine) Run(ctx context.Context, question string, settings domain.EngineSettings, corpus driven.Corpus, onChunk driven.ChunkFunc) (*domain.Session, error) {
	reqBody := runRequest{
		Question: question,
		Cutoff:   settings.RelevanceCutoff,
		MaxSrc:   settings.MaxSources,
		TopK:     settings.EvidenceK,
		Corpus:   corpus,
		Stream:   onChunk != nil,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/v1/run",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("engine error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("engine error (status %d): %s", resp.StatusCode, string(body))
	}

	if onChunk != nil {
		return e.readStream(resp.Body, onChunk)
	}
	return e.readSingle(resp.Body)
}

// readSingle decodes a non-streaming run response.
func (e *Engine) readSingle(body io.Reader) (*domain.Session, error) {
	var line runLine
	if err := json.NewDecoder(body).Decode(&line); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if line.Error != "" {
		return nil, fmt.Errorf("engine: %s", line.Error)
	}

	return &domain.Session{
		Answer:   line.Answer,
		Contexts: line.Contexts,
	}, nil
}

// readStream consumes NDJSON lines, forwarding chunks until the final
// result line. A stream that ends without a result is an error.
func (e *Engine) readStream(body io.Reader, onChunk driven.ChunkFunc) (*domain.Session, error) {
	scanner := bufio.NewScanner(body)
	// Final result lines carry full contexts and can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var line runLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("decode stream line: %w", err)
		}

		switch {
		case line.Error != "":
			return nil, fmt.Errorf("engine: %s", line.Error)
		case line.Chunk != "":
			onChunk(line.Chunk)
		case line.Done:
			return &domain.Session{
				Answer:   line.Answer,
				Contexts: line.Contexts,
			}, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	return nil, fmt.Errorf("engine: stream ended without a result")
}

// Ping validates the engine is reachable via its health endpoint.
func (e *Engine) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("engine: failed to create ping request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (e *Engine) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
