// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/model"
)

// DefaultBaseURL uses an explicit IPv4 address; "localhost" may resolve to
// IPv6 first on some systems while Ollama listens on IPv4.
const DefaultBaseURL = "http://127.0.0.1:11434"

// listTimeout bounds non-streaming requests.
const listTimeout = 10 * time.Second

// =============================================================================
// CLIENT
// =============================================================================

// Client streams chat replies from Ollama. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	logger     *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logging.For(l, "ollama")
	}
}

// NewClient creates a Client. Streams have no overall timeout; dialing and
// the response header wait are bounded.
func NewClient(opts ...ClientOption) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: 5 * time.Minute, // model load can be slow
			},
		},
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func baseURL(p config.Provider) string {
	if p.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(p.BaseURL, "/")
}

// Stream sends history to the provider's model and emits zero or more Text
// events followed by exactly one Done or Error.
func (c *Client) Stream(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
	err := c.stream(ctx, p, history, emit)
	if err != nil {
		c.logger.Warn("stream failed", "provider", p.ID, "model", p.ModelID, "err", err)
		emit(model.ErrorEvent(err))
		return err
	}
	emit(model.DoneEvent())
	return nil
}

func (c *Client) stream(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
	if p.ModelID == "" {
		return fmt.Errorf("%w: provider %q needs model_id", model.ErrConfiguration, p.ID)
	}

	req := ChatRequest{Model: p.ModelID, Stream: true, Messages: make([]Message, 0, len(history))}
	for _, t := range history {
		req.Messages = append(req.Messages, Message{Role: string(t.Role), Content: t.Content})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return &model.UnknownError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL(p)+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: invalid base_url: %v", model.ErrConfiguration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("request", "provider", p.ID, "model", p.ModelID, "turns", len(history))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransport(ctx, "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}

	reader := NewStreamReader(resp.Body)
	for {
		if ctx.Err() != nil {
			return classifyTransport(ctx, "read stream", ctx.Err())
		}
		chunk, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				return &model.TransportError{Op: "read stream", Err: io.ErrUnexpectedEOF}
			}
			return classifyTransport(ctx, "read stream", err)
		}
		if chunk.Error != "" {
			return &model.APIError{StatusCode: http.StatusOK, Code: "ollama_error", Message: chunk.Error}
		}
		if chunk.Message.Content != "" {
			emit(model.TextEvent(chunk.Message.Content))
		}
		if chunk.Done {
			return nil
		}
	}
}

// ListModels returns the models installed on the provider's server.
func (c *Client) ListModels(ctx context.Context, p config.Provider) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL(p)+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base_url: %v", model.ErrConfiguration, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, "list models", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}
	var list ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &model.UnknownError{Err: fmt.Errorf("failed to decode model list: %w", err)}
	}
	return list.Models, nil
}

// =============================================================================
// ERRORS
// =============================================================================

func classifyTransport(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, model.ErrCanceled)
	}
	return &model.TransportError{Op: op, Err: err}
}

func errorFromResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &model.APIError{StatusCode: resp.StatusCode, Code: model.CodeForStatus(resp.StatusCode)}

	var er errorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		apiErr.Message = er.Error
	} else if msg := strings.TrimSpace(string(data)); msg != "" {
		apiErr.Message = msg
	} else {
		apiErr.Message = resp.Status
	}
	return apiErr
}
