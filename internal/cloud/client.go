// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/model"
)

const (
	// DefaultConnectTimeout bounds dialing and the TLS handshake.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultResponseHeaderTimeout bounds the wait for the first response byte.
	DefaultResponseHeaderTimeout = 60 * time.Second

	// MaxErrorBodySize caps how much of an error response is read.
	MaxErrorBodySize = 64 * 1024
)

// newStreamingHTTPClient builds a client without an overall timeout; the
// stream lives as long as its context.
func newStreamingHTTPClient(connect, header time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   connect,
			ResponseHeaderTimeout: header,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// sharedStreamingClient is reused by every Client built without options.
var sharedStreamingClient = newStreamingHTTPClient(DefaultConnectTimeout, DefaultResponseHeaderTimeout)

// ChatMessage is one history entry in the request body.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a streaming chat completion request.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// apiErrorBody matches {"error": {...}} in error responses and in-band chunks.
type apiErrorBody struct {
	Error *struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client streams completions from OpenAI-compatible providers. It is safe
// for concurrent use; all per-request data comes from the Provider argument.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeouts builds a dedicated transport with the given connect and
// response-header timeouts.
func WithTimeouts(connect, header time.Duration) Option {
	return func(c *Client) {
		c.httpClient = newStreamingHTTPClient(connect, header)
	}
}

// WithRateLimit limits outbound requests to rps per second with the given
// burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = logging.For(l, "cloud")
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: sharedStreamingClient,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// STREAM
// =============================================================================

// Stream sends history to the provider and emits zero or more Text events
// followed by exactly one Done or Error. It returns nil after Done, or the
// classified error carried by the Error event.
func (c *Client) Stream(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
	start := time.Now()
	err := c.stream(ctx, p, history, emit)
	if err != nil {
		err = redact(err, p.APIKey)
		c.logger.Warn("stream failed",
			"provider", p.ID, "model", p.ModelID, "key", p.KeyFingerprint(),
			"duration", time.Since(start), "err", err)
		emit(model.ErrorEvent(err))
		return err
	}
	c.logger.Debug("stream complete", "provider", p.ID, "model", p.ModelID, "duration", time.Since(start))
	emit(model.DoneEvent())
	return nil
}

func (c *Client) stream(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
	if p.BaseURL == "" || p.ModelID == "" {
		return fmt.Errorf("%w: provider %q needs base_url and model_id", model.ErrConfiguration, p.ID)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return classifyTransport(ctx, "rate limit", err)
		}
	}

	reqBody := ChatRequest{
		Model:    p.ModelID,
		Messages: make([]ChatMessage, 0, len(history)),
		Stream:   true,
	}
	for _, t := range history {
		reqBody.Messages = append(reqBody.Messages, ChatMessage{Role: string(t.Role), Content: t.Content})
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return &model.UnknownError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := strings.TrimRight(p.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("%w: invalid base_url: %v", model.ErrConfiguration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	c.logger.Debug("request", "method", req.Method, "path", req.URL.Path,
		"provider", p.ID, "model", p.ModelID, "turns", len(history), "key", p.KeyFingerprint())

	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return classifyTransport(ctx, "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
		return handleErrorResponse(resp.StatusCode, body)
	}

	return processStream(ctx, resp.Body, emit)
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// classifyTransport maps a connection-level failure. Cancellation by the
// caller becomes ErrCanceled; everything else is a TransportError.
func classifyTransport(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, model.ErrCanceled)
	}
	return &model.TransportError{Op: op, Err: err}
}

// handleErrorResponse converts a non-2xx response into an APIError.
func handleErrorResponse(statusCode int, body []byte) error {
	apiErr := &model.APIError{StatusCode: statusCode}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		apiErr.Message = parsed.Error.Message
		apiErr.Code = errorCode(parsed.Error.Code, parsed.Error.Type)
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(statusCode)
		}
	}
	if apiErr.Code == "" {
		apiErr.Code = model.CodeForStatus(statusCode)
	}
	return apiErr
}

// errorCode picks a string code from the body's code (string or number) or
// type fields.
func errorCode(raw json.RawMessage, typ string) string {
	if len(raw) > 0 && string(raw) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return typ
}

// statusFromCode extracts a numeric HTTP status from an in-band error code.
func statusFromCode(raw json.RawMessage) int {
	if n, err := strconv.Atoi(string(raw)); err == nil {
		return n
	}
	return 0
}

// redactedError hides the API key in an error's text while keeping the
// chain intact for errors.Is/As.
type redactedError struct {
	err error
	key string
}

func (e *redactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.key, "[REDACTED]")
}

func (e *redactedError) Unwrap() error { return e.err }

// redact wraps err when its text would reveal key. APIError messages are
// scrubbed in place.
func redact(err error, key string) error {
	if key == "" {
		return err
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		apiErr.Message = strings.ReplaceAll(apiErr.Message, key, "[REDACTED]")
	}
	if strings.Contains(err.Error(), key) {
		return &redactedError{err: err, key: key}
	}
	return err
}
