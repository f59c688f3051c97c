// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/rigrun-chat/internal/cloud"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/ollama"
)

// StreamClient streams one reply for history. Implementations emit zero or
// more Text events followed by exactly one Done or Error, and return nil
// after Done or the error carried by the Error event. Stream runs in the
// calling goroutine.
type StreamClient interface {
	Stream(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error
}

// Call carries the per-request parameters.
type Call struct {
	Provider *config.Provider
}

// CallFor builds a Call from the configuration's current provider. A missing
// provider is reported when the call is used.
func CallFor(cfg *config.Config) Call {
	if cfg == nil {
		return Call{}
	}
	p, err := cfg.CurrentProviderDescriptor()
	if err != nil {
		return Call{}
	}
	return Call{Provider: p}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps provider kinds to clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]StreamClient
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]StreamClient)}
}

// Register binds kind to c, replacing any previous client.
func (r *Registry) Register(kind string, c StreamClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[kind] = c
}

// Lookup returns the client for kind.
func (r *Registry) Lookup(kind string) (StreamClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[kind]
	return c, ok
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.clients))
	for k := range r.clients {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// resolve picks the client for the call's provider.
func (r *Registry) resolve(call Call) (StreamClient, config.Provider, error) {
	if call.Provider == nil {
		return nil, config.Provider{}, fmt.Errorf("%w: no provider selected", model.ErrConfiguration)
	}
	p := *call.Provider
	c, ok := r.Lookup(p.EffectiveKind())
	if !ok {
		return nil, p, fmt.Errorf("%w: no client for provider kind %q", model.ErrConfiguration, p.EffectiveKind())
	}
	return c, p, nil
}

// DefaultRegistry registers the OpenAI-compatible and Ollama clients, tuned
// from cfg.Client.
func DefaultRegistry(cfg *config.Config, logger *log.Logger) *Registry {
	opts := []cloud.Option{cloud.WithLogger(logger)}
	if cfg != nil {
		cc := cfg.Client
		if cc.ConnectTimeoutSecs > 0 || cc.ResponseHeaderTimeoutSecs > 0 {
			opts = append(opts, cloud.WithTimeouts(
				time.Duration(cc.ConnectTimeoutSecs)*time.Second,
				time.Duration(cc.ResponseHeaderTimeoutSecs)*time.Second))
		}
		if cc.RequestsPerSecond > 0 {
			opts = append(opts, cloud.WithRateLimit(cc.RequestsPerSecond, cc.Burst))
		}
	}

	var openaiClient, ollamaClient StreamClient = cloud.New(opts...), ollama.NewClient(ollama.WithLogger(logger))
	if cfg != nil && cfg.Client.Offline {
		openaiClient, ollamaClient = LocalOnly(openaiClient), LocalOnly(ollamaClient)
	}

	r := NewRegistry()
	r.Register(config.KindOpenAI, openaiClient)
	r.Register(config.KindOllama, ollamaClient)
	return r
}
