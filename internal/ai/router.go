package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoProvider is returned when no provider is registered.
var ErrNoProvider = errors.New("ai: no provider registered")

// Router tries providers in registration order until one succeeds.
type Router struct {
	providers map[string]Provider
	fallback  []string // ordered fallback chain
	mu        sync.RWMutex
}

// NewRouter creates a new AI router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the router.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		r.fallback = append(r.fallback, name)
	}
	r.providers[name] = provider
}

func (r *Router) chain() ([]string, map[string]Provider) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := append([]string(nil), r.fallback...)
	providers := make(map[string]Provider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	return names, providers
}

// Complete routes a request to the first provider that answers.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	names, providers := r.chain()
	if len(names) == 0 {
		return CompletionResponse{}, ErrNoProvider
	}

	var lastErr error
	for _, name := range names {
		resp, err := providers[name].Complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return CompletionResponse{}, ctx.Err()
			}
			slog.Warn("AI provider failed, trying next",
				"provider", name,
				"task", req.Task.String(),
				"error", err,
			)
			lastErr = err
			continue
		}

		slog.Debug("AI request completed",
			"provider", name,
			"model", resp.Model,
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)
		return resp, nil
	}

	return CompletionResponse{}, fmt.Errorf("all AI providers failed: %w", lastErr)
}

// StreamComplete opens a stream on the first provider that produces content.
// A provider that fails before its first chunk is skipped; once content has
// been relayed, later failures are passed through as an error chunk.
func (r *Router) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	names, providers := r.chain()
	if len(names) == 0 {
		return nil, ErrNoProvider
	}

	var lastErr error
	for _, name := range names {
		ch, err := providers[name].StreamComplete(ctx, req)
		if err != nil {
			lastErr = err
		} else {
			first, ok := <-ch
			switch {
			case !ok:
				lastErr = errors.New("stream closed without content")
			case first.Error != nil:
				lastErr = first.Error
			default:
				slog.Debug("AI stream opened", "provider", name, "task", req.Task.String())
				return relay(ctx, first, ch), nil
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("AI provider stream failed, trying next",
			"provider", name,
			"task", req.Task.String(),
			"error", lastErr,
		)
	}

	return nil, fmt.Errorf("all AI providers failed: %w", lastErr)
}

// relay re-emits first followed by the rest of in.
func relay(ctx context.Context, first StreamChunk, in <-chan StreamChunk) <-chan StreamChunk {
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer func() {
			for range in {
			}
		}()

		select {
		case out <- first:
		case <-ctx.Done():
			return
		}
		for c := range in {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Models lists the models of every registered provider.
func (r *Router) Models() []ModelInfo {
	names, providers := r.chain()
	var out []ModelInfo
	for _, name := range names {
		out = append(out, providers[name].Models()...)
	}
	return out
}

// HealthCheck succeeds when at least one provider is healthy.
func (r *Router) HealthCheck(ctx context.Context) error {
	names, providers := r.chain()
	if len(names) == 0 {
		return ErrNoProvider
	}
	var errs []error
	for _, name := range names {
		err := providers[name].HealthCheck(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return errors.Join(errs...)
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}
