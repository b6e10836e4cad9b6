package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"medtutor/internal/providers"

	"golang.org/x/time/rate"
)

// Gateway turns text into fixed-size vectors. Providers are tried in
// order; each one is retried with backoff on rate limits and 5xx.
type Gateway struct {
	providers  []providers.NamedEmbedProvider
	dim        int
	limiter    *rate.Limiter
	maxRetries int
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

type Options struct {
	Dimension  int
	RPS        float64
	MaxRetries int
	Logger     *slog.Logger
}

func NewGateway(list []providers.NamedEmbedProvider, opts Options) *Gateway {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	return &Gateway{
		providers:  list,
		dim:        opts.Dimension,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
		sleep:      sleepCtx,
	}
}

func (g *Gateway) Dimension() int {
	return g.dim
}

// Embed returns the vector for a single text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, "embed", []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds inputs in one provider call. The first provider that
// succeeds wins; the last error is returned when all fail.
func (g *Gateway) EmbedBatch(ctx context.Context, operation string, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if len(g.providers) == 0 {
		return nil, errors.New("no embedding providers configured")
	}
	var lastErr error
	for _, p := range g.providers {
		vecs, err := g.embedWithRetry(ctx, p, providers.EmbedRequest{Operation: operation, Inputs: inputs, Dimension: g.dim})
		if err == nil {
			if len(vecs) != len(inputs) {
				lastErr = fmt.Errorf("%s returned %d vectors for %d inputs", p.Ref.Raw, len(vecs), len(inputs))
				continue
			}
			return vecs, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("embedding provider failed", "provider", p.Ref.Raw, "error_type", providers.ClassifyError(err), "err", err)
	}
	return nil, fmt.Errorf("embed %s: %w", operation, lastErr)
}

func (g *Gateway) embedWithRetry(ctx context.Context, p providers.NamedEmbedProvider, req providers.EmbedRequest) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		vecs, _, err := p.Provider.Embed(ctx, req)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !providers.Retryable(err) || attempt == g.maxRetries {
			break
		}
		if err := g.sleep(ctx, backoff(err, attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func backoff(err error, attempt int) time.Duration {
	var httpErr *providers.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter != "" {
		if secs, convErr := strconv.Atoi(httpErr.RetryAfter); convErr == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return retryDelay(attempt)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
