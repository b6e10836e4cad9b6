package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"medtutor/internal/providers"

	"github.com/stretchr/testify/require"
)

type scriptedEmbedder struct {
	errs  []error
	calls int
}

func (s *scriptedEmbedder) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, providers.ProviderInfo{}, err
		}
	}
	out := make([][]float32, len(req.Inputs))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, providers.ProviderInfo{Name: "scripted"}, nil
}

func named(name string, p providers.EmbeddingProvider) providers.NamedEmbedProvider {
	return providers.NamedEmbedProvider{Ref: providers.ProviderRef{Raw: name, Name: name}, Provider: p}
}

func TestGatewayRetriesRateLimitHonoringRetryAfter(t *testing.T) {
	p := &scriptedEmbedder{errs: []error{&providers.HTTPError{Provider: "x", Status: 429, RetryAfter: "2"}}}
	g := NewGateway([]providers.NamedEmbedProvider{named("x", p)}, Options{Dimension: 3})
	var slept []time.Duration
	g.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	vec, err := g.Embed(context.Background(), "tuberculosis")
	require.NoError(t, err)
	require.Len(t, vec, 3)
	require.Equal(t, 2, p.calls)
	require.Equal(t, []time.Duration{2 * time.Second}, slept)
}

func TestGatewayFallsThroughOnPermanentError(t *testing.T) {
	bad := &scriptedEmbedder{errs: []error{errors.New("invalid api key")}}
	good := &scriptedEmbedder{}
	g := NewGateway([]providers.NamedEmbedProvider{named("bad", bad), named("good", good)}, Options{})
	g.sleep = func(context.Context, time.Duration) error { return nil }

	vecs, err := g.EmbedBatch(context.Background(), "ingest", []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	require.Equal(t, 1, bad.calls)
	require.Equal(t, 1, good.calls)
}

func TestGatewayReturnsLastError(t *testing.T) {
	bad := &scriptedEmbedder{errs: []error{errors.New("boom")}}
	g := NewGateway([]providers.NamedEmbedProvider{named("bad", bad)}, Options{})
	_, err := g.Embed(context.Background(), "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestRetryDelayCapped(t *testing.T) {
	require.Equal(t, 200*time.Millisecond, retryDelay(0))
	require.Equal(t, 400*time.Millisecond, retryDelay(1))
	require.Equal(t, 5*time.Second, retryDelay(10))
}
