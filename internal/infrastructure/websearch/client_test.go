package websearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w9-search/internal/config"
	"w9-search/internal/domain/provider"
	"w9-search/internal/domain/ratelimit"
	"w9-search/internal/domain/source"
)

type memStore struct {
	counters map[provider.Kind][]ratelimit.Counter
}

func newMemStore() *memStore {
	return &memStore{counters: make(map[provider.Kind][]ratelimit.Counter)}
}

func (s *memStore) GetCounters(_ context.Context, kind provider.Kind) ([]ratelimit.Counter, error) {
	return append([]ratelimit.Counter(nil), s.counters[kind]...), nil
}

func (s *memStore) PutCounters(_ context.Context, counters []ratelimit.Counter) error {
	for _, c := range counters {
		existing := s.counters[c.Provider]
		replaced := false
		for i := range existing {
			if existing[i].Window == c.Window {
				existing[i] = c
				replaced = true
			}
		}
		if !replaced {
			existing = append(existing, c)
		}
		s.counters[c.Provider] = existing
	}
	return nil
}

func (s *memStore) AllCounters(_ context.Context) ([]ratelimit.Counter, error) {
	var out []ratelimit.Counter
	for _, cs := range s.counters {
		out = append(out, cs...)
	}
	return out, nil
}

func testClient(cfg *config.Config, store ratelimit.Store) *Client {
	if cfg.SearchResults == 0 {
		cfg.SearchResults = 10
	}
	if cfg.MetadataTimeout == 0 {
		cfg.MetadataTimeout = time.Second
	}
	cfg.CBEnabled = false
	c := NewClient(cfg, ratelimit.NewGate(store))
	c.retry.MaxAttempts = 1
	return c
}

func TestSearchChainFallsThroughFailures(t *testing.T) {
	cfg := &config.Config{BraveAPIKey: "brave-key", TavilyAPIKey: "tavily-key"}
	c := testClient(cfg, newMemStore())

	var called []provider.Kind
	c.backends[provider.Brave] = func(_ context.Context, _ string, _ int) ([]source.SearchResult, error) {
		called = append(called, provider.Brave)
		return nil, errors.New("brave down")
	}
	c.backends[provider.Tavily] = func(_ context.Context, _ string, _ int) ([]source.SearchResult, error) {
		called = append(called, provider.Tavily)
		return []source.SearchResult{{Title: "hit", URL: "https://example.com"}}, nil
	}

	kind, results, err := c.Search(context.Background(), "auto", "query")

	require.NoError(t, err)
	assert.Equal(t, provider.Tavily, kind)
	require.Len(t, results, 1)
	assert.Equal(t, []provider.Kind{provider.Brave, provider.Tavily}, called)
}

func TestSearchChainSkipsExhaustedProvider(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	store.counters[provider.Brave] = []ratelimit.Counter{
		{Provider: provider.Brave, Window: ratelimit.WindowMinute, Used: 1, Limit: 1, WindowStart: ratelimit.WindowMinute.StartFor(now)},
		{Provider: provider.Brave, Window: ratelimit.WindowMonth, Used: 0, Limit: 2000, WindowStart: ratelimit.WindowMonth.StartFor(now)},
	}

	cfg := &config.Config{BraveAPIKey: "brave-key"}
	c := testClient(cfg, store)

	braveCalled := false
	c.backends[provider.Brave] = func(_ context.Context, _ string, _ int) ([]source.SearchResult, error) {
		braveCalled = true
		return []source.SearchResult{{URL: "https://brave.example"}}, nil
	}
	c.backends[provider.DuckDuckGo] = func(_ context.Context, _ string, _ int) ([]source.SearchResult, error) {
		return []source.SearchResult{{URL: "https://ddg.example"}}, nil
	}

	kind, results, err := c.Search(context.Background(), "", "query")

	require.NoError(t, err)
	assert.False(t, braveCalled, "exhausted provider must not be called")
	assert.Equal(t, provider.DuckDuckGo, kind)
	assert.Equal(t, "https://ddg.example", results[0].URL)
}

func TestSearchExplicitProvider(t *testing.T) {
	cfg := &config.Config{BraveAPIKey: "brave-key", TavilyAPIKey: "tavily-key"}
	c := testClient(cfg, newMemStore())

	c.backends[provider.Tavily] = func(_ context.Context, _ string, _ int) ([]source.SearchResult, error) {
		return []source.SearchResult{{URL: "https://tavily.example"}}, nil
	}

	kind, _, err := c.Search(context.Background(), "tavily", "query")
	require.NoError(t, err)
	assert.Equal(t, provider.Tavily, kind)
}

func TestSearchUnrecognizedProviderFallsBackToChain(t *testing.T) {
	cfg := &config.Config{}
	c := testClient(cfg, newMemStore())

	c.backends[provider.DuckDuckGo] = func(_ context.Context, _ string, _ int) ([]source.SearchResult, error) {
		return []source.SearchResult{{URL: "https://ddg.example"}}, nil
	}

	kind, results, err := c.Search(context.Background(), "bing", "query")
	require.NoError(t, err)
	assert.Equal(t, provider.DuckDuckGo, kind)
	require.Len(t, results, 1)

	// Same fallback when the named provider has no credentials.
	kind, _, err = c.Search(context.Background(), "searxng", "query")
	require.NoError(t, err)
	assert.Equal(t, provider.DuckDuckGo, kind)
}

func TestSearchAllProvidersFail(t *testing.T) {
	cfg := &config.Config{}
	c := testClient(cfg, newMemStore())

	c.backends[provider.DuckDuckGo] = func(_ context.Context, _ string, _ int) ([]source.SearchResult, error) {
		return nil, errors.New("scrape blocked")
	}

	_, _, err := c.Search(context.Background(), "auto", "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape blocked")
}
