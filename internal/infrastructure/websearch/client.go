package websearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"w9-search/internal/config"
	"w9-search/internal/domain/provider"
	"w9-search/internal/domain/ratelimit"
	"w9-search/internal/domain/source"
	"w9-search/internal/infrastructure/logger"
	"w9-search/internal/infrastructure/metrics"
	"w9-search/internal/utils/platformerrors"
)

// searchFunc runs one provider's search.
type searchFunc func(ctx context.Context, query string, limit int) ([]source.SearchResult, error)

// Client fans a query out to whichever search provider is available, in
// priority order, skipping providers the rate gate has exhausted.
type Client struct {
	cfg      *config.Config
	gate     *ratelimit.Gate
	http     *resty.Client
	retry    RetryConfig
	breakers map[provider.Kind]*CircuitBreaker
	backends map[provider.Kind]searchFunc
}

func NewClient(cfg *config.Config, gate *ratelimit.Gate) *Client {
	c := &Client{
		cfg:  cfg,
		gate: gate,
		http: newSearchHTTPClient(cfg.MetadataTimeout),
	}

	c.retry = DefaultRetryConfig()
	if cfg.RetryMaxAttempts > 0 {
		c.retry.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialDelay > 0 {
		c.retry.InitialDelay = cfg.RetryInitialDelay
	}
	if cfg.RetryBackoffFactor > 0 {
		c.retry.BackoffFactor = cfg.RetryBackoffFactor
	}

	cbCfg := DefaultCircuitBreakerConfig()
	cbCfg.Enabled = cfg.CBEnabled
	if cfg.CBFailureThreshold > 0 {
		cbCfg.FailureThreshold = cfg.CBFailureThreshold
	}
	if cfg.CBTimeout > 0 {
		cbCfg.Timeout = cfg.CBTimeout
	}

	c.breakers = make(map[provider.Kind]*CircuitBreaker)
	for _, kind := range provider.SearchKinds() {
		c.breakers[kind] = NewCircuitBreaker(kind.String(), cbCfg)
	}

	c.backends = map[provider.Kind]searchFunc{
		provider.Brave:      c.braveSearch,
		provider.Tavily:     c.tavilySearch,
		provider.Searxng:    c.searxngSearch,
		provider.DuckDuckGo: c.duckduckgoSearch,
	}

	return c
}

// available reports whether a provider has the credentials it needs.
func (c *Client) available(kind provider.Kind) bool {
	switch kind {
	case provider.Brave:
		return c.cfg.BraveAPIKey != ""
	case provider.Tavily:
		return c.cfg.TavilyAPIKey != ""
	case provider.Searxng:
		return c.cfg.SearxngURL != ""
	case provider.DuckDuckGo:
		return true
	default:
		return false
	}
}

// Search runs the query against the requested provider, or walks the
// priority chain when the request is "auto", empty, unrecognized, or names a
// provider with no credentials configured. Rate-exhausted and failing
// providers are skipped; the first provider that returns results wins.
func (c *Client) Search(ctx context.Context, requestedProvider, query string) (provider.Kind, []source.SearchResult, error) {
	log := logger.GetLogger()

	if requestedProvider != "" && requestedProvider != "auto" {
		kind := provider.ParseKind(requestedProvider)
		switch {
		case !kind.IsSearch():
			log.Warn().Str("provider", requestedProvider).Msg("unknown search provider, falling back to auto chain")
		case !c.available(kind):
			log.Warn().Str("provider", requestedProvider).Msg("search provider not configured, falling back to auto chain")
		default:
			results, err := c.searchOne(ctx, kind, query)
			if err != nil {
				return "", nil, err
			}
			return kind, results, nil
		}
	}

	var lastErr error
	for _, kind := range provider.SearchKinds() {
		if !c.available(kind) {
			continue
		}

		results, err := c.searchOne(ctx, kind, query)
		if err != nil {
			if platformerrors.IsErrorType(err, platformerrors.ErrorTypeRateExhausted) {
				log.Debug().Str("provider", kind.String()).Msg("search provider exhausted, trying next")
			} else {
				log.Warn().Err(err).Str("provider", kind.String()).Msg("search provider failed, trying next")
			}
			lastErr = err
			continue
		}
		return kind, results, nil
	}

	if lastErr == nil {
		lastErr = platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeInternal,
			"no search provider available", nil, "")
	}
	return "", nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, lastErr, "all search providers failed")
}

// searchOne gates, retries and breaker-wraps a single provider call.
func (c *Client) searchOne(ctx context.Context, kind provider.Kind, query string) ([]source.SearchResult, error) {
	if err := c.gate.Admit(ctx, kind, 1); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeRateExhausted) {
			metrics.RecordRateDenial(kind.String(), deniedWindow(err))
			metrics.RecordProviderRequest("search", kind.String(), "denied")
		}
		return nil, err
	}

	backend, ok := c.backends[kind]
	if !ok {
		return nil, fmt.Errorf("no backend for provider %s", kind)
	}

	results, err := WithRetry(ctx, c.retry, kind.String()+"_search", func() (*[]source.SearchResult, error) {
		var out []source.SearchResult
		cbErr := c.breakers[kind].Execute(func() error {
			var searchErr error
			out, searchErr = backend(ctx, query, c.cfg.SearchResults)
			return searchErr
		})
		if cbErr != nil {
			return nil, cbErr
		}
		return &out, nil
	})
	if err != nil {
		metrics.RecordProviderRequest("search", kind.String(), "error")
		return nil, err
	}
	metrics.RecordProviderRequest("search", kind.String(), "success")
	return *results, nil
}

// SyncLimits reconciles the rate gate with Tavily's monthly usage report.
func (c *Client) SyncLimits(ctx context.Context) error {
	if c.cfg.TavilyAPIKey == "" {
		return nil
	}

	var respBody struct {
		Account struct {
			PlanUsage int64 `json:"plan_usage"`
			PlanLimit int64 `json:"plan_limit"`
		} `json:"account"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.cfg.TavilyAPIKey)).
		SetResult(&respBody).
		Get(tavilyUsageEndpoint)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"tavily usage probe failed", err, "")
	}
	if resp.IsError() {
		return searchError(ctx, "tavily usage", resp)
	}

	limit := respBody.Account.PlanLimit
	if limit <= 0 {
		return nil
	}
	remaining := limit - respBody.Account.PlanUsage
	return c.gate.ApplyObserved(ctx, provider.Tavily, ratelimit.WindowMonth, remaining, limit)
}

// deniedWindow pulls the exhausted window out of a rate gate denial.
func deniedWindow(err error) string {
	var perr *platformerrors.PlatformError
	if !errors.As(err, &perr) {
		return ""
	}
	if w, ok := perr.Context["window"].(string); ok {
		return w
	}
	return ""
}
