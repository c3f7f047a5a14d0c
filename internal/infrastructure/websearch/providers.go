package websearch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"w9-search/internal/domain/source"
	"w9-search/internal/utils/platformerrors"
)

const (
	braveSearchEndpoint  = "https://api.search.brave.com/res/v1/web/search"
	tavilySearchEndpoint = "https://api.tavily.com/search"
	tavilyUsageEndpoint  = "https://api.tavily.com/usage"
	duckduckgoEndpoint   = "https://html.duckduckgo.com/html/"
	searxngSearchPath    = "/search"

	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

func newSearchHTTPClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetTransport(&http.Transport{
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		})
}

func searchError(ctx context.Context, providerName string, resp *resty.Response) error {
	trimmed := strings.TrimSpace(resp.String())
	if trimmed == "" {
		trimmed = fmt.Sprintf("status %d", resp.StatusCode())
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
		fmt.Sprintf("%s search failed: %s", providerName, trimmed), nil, "")
}

// braveSearch queries the Brave Web Search API.
func (c *Client) braveSearch(ctx context.Context, query string, limit int) ([]source.SearchResult, error) {
	var respBody struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}

	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("X-Subscription-Token", c.cfg.BraveAPIKey).
		SetQueryParams(map[string]string{
			"q":     query,
			"count": strconv.Itoa(limit),
		}).
		SetResult(&respBody).
		Get(braveSearchEndpoint)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"brave search failed", err, "")
	}
	if resp.IsError() {
		return nil, searchError(ctx, "brave", resp)
	}

	results := make([]source.SearchResult, 0, len(respBody.Web.Results))
	for _, r := range respBody.Web.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, source.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
	}
	return results, nil
}

// tavilySearch queries the Tavily search API.
func (c *Client) tavilySearch(ctx context.Context, query string, limit int) ([]source.SearchResult, error) {
	var respBody struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}

	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.cfg.TavilyAPIKey)).
		SetBody(map[string]any{
			"query":       query,
			"max_results": limit,
		}).
		SetResult(&respBody).
		Post(tavilySearchEndpoint)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"tavily search failed", err, "")
	}
	if resp.IsError() {
		return nil, searchError(ctx, "tavily", resp)
	}

	results := make([]source.SearchResult, 0, len(respBody.Results))
	for _, r := range respBody.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, source.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}

// searxngSearch queries a self-hosted SearXNG instance's JSON API.
func (c *Client) searxngSearch(ctx context.Context, query string, limit int) ([]source.SearchResult, error) {
	var respBody struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}

	resp, err := c.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "json",
		}).
		SetResult(&respBody).
		Get(c.cfg.SearxngURL + searxngSearchPath)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"searxng search failed", err, "")
	}
	if resp.IsError() {
		return nil, searchError(ctx, "searxng", resp)
	}

	results := make([]source.SearchResult, 0, len(respBody.Results))
	for _, r := range respBody.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, source.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// duckduckgoSearch scrapes the HTML results page; DuckDuckGo has no free
// JSON search API.
func (c *Client) duckduckgoSearch(ctx context.Context, query string, limit int) ([]source.SearchResult, error) {
	resp, err := c.http.R().SetContext(ctx).
		SetHeader("User-Agent", browserUserAgent).
		SetQueryParam("q", query).
		Get(duckduckgoEndpoint)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"duckduckgo search failed", err, "")
	}
	if resp.IsError() {
		return nil, searchError(ctx, "duckduckgo", resp)
	}

	results := parseDuckDuckGoResults(resp.Body())
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
