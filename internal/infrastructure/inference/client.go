package inference

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"

	"w9-search/internal/domain/provider"
	"w9-search/internal/utils/platformerrors"
)

const (
	openRouterBaseURL   = "https://openrouter.ai/api/v1"
	groqBaseURL         = "https://api.groq.com/openai/v1"
	cerebrasBaseURL     = "https://api.cerebras.ai/v1"
	pollinationsBaseURL = "https://text.pollinations.ai/openai"
)

// modelList is the OpenAI-shaped /models envelope.
type modelList struct {
	Data []modelEntry `json:"data"`
}

type modelEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
	Pricing       *struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
}

// Client speaks the OpenAI-compatible chat API of one upstream provider.
// Generation calls run under the client-wide timeout; catalog and limit
// probes get the shorter metadata timeout per request.
type Client struct {
	http            *resty.Client
	kind            provider.Kind
	baseURL         string
	apiKey          string
	metadataTimeout time.Duration
}

func NewClient(kind provider.Kind, baseURL, apiKey string, timeout, metadataTimeout time.Duration) *Client {
	httpClient := resty.New().
		SetTimeout(timeout).
		SetTransport(&http.Transport{
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		})

	return &Client{
		http:            httpClient,
		kind:            kind,
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		apiKey:          apiKey,
		metadataTimeout: metadataTimeout,
	}
}

func (c *Client) metadataContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.metadataTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.metadataTimeout)
}

// CreateChatCompletion posts the request and returns the parsed response
// together with the response headers so callers can reconcile quota state.
func (c *Client) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, http.Header, error) {
	var respBody openai.ChatCompletionResponse
	resp, err := c.prepareRequest(ctx).
		SetBody(request).
		SetResult(&respBody).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("%s chat request failed", c.kind), err, "")
	}
	if resp.IsError() {
		return nil, resp.Header(), c.errorFromResponse(ctx, resp, fmt.Sprintf("%s chat request failed", c.kind))
	}
	return &respBody, resp.Header(), nil
}

// ListModels fetches the provider's model catalog.
func (c *Client) ListModels(ctx context.Context) ([]modelEntry, error) {
	ctx, cancel := c.metadataContext(ctx)
	defer cancel()

	if c.kind == provider.Pollinations {
		return c.listPollinationsModels(ctx)
	}

	var respBody modelList
	resp, err := c.prepareRequest(ctx).
		SetResult(&respBody).
		Get(c.endpoint("/models"))
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("%s list models failed", c.kind), err, "")
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, fmt.Sprintf("%s list models failed", c.kind))
	}
	return respBody.Data, nil
}

// listPollinationsModels handles the bare JSON array Pollinations serves
// instead of the OpenAI envelope.
func (c *Client) listPollinationsModels(ctx context.Context) ([]modelEntry, error) {
	var respBody []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	resp, err := c.prepareRequest(ctx).
		SetResult(&respBody).
		Get("https://text.pollinations.ai/models")
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"pollinations list models failed", err, "")
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "pollinations list models failed")
	}

	entries := make([]modelEntry, 0, len(respBody))
	for _, m := range respBody {
		entries = append(entries, modelEntry{ID: m.Name, Name: m.Description})
	}
	return entries, nil
}

func (c *Client) prepareRequest(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	return req
}

func (c *Client) endpoint(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

// errorFromResponse surfaces the upstream body unchanged so callers see the
// provider's own failure message.
func (c *Client) errorFromResponse(ctx context.Context, resp *resty.Response, message string) error {
	trimmed := strings.TrimSpace(resp.String())
	if trimmed == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("%s: status %d", message, resp.StatusCode()), nil, "")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
		fmt.Sprintf("%s: %s", message, trimmed), nil, "")
}
