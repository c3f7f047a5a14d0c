package inference

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"w9-search/internal/config"
	"w9-search/internal/domain/model"
	"w9-search/internal/domain/provider"
	"w9-search/internal/domain/ratelimit"
	"w9-search/internal/infrastructure/logger"
	"w9-search/internal/infrastructure/metrics"
	"w9-search/internal/utils/platformerrors"
)

// chatClient is what the gateway needs from a provider client.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, http.Header, error)
	ListModels(ctx context.Context) ([]modelEntry, error)
}

// Gateway routes chat requests to the provider that owns the model, with
// rate gate admission before any network call and quota reconciliation
// after it.
type Gateway struct {
	cfg        *config.Config
	gate       *ratelimit.Gate
	catalog    *model.Catalog
	clients    map[provider.Kind]chatClient
	openRouter *Client
}

func NewGateway(cfg *config.Config, gate *ratelimit.Gate) *Gateway {
	g := &Gateway{
		cfg:     cfg,
		gate:    gate,
		catalog: model.NewCatalog(),
		clients: make(map[provider.Kind]chatClient),
	}

	timeout := cfg.GenerationTimeout
	metaTimeout := cfg.MetadataTimeout
	if cfg.OpenRouterAPIKey != "" {
		g.openRouter = NewClient(provider.OpenRouter, openRouterBaseURL, cfg.OpenRouterAPIKey, timeout, metaTimeout)
		g.clients[provider.OpenRouter] = g.openRouter
	}
	if cfg.GroqAPIKey != "" {
		g.clients[provider.Groq] = NewClient(provider.Groq, groqBaseURL, cfg.GroqAPIKey, timeout, metaTimeout)
	}
	if cfg.CerebrasAPIKey != "" {
		g.clients[provider.Cerebras] = NewClient(provider.Cerebras, cerebrasBaseURL, cfg.CerebrasAPIKey, timeout, metaTimeout)
	}
	if cfg.CohereAPIKey != "" {
		g.clients[provider.Cohere] = NewCohereClient(cfg.CohereAPIKey, timeout, metaTimeout)
	}
	// Pollinations works without a key.
	g.clients[provider.Pollinations] = NewClient(provider.Pollinations, pollinationsBaseURL, cfg.PollinationsAPIKey, timeout, metaTimeout)

	return g
}

// Catalog exposes the synced model catalog.
func (g *Gateway) Catalog() *model.Catalog {
	return g.catalog
}

// Select resolves the requested model id against the catalog.
func (g *Gateway) Select(requested string) model.Selection {
	return g.catalog.Select(requested, g.cfg.DefaultModel)
}

// Chat sends one completion request to the provider owning modelID. The
// rate gate is consulted first; a denial never reaches the network.
func (g *Gateway) Chat(ctx context.Context, modelID string, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*openai.ChatCompletionResponse, error) {
	log := logger.GetLogger()

	if modelID == "" || modelID == model.FallbackModelID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation,
			"no models available", nil, "")
	}

	kind := g.resolveProvider(modelID)
	client, ok := g.clients[kind]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation,
			"provider not configured: "+kind.String(), nil, "")
	}

	if err := g.gate.Admit(ctx, kind, 1); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeRateExhausted) {
			metrics.RecordRateDenial(kind.String(), deniedWindow(err))
			metrics.RecordProviderRequest("chat", kind.String(), "denied")
		}
		return nil, err
	}

	request := openai.ChatCompletionRequest{
		Model:    modelID,
		Messages: messages,
		Tools:    tools,
	}

	start := time.Now()
	resp, headers, err := client.CreateChatCompletion(ctx, request)
	metrics.RecordExternalProviderLatency(kind.String(), time.Since(start).Seconds())
	if err != nil {
		metrics.RecordProviderRequest("chat", kind.String(), "error")
		return nil, err
	}
	metrics.RecordProviderRequest("chat", kind.String(), "success")

	for _, obs := range extractQuota(kind, headers) {
		if applyErr := g.gate.ApplyObserved(ctx, kind, obs.Window, obs.Remaining, obs.Limit); applyErr != nil {
			log.Warn().Err(applyErr).
				Str("provider", kind.String()).
				Str("window", string(obs.Window)).
				Msg("unable to reconcile observed quota")
		}
	}

	return resp, nil
}

// resolveProvider maps a model id onto its provider. Unknown ids fall back
// to OpenRouter when configured, then any configured LLM provider.
func (g *Gateway) resolveProvider(modelID string) provider.Kind {
	if m, ok := g.catalog.Find(modelID); ok {
		return m.Provider
	}
	if _, ok := g.clients[provider.OpenRouter]; ok {
		return provider.OpenRouter
	}
	for _, kind := range provider.LLMKinds() {
		if _, ok := g.clients[kind]; ok {
			return kind
		}
	}
	return provider.OpenRouter
}

// RefreshCatalog lists models from every configured provider and swaps the
// catalog. Providers that fail are skipped so one outage does not empty the
// catalog of the others.
func (g *Gateway) RefreshCatalog(ctx context.Context) error {
	log := logger.GetLogger()

	var models []model.Model
	var lastErr error
	now := time.Now().UTC()

	for _, kind := range provider.LLMKinds() {
		client, ok := g.clients[kind]
		if !ok {
			continue
		}

		entries, err := client.ListModels(ctx)
		if err != nil {
			log.Warn().Err(err).Str("provider", kind.String()).Msg("model sync failed for provider")
			lastErr = err
			continue
		}

		count := 0
		for _, entry := range entries {
			if entry.ID == "" {
				continue
			}
			m := model.Model{
				ID:          entry.ID,
				Provider:    kind,
				DisplayName: entry.Name,
				ContextSize: entry.ContextLength,
				Free:        isFreeModel(kind, entry),
				SyncedAt:    now,
			}
			if m.DisplayName == "" {
				m.DisplayName = entry.ID
			}
			if kind == provider.OpenRouter && !g.openRouterAllowed(m) {
				continue
			}
			models = append(models, m)
			count++
		}
		log.Info().Str("provider", kind.String()).Int("models", count).Msg("model sync completed")
	}

	if len(models) == 0 && lastErr != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, lastErr, "model sync produced no models")
	}

	g.catalog.Replace(models)
	return nil
}

// openRouterAllowed filters OpenRouter's huge catalog: an explicit
// allowlist wins, otherwise only free models pass.
func (g *Gateway) openRouterAllowed(m model.Model) bool {
	allow := strings.TrimSpace(g.cfg.OpenRouterModelsOnly)
	if allow == "" {
		return m.Free
	}
	for _, pattern := range strings.Split(allow, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern != "" && strings.Contains(strings.ToLower(m.ID), strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func isFreeModel(kind provider.Kind, entry modelEntry) bool {
	if kind != provider.OpenRouter {
		return true
	}
	if strings.HasSuffix(entry.ID, ":free") {
		return true
	}
	return entry.Pricing != nil && entry.Pricing.Prompt == "0" && entry.Pricing.Completion == "0"
}

// SyncLimits reconciles the rate gate with limits the providers report out
// of band, currently OpenRouter's key inspection endpoint.
func (g *Gateway) SyncLimits(ctx context.Context) error {
	if g.openRouter == nil {
		return nil
	}

	window, limit, err := g.openRouter.ProbeOpenRouterKey(ctx)
	if err != nil {
		return err
	}
	if limit <= 0 {
		return nil
	}

	// The probe reports a budget, not usage; keep the local count and only
	// move the ceiling.
	used := int64(0)
	counters, err := g.gate.Snapshot(ctx)
	if err == nil {
		for _, c := range counters {
			if c.Provider == provider.OpenRouter && c.Window == window {
				used = c.Used
				break
			}
		}
	}
	return g.gate.ApplyObserved(ctx, provider.OpenRouter, window, limit-used, limit)
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
