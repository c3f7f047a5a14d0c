package inference

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"w9-search/internal/domain/provider"
	"w9-search/internal/domain/ratelimit"
	"w9-search/internal/utils/platformerrors"
)

// quotaObservation is one window's usage as reported by the upstream.
type quotaObservation struct {
	Window    ratelimit.Window
	Remaining int64
	Limit     int64
}

// extractQuota pulls rate limit state out of response headers. Providers
// report different windows under similar header names, so the mapping is
// per provider.
func extractQuota(kind provider.Kind, headers http.Header) []quotaObservation {
	if headers == nil {
		return nil
	}

	var out []quotaObservation
	switch kind {
	case provider.Groq:
		if remaining, ok := headerInt(headers, "x-ratelimit-remaining-requests"); ok {
			obs := quotaObservation{Window: ratelimit.WindowMinute, Remaining: remaining}
			if limit, ok := headerInt(headers, "x-ratelimit-limit-requests"); ok {
				obs.Limit = limit
			}
			out = append(out, obs)
		}
	case provider.Cerebras:
		if remaining, ok := headerInt(headers, "x-ratelimit-remaining-requests-day"); ok {
			obs := quotaObservation{Window: ratelimit.WindowDay, Remaining: remaining}
			if limit, ok := headerInt(headers, "x-ratelimit-limit-requests-day"); ok {
				obs.Limit = limit
			}
			out = append(out, obs)
		}
		if remaining, ok := headerInt(headers, "x-ratelimit-remaining-requests-minute"); ok {
			obs := quotaObservation{Window: ratelimit.WindowMinute, Remaining: remaining}
			if limit, ok := headerInt(headers, "x-ratelimit-limit-requests-minute"); ok {
				obs.Limit = limit
			}
			out = append(out, obs)
		}
	}
	return out
}

func headerInt(headers http.Header, name string) (int64, bool) {
	raw := strings.TrimSpace(headers.Get(name))
	if raw == "" {
		return 0, false
	}
	// Some providers send fractional values like "13.5".
	if dot := strings.IndexByte(raw, '.'); dot >= 0 {
		raw = raw[:dot]
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// openRouterKeyStatus is the response of OpenRouter's key inspection
// endpoint, used by the limit sync job.
type openRouterKeyStatus struct {
	Data struct {
		Usage      float64  `json:"usage"`
		Limit      *float64 `json:"limit"`
		IsFreeTier bool     `json:"is_free_tier"`
		RateLimit  struct {
			Requests int64  `json:"requests"`
			Interval string `json:"interval"`
		} `json:"rate_limit"`
	} `json:"data"`
}

// ProbeOpenRouterKey asks OpenRouter for the key's current rate limit. The
// interval string ("10s", "1m", "1d") decides which window the reported
// request budget applies to.
func (c *Client) ProbeOpenRouterKey(ctx context.Context) (ratelimit.Window, int64, error) {
	ctx, cancel := c.metadataContext(ctx)
	defer cancel()

	var respBody openRouterKeyStatus
	resp, err := c.prepareRequest(ctx).
		SetResult(&respBody).
		Get(c.endpoint("/key"))
	if err != nil {
		return "", 0, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"openrouter key probe failed", err, "")
	}
	if resp.IsError() {
		return "", 0, c.errorFromResponse(ctx, resp, "openrouter key probe failed")
	}

	interval := strings.TrimSpace(respBody.Data.RateLimit.Interval)
	window := ratelimit.WindowMinute
	if strings.HasSuffix(interval, "d") {
		window = ratelimit.WindowDay
	}
	return window, respBody.Data.RateLimit.Requests, nil
}
