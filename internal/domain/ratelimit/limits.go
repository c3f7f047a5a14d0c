package ratelimit

import "w9-search/internal/domain/provider"

// Limit is a configured ceiling for one provider window. A non-positive Max
// means the window is not enforced.
type Limit struct {
	Window Window
	Max    int64
}

// DefaultLimits holds the free tier ceilings applied when no persisted
// counter exists yet. Providers absent from the table are unmetered.
var DefaultLimits = map[provider.Kind][]Limit{
	provider.OpenRouter: {
		{Window: WindowMinute, Max: 20},
		{Window: WindowDay, Max: 50},
	},
	provider.Groq: {
		{Window: WindowMinute, Max: 30},
		{Window: WindowDay, Max: 14400},
	},
	provider.Cerebras: {
		{Window: WindowMinute, Max: 30},
		{Window: WindowDay, Max: 14400},
	},
	provider.Cohere: {
		{Window: WindowMinute, Max: 20},
		{Window: WindowMonth, Max: 1000},
	},
	provider.Brave: {
		{Window: WindowMinute, Max: 1},
		{Window: WindowMonth, Max: 2000},
	},
	provider.Tavily: {
		{Window: WindowMonth, Max: 1000},
	},
}

// LimitsFor returns the configured limits for a provider kind.
func LimitsFor(kind provider.Kind) []Limit {
	return DefaultLimits[kind]
}
