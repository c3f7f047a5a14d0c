package provider

import "strings"

// Kind identifies an upstream provider, both LLM and web search.
type Kind string

const (
	OpenRouter   Kind = "openrouter"
	Groq         Kind = "groq"
	Cerebras     Kind = "cerebras"
	Cohere       Kind = "cohere"
	Pollinations Kind = "pollinations"

	DuckDuckGo Kind = "duckduckgo"
	Searxng    Kind = "searxng"
	Brave      Kind = "brave"
	Tavily     Kind = "tavily"
)

// LLMKinds lists the chat-capable providers in default priority order.
func LLMKinds() []Kind {
	return []Kind{OpenRouter, Groq, Cerebras, Cohere, Pollinations}
}

// SearchKinds lists the web search providers in auto-selection priority order.
func SearchKinds() []Kind {
	return []Kind{Brave, Tavily, Searxng, DuckDuckGo}
}

// ParseKind normalizes a user supplied provider name. Returns empty Kind for
// unknown names.
func ParseKind(name string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case OpenRouter:
		return OpenRouter
	case Groq:
		return Groq
	case Cerebras:
		return Cerebras
	case Cohere:
		return Cohere
	case Pollinations:
		return Pollinations
	case DuckDuckGo:
		return DuckDuckGo
	case Searxng:
		return Searxng
	case Brave:
		return Brave
	case Tavily:
		return Tavily
	default:
		return ""
	}
}

// IsSearch reports whether the kind is a web search provider.
func (k Kind) IsSearch() bool {
	switch k {
	case DuckDuckGo, Searxng, Brave, Tavily:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
