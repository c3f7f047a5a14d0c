package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"w9-search/internal/infrastructure/logger"
)

const maxSubQueries = 3

const planPrompt = `Break the user question into at most 3 focused web search queries.
Respond with JSON only, in the exact shape {"queries": ["...", "..."]}.
Do not add commentary.

Question: %s`

// temporalKeywords flag questions whose answer drifts over time. Matching
// queries get the current date appended so search results skew recent.
var temporalKeywords = []string{
	"current", "today", "now", "latest", "recent",
	"price", "president", "ceo", "weather", "news", "stock",
	"2024", "2025",
}

// Completer is the slice of the provider gateway the planner needs.
type Completer interface {
	Chat(ctx context.Context, modelID string, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*openai.ChatCompletionResponse, error)
}

// Planner turns a user question into search sub-queries via the LLM.
// Planning failures degrade silently to a single-query plan.
type Planner struct {
	completer Completer
	now       func() time.Time
}

// New builds a planner on top of a chat completer.
func New(completer Completer) *Planner {
	return &Planner{completer: completer, now: time.Now}
}

// Plan returns between one and three search queries for the question. It
// never returns an empty plan: every failure path falls back to the original
// question, temporally enhanced.
func (p *Planner) Plan(ctx context.Context, modelID, question string) []string {
	log := logger.GetLogger()

	queries := p.planViaLLM(ctx, modelID, question)
	if len(queries) == 0 {
		log.Debug().Str("question", question).Msg("planner degraded to single query")
		queries = []string{question}
	}
	if len(queries) > maxSubQueries {
		queries = queries[:maxSubQueries]
	}

	for i := range queries {
		queries[i] = p.enhanceTemporal(queries[i])
	}
	return queries
}

func (p *Planner) planViaLLM(ctx context.Context, modelID, question string) []string {
	resp, err := p.completer.Chat(ctx, modelID, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(planPrompt, question)},
	}, nil)
	if err != nil {
		log := logger.GetLogger()
		log.Warn().Err(err).Msg("search planning failed, using original question")
		return nil
	}
	if len(resp.Choices) == 0 {
		return nil
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	raw := stripCodeFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log := logger.GetLogger()
		log.Warn().Err(err).Str("raw", raw).Msg("planner returned unparseable JSON")
		return nil
	}

	queries := make([]string, 0, len(parsed.Queries))
	for _, q := range parsed.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

// enhanceTemporal appends the UTC date to queries about time-sensitive facts.
func (p *Planner) enhanceTemporal(query string) string {
	lower := strings.ToLower(query)
	for _, kw := range temporalKeywords {
		if strings.Contains(lower, kw) {
			return fmt.Sprintf("%s as of %s", query, p.now().UTC().Format("January 2, 2006"))
		}
	}
	return query
}

// stripCodeFences removes a surrounding markdown code fence, with or without
// a language tag, so fenced LLM output still parses as JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		// A language tag like "json" occupies the rest of the fence line.
		if firstLine != "" && !strings.HasPrefix(firstLine, "{") && !strings.HasPrefix(firstLine, "[") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
