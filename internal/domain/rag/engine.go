package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"w9-search/internal/domain/model"
	"w9-search/internal/domain/provider"
	"w9-search/internal/domain/source"
	"w9-search/internal/domain/thread"
	"w9-search/internal/domain/tools"
	"w9-search/internal/infrastructure/logger"
	"w9-search/internal/utils/platformerrors"
)

const (
	// maxToolRounds bounds the tool-calling loop per query.
	maxToolRounds = 3

	// fetchPerQuery caps how many result pages are fetched per sub-query.
	fetchPerQuery = 3

	// retrievalLimit caps keyword matches pulled from storage.
	retrievalLimit = 5

	apologyText = "I'm sorry, I wasn't able to finish working through the tools needed to answer that. Please try rephrasing your question."
)

// Gateway is the slice of the provider gateway the engine depends on.
type Gateway interface {
	Chat(ctx context.Context, modelID string, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*openai.ChatCompletionResponse, error)
	Select(requested string) model.Selection
}

// Searcher runs a web search against a chosen or auto-selected provider.
type Searcher interface {
	Search(ctx context.Context, requestedProvider, query string) (provider.Kind, []source.SearchResult, error)
}

// Fetcher retrieves readable page content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Planner produces search sub-queries for a question.
type Planner interface {
	Plan(ctx context.Context, modelID, question string) []string
}

// ToolExecutor exposes tool definitions and executes calls.
type ToolExecutor interface {
	Definitions() []openai.Tool
	Execute(ctx context.Context, name, argsJSON string) (string, error)
}

// Input describes one query request.
type Input struct {
	Text           string
	SearchEnabled  bool
	ThreadPublicID string
	Model          string
	SearchProvider string
	Sink           Sink
}

// Result is the terminal outcome of a query.
type Result struct {
	Answer        string
	Sources       []source.Source
	ModelID       string
	ModelFallback bool
}

// Engine orchestrates planning, search, retrieval and the tool-calling chat
// loop for a single query.
type Engine struct {
	gateway Gateway
	planner Planner
	search  Searcher
	fetcher Fetcher
	sources source.Repository
	threads thread.Repository
	tools   ToolExecutor
}

// NewEngine wires the engine dependencies.
func NewEngine(
	gateway Gateway,
	planner Planner,
	search Searcher,
	fetcher Fetcher,
	sources source.Repository,
	threads thread.Repository,
	executor ToolExecutor,
) *Engine {
	return &Engine{
		gateway: gateway,
		planner: planner,
		search:  search,
		fetcher: fetcher,
		sources: sources,
		threads: threads,
		tools:   executor,
	}
}

// Query answers a question, optionally grounded in live web search. Progress
// streams to the input sink; exactly one Done event terminates the stream on
// every path, including errors.
func (e *Engine) Query(ctx context.Context, in Input) (*Result, error) {
	log := logger.GetLogger()
	emitter := NewEmitter(in.Sink)
	defer emitter.Done()

	sel := e.gateway.Select(in.Model)
	if sel.Fallback {
		log.Warn().Str("requested", in.Model).Str("selected", sel.Model.ID).Msg("requested model unknown, substituting")
		emitter.Status(fmt.Sprintf("Model %q not available, using %s", in.Model, sel.Model.ID))
	}
	modelID := sel.Model.ID

	var th *thread.Thread
	var history []openai.ChatCompletionMessage
	if in.ThreadPublicID != "" && e.threads != nil {
		found, err := e.threads.FindThread(ctx, in.ThreadPublicID)
		if err != nil {
			emitter.Error("thread not found")
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load thread")
		}
		th = found
		messages, err := e.threads.RecentMessages(ctx, th.ID, thread.HistoryLimit)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load thread history, continuing without it")
		} else {
			history = toChatHistory(messages)
		}
	}

	seen := make(map[string]struct{})
	var entries []contextEntry
	var cited []source.Source
	if in.SearchEnabled {
		entries, cited = e.gatherSources(ctx, emitter, modelID, in, seen)
	}

	// Previously persisted documents ground the answer even when live search
	// is off.
	storedEntries, storedCited := e.retrieveStored(ctx, emitter, in.Text, seen)
	entries = append(entries, storedEntries...)
	cited = append(cited, storedCited...)

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(entries, in.SearchEnabled),
	})
	messages = append(messages, history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: in.Text,
	})

	emitter.Status("Generating answer...")
	answer, err := e.chatWithTools(ctx, emitter, modelID, messages)
	if err != nil {
		emitter.Error(err.Error())
		return nil, err
	}

	emitter.Answer(answer)

	if th != nil {
		e.persistTurn(ctx, th.ID, in.Text, answer)
	}

	return &Result{
		Answer:        answer,
		Sources:       cited,
		ModelID:       modelID,
		ModelFallback: sel.Fallback,
	}, nil
}

// gatherSources plans sub-queries, searches, fetches page content and
// persists sources. Per-query and per-URL failures degrade silently.
func (e *Engine) gatherSources(ctx context.Context, emitter *Emitter, modelID string, in Input, seen map[string]struct{}) ([]contextEntry, []source.Source) {
	log := logger.GetLogger()

	emitter.Status("Planning search...")
	queries := e.planner.Plan(ctx, modelID, in.Text)

	var entries []contextEntry
	var cited []source.Source

	for _, q := range queries {
		if emitter.Closed() {
			break
		}
		emitter.Status(fmt.Sprintf("Searching: %s", q))

		kind, results, err := e.search.Search(ctx, in.SearchProvider, q)
		if err != nil {
			log.Warn().Err(err).Str("query", q).Msg("search failed for sub-query")
			continue
		}
		log.Debug().Str("provider", kind.String()).Str("query", q).Int("results", len(results)).Msg("search completed")

		fetched := 0
		for _, r := range results {
			if fetched >= fetchPerQuery {
				break
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}

			content, err := e.fetcher.Fetch(ctx, r.URL)
			if err != nil {
				log.Debug().Err(err).Str("url", r.URL).Msg("fetch failed, skipping source")
				continue
			}
			fetched++

			persisted, err := e.sources.Upsert(ctx, &source.Source{
				URL:     r.URL,
				Title:   r.Title,
				Content: content,
			})
			if err != nil {
				log.Warn().Err(err).Str("url", r.URL).Msg("failed to persist source")
				persisted = &source.Source{URL: r.URL, Title: r.Title, Content: content}
			}

			entries = append(entries, contextEntry{Title: persisted.Title, URL: persisted.URL, Content: persisted.Content})
			cited = append(cited, *persisted)
			emitter.Source(persisted.Title, persisted.URL)
		}
	}

	if len(entries) > 0 {
		emitter.Status(fmt.Sprintf("Found %d sources", len(entries)))
	}
	return entries, cited
}

// retrieveStored pulls previously persisted documents matching the question
// out of storage. Failures log and return nothing.
func (e *Engine) retrieveStored(ctx context.Context, emitter *Emitter, question string, seen map[string]struct{}) ([]contextEntry, []source.Source) {
	if e.sources == nil {
		return nil, nil
	}

	stored, err := e.sources.SearchByKeywords(ctx, tools.ExtractKeywords(question, 5), retrievalLimit)
	if err != nil {
		log := logger.GetLogger()
		log.Warn().Err(err).Msg("keyword retrieval failed")
		return nil, nil
	}

	var entries []contextEntry
	var cited []source.Source
	for _, s := range stored {
		if _, dup := seen[s.URL]; dup {
			continue
		}
		seen[s.URL] = struct{}{}
		entries = append(entries, contextEntry{Title: s.Title, URL: s.URL, Content: s.Content})
		cited = append(cited, s)
		emitter.Source(s.Title, s.URL)
	}
	return entries, cited
}

// chatWithTools runs the bounded tool-calling loop. Tool execution failures
// are fed back to the model as tool results; exhausting the round budget
// yields a fixed apology rather than an error.
func (e *Engine) chatWithTools(ctx context.Context, emitter *Emitter, modelID string, messages []openai.ChatCompletionMessage) (string, error) {
	log := logger.GetLogger()
	defs := e.tools.Definitions()

	for round := 1; ; round++ {
		resp, err := e.gateway.Chat(ctx, modelID, messages, defs)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
				"model returned no choices", nil, "")
		}

		// Non-empty content is the final answer, even when the model also
		// asked for tools.
		msg := resp.Choices[0].Message
		if answer := strings.TrimSpace(msg.Content); answer != "" {
			return answer, nil
		}
		if len(msg.ToolCalls) == 0 {
			return "", nil
		}

		if round >= maxToolRounds {
			log.Warn().Int("rounds", round).Msg("tool round budget exhausted, answering with apology")
			return apologyText, nil
		}
		if emitter.Closed() {
			log.Debug().Msg("consumer gone, skipping further tool rounds")
			return apologyText, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			emitter.Status(fmt.Sprintf("Running tool: %s", call.Function.Name))

			result, err := e.tools.Execute(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				log.Warn().Err(err).Str("tool", call.Function.Name).Msg("tool execution failed, feeding error back to model")
				result = fmt.Sprintf("Error: %v", err)
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}
}

func (e *Engine) persistTurn(ctx context.Context, threadID uint, question, answer string) {
	log := logger.GetLogger()
	if _, err := e.threads.AppendMessage(ctx, &thread.Message{ThreadID: threadID, Role: thread.RoleUser, Content: question}); err != nil {
		log.Warn().Err(err).Msg("failed to persist user message")
		return
	}
	if _, err := e.threads.AppendMessage(ctx, &thread.Message{ThreadID: threadID, Role: thread.RoleAssistant, Content: answer}); err != nil {
		log.Warn().Err(err).Msg("failed to persist assistant message")
	}
}

func toChatHistory(messages []thread.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == thread.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
