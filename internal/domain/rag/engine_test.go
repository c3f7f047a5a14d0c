package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w9-search/internal/domain/model"
	"w9-search/internal/domain/provider"
	"w9-search/internal/domain/source"
)

type scriptedGateway struct {
	responses []openai.ChatCompletionResponse
	err       error
	calls     int
	selection model.Selection
}

func (g *scriptedGateway) Chat(_ context.Context, _ string, _ []openai.ChatCompletionMessage, _ []openai.Tool) (*openai.ChatCompletionResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	idx := g.calls
	g.calls++
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	resp := g.responses[idx]
	return &resp, nil
}

func (g *scriptedGateway) Select(string) model.Selection {
	if g.selection.Model.ID == "" {
		return model.Selection{Model: model.Model{ID: "test-model"}}
	}
	return g.selection
}

type fakeSearcher struct {
	results []source.SearchResult
	err     error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, _ string, query string) (provider.Kind, []source.SearchResult, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return "", nil, s.err
	}
	return provider.DuckDuckGo, s.results, nil
}

type fakeFetcher struct {
	content string
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

type fakeSourceRepo struct {
	upserts     map[string]int
	stored      []source.Source
	keywordHits []source.Source
	nextID      uint
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{upserts: make(map[string]int)}
}

func (r *fakeSourceRepo) Upsert(_ context.Context, src *source.Source) (*source.Source, error) {
	r.upserts[src.URL]++
	for i := range r.stored {
		if r.stored[i].URL == src.URL {
			r.stored[i].Title = src.Title
			r.stored[i].Content = src.Content
			out := r.stored[i]
			return &out, nil
		}
	}
	r.nextID++
	src.ID = r.nextID
	r.stored = append(r.stored, *src)
	out := *src
	return &out, nil
}

func (r *fakeSourceRepo) SearchByKeywords(_ context.Context, _ []string, _ int) ([]source.Source, error) {
	return r.keywordHits, nil
}

func (r *fakeSourceRepo) Recent(_ context.Context, _ int) ([]source.Source, error) {
	return r.stored, nil
}

type fakePlanner struct {
	queries []string
}

func (p *fakePlanner) Plan(_ context.Context, _, question string) []string {
	if len(p.queries) == 0 {
		return []string{question}
	}
	return p.queries
}

type fakeTools struct {
	results map[string]string
	errs    map[string]error
	calls   []string
}

func (t *fakeTools) Definitions() []openai.Tool {
	return []openai.Tool{{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{Name: "calculate"}}}
}

func (t *fakeTools) Execute(_ context.Context, name, _ string) (string, error) {
	t.calls = append(t.calls, name)
	if err, ok := t.errs[name]; ok {
		return "", err
	}
	return t.results[name], nil
}

type recordingSink struct {
	events []Event
	closed bool
}

func (s *recordingSink) Send(ev Event) bool {
	if s.closed {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSink) types() []EventType {
	out := make([]EventType, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

func answerResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func toolCallResponse(name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{
					{ID: "call-1", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: name, Arguments: args}},
				},
			}},
		},
	}
}

func newTestEngine(gw *scriptedGateway, search *fakeSearcher, repo *fakeSourceRepo, toolset *fakeTools) *Engine {
	return NewEngine(gw, &fakePlanner{}, search, &fakeFetcher{content: "page content"}, repo, nil, toolset)
}

func TestQueryWithoutSearchAnswersDirectly(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{answerResponse("42.")}}
	sink := &recordingSink{}

	engine := newTestEngine(gw, &fakeSearcher{}, newFakeSourceRepo(), &fakeTools{})
	res, err := engine.Query(context.Background(), Input{Text: "what is 6*7", Sink: sink})

	require.NoError(t, err)
	assert.Equal(t, "42.", res.Answer)
	assert.Empty(t, res.Sources)
	assert.Equal(t, EventDone, sink.events[len(sink.events)-1].Type)
}

func TestQueryWithSearchGathersAndPersistsSources(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{answerResponse("Grounded answer [Source 1].")}}
	search := &fakeSearcher{results: []source.SearchResult{
		{Title: "Go docs", URL: "https://go.dev/doc"},
		{Title: "Go blog", URL: "https://go.dev/blog"},
	}}
	repo := newFakeSourceRepo()
	sink := &recordingSink{}

	engine := newTestEngine(gw, search, repo, &fakeTools{})
	res, err := engine.Query(context.Background(), Input{Text: "how do go generics work", SearchEnabled: true, Sink: sink})

	require.NoError(t, err)
	assert.Len(t, res.Sources, 2)
	assert.Equal(t, 1, repo.upserts["https://go.dev/doc"])

	var sourceEvents int
	for _, ev := range sink.events {
		if ev.Type == EventSource {
			sourceEvents++
		}
	}
	assert.Equal(t, 2, sourceEvents)
}

func TestQueryDeduplicatesURLsAcrossSubQueries(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{answerResponse("ok")}}
	search := &fakeSearcher{results: []source.SearchResult{{Title: "Same", URL: "https://example.com/page"}}}
	repo := newFakeSourceRepo()

	engine := NewEngine(gw, &fakePlanner{queries: []string{"q1", "q2", "q3"}}, search, &fakeFetcher{content: "body"}, repo, nil, &fakeTools{})
	res, err := engine.Query(context.Background(), Input{Text: "q", SearchEnabled: true})

	require.NoError(t, err)
	assert.Len(t, res.Sources, 1)
	assert.Equal(t, 1, repo.upserts["https://example.com/page"])
	assert.Len(t, search.queries, 3)
}

func TestQueryWithoutSearchGroundsInStoredSources(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{answerResponse("From the archive [Source 1].")}}
	repo := newFakeSourceRepo()
	repo.keywordHits = []source.Source{
		{ID: 7, Title: "Saved page", URL: "https://example.com/saved", Content: "archived text"},
	}
	sink := &recordingSink{}

	engine := newTestEngine(gw, &fakeSearcher{}, repo, &fakeTools{})
	res, err := engine.Query(context.Background(), Input{Text: "what did we save about this", Sink: sink})

	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "https://example.com/saved", res.Sources[0].URL)

	var sourceEvents int
	for _, ev := range sink.events {
		if ev.Type == EventSource {
			sourceEvents++
		}
	}
	assert.Equal(t, 1, sourceEvents)
}

func TestQuerySearchFailureDegradesToDirectAnswer(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{answerResponse("best effort answer")}}
	search := &fakeSearcher{err: errors.New("all providers failed")}

	engine := newTestEngine(gw, search, newFakeSourceRepo(), &fakeTools{})
	res, err := engine.Query(context.Background(), Input{Text: "q", SearchEnabled: true})

	require.NoError(t, err)
	assert.Equal(t, "best effort answer", res.Answer)
	assert.Empty(t, res.Sources)
}

func TestQueryRunsToolLoop(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{
		toolCallResponse("calculate", `{"expression": "6*7"}`),
		answerResponse("The answer is 42."),
	}}
	toolset := &fakeTools{results: map[string]string{"calculate": "42"}}

	engine := newTestEngine(gw, &fakeSearcher{}, newFakeSourceRepo(), toolset)
	res, err := engine.Query(context.Background(), Input{Text: "what is 6*7"})

	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", res.Answer)
	assert.Equal(t, []string{"calculate"}, toolset.calls)
	assert.Equal(t, 2, gw.calls)
}

func TestQueryToolErrorFedBackToModel(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{
		toolCallResponse("calculate", `{"expression": "1/0"}`),
		answerResponse("I could not compute that."),
	}}
	toolset := &fakeTools{errs: map[string]error{"calculate": errors.New("division by zero")}}

	engine := newTestEngine(gw, &fakeSearcher{}, newFakeSourceRepo(), toolset)
	res, err := engine.Query(context.Background(), Input{Text: "q"})

	require.NoError(t, err)
	assert.Equal(t, "I could not compute that.", res.Answer)
}

func TestQueryContentAlongsideToolCallsIsFinalAnswer(t *testing.T) {
	// Some models narrate while asking for tools; the text wins and the
	// tool calls are ignored.
	resp := toolCallResponse("calculate", `{"expression": "6*7"}`)
	resp.Choices[0].Message.Content = "The answer is 42."
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{resp}}
	toolset := &fakeTools{results: map[string]string{"calculate": "42"}}

	engine := newTestEngine(gw, &fakeSearcher{}, newFakeSourceRepo(), toolset)
	res, err := engine.Query(context.Background(), Input{Text: "what is 6*7"})

	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", res.Answer)
	assert.Equal(t, 1, gw.calls)
	assert.Empty(t, toolset.calls)
}

func TestQueryToolBudgetExhaustionYieldsApology(t *testing.T) {
	// The model keeps asking for tools forever.
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{
		toolCallResponse("calculate", `{}`),
	}}
	toolset := &fakeTools{results: map[string]string{"calculate": "42"}}

	engine := newTestEngine(gw, &fakeSearcher{}, newFakeSourceRepo(), toolset)
	res, err := engine.Query(context.Background(), Input{Text: "q"})

	require.NoError(t, err)
	assert.Equal(t, apologyText, res.Answer)
	// The round budget caps LLM round-trips at three; the last round's tool
	// calls are never executed.
	assert.Equal(t, 3, gw.calls)
	assert.Len(t, toolset.calls, 2)
}

func TestQueryGatewayErrorEmitsErrorThenDone(t *testing.T) {
	gw := &scriptedGateway{err: fmt.Errorf("upstream 500: internal")}
	sink := &recordingSink{}

	engine := newTestEngine(gw, &fakeSearcher{}, newFakeSourceRepo(), &fakeTools{})
	_, err := engine.Query(context.Background(), Input{Text: "q", Sink: sink})

	require.Error(t, err)
	types := sink.types()
	require.GreaterOrEqual(t, len(types), 2)
	assert.Equal(t, EventError, types[len(types)-2])
	assert.Equal(t, EventDone, types[len(types)-1])
}

func TestQueryExactlyOneDoneOnEveryPath(t *testing.T) {
	tests := []struct {
		name string
		gw   *scriptedGateway
	}{
		{name: "success", gw: &scriptedGateway{responses: []openai.ChatCompletionResponse{answerResponse("ok")}}},
		{name: "failure", gw: &scriptedGateway{err: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			engine := newTestEngine(tt.gw, &fakeSearcher{}, newFakeSourceRepo(), &fakeTools{})
			_, _ = engine.Query(context.Background(), Input{Text: "q", Sink: sink})

			var done int
			for _, ev := range sink.events {
				if ev.Type == EventDone {
					done++
				}
			}
			assert.Equal(t, 1, done)
			assert.Equal(t, EventDone, sink.events[len(sink.events)-1].Type)
		})
	}
}

func TestQueryClosedSinkStopsToolRounds(t *testing.T) {
	gw := &scriptedGateway{responses: []openai.ChatCompletionResponse{
		toolCallResponse("calculate", `{}`),
	}}
	toolset := &fakeTools{results: map[string]string{"calculate": "42"}}
	sink := &recordingSink{closed: true}

	engine := newTestEngine(gw, &fakeSearcher{}, newFakeSourceRepo(), toolset)
	res, err := engine.Query(context.Background(), Input{Text: "q", Sink: sink})

	require.NoError(t, err)
	assert.Equal(t, apologyText, res.Answer)
	assert.Empty(t, toolset.calls)
}

func TestQueryUnknownModelEmitsFallbackWarning(t *testing.T) {
	gw := &scriptedGateway{
		responses: []openai.ChatCompletionResponse{answerResponse("ok")},
		selection: model.Selection{Model: model.Model{ID: "default-model"}, Fallback: true},
	}
	sink := &recordingSink{}

	engine := newTestEngine(gw, &fakeSearcher{}, newFakeSourceRepo(), &fakeTools{})
	res, err := engine.Query(context.Background(), Input{Text: "q", Model: "gpt-99", Sink: sink})

	require.NoError(t, err)
	assert.True(t, res.ModelFallback)
	assert.Equal(t, "default-model", res.ModelID)
	require.NotEmpty(t, sink.events)
	assert.Equal(t, EventStatus, sink.events[0].Type)
	assert.Contains(t, sink.events[0].Message, "gpt-99")
}
