package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w9-search/internal/config"
	"w9-search/internal/domain/model"
	"w9-search/internal/domain/provider"
	"w9-search/internal/domain/rag"
	"w9-search/internal/domain/ratelimit"
	"w9-search/internal/domain/source"
	"w9-search/internal/domain/thread"
	"w9-search/internal/interfaces/httpserver/handlers"
	"w9-search/internal/utils/platformerrors"
)

type stubGateway struct {
	answer string
}

func (g *stubGateway) Chat(_ context.Context, _ string, _ []openai.ChatCompletionMessage, _ []openai.Tool) (*openai.ChatCompletionResponse, error) {
	return &openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: g.answer},
		}},
	}, nil
}

func (g *stubGateway) Select(requested string) model.Selection {
	return model.Selection{Model: model.Model{ID: "test-model", Provider: provider.Groq}}
}

type stubPlanner struct{}

func (stubPlanner) Plan(_ context.Context, _ string, question string) []string {
	return []string{question}
}

type stubTools struct{}

func (stubTools) Definitions() []openai.Tool { return nil }

func (stubTools) Execute(_ context.Context, _ string, _ string) (string, error) {
	return "", nil
}

type memThreadRepo struct {
	threads  map[string]*thread.Thread
	messages map[uint][]thread.Message
	nextID   uint
}

func newMemThreadRepo() *memThreadRepo {
	return &memThreadRepo{
		threads:  make(map[string]*thread.Thread),
		messages: make(map[uint][]thread.Message),
	}
}

func (r *memThreadRepo) CreateThread(_ context.Context, t *thread.Thread) (*thread.Thread, error) {
	r.nextID++
	created := &thread.Thread{
		ID:        r.nextID,
		PublicID:  t.PublicID,
		Title:     t.Title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if created.PublicID == "" {
		created.PublicID = "thread-1"
	}
	r.threads[created.PublicID] = created
	return created, nil
}

func (r *memThreadRepo) FindThread(ctx context.Context, publicID string) (*thread.Thread, error) {
	t, ok := r.threads[publicID]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"thread not found: "+publicID, nil, "")
	}
	return t, nil
}

func (r *memThreadRepo) ListThreads(_ context.Context, _ int) ([]thread.Thread, error) {
	out := make([]thread.Thread, 0, len(r.threads))
	for _, t := range r.threads {
		out = append(out, *t)
	}
	return out, nil
}

func (r *memThreadRepo) AppendMessage(_ context.Context, m *thread.Message) (*thread.Message, error) {
	r.messages[m.ThreadID] = append(r.messages[m.ThreadID], *m)
	return m, nil
}

func (r *memThreadRepo) RecentMessages(_ context.Context, threadID uint, _ int) ([]thread.Message, error) {
	return r.messages[threadID], nil
}

type counterStore struct {
	counters []ratelimit.Counter
}

func (s *counterStore) GetCounters(_ context.Context, kind provider.Kind) ([]ratelimit.Counter, error) {
	var out []ratelimit.Counter
	for _, c := range s.counters {
		if c.Provider == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *counterStore) PutCounters(_ context.Context, counters []ratelimit.Counter) error {
	s.counters = counters
	return nil
}

func (s *counterStore) AllCounters(_ context.Context) ([]ratelimit.Counter, error) {
	return s.counters, nil
}

func testServer(t *testing.T) (*HTTPServer, *memThreadRepo) {
	t.Helper()

	threads := newMemThreadRepo()
	engine := rag.NewEngine(&stubGateway{answer: "forty-two"}, stubPlanner{}, nil, nil, nil, threads, stubTools{})

	catalog := model.NewCatalog()
	catalog.Replace([]model.Model{{ID: "test-model", Provider: provider.Groq, DisplayName: "Test Model", Free: true}})

	store := &counterStore{counters: []ratelimit.Counter{
		{Provider: provider.Groq, Window: ratelimit.WindowMinute, Used: 3, Limit: 30, WindowStart: ratelimit.WindowMinute.StartFor(time.Now())},
	}}
	gate := ratelimit.NewGate(store)

	cfg := &config.Config{HTTPPort: 0, ClientRateLimitPerMinute: 1000, ServiceName: "test"}

	server := NewHTTPServer(
		cfg,
		zerolog.Nop(),
		handlers.NewQueryHandler(engine),
		handlers.NewSourceHandler(noopSourceRepo{}),
		handlers.NewModelHandler(catalog),
		handlers.NewThreadHandler(threads),
		handlers.NewLimitHandler(gate),
	)
	return server, threads
}

type noopSourceRepo struct{}

func (noopSourceRepo) Upsert(_ context.Context, src *source.Source) (*source.Source, error) {
	return src, nil
}

func (noopSourceRepo) SearchByKeywords(_ context.Context, _ []string, _ int) ([]source.Source, error) {
	return nil, nil
}

func (noopSourceRepo) Recent(_ context.Context, _ int) ([]source.Source, error) {
	return []source.Source{{ID: 1, URL: "https://example.com", Title: "Example"}}, nil
}

func TestQueryEndpoint(t *testing.T) {
	server, _ := testServer(t)

	body := `{"text":"what is the answer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	server.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "forty-two", resp.Answer)
	assert.Equal(t, "test-model", resp.Model)
}

func TestQueryEndpointValidation(t *testing.T) {
	server, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryStreamEndpoint(t *testing.T) {
	server, _ := testServer(t)

	body := `{"text":"stream it"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	server.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := rec.Body.String()
	assert.Contains(t, events, `"type":"answer"`)
	assert.Contains(t, events, `"type":"done"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(events), `data: {"type":"done"}`),
		"done must be the final event")
}

func TestThreadLifecycle(t *testing.T) {
	server, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/threads", strings.NewReader(`{"title":"research"}`))
	req.Header.Set("Content-Type", "application/json")
	server.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/threads/"+created.ID, nil)
	server.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/threads/missing", nil)
	server.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelsEndpoint(t *testing.T) {
	server, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	server.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test-model")
}

func TestLimitsEndpoint(t *testing.T) {
	server, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/limits", nil)
	server.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Limits []struct {
			Provider  string `json:"provider"`
			Window    string `json:"window"`
			Used      int64  `json:"used"`
			Remaining int64  `json:"remaining"`
		} `json:"limits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Limits, 1)
	assert.Equal(t, "groq", resp.Limits[0].Provider)
	assert.Equal(t, int64(27), resp.Limits[0].Remaining)
}
