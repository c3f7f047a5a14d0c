package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"w9-search/internal/domain/rag"
	"w9-search/internal/infrastructure/logger"
	"w9-search/internal/interfaces/httpserver/middlewares"
	"w9-search/internal/utils/platformerrors"
)

// QueryRequest is the body of POST /api/query and /api/query/stream.
type QueryRequest struct {
	Text           string `json:"text" binding:"required"`
	SearchEnabled  bool   `json:"search_enabled"`
	ThreadID       string `json:"thread_id"`
	Model          string `json:"model"`
	SearchProvider string `json:"search_provider"`
}

type querySource struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// QueryResponse is the terminal answer for the non-streaming endpoint.
type QueryResponse struct {
	Answer        string        `json:"answer"`
	Sources       []querySource `json:"sources"`
	Model         string        `json:"model"`
	ModelFallback bool          `json:"model_fallback,omitempty"`
}

// QueryHandler serves the question answering endpoints.
type QueryHandler struct {
	engine *rag.Engine
}

func NewQueryHandler(engine *rag.Engine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

// Query answers synchronously, without progress events.
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(platformerrors.ErrorTypeValidation),
			"message": err.Error(),
		})
		return
	}

	result, err := h.engine.Query(c.Request.Context(), rag.Input{
		Text:           strings.TrimSpace(req.Text),
		SearchEnabled:  req.SearchEnabled,
		ThreadPublicID: req.ThreadID,
		Model:          req.Model,
		SearchProvider: req.SearchProvider,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := QueryResponse{
		Answer:        result.Answer,
		Sources:       make([]querySource, 0, len(result.Sources)),
		Model:         result.ModelID,
		ModelFallback: result.ModelFallback,
	}
	for _, s := range result.Sources {
		resp.Sources = append(resp.Sources, querySource{ID: s.ID, Title: s.Title, URL: s.URL})
	}
	c.JSON(http.StatusOK, resp)
}

// QueryStream answers over SSE. Progress, sources and the answer arrive as
// events; the stream always terminates with a done event. A client that
// disconnects mid-query stops delivery but not persistence.
func (h *QueryHandler) QueryStream(c *gin.Context) {
	log := logger.GetLogger()

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(platformerrors.ErrorTypeValidation),
			"message": err.Error(),
		})
		return
	}

	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   string(platformerrors.ErrorTypeInternal),
			"message": "streaming unsupported",
		})
		return
	}

	sink := rag.NewChannelSink(100)

	// The engine keeps running after a disconnect so gathered sources still
	// persist; only event delivery stops.
	queryCtx := context.WithoutCancel(c.Request.Context())
	go func() {
		defer sink.Close()
		if _, err := h.engine.Query(queryCtx, rag.Input{
			Text:           strings.TrimSpace(req.Text),
			SearchEnabled:  req.SearchEnabled,
			ThreadPublicID: req.ThreadID,
			Model:          req.Model,
			SearchProvider: req.SearchProvider,
			Sink:           sink,
		}); err != nil {
			log.Warn().Err(err).Msg("streamed query finished with error")
		}
	}()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			sink.Close()
			return
		case ev, open := <-sink.Events():
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := c.Writer.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
				sink.Close()
				return
			}
			flusher.Flush()
			if ev.Type == rag.EventDone {
				return
			}
		}
	}
}
