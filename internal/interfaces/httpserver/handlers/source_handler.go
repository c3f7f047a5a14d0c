package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	domainsource "w9-search/internal/domain/source"
)

// SourceHandler exposes the persisted source store.
type SourceHandler struct {
	sources domainsource.Repository
}

func NewSourceHandler(sources domainsource.Repository) *SourceHandler {
	return &SourceHandler{sources: sources}
}

type sourceResponse struct {
	ID        uint      `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns the most recently stored sources.
func (h *SourceHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sources, err := h.sources.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]sourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, sourceResponse{
			ID:        s.ID,
			URL:       s.URL,
			Title:     s.Title,
			Content:   s.Content,
			CreatedAt: s.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sources": out})
}
