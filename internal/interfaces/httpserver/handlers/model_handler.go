package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"w9-search/internal/domain/model"
)

// ModelHandler exposes the synced model catalog.
type ModelHandler struct {
	catalog *model.Catalog
}

func NewModelHandler(catalog *model.Catalog) *ModelHandler {
	return &ModelHandler{catalog: catalog}
}

type modelResponse struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	DisplayName string    `json:"display_name"`
	ContextSize int       `json:"context_size,omitempty"`
	Free        bool      `json:"free"`
	SyncedAt    time.Time `json:"synced_at"`
}

// List returns every model currently in the catalog.
func (h *ModelHandler) List(c *gin.Context) {
	models := h.catalog.Models()

	out := make([]modelResponse, 0, len(models))
	for _, m := range models {
		out = append(out, modelResponse{
			ID:          m.ID,
			Provider:    m.Provider.String(),
			DisplayName: m.DisplayName,
			ContextSize: m.ContextSize,
			Free:        m.Free,
			SyncedAt:    m.SyncedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}
