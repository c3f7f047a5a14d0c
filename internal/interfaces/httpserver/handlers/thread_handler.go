package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	domainthread "w9-search/internal/domain/thread"
	"w9-search/internal/utils/platformerrors"
)

// ThreadHandler exposes conversation threads.
type ThreadHandler struct {
	threads domainthread.Repository
}

func NewThreadHandler(threads domainthread.Repository) *ThreadHandler {
	return &ThreadHandler{threads: threads}
}

type createThreadRequest struct {
	Title string `json:"title"`
}

type threadResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toThreadResponse(t *domainthread.Thread) threadResponse {
	return threadResponse{
		ID:        t.PublicID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// Create starts a new thread.
func (h *ThreadHandler) Create(c *gin.Context) {
	var req createThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(platformerrors.ErrorTypeValidation),
			"message": err.Error(),
		})
		return
	}

	created, err := h.threads.CreateThread(c.Request.Context(), &domainthread.Thread{Title: req.Title})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toThreadResponse(created))
}

// List returns threads ordered by last activity.
func (h *ThreadHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	threads, err := h.threads.ListThreads(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]threadResponse, 0, len(threads))
	for i := range threads {
		out = append(out, toThreadResponse(&threads[i]))
	}
	c.JSON(http.StatusOK, gin.H{"threads": out})
}

// Get returns one thread with its recent messages.
func (h *ThreadHandler) Get(c *gin.Context) {
	publicID := c.Param("id")

	th, err := h.threads.FindThread(c.Request.Context(), publicID)
	if err != nil {
		respondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	messages, err := h.threads.RecentMessages(c.Request.Context(), th.ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"thread":   toThreadResponse(th),
		"messages": out,
	})
}
