package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"w9-search/internal/domain/ratelimit"
	"w9-search/internal/infrastructure/logger"
)

// LimitSyncer reconciles counters with provider-reported budgets.
type LimitSyncer interface {
	SyncLimits(ctx context.Context) error
}

// LimitHandler exposes the rate gate state.
type LimitHandler struct {
	gate    *ratelimit.Gate
	syncers []LimitSyncer
}

func NewLimitHandler(gate *ratelimit.Gate, syncers ...LimitSyncer) *LimitHandler {
	return &LimitHandler{gate: gate, syncers: syncers}
}

type counterResponse struct {
	Provider    string    `json:"provider"`
	Window      string    `json:"window"`
	Used        int64     `json:"used"`
	Limit       int64     `json:"limit"`
	Remaining   int64     `json:"remaining"`
	WindowStart time.Time `json:"window_start"`
}

// List returns every tracked counter with expired windows rolled forward.
func (h *LimitHandler) List(c *gin.Context) {
	counters, err := h.gate.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]counterResponse, 0, len(counters))
	for _, counter := range counters {
		out = append(out, counterResponse{
			Provider:    counter.Provider.String(),
			Window:      string(counter.Window),
			Used:        counter.Used,
			Limit:       counter.Limit,
			Remaining:   counter.Remaining(),
			WindowStart: counter.WindowStart,
		})
	}
	c.JSON(http.StatusOK, gin.H{"limits": out})
}

// Sync triggers an immediate limit reconciliation against the providers.
func (h *LimitHandler) Sync(c *gin.Context) {
	log := logger.GetLogger()

	failures := 0
	for _, syncer := range h.syncers {
		if syncer == nil {
			continue
		}
		if err := syncer.SyncLimits(c.Request.Context()); err != nil {
			log.Warn().Err(err).Msg("limit sync failed")
			failures++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"synced":   len(h.syncers) - failures,
		"failures": failures,
	})
}
