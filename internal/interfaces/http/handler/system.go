package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printcore/backend/internal/infrastructure/scheduler"
	"github.com/printcore/backend/internal/interfaces/http/dto"
)

// SystemHandler exposes health and operational endpoints
type SystemHandler struct {
	BaseHandler
	poller *scheduler.StatusPoller
}

// NewSystemHandler creates a new system handler. The poller may be nil when
// background reconciliation is disabled.
func NewSystemHandler(poller *scheduler.StatusPoller) *SystemHandler {
	return &SystemHandler{poller: poller}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	admin := rg.Group("/admin")
	{
		admin.POST("/poll", h.TriggerPoll)
	}
}

// Health reports service liveness
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok"})
}

// pollStatsResponse is the outward-facing view of one reconciliation sweep
type pollStatsResponse struct {
	Polled  int `json:"polled"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// TriggerPoll runs one reconciliation sweep on demand
func (h *SystemHandler) TriggerPoll(c *gin.Context) {
	if h.poller == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Status poller is not enabled")
		return
	}

	stats, err := h.poller.RunOnce(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pollStatsResponse{
		Polled:  stats.Polled,
		Updated: stats.Updated,
		Failed:  stats.Failed,
	})
}
