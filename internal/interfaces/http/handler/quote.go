package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/printcore/backend/internal/application/fulfillment"
	"github.com/printcore/backend/internal/domain/pod"
)

// QuoteHandler exposes provider quoting over HTTP
type QuoteHandler struct {
	BaseHandler
	service *fulfillment.Service
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(service *fulfillment.Service) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// RegisterRoutes registers quote routes
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	{
		quotes.POST("", h.GetAllQuotes)
		quotes.POST("/best", h.GetBestQuote)
	}
}

// bestQuoteRequest augments a quote request with selection preferences
type bestQuoteRequest struct {
	pod.QuoteRequest
	Preference pod.QuotePreference `json:"preference"`
}

// GetAllQuotes fans a quote request out to every capable provider
func (h *QuoteHandler) GetAllQuotes(c *gin.Context) {
	var req pod.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	quotes, err := h.service.GetAllQuotes(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, quotes)
}

// GetBestQuote returns the single winning quote under the caller's preference
func (h *QuoteHandler) GetBestQuote(c *gin.Context) {
	var req bestQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	quote, err := h.service.GetBestQuote(c.Request.Context(), req.QuoteRequest, req.Preference)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, quote)
}
