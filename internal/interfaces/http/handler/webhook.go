package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/printcore/backend/internal/application/reconciliation"
	"github.com/printcore/backend/internal/domain/pod"
)

// signatureHeader carries the vendor's payload signature
const signatureHeader = "X-Webhook-Signature"

// WebhookHandler receives vendor status callbacks
type WebhookHandler struct {
	BaseHandler
	service *reconciliation.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service *reconciliation.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/:provider", h.Receive)
}

// Receive verifies and applies one vendor callback. Duplicate deliveries
// return the current order state so vendors see a 2xx and stop retrying.
func (h *WebhookHandler) Receive(c *gin.Context) {
	provider := pod.ProviderCode(strings.ToUpper(c.Param("provider")))
	if !provider.IsValid() {
		h.NotFound(c, "Unknown provider")
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Unable to read request body")
		return
	}

	result, err := h.service.HandleWebhook(c.Request.Context(), provider,
		c.GetHeader(signatureHeader), body)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
