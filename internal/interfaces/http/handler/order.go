package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/printcore/backend/internal/application/fulfillment"
	"github.com/printcore/backend/internal/domain/pod"
)

// defaultListLimit bounds status listings when the caller gives no limit
const defaultListLimit = 50

// OrderHandler exposes the print order lifecycle over HTTP
type OrderHandler struct {
	BaseHandler
	service *fulfillment.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service *fulfillment.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.ListByStatus)
		orders.GET("/:id", h.GetByID)
		orders.GET("/:id/status", h.GetStatus)
		orders.POST("/:id/submit", h.Submit)
		orders.POST("/:id/cancel", h.Cancel)
	}
}

// Create opens a pending order against a chosen provider
func (h *OrderHandler) Create(c *gin.Context) {
	var req fulfillment.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// GetByID returns an order with its status history and shipments
func (h *OrderHandler) GetByID(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// ListByStatus returns orders in a given status, newest first
func (h *OrderHandler) ListByStatus(c *gin.Context) {
	status := pod.OrderStatus(c.Query("status"))
	if !status.IsValid() {
		h.BadRequest(c, "Invalid or missing status parameter")
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	orders, err := h.service.ListOrdersByStatus(c.Request.Context(), status, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, len(orders), limit)
}

// submitOrderBody carries the optional submission parameters. The order ID
// comes from the path.
type submitOrderBody struct {
	RenditionID           *uuid.UUID `json:"rendition_id,omitempty"`
	AllowPreflightFailure bool       `json:"allow_preflight_failure,omitempty"`
}

// Submit pushes a pending order to its vendor
func (h *OrderHandler) Submit(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var body submitOrderBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.service.SubmitOrder(c.Request.Context(), fulfillment.SubmitOrderRequest{
		OrderID:               orderID,
		RenditionID:           body.RenditionID,
		AllowPreflightFailure: body.AllowPreflightFailure,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// cancelOrderBody carries the cancellation reason
type cancelOrderBody struct {
	Reason string `json:"reason"`
}

// Cancel asks the vendor to cancel an order. A refusal past the production
// cutoff comes back as a normal response with Cancelled false.
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var body cancelOrderBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.service.CancelOrder(c.Request.Context(), orderID, body.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetStatus refreshes an order's status from the vendor and returns the
// updated order
func (h *OrderHandler) GetStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := h.service.GetOrderStatus(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}
