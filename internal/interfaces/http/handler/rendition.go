package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apprendition "github.com/printcore/backend/internal/application/rendition"
)

// RenditionHandler exposes the rendition pipeline over HTTP
type RenditionHandler struct {
	BaseHandler
	service *apprendition.Service
}

// NewRenditionHandler creates a new rendition handler
func NewRenditionHandler(service *apprendition.Service) *RenditionHandler {
	return &RenditionHandler{service: service}
}

// RegisterRoutes registers rendition routes
func (h *RenditionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	renditions := rg.Group("/renditions")
	{
		renditions.POST("", h.Request)
		renditions.GET("/:id", h.GetByID)
		renditions.POST("/:id/cancel", h.Cancel)
	}
	rg.GET("/books/:bookId/rendition", h.GetLatestForBook)
}

// Request starts a fresh rendition of a book revision
func (h *RenditionHandler) Request(c *gin.Context) {
	var req apprendition.RequestRenditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.RequestRendition(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID returns a rendition with its jobs and preflight verdict
func (h *RenditionHandler) GetByID(c *gin.Context) {
	renditionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rendition ID format")
		return
	}

	result, err := h.service.GetRendition(c.Request.Context(), renditionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetLatestForBook returns the most recent rendition of a book
func (h *RenditionHandler) GetLatestForBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("bookId"))
	if err != nil {
		h.BadRequest(c, "Invalid book ID format")
		return
	}

	result, err := h.service.GetLatestForBook(c.Request.Context(), bookID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel discards a rendition's outstanding jobs
func (h *RenditionHandler) Cancel(c *gin.Context) {
	renditionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rendition ID format")
		return
	}

	result, err := h.service.CancelRendition(c.Request.Context(), renditionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
