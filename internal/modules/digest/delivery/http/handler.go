package handler

import (
	"net/http"

	digest "anoa.com/notifiq/internal/modules/digest/service"
	"anoa.com/notifiq/pkg/response"
	"github.com/gin-gonic/gin"
)

type DigestHandler struct {
	service digest.DigestService
}

func NewDigestHandler(service digest.DigestService) *DigestHandler {
	return &DigestHandler{service: service}
}

func (h *DigestHandler) GetNotifications(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	d, err := h.service.Get(c.Request.Context(), viewer)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

func (h *DigestHandler) MarkAllAsRead(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.MarkAllAsRead(c.Request.Context(), viewer); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all notifications marked as read"})
}
