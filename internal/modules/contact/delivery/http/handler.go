package handler

import (
	"net/http"

	contactDto "anoa.com/notifiq/internal/modules/contact/dto"
	contact "anoa.com/notifiq/internal/modules/contact/service"
	"anoa.com/notifiq/pkg/response"
	"anoa.com/notifiq/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	service contact.ContactService
}

func NewContactHandler(service contact.ContactService) *ContactHandler {
	return &ContactHandler{service: service}
}

func (h *ContactHandler) Send(c *gin.Context) {
	var input contactDto.ContactRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.service.Send(c.Request.Context(), c.ClientIP(), input); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message sent successfully"})
}
