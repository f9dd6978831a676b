package handler

import (
	"net/http"

	noticeDto "anoa.com/notifiq/internal/modules/notice/dto"
	notice "anoa.com/notifiq/internal/modules/notice/service"
	"anoa.com/notifiq/pkg/response"
	"anoa.com/notifiq/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NoticeHandler struct {
	service notice.NoticeService
}

func NewNoticeHandler(service notice.NoticeService) *NoticeHandler {
	return &NoticeHandler{service: service}
}

func (h *NoticeHandler) CreateNotice(c *gin.Context) {
	var req noticeDto.NoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	created, err := notice.DraftFromRequest(nil, req).Submit(c.Request.Context(), notice.ForViewer(h.service, viewer))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *NoticeHandler) UpdateNotice(c *gin.Context) {
	noticeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notice id"})
		return
	}

	var req noticeDto.NoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	updated, err := notice.DraftFromRequest(&noticeID, req).Submit(c.Request.Context(), notice.ForViewer(h.service, viewer))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *NoticeHandler) GetNotice(c *gin.Context) {
	noticeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notice id"})
		return
	}

	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	n, err := h.service.Get(c.Request.Context(), viewer, noticeID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, n)
}
