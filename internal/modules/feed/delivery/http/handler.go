package handler

import (
	"net/http"

	feedDto "anoa.com/notifiq/internal/modules/feed/dto"
	feed "anoa.com/notifiq/internal/modules/feed/service"
	"anoa.com/notifiq/pkg/response"
	"anoa.com/notifiq/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FeedHandler struct {
	service   feed.FeedService
	projector *feed.Projector
}

func NewFeedHandler(service feed.FeedService, projector *feed.Projector) *FeedHandler {
	return &FeedHandler{service: service, projector: projector}
}

// ColumnsFor picks the masonry column count from an explicit request or the
// reported viewport width.
func ColumnsFor(q feedDto.FeedQuery) int {
	if q.Columns > 0 {
		return q.Columns
	}
	if q.Width > 0 {
		return feed.ColumnsForWidth(q.Width)
	}
	return feed.MaxColumns
}

func (h *FeedHandler) GetFeed(c *gin.Context) {
	var query feedDto.FeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	notices, err := h.service.List(c.Request.Context(), viewer)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.projector.Project(notices, viewer, feed.FilterFromQuery(query), ColumnsFor(query)))
}

func (h *FeedHandler) TogglePin(c *gin.Context) {
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

	pinned, err := h.service.TogglePin(c.Request.Context(), viewer, noticeID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedDto.PinResponse{NoticeID: noticeID, Pinned: pinned})
}

func (h *FeedHandler) DeleteNotice(c *gin.Context) {
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

	confirmed := c.Query("confirm") == "true"
	if err := h.service.Delete(c.Request.Context(), viewer, noticeID, confirmed); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notice deleted successfully"})
}
