package http

import (
	"net/http"

	statService "anoa.com/notifiq/internal/modules/stat/service"
	"anoa.com/notifiq/pkg/response"
	"github.com/gin-gonic/gin"
)

type StatHandler struct {
	statService statService.StatService
}

func NewStatHandler(statService statService.StatService) *StatHandler {
	return &StatHandler{
		statService: statService,
	}
}

func (h *StatHandler) GetStats(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.statService.GetStats(c.Request.Context(), viewer)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
