package handler

import (
	"net/http"
	"time"

	rewriteDto "anoa.com/notifiq/internal/modules/rewrite/dto"
	rewrite "anoa.com/notifiq/internal/modules/rewrite/service"
	"anoa.com/notifiq/pkg/ratelimiter"
	"anoa.com/notifiq/pkg/response"
	"anoa.com/notifiq/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type RewriteHandler struct {
	service     rewrite.RewriteService
	redisClient *redis.Client
	window      time.Duration
}

func NewRewriteHandler(service rewrite.RewriteService, redisClient *redis.Client, window time.Duration) *RewriteHandler {
	return &RewriteHandler{service: service, redisClient: redisClient, window: window}
}

func (h *RewriteHandler) Rewrite(c *gin.Context) {
	var req rewriteDto.RewriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := ratelimiter.Enforce(ctx, h.redisClient, viewer.ID.String(), "rewrite", h.window); err != nil {
		response.ResponseError(c, err)
		return
	}

	text, err := h.service.Rewrite(ctx, req.Text, req.Tone)
	if err != nil {
		_ = ratelimiter.Clear(ctx, h.redisClient, viewer.ID.String(), "rewrite")
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, rewriteDto.RewriteResponse{Text: text})
}
