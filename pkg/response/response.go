package response

import (
	"errors"
	"fmt"
	"net/http"

	"anoa.com/notifiq/internal/entity"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	viewerKey = "viewer"
	userKey   = "user"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// SetUser stores the authenticated identity.
func SetUser(c *gin.Context, user *entity.User) {
	c.Set(userKey, user)
	c.Set("user_id", user.ID.String())
}

// GetUser returns the identity loaded by the auth middleware.
func GetUser(c *gin.Context) (*entity.User, error) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, apperror.ErrUnauthorized
	}
	user, ok := v.(*entity.User)
	if !ok || user == nil {
		return nil, apperror.ErrUnauthorized
	}
	return user, nil
}

// SetViewer stores the resolved viewer for downstream handlers.
func SetViewer(c *gin.Context, viewer entity.Viewer) {
	c.Set(viewerKey, viewer)
}

// GetViewer returns the viewer resolved by the auth middleware.
func GetViewer(c *gin.Context) (entity.Viewer, error) {
	v, exists := c.Get(viewerKey)
	if !exists {
		return entity.Viewer{}, apperror.ErrUnauthorized
	}
	viewer, ok := v.(entity.Viewer)
	if !ok || !viewer.IsAuthenticated() {
		return entity.Viewer{}, apperror.ErrUnauthorized
	}
	return viewer, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	var rateLimitErr *ratelimiter.RateLimitError
	if errors.As(err, &rateLimitErr) {
		c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": rateLimitErr.Message})
		return
	}

	code := apperror.MapErrorToStatus(err)

	if code >= http.StatusInternalServerError {
		logger.WithModule("http").Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
