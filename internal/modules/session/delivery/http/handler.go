package handler

import (
	"net/http"

	"anoa.com/notifiq/internal/entity"
	session "anoa.com/notifiq/internal/modules/session/service"
	"anoa.com/notifiq/pkg/response"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Route answers whether the caller may open a client route. It runs behind
// optional auth, so anonymous callers get the signed-out decision.
func (h *SessionHandler) Route(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		viewer = entity.Viewer{}
	}

	path := c.DefaultQuery("path", "/")
	decision := session.Guard(path, viewer)
	c.JSON(http.StatusOK, gin.H{
		"path":     path,
		"allowed":  decision.Allowed,
		"redirect": decision.Redirect,
		"home":     session.HomeRoute(viewer),
	})
}
