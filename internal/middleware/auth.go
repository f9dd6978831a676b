package middleware

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/notifiq/internal/entity"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/response"
	"github.com/gin-gonic/gin"
)

// Authenticator validates a bearer token and loads its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}

// ViewerResolver merges a user with its stored profile.
type ViewerResolver interface {
	Current(ctx context.Context, user *entity.User) (entity.Viewer, error)
}

type AuthMiddleware struct {
	auth     Authenticator
	resolver ViewerResolver
}

func NewAuthMiddleware(auth Authenticator, resolver ViewerResolver) *AuthMiddleware {
	return &AuthMiddleware{
		auth:     auth,
		resolver: resolver,
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// Browsers cannot set headers on a WebSocket handshake.
	return c.Query("token")
}

// identify loads the user and resolves the viewer from stored role and
// college, never from anything the client claims.
func (m *AuthMiddleware) identify(c *gin.Context, token string) error {
	user, err := m.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		return err
	}

	viewer, err := m.resolver.Current(c.Request.Context(), user)
	if err != nil {
		return err
	}

	response.SetUser(c, user)
	response.SetViewer(c, viewer)
	return nil
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.ResponseError(c, fmt.Errorf("%w: authorization required", apperror.ErrUnauthorized))
			c.Abort()
			return
		}

		if err := m.identify(c, token); err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth resolves the viewer when a valid token is present and lets
// anonymous requests through otherwise.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			_ = m.identify(c, token)
		}
		c.Next()
	}
}

// RequireWriter admits admins and super admins.
func (m *AuthMiddleware) RequireWriter() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, err := response.GetViewer(c)
		if err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		if !viewer.CanWrite() {
			response.ResponseError(c, fmt.Errorf("%w: admin access required", apperror.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, err := response.GetViewer(c)
		if err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		if !viewer.IsSuperAdmin() {
			response.ResponseError(c, fmt.Errorf("%w: super admin access required", apperror.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}
