package handler

import (
	"net/http"
	"net/url"

	"anoa.com/notifiq/internal/modules/user/dto"
	"anoa.com/notifiq/internal/modules/user/service"
	"anoa.com/notifiq/pkg/response"
	"anoa.com/notifiq/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const oauthStateCookie = "notifiq_oauth_state"

type AuthHandler struct {
	authService service.AuthService
	frontendURL string
	secure      bool
}

func NewAuthHandler(authService service.AuthService, frontendURL string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		frontendURL: frontendURL,
		secure:      secureCookies,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input dto.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/api/auth", "", h.secure, true)
	c.Redirect(http.StatusTemporaryRedirect, h.authService.GoogleLogin(state))
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		h.redirectError(c, "invalid oauth state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/api/auth", "", h.secure, true)

	code := c.Query("code")
	if code == "" {
		h.redirectError(c, "code not found")
		return
	}

	res, err := h.authService.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		h.redirectError(c, err.Error())
		return
	}

	q := url.Values{}
	q.Set("token", res.AccessToken)
	q.Set("redirect", res.Redirect)
	if res.SearchToken != "" {
		q.Set("search_token", res.SearchToken)
	}
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/auth/google/callback?"+q.Encode())
}

func (h *AuthHandler) redirectError(c *gin.Context, msg string) {
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/login?error="+url.QueryEscape(msg))
}
