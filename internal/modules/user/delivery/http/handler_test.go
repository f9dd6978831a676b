package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"anoa.com/notifiq/internal/entity"
	"anoa.com/notifiq/internal/modules/user/dto"
	"anoa.com/notifiq/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	lastState string
}

func (f *fakeAuth) Register(_ context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	return &dto.AuthResponse{AccessToken: "t", TokenType: "Bearer", Viewer: entity.Viewer{Email: input.Email}}, nil
}

func (f *fakeAuth) Login(_ context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	if input.Password != "secret-pass" {
		return nil, apperror.ErrUnauthorized
	}
	return &dto.AuthResponse{AccessToken: "t", TokenType: "Bearer"}, nil
}

func (f *fakeAuth) GoogleLogin(state string) string {
	f.lastState = state
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (f *fakeAuth) GoogleCallback(_ context.Context, code string) (*dto.AuthResponse, error) {
	return &dto.AuthResponse{AccessToken: "tok-" + code, Redirect: "/viewer"}, nil
}

func (f *fakeAuth) Authenticate(context.Context, string) (*entity.User, error) {
	return &entity.User{ID: uuid.New()}, nil
}

func newRouter(auth *fakeAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(auth, "http://app.test", false)
	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.GET("/api/auth/google/login", h.GoogleLogin)
	r.GET("/api/auth/google/callback", h.GoogleCallback)
	return r
}

func TestRegisterValidatesInput(t *testing.T) {
	router := newRouter(&fakeAuth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"not-an-email","password":"short"}`)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"a@north.edu","password":"long enough"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	var res dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "a@north.edu", res.Viewer.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router := newRouter(&fakeAuth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"a@north.edu","password":"nope"}`)))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGoogleRoundTripChecksState(t *testing.T) {
	auth := &fakeAuth{}
	router := newRouter(auth)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	require.NotEmpty(t, auth.lastState)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state="+auth.lastState, nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/google/callback", loc.Path)
	require.Equal(t, "tok-abc", loc.Query().Get("token"))
	require.Equal(t, "/viewer", loc.Query().Get("redirect"))

	req = httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state=forged", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Contains(t, w.Header().Get("Location"), "/login?error=")
}
