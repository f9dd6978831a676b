package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"anoa.com/notifiq/internal/entity"
	noticeDto "anoa.com/notifiq/internal/modules/notice/dto"
	notice "anoa.com/notifiq/internal/modules/notice/service"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestImageFromPathSniffsContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poster.bin")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	img, err := ImageFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "poster.bin", img.Name)
	require.Equal(t, "image/png", img.ContentType)
	require.Equal(t, int64(len(pngHeader)), img.Size)

	_, err = ImageFromPath(dir)
	require.Error(t, err)
}

func TestUploadStreamsMultipartAndReportsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/uploads", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, pngHeader, data)
		require.Equal(t, "poster.png", header.Filename)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"url":"https://img.example/poster.png","name":"poster.png"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "poster.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))
	file, err := ImageFromPath(path)
	require.NoError(t, err)

	var reported []int
	c := New(srv.URL, "tok", nil)
	img, err := c.Upload(context.Background(), file, func(p int) { reported = append(reported, p) })
	require.NoError(t, err)
	require.Equal(t, entity.NoticeImage{URL: "https://img.example/poster.png", Name: "poster.png"}, img)
	require.NotEmpty(t, reported)
	require.Equal(t, 100, reported[len(reported)-1])
	for i := 1; i < len(reported); i++ {
		require.Greater(t, reported[i], reported[i-1])
	}
}

func TestErrorsMapBackToSentinels(t *testing.T) {
	status := http.StatusForbidden
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "42")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	ctx := context.Background()

	_, err := c.Rewrite(ctx, "text", "Casual")
	require.ErrorIs(t, err, apperror.ErrForbidden)
	require.Contains(t, err.Error(), "nope")

	status = http.StatusBadGateway
	_, err = c.Rewrite(ctx, "text", "Casual")
	require.ErrorIs(t, err, apperror.ErrUpstream)

	status = http.StatusTooManyRequests
	_, err = c.Rewrite(ctx, "text", "Casual")
	var rl *ratelimiter.RateLimitError
	require.True(t, errors.As(err, &rl))
	require.Equal(t, 42*time.Second, rl.RetryAfter)
}

func TestDraftSubmitsThroughClient(t *testing.T) {
	var got noticeDto.NoticeRequest
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
			_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/rewrite":
			require.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"text":"**Exams** start Monday."}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/notices":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(entity.Notice{ID: id, Title: got.Title})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "", nil)
	ctx := context.Background()
	_, err := c.Login(ctx, "admin@north.edu", "secret")
	require.NoError(t, err)
	require.Equal(t, "fresh", c.Token())

	d := notice.NewDraft(nil)
	d.Title = "Exam Schedule"
	d.Description = "exams start monday"
	require.NoError(t, d.Rewrite(ctx, c, "Concise"))
	require.True(t, strings.HasPrefix(d.Description, "**Exams**"))

	d.SetPendingLink("https://north.edu/exams", "")
	created, err := d.Submit(ctx, c)
	require.NoError(t, err)
	require.Equal(t, id, created.ID)
	require.Len(t, got.Links, 1)
	require.Equal(t, "https://north.edu/exams", got.Links[0].Name)
}
