// Package client talks to the notice board HTTP API. It satisfies the draft
// collaborators so a terminal can drive the same authoring workflow as the
// web client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"anoa.com/notifiq/internal/entity"
	noticeDto "anoa.com/notifiq/internal/modules/notice/dto"
	rewriteDto "anoa.com/notifiq/internal/modules/rewrite/dto"
	uploadDto "anoa.com/notifiq/internal/modules/upload/dto"
	userDto "anoa.com/notifiq/internal/modules/user/dto"
	upload "anoa.com/notifiq/internal/modules/upload/service"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/ratelimiter"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	return c.token
}

// Login exchanges credentials for a bearer token and keeps it.
func (c *Client) Login(ctx context.Context, email, password string) (*userDto.AuthResponse, error) {
	var out userDto.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", userDto.LoginInput{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.token = out.AccessToken
	return &out, nil
}

func (c *Client) GetNotice(ctx context.Context, id uuid.UUID) (*entity.Notice, error) {
	var out entity.Notice
	if err := c.doJSON(ctx, http.MethodGet, "/api/notices/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Create(ctx context.Context, req noticeDto.NoticeRequest) (*entity.Notice, error) {
	var out entity.Notice
	if err := c.doJSON(ctx, http.MethodPost, "/api/notices", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, noticeID uuid.UUID, req noticeDto.NoticeRequest) (*entity.Notice, error) {
	var out entity.Notice
	if err := c.doJSON(ctx, http.MethodPut, "/api/notices/"+noticeID.String(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Rewrite(ctx context.Context, text, tone string) (string, error) {
	var out rewriteDto.RewriteResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/rewrite", rewriteDto.RewriteRequest{Text: text, Tone: tone}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// Upload streams one image as multipart form data. progress follows the bytes
// handed to the transport and reaches 100 only once the server accepted the
// file.
func (c *Client) Upload(ctx context.Context, file upload.ImageFile, progress func(percent int)) (entity.NoticeImage, error) {
	src, err := file.Open()
	if err != nil {
		return entity.NoticeImage{}, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	reader := upload.NewProgressReader(src, file.Size, progress)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
		header.Set("Content-Type", file.ContentType)
		part, err := form.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, reader)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/uploads", pr)
	if err != nil {
		_ = pr.Close()
		return entity.NoticeImage{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var out uploadDto.UploadResponse
	if err := c.do(req, &out); err != nil {
		_ = pr.Close()
		return entity.NoticeImage{}, err
	}
	reader.Finish()
	return entity.NoticeImage{URL: out.URL, Name: out.Name}, nil
}

// ImageFromPath describes a local file for Upload, sniffing its MIME type
// from content.
func ImageFromPath(path string) (upload.ImageFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return upload.ImageFile{}, err
	}
	if info.IsDir() {
		return upload.ImageFile{}, fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return upload.ImageFile{}, fmt.Errorf("detect type of %s: %w", path, err)
	}

	return upload.ImageFile{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: mtype.String(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns an {"error": msg} body back into the sentinel the server
// mapped to its status code.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", apperror.ErrInvalidInput, msg)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", apperror.ErrUnauthorized, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", apperror.ErrForbidden, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperror.ErrNotFound, msg)
	case http.StatusTooManyRequests:
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &ratelimiter.RateLimitError{Message: msg, RetryAfter: time.Duration(secs) * time.Second}
	case http.StatusBadGateway:
		return fmt.Errorf("%w: %s", apperror.ErrUpstream, msg)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", apperror.ErrStoreMisconfigured, msg)
	default:
		return fmt.Errorf("%w: %s", apperror.ErrInternal, msg)
	}
}
