package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ImageStorage defines contract for image storage provider (Cloudinary implementation).
type ImageStorage interface {
	// UploadImage uploads image from reader and returns the secure URL.
	// folder is optional logical folder in storage (e.g. "notices").
	UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error)
	// DeleteImage deletes image from storage using its URL.
	DeleteImage(ctx context.Context, fileURL string) error
}

// CloudinarySettings configure the client. URL takes precedence; the
// cloud name overrides whatever the URL carries.
type CloudinarySettings struct {
	URL       string
	CloudName string
	APIKey    string
	APISecret string
}

type cloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStorage creates Cloudinary-backed implementation of ImageStorage.
// With an empty settings value the SDK reads CLOUDINARY_URL from the environment.
func NewCloudinaryStorage(cfg CloudinarySettings) (ImageStorage, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	switch {
	case cfg.URL != "":
		cld, err = cloudinary.NewFromURL(cfg.URL)
	case cfg.CloudName != "" && cfg.APIKey != "":
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	default:
		cld, err = cloudinary.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	cld.Config.URL.Secure = true

	if cfg.CloudName != "" {
		cld.Config.Cloud.CloudName = cfg.CloudName
	}

	return &cloudinaryStorage{cld: cld}, nil
}

// UploadImage uploads an image to Cloudinary and returns the secure URL.
func (s *cloudinaryStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	if s == nil || s.cld == nil {
		return "", fmt.Errorf("cloudinary storage is not initialized")
	}

	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	publicID := fmt.Sprintf("%d-%s", time.Now().UnixNano(), base)

	params := uploader.UploadParams{
		Folder:         folder,
		UseFilename:    api.Bool(true),
		UniqueFilename: api.Bool(true),
		PublicID:       publicID,
		Overwrite:      api.Bool(false),
	}

	// Animated gifs keep their format, everything else is served as webp.
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".webp":
		params.Format = "webp"
		params.Transformation = "q_auto"
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload image to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", resp.Error.Message)
	}

	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload succeeded but secure URL is empty")
	}

	return resp.SecureURL, nil
}

// DeleteImage deletes image from Cloudinary.
func (s *cloudinaryStorage) DeleteImage(ctx context.Context, fileURL string) error {
	if s == nil || s.cld == nil {
		return fmt.Errorf("cloudinary storage is not initialized")
	}

	publicID := ExtractPublicID(fileURL)
	if publicID == "" {
		return fmt.Errorf("could not extract public ID from URL: %s", fileURL)
	}

	params := uploader.DestroyParams{
		PublicID:   publicID,
		Invalidate: api.Bool(true),
	}

	resp, err := s.cld.Upload.Destroy(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to delete image from cloudinary: %w", err)
	}

	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy api returned result: %s", resp.Result)
	}

	return nil
}

// ExtractPublicID attempts to extract the public ID from a Cloudinary URL.
// Example: https://res.cloudinary.com/demo/image/upload/v123456789/folder/sample.jpg -> folder/sample
func ExtractPublicID(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(u.Path, "/")
	uploadIndex := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIndex = i
			break
		}
	}

	if uploadIndex == -1 || uploadIndex+1 >= len(parts) {
		return ""
	}

	relevantParts := parts[uploadIndex+1:]

	if len(relevantParts) > 1 && isVersionSegment(relevantParts[0]) {
		relevantParts = relevantParts[1:]
	}

	publicIDWithExt := strings.Join(relevantParts, "/")
	if publicIDWithExt == "" {
		return ""
	}

	ext := filepath.Ext(publicIDWithExt)
	return strings.TrimSuffix(publicIDWithExt, ext)
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
