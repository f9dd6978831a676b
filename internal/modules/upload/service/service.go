package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"anoa.com/notifiq/internal/entity"
	uploadRepo "anoa.com/notifiq/internal/modules/upload/repository"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/metrics"
	"anoa.com/notifiq/pkg/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// MaxImageSize is the largest image a notice may carry.
	MaxImageSize int64 = 50 << 20

	// OrphanGracePeriod is how long an upload may stay unattached.
	OrphanGracePeriod = 24 * time.Hour

	defaultFolder = "notices"
)

// ImageFile describes a file selected for upload. ContentType is the sniffed
// MIME type.
type ImageFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// ValidateImage rejects anything that is not an image or is too large. It
// never touches the network.
func ValidateImage(f ImageFile) error {
	if !strings.HasPrefix(f.ContentType, "image/") {
		return fmt.Errorf("%w: %s is not an image", apperror.ErrInvalidInput, f.Name)
	}
	if f.Size > MaxImageSize {
		return fmt.Errorf("%w: %s exceeds the 50MB limit", apperror.ErrInvalidInput, f.Name)
	}
	return nil
}

// DetectContentType sniffs the MIME type from the first bytes of r and
// rewinds it.
func DetectContentType(r io.ReadSeeker) (string, error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mtype.String(), nil
}

type UploadService interface {
	Upload(ctx context.Context, userID uuid.UUID, file ImageFile, progress func(percent int)) (entity.NoticeImage, error)
	CleanupOrphans(ctx context.Context) error
}

type uploadService struct {
	repo    uploadRepo.UploadRepository
	storage storage.ImageStorage
	folder  string
	now     func() time.Time
	log     *zap.Logger
}

func NewUploadService(repo uploadRepo.UploadRepository, imageStorage storage.ImageStorage, folder string) UploadService {
	if folder == "" {
		folder = defaultFolder
	}
	return &uploadService{
		repo:    repo,
		storage: imageStorage,
		folder:  folder,
		now:     time.Now,
		log:     logger.WithModule("upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, userID uuid.UUID, file ImageFile, progress func(percent int)) (entity.NoticeImage, error) {
	if err := ValidateImage(file); err != nil {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return entity.NoticeImage{}, err
	}
	if s.storage == nil {
		return entity.NoticeImage{}, fmt.Errorf("%w: image hosting is not configured", apperror.ErrUpstream)
	}

	rc, err := file.Open()
	if err != nil {
		return entity.NoticeImage{}, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}
	defer rc.Close()

	reader := NewProgressReader(rc, file.Size, progress)
	url, err := s.storage.UploadImage(ctx, reader, s.folder, file.Name)
	if err != nil {
		metrics.Uploads.WithLabelValues("failure").Inc()
		return entity.NoticeImage{}, fmt.Errorf("%w: %v", apperror.ErrUpstream, err)
	}
	reader.Finish()

	record := &entity.Upload{
		UserID:      userID,
		URL:         url,
		FileName:    file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// The hosted file is swept with the other orphans only when tracked,
		// so drop it right away.
		if delErr := s.storage.DeleteImage(ctx, url); delErr != nil {
			s.log.Warn("failed to roll back hosted image", zap.String("url", url), zap.Error(delErr))
		}
		return entity.NoticeImage{}, apperror.ClassifyStoreError(err)
	}

	metrics.Uploads.WithLabelValues("success").Inc()
	return entity.NoticeImage{URL: url, Name: file.Name}, nil
}

// CleanupOrphans deletes uploads no notice picked up within the grace period.
func (s *uploadService) CleanupOrphans(ctx context.Context) error {
	orphans, err := s.repo.FindOrphans(ctx, s.now().Add(-OrphanGracePeriod))
	if err != nil {
		return err
	}

	var errs error
	for _, orphan := range orphans {
		if s.storage != nil {
			if err := s.storage.DeleteImage(ctx, orphan.URL); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", orphan.URL, err))
				continue
			}
		}
		if err := s.repo.Delete(ctx, orphan.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete upload %d: %w", orphan.ID, err))
		}
	}

	s.log.Info("orphan upload cleanup finished",
		zap.Int("orphans", len(orphans)),
		zap.Int("failed", len(multierr.Errors(errs))),
	)
	return errs
}

// ForUser binds the service to one uploader.
func ForUser(svc UploadService, userID uuid.UUID) *UserUploader {
	return &UserUploader{svc: svc, userID: userID}
}

type UserUploader struct {
	svc    UploadService
	userID uuid.UUID
}

func (u *UserUploader) Upload(ctx context.Context, file ImageFile, progress func(percent int)) (entity.NoticeImage, error) {
	return u.svc.Upload(ctx, u.userID, file, progress)
}
