package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anoa.com/notifiq/internal/entity"
	noticeDto "anoa.com/notifiq/internal/modules/notice/dto"
	noticeRepo "anoa.com/notifiq/internal/modules/notice/repository"
	search "anoa.com/notifiq/internal/modules/search/service"
	uploadRepo "anoa.com/notifiq/internal/modules/upload/repository"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NoticeService interface {
	Create(ctx context.Context, viewer entity.Viewer, req noticeDto.NoticeRequest) (*entity.Notice, error)
	Update(ctx context.Context, viewer entity.Viewer, noticeID uuid.UUID, req noticeDto.NoticeRequest) (*entity.Notice, error)
	Get(ctx context.Context, viewer entity.Viewer, noticeID uuid.UUID) (*entity.Notice, error)
}

type noticeService struct {
	notices noticeRepo.NoticeRepository
	uploads uploadRepo.UploadRepository
	hub     realtime.Hub
	meili   search.MeiliSearchService
	now     func() time.Time
	log     *zap.Logger
}

func NewNoticeService(notices noticeRepo.NoticeRepository, uploads uploadRepo.UploadRepository, hub realtime.Hub, meili search.MeiliSearchService) NoticeService {
	return &noticeService{
		notices: notices,
		uploads: uploads,
		hub:     hub,
		meili:   meili,
		now:     time.Now,
		log:     logger.WithModule("notice"),
	}
}

// ApplyDefaults fills the fields a new notice may leave empty.
func ApplyDefaults(req *noticeDto.NoticeRequest) {
	if req.Category == "" {
		req.Category = entity.CategoryGeneral
	}
	if req.Priority == "" {
		req.Priority = entity.PriorityMedium
	}
	if req.Color == "" {
		req.Color = entity.ColorDefault
	}
}

// Validate checks req after defaults, without touching the network.
func Validate(req noticeDto.NoticeRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: Title is required", apperror.ErrInvalidInput)
	}
	if err := validator.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err))
	}
	return nil
}

func (s *noticeService) Create(ctx context.Context, viewer entity.Viewer, req noticeDto.NoticeRequest) (*entity.Notice, error) {
	if !viewer.CanWrite() {
		return nil, apperror.ErrForbidden
	}
	if !viewer.HasCollege() {
		return nil, fmt.Errorf("%w: join a college before posting", apperror.ErrBadRequest)
	}

	ApplyDefaults(&req)
	if err := Validate(req); err != nil {
		return nil, err
	}

	notice := &entity.Notice{
		CollegeID:  *viewer.CollegeID,
		AuthorID:   viewer.ID,
		AuthorName: authorName(viewer),
	}
	applyFields(notice, req)

	if err := s.notices.Create(ctx, notice); err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}

	s.afterWrite(ctx, notice)
	return notice, nil
}

// Update overwrites every editable field. College, author and creation time
// are kept from the stored notice.
func (s *noticeService) Update(ctx context.Context, viewer entity.Viewer, noticeID uuid.UUID, req noticeDto.NoticeRequest) (*entity.Notice, error) {
	existing, err := s.notices.FindByID(ctx, noticeID)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	if !viewer.CanManageCollege(existing.CollegeID) {
		return nil, apperror.ErrForbidden
	}

	ApplyDefaults(&req)
	if err := Validate(req); err != nil {
		return nil, err
	}

	applyFields(existing, req)
	existing.UpdatedAt = s.now()

	if err := s.notices.Overwrite(ctx, existing); err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}

	s.afterWrite(ctx, existing)
	return existing, nil
}

func (s *noticeService) Get(ctx context.Context, viewer entity.Viewer, noticeID uuid.UUID) (*entity.Notice, error) {
	notice, err := s.notices.FindByID(ctx, noticeID)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	if viewer.IsSuperAdmin() {
		return notice, nil
	}
	if !viewer.HasCollege() || notice.CollegeID != *viewer.CollegeID {
		return nil, apperror.ErrNotFound
	}
	return notice, nil
}

func (s *noticeService) afterWrite(ctx context.Context, notice *entity.Notice) {
	urls := make([]string, 0, len(notice.Images))
	for _, img := range notice.Images {
		urls = append(urls, img.URL)
	}
	if err := s.uploads.SyncNotice(ctx, notice.ID, urls); err != nil {
		s.log.Warn("failed to sync notice uploads", zap.String("notice_id", notice.ID.String()), zap.Error(err))
	}

	if err := s.hub.Publish(ctx, realtime.CollegeNoticesTopic(notice.CollegeID)); err != nil {
		s.log.Warn("failed to publish notice change", zap.Error(err))
	}

	if s.meili != nil {
		doc := *notice
		go func() {
			if err := s.meili.IndexNotice(&doc); err != nil {
				s.log.Warn("failed to index notice", zap.String("notice_id", doc.ID.String()), zap.Error(err))
			}
		}()
	}
}

func applyFields(notice *entity.Notice, req noticeDto.NoticeRequest) {
	notice.Title = strings.TrimSpace(req.Title)
	notice.Description = req.Description
	notice.Category = req.Category
	notice.Priority = req.Priority
	notice.Color = req.Color
	notice.ExpiryDate = req.ExpiryDate

	links := make([]entity.NoticeLink, 0, len(req.Links))
	for _, l := range req.Links {
		links = append(links, entity.NoticeLink{URL: l.URL, Name: l.Name})
	}
	notice.Links = links

	images := make([]entity.NoticeImage, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, entity.NoticeImage{URL: img.URL, Name: img.Name})
	}
	notice.Images = images
}

func authorName(viewer entity.Viewer) string {
	if viewer.DisplayName != "" {
		return viewer.DisplayName
	}
	return viewer.Email
}
