package service

import (
	"context"
	"fmt"

	"anoa.com/notifiq/internal/entity"
	noticeRepo "anoa.com/notifiq/internal/modules/notice/repository"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	search "anoa.com/notifiq/internal/modules/search/service"
	uploadRepo "anoa.com/notifiq/internal/modules/upload/repository"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FeedService interface {
	// Watch opens the live notice list of the viewer's college. It returns
	// nil without subscribing when the viewer has no college.
	Watch(ctx context.Context, viewer entity.Viewer) (*realtime.Live[[]entity.Notice], error)
	List(ctx context.Context, viewer entity.Viewer) ([]entity.Notice, error)
	TogglePin(ctx context.Context, viewer entity.Viewer, noticeID uuid.UUID) (bool, error)
	Delete(ctx context.Context, viewer entity.Viewer, noticeID uuid.UUID, confirmed bool) error
}

type feedService struct {
	notices  noticeRepo.NoticeRepository
	profiles profileRepo.ProfileRepository
	uploads  uploadRepo.UploadRepository
	hub      realtime.Hub
	images   storage.ImageStorage
	meili    search.MeiliSearchService
	log      *zap.Logger
}

func NewFeedService(notices noticeRepo.NoticeRepository, profiles profileRepo.ProfileRepository, uploads uploadRepo.UploadRepository, hub realtime.Hub, images storage.ImageStorage, meili search.MeiliSearchService) FeedService {
	return &feedService{
		notices:  notices,
		profiles: profiles,
		uploads:  uploads,
		hub:      hub,
		images:   images,
		meili:    meili,
		log:      logger.WithModule("feed"),
	}
}

func (s *feedService) Watch(ctx context.Context, viewer entity.Viewer) (*realtime.Live[[]entity.Notice], error) {
	if !viewer.HasCollege() {
		return nil, nil
	}
	collegeID := *viewer.CollegeID
	return realtime.Watch(ctx, s.hub, realtime.CollegeNoticesTopic(collegeID), func(ctx context.Context) ([]entity.Notice, error) {
		notices, err := s.notices.ListByCollege(ctx, collegeID)
		return notices, apperror.ClassifyStoreError(err)
	})
}

func (s *feedService) List(ctx context.Context, viewer entity.Viewer) ([]entity.Notice, error) {
	if !viewer.HasCollege() {
		return []entity.Notice{}, nil
	}
	notices, err := s.notices.ListByCollege(ctx, *viewer.CollegeID)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	return notices, nil
}

// TogglePin flips the notice in the viewer's saved set and reports the new
// membership. The write itself is a single insert-or-ignore or delete.
func (s *feedService) TogglePin(ctx context.Context, viewer entity.Viewer, noticeID uuid.UUID) (bool, error) {
	if !viewer.IsAuthenticated() {
		return false, apperror.ErrUnauthorized
	}

	notice, err := s.notices.FindByID(ctx, noticeID)
	if err != nil {
		return false, apperror.ClassifyStoreError(err)
	}
	if !viewer.HasCollege() || notice.CollegeID != *viewer.CollegeID {
		return false, apperror.ErrNotFound
	}

	pinned, err := s.profiles.IsPinned(ctx, viewer.ID, noticeID)
	if err != nil {
		return false, apperror.ClassifyStoreError(err)
	}

	if pinned {
		err = s.profiles.Unpin(ctx, viewer.ID, noticeID)
	} else {
		err = s.profiles.Pin(ctx, viewer.ID, noticeID)
	}
	if err != nil {
		return pinned, apperror.ClassifyStoreError(err)
	}

	if err := s.hub.Publish(ctx, realtime.ProfileTopic(viewer.ID)); err != nil {
		s.log.Warn("failed to publish profile change", zap.Error(err))
	}
	return !pinned, nil
}

// Delete removes a notice for good. The caller must have confirmed.
func (s *feedService) Delete(ctx context.Context, viewer entity.Viewer, noticeID uuid.UUID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("%w: deletion must be confirmed", apperror.ErrBadRequest)
	}

	notice, err := s.notices.FindByID(ctx, noticeID)
	if err != nil {
		return apperror.ClassifyStoreError(err)
	}
	if !viewer.CanManageCollege(notice.CollegeID) {
		return apperror.ErrForbidden
	}

	uploads, err := s.uploads.FindByNotice(ctx, noticeID)
	if err != nil {
		s.log.Warn("failed to load notice uploads", zap.String("notice_id", noticeID.String()), zap.Error(err))
	}

	if err := s.notices.Delete(ctx, noticeID); err != nil {
		return apperror.ClassifyStoreError(err)
	}

	if err := s.hub.Publish(ctx, realtime.CollegeNoticesTopic(notice.CollegeID)); err != nil {
		s.log.Warn("failed to publish notice change", zap.Error(err))
	}

	if s.meili != nil {
		go func() {
			if err := s.meili.DeleteNotice(noticeID.String()); err != nil {
				s.log.Warn("failed to delete notice from search index", zap.Error(err))
			}
		}()
	}

	for _, upload := range uploads {
		if s.images != nil {
			if err := s.images.DeleteImage(ctx, upload.URL); err != nil {
				s.log.Warn("failed to delete hosted image", zap.String("url", upload.URL), zap.Error(err))
				continue
			}
		}
		if err := s.uploads.Delete(ctx, upload.ID); err != nil {
			s.log.Warn("failed to delete upload record", zap.Uint("upload_id", upload.ID), zap.Error(err))
		}
	}
	return nil
}
