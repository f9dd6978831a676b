package service

import (
	"context"
	"time"

	"anoa.com/notifiq/internal/entity"
	digestDto "anoa.com/notifiq/internal/modules/digest/dto"
	noticeRepo "anoa.com/notifiq/internal/modules/notice/repository"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"go.uber.org/zap"
)

// DigestSize is how many recent notices the digest follows.
const DigestSize = 10

// UnreadCount counts notices created strictly after lastRead. Without a
// watermark every notice is unread.
func UnreadCount(notices []entity.Notice, lastRead *time.Time) int {
	if lastRead == nil {
		return len(notices)
	}
	n := 0
	for _, notice := range notices {
		if notice.CreatedAt.After(*lastRead) {
			n++
		}
	}
	return n
}

type DigestService interface {
	// Watch opens the live list of the most recent college notices, or
	// returns nil when the viewer has no college.
	Watch(ctx context.Context, viewer entity.Viewer) (*realtime.Live[[]entity.Notice], error)
	Summarize(ctx context.Context, viewer entity.Viewer, notices []entity.Notice) (digestDto.DigestResponse, error)
	Get(ctx context.Context, viewer entity.Viewer) (digestDto.DigestResponse, error)
	MarkAllAsRead(ctx context.Context, viewer entity.Viewer) error
}

type digestService struct {
	notices noticeRepo.NoticeRepository
	marks   WatermarkStore
	hub     realtime.Hub
	now     func() time.Time
	log     *zap.Logger
}

func NewDigestService(notices noticeRepo.NoticeRepository, marks WatermarkStore, hub realtime.Hub) DigestService {
	return &digestService{
		notices: notices,
		marks:   marks,
		hub:     hub,
		now:     time.Now,
		log:     logger.WithModule("digest"),
	}
}

func (s *digestService) Watch(ctx context.Context, viewer entity.Viewer) (*realtime.Live[[]entity.Notice], error) {
	if !viewer.HasCollege() {
		return nil, nil
	}
	collegeID := *viewer.CollegeID
	return realtime.Watch(ctx, s.hub, realtime.CollegeNoticesTopic(collegeID), func(ctx context.Context) ([]entity.Notice, error) {
		notices, err := s.notices.Recent(ctx, collegeID, DigestSize)
		return notices, apperror.ClassifyStoreError(err)
	})
}

func (s *digestService) Summarize(ctx context.Context, viewer entity.Viewer, notices []entity.Notice) (digestDto.DigestResponse, error) {
	resp := digestDto.DigestResponse{Items: make([]digestDto.DigestItem, 0, len(notices))}

	at, ok, err := s.marks.Get(ctx, viewer.ID)
	if err != nil {
		return resp, err
	}
	var lastRead *time.Time
	if ok {
		lastRead = &at
	}

	for _, n := range notices {
		resp.Items = append(resp.Items, digestDto.DigestItem{
			ID:        n.ID,
			Title:     n.Title,
			Category:  n.Category,
			Priority:  n.Priority,
			CreatedAt: n.CreatedAt,
			Unread:    lastRead == nil || n.CreatedAt.After(*lastRead),
		})
	}
	resp.Unread = UnreadCount(notices, lastRead)
	resp.LastRead = lastRead
	return resp, nil
}

func (s *digestService) Get(ctx context.Context, viewer entity.Viewer) (digestDto.DigestResponse, error) {
	if !viewer.HasCollege() {
		return digestDto.DigestResponse{Items: []digestDto.DigestItem{}}, nil
	}
	notices, err := s.notices.Recent(ctx, *viewer.CollegeID, DigestSize)
	if err != nil {
		return digestDto.DigestResponse{}, apperror.ClassifyStoreError(err)
	}
	return s.Summarize(ctx, viewer, notices)
}

// MarkAllAsRead moves the viewer's watermark to now. The viewer's other
// sessions are told through the profile topic.
func (s *digestService) MarkAllAsRead(ctx context.Context, viewer entity.Viewer) error {
	if !viewer.IsAuthenticated() {
		return apperror.ErrUnauthorized
	}
	if err := s.marks.Set(ctx, viewer.ID, s.now()); err != nil {
		return err
	}
	if err := s.hub.Publish(ctx, realtime.ProfileTopic(viewer.ID)); err != nil {
		s.log.Warn("failed to publish read marker", zap.Error(err))
	}
	return nil
}
