package service

import (
	"context"

	"anoa.com/notifiq/internal/entity"
	collegeRepo "anoa.com/notifiq/internal/modules/college/repository"
	noticeRepo "anoa.com/notifiq/internal/modules/notice/repository"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	"anoa.com/notifiq/pkg/apperror"
)

type Stats struct {
	Colleges int64 `json:"colleges"`
	Admins   int64 `json:"admins"`
	Notices  int64 `json:"notices"`
}

type StatService interface {
	GetStats(ctx context.Context, actor entity.Viewer) (*Stats, error)
}

type statService struct {
	colleges collegeRepo.CollegeRepository
	profiles profileRepo.ProfileRepository
	notices  noticeRepo.NoticeRepository
}

func NewStatService(colleges collegeRepo.CollegeRepository, profiles profileRepo.ProfileRepository, notices noticeRepo.NoticeRepository) StatService {
	return &statService{
		colleges: colleges,
		profiles: profiles,
		notices:  notices,
	}
}

func (s *statService) GetStats(ctx context.Context, actor entity.Viewer) (*Stats, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperror.ErrForbidden
	}

	var (
		stats Stats
		err   error
	)
	if stats.Colleges, err = s.colleges.Count(ctx); err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	if stats.Admins, err = s.profiles.CountByRole(ctx, entity.RoleAdmin); err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	if stats.Notices, err = s.notices.Count(ctx); err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	return &stats, nil
}
