package repository

import (
	"context"

	"anoa.com/notifiq/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// overwriteColumns are the fields an edit replaces. Tenant, author and
// creation time never change after insert.
var overwriteColumns = []string{
	"title", "description", "category", "priority", "color",
	"links", "images", "expiry_date", "updated_at",
}

type NoticeRepository interface {
	Create(ctx context.Context, notice *entity.Notice) error
	Overwrite(ctx context.Context, notice *entity.Notice) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Notice, error)
	ListByCollege(ctx context.Context, collegeID uuid.UUID) ([]entity.Notice, error)
	Recent(ctx context.Context, collegeID uuid.UUID, limit int) ([]entity.Notice, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type noticeRepository struct {
	db *gorm.DB
}

func NewNoticeRepository(db *gorm.DB) NoticeRepository {
	return &noticeRepository{db: db}
}

func (r *noticeRepository) Create(ctx context.Context, notice *entity.Notice) error {
	return r.db.WithContext(ctx).Create(notice).Error
}

func (r *noticeRepository) Overwrite(ctx context.Context, notice *entity.Notice) error {
	result := r.db.WithContext(ctx).Model(&entity.Notice{}).
		Where("id = ?", notice.ID).
		Select(overwriteColumns).
		Updates(notice)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *noticeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Notice, error) {
	var notice entity.Notice
	if err := r.db.WithContext(ctx).First(&notice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &notice, nil
}

func (r *noticeRepository) ListByCollege(ctx context.Context, collegeID uuid.UUID) ([]entity.Notice, error) {
	return r.newestFirst(ctx, collegeID, 0)
}

func (r *noticeRepository) Recent(ctx context.Context, collegeID uuid.UUID, limit int) ([]entity.Notice, error) {
	return r.newestFirst(ctx, collegeID, limit)
}

func (r *noticeRepository) newestFirst(ctx context.Context, collegeID uuid.UUID, limit int) ([]entity.Notice, error) {
	notices := []entity.Notice{}
	query := r.db.WithContext(ctx).
		Where("college_id = ?", collegeID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&notices).Error
	return notices, err
}

func (r *noticeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Notice{}).Count(&count).Error
	return count, err
}

func (r *noticeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Notice{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
