package repository

import (
	"context"
	"time"

	"anoa.com/notifiq/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UploadRepository interface {
	Create(ctx context.Context, upload *entity.Upload) error
	SyncNotice(ctx context.Context, noticeID uuid.UUID, urls []string) error
	FindByNotice(ctx context.Context, noticeID uuid.UUID) ([]entity.Upload, error)
	FindOrphans(ctx context.Context, cutoffTime time.Time) ([]entity.Upload, error)
	Delete(ctx context.Context, id uint) error
}

type uploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, upload *entity.Upload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

// SyncNotice makes urls the exact set of uploads attached to the notice.
// Uploads dropped from the notice become orphans again.
func (r *uploadRepository) SyncNotice(ctx context.Context, noticeID uuid.UUID, urls []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		detach := tx.Model(&entity.Upload{}).Where("notice_id = ?", noticeID)
		if len(urls) > 0 {
			detach = detach.Where("url NOT IN ?", urls)
		}
		if err := detach.Update("notice_id", nil).Error; err != nil {
			return err
		}
		if len(urls) == 0 {
			return nil
		}

		// Only unattached uploads (or ones already on this notice) can be claimed.
		return tx.Model(&entity.Upload{}).
			Where("url IN ?", urls).
			Where("notice_id IS NULL OR notice_id = ?", noticeID).
			Update("notice_id", noticeID).Error
	})
}

func (r *uploadRepository) FindByNotice(ctx context.Context, noticeID uuid.UUID) ([]entity.Upload, error) {
	var uploads []entity.Upload
	err := r.db.WithContext(ctx).Where("notice_id = ?", noticeID).Find(&uploads).Error
	return uploads, err
}

func (r *uploadRepository) FindOrphans(ctx context.Context, cutoffTime time.Time) ([]entity.Upload, error) {
	var uploads []entity.Upload
	err := r.db.WithContext(ctx).
		Where("notice_id IS NULL AND created_at < ?", cutoffTime).
		Find(&uploads).Error
	return uploads, err
}

func (r *uploadRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entity.Upload{}, id).Error
}
