package repository

import (
	"context"

	"anoa.com/notifiq/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *entity.Profile) error
	Updates(ctx context.Context, id uuid.UUID, fields map[string]any) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	FindByEmail(ctx context.Context, email string) (*entity.Profile, error)
	ClaimByEmail(ctx context.Context, email string, userID uuid.UUID) (bool, error)
	ListByRole(ctx context.Context, role string) ([]entity.Profile, error)
	CountByRole(ctx context.Context, role string) (int64, error)

	PinnedNoticeIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	IsPinned(ctx context.Context, userID, noticeID uuid.UUID) (bool, error)
	Pin(ctx context.Context, userID, noticeID uuid.UUID) error
	Unpin(ctx context.Context, userID, noticeID uuid.UUID) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *entity.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepository) Updates(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&entity.Profile{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *profileRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindByEmail(ctx context.Context, email string) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ClaimByEmail binds a placeholder profile to a real user. It reports
// whether a placeholder was found.
func (r *profileRepository) ClaimByEmail(ctx context.Context, email string, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Profile{}).
		Where("email = ? AND user_id IS NULL", email).
		Update("user_id", userID)
	return result.RowsAffected > 0, result.Error
}

func (r *profileRepository) ListByRole(ctx context.Context, role string) ([]entity.Profile, error) {
	var profiles []entity.Profile
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at DESC").
		Find(&profiles).Error
	return profiles, err
}

func (r *profileRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Profile{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

func (r *profileRepository) PinnedNoticeIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.WithContext(ctx).Model(&entity.PinnedNotice{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("notice_id ASC").
		Pluck("notice_id", &ids).Error
	return ids, err
}

func (r *profileRepository) IsPinned(ctx context.Context, userID, noticeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.PinnedNotice{}).
		Where("user_id = ? AND notice_id = ?", userID, noticeID).
		Count(&count).Error
	return count > 0, err
}

// Pin is a single INSERT .. ON CONFLICT DO NOTHING, so concurrent pins from
// several sessions cannot clobber each other.
func (r *profileRepository) Pin(ctx context.Context, userID, noticeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.PinnedNotice{UserID: userID, NoticeID: noticeID}).Error
}

func (r *profileRepository) Unpin(ctx context.Context, userID, noticeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND notice_id = ?", userID, noticeID).
		Delete(&entity.PinnedNotice{}).Error
}
