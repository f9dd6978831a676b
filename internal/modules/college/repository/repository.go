package repository

import (
	"context"

	"anoa.com/notifiq/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CollegeRepository interface {
	Create(ctx context.Context, college *entity.College) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.College, error)
	FindAll(ctx context.Context) ([]entity.College, error)
	// Scan returns every college in whatever order the store yields them.
	Scan(ctx context.Context) ([]entity.College, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type collegeRepository struct {
	db *gorm.DB
}

func NewCollegeRepository(db *gorm.DB) CollegeRepository {
	return &collegeRepository{db: db}
}

func (r *collegeRepository) Create(ctx context.Context, college *entity.College) error {
	return r.db.WithContext(ctx).Create(college).Error
}

func (r *collegeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.College, error) {
	var college entity.College
	if err := r.db.WithContext(ctx).First(&college, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &college, nil
}

func (r *collegeRepository) FindAll(ctx context.Context) ([]entity.College, error) {
	var colleges []entity.College
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&colleges).Error
	return colleges, err
}

func (r *collegeRepository) Scan(ctx context.Context) ([]entity.College, error) {
	var colleges []entity.College
	err := r.db.WithContext(ctx).Find(&colleges).Error
	return colleges, err
}

func (r *collegeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.College{}).Count(&count).Error
	return count, err
}

func (r *collegeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.College{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
