package repository

import (
	"context"

	"github.com/zhoufan91/ZipLink/internal/app/model"
	"gorm.io/gorm"
)

// ClickRepository defines the data access contract for persisted clicks.
type ClickRepository interface {
	Create(ctx context.Context, click *model.Click) error
	CountByCode(ctx context.Context, code string) (int64, error)
}

type clickRepository struct {
	db *gorm.DB
}

// NewClickRepository returns a GORM-backed ClickRepository.
func NewClickRepository(db *gorm.DB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Create(ctx context.Context, click *model.Click) error {
	return r.db.WithContext(ctx).Create(click).Error
}

func (r *clickRepository) CountByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Click{}).
		Where("short_code = ?", code).
		Count(&count).Error
	return count, err
}
