package repository

import (
	"context"
	"errors"
	"fmt"

	"lf-go-app/backend/internal/domain/catalog"

	"gorm.io/gorm"
)

// CarouselRepository 负责首页轮播条目的持久化操作。
type CarouselRepository struct {
	db *gorm.DB
}

// NewCarouselRepository 构造轮播仓储。
func NewCarouselRepository(db *gorm.DB) *CarouselRepository {
	return &CarouselRepository{db: db}
}

// Create 写入新的轮播条目。
func (r *CarouselRepository) Create(ctx context.Context, entity *catalog.Carousel) error {
	if entity == nil {
		return errors.New("carousel entity is nil")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create carousel: %w", err)
	}
	return nil
}

// ListAll 按创建时间倒序返回全部轮播条目。
func (r *CarouselRepository) ListAll(ctx context.Context) ([]catalog.Carousel, error) {
	var items []catalog.Carousel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list carousels: %w", err)
	}
	return items, nil
}

// Delete 删除轮播条目。
func (r *CarouselRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&catalog.Carousel{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete carousel: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
