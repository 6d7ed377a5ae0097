package repository

import (
	"context"
	"errors"
	"fmt"

	"lf-go-app/backend/internal/domain/catalog"

	"gorm.io/gorm"
)

// AppUpdateRepository 负责客户端更新通道记录的持久化操作。
type AppUpdateRepository struct {
	db *gorm.DB
}

// NewAppUpdateRepository 构造更新通道仓储。
func NewAppUpdateRepository(db *gorm.DB) *AppUpdateRepository {
	return &AppUpdateRepository{db: db}
}

// Create 写入新的更新记录。
func (r *AppUpdateRepository) Create(ctx context.Context, entity *catalog.AppUpdate) error {
	if entity == nil {
		return errors.New("app update entity is nil")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create app update: %w", err)
	}
	return nil
}

// ListAll 按创建时间倒序返回全部更新记录。
func (r *AppUpdateRepository) ListAll(ctx context.Context) ([]catalog.AppUpdate, error) {
	var items []catalog.AppUpdate
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list app updates: %w", err)
	}
	return items, nil
}

// LatestByPlatform 返回指定平台 versionCode 最大的更新记录。
func (r *AppUpdateRepository) LatestByPlatform(ctx context.Context, platform string) (*catalog.AppUpdate, error) {
	var entity catalog.AppUpdate
	if err := r.db.WithContext(ctx).
		Where("platform = ?", platform).
		Order("version_code DESC").
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}
