package repository

import (
	"context"
	"errors"
	"fmt"

	"lf-go-app/backend/internal/domain/catalog"

	"gorm.io/gorm"
)

// VersionRepository 负责共享版本记录的持久化操作。
type VersionRepository struct {
	db *gorm.DB
}

// NewVersionRepository 构造版本仓储。
func NewVersionRepository(db *gorm.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Create 写入新的版本记录。
func (r *VersionRepository) Create(ctx context.Context, entity *catalog.Version) error {
	if entity == nil {
		return errors.New("version entity is nil")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create version: %w", err)
	}
	return nil
}

// FindByID 按主键查询版本记录。
func (r *VersionRepository) FindByID(ctx context.Context, id uint) (*catalog.Version, error) {
	var entity catalog.Version
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListAll 返回全部版本记录。
func (r *VersionRepository) ListAll(ctx context.Context) ([]catalog.Version, error) {
	var items []catalog.Version
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return items, nil
}

// CountByIDs 统计给定主键里实际存在的版本数量，供 connect 前校验引用有效。
func (r *VersionRepository) CountByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&catalog.Version{}).
		Where("id IN ?", ids).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return count, nil
}

// Updates 按主键应用部分字段更新。
func (r *VersionRepository) Updates(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&catalog.Version{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	return nil
}

// Delete 删除版本记录及其连接行。
func (r *VersionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("version_id = ?", id).Delete(&catalog.PackageVersion{}).Error; err != nil {
			return fmt.Errorf("clear version links: %w", err)
		}
		result := tx.Delete(&catalog.Version{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete version: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
