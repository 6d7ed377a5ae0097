package repository

import (
	"context"
	"errors"
	"fmt"

	"lf-go-app/backend/internal/domain/catalog"

	"gorm.io/gorm"
)

// CategoryRepository 负责分类树的持久化操作。
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 构造分类仓储。
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create 写入新的分类记录。
func (r *CategoryRepository) Create(ctx context.Context, entity *catalog.Category) error {
	if entity == nil {
		return errors.New("category entity is nil")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// FindByID 按主键查询分类。
func (r *CategoryRepository) FindByID(ctx context.Context, id uint) (*catalog.Category, error) {
	var entity catalog.Category
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindByParam 按 URL 片段查询分类。
func (r *CategoryRepository) FindByParam(ctx context.Context, param string) (*catalog.Category, error) {
	var entity catalog.Category
	if err := r.db.WithContext(ctx).Where("param = ?", param).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListRoots 返回所有根分类，并各自附带一层直接子分类。
func (r *CategoryRepository) ListRoots(ctx context.Context) ([]catalog.Category, error) {
	var roots []catalog.Category
	if err := r.db.WithContext(ctx).
		Where("parent_id IS NULL").
		Order("id ASC").
		Find(&roots).Error; err != nil {
		return nil, fmt.Errorf("list root categories: %w", err)
	}
	if len(roots) == 0 {
		return roots, nil
	}

	rootIDs := make([]uint, 0, len(roots))
	for _, root := range roots {
		rootIDs = append(rootIDs, root.ID)
	}
	var children []catalog.Category
	if err := r.db.WithContext(ctx).
		Where("parent_id IN ?", rootIDs).
		Order("id ASC").
		Find(&children).Error; err != nil {
		return nil, fmt.Errorf("list child categories: %w", err)
	}

	byParent := make(map[uint][]catalog.Category, len(rootIDs))
	for _, child := range children {
		if child.ParentID == nil {
			continue
		}
		byParent[*child.ParentID] = append(byParent[*child.ParentID], child)
	}
	for i := range roots {
		roots[i].Children = byParent[roots[i].ID]
	}
	return roots, nil
}

// Updates 按主键应用部分字段更新。调用方负责只传入需要变更的列。
func (r *CategoryRepository) Updates(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&catalog.Category{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}
