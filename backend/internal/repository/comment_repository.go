package repository

import (
	"context"
	"errors"
	"fmt"

	"lf-go-app/backend/internal/domain/catalog"

	"gorm.io/gorm"
)

// CommentListFilter 描述评论列表查询的条件。
type CommentListFilter struct {
	PackageID uint
	Limit     int
	Offset    int
}

// CommentRepository 负责评论的持久化操作。
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 构造评论仓储。
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create 写入新的评论记录。
func (r *CommentRepository) Create(ctx context.Context, entity *catalog.Comment) error {
	if entity == nil {
		return errors.New("comment entity is nil")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// FindByID 查询评论详情。
func (r *CommentRepository) FindByID(ctx context.Context, id uint) (*catalog.Comment, error) {
	var entity catalog.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListTopLevel 返回某个包的顶层评论分页（新评论在前）及总条数。
func (r *CommentRepository) ListTopLevel(ctx context.Context, filter CommentListFilter) ([]catalog.Comment, int64, error) {
	if filter.PackageID == 0 {
		return nil, 0, errors.New("package id required")
	}
	query := r.db.WithContext(ctx).Model(&catalog.Comment{}).
		Where("package_id = ? AND parent_id IS NULL", filter.PackageID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var items []catalog.Comment
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	return items, total, nil
}

// ListReplies 拉取一组顶层评论下的全部回复，按时间正序，回复不做独立分页。
func (r *CommentRepository) ListReplies(ctx context.Context, parentIDs []uint) ([]catalog.Comment, error) {
	if len(parentIDs) == 0 {
		return []catalog.Comment{}, nil
	}
	var replies []catalog.Comment
	if err := r.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC").
		Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("list comment replies: %w", err)
	}
	return replies, nil
}

// Delete 删除单条评论。按规则不级联到回复，包级清除路径才保证全量清理。
func (r *CommentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&catalog.Comment{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
