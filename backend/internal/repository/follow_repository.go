package repository

import (
	"context"
	"errors"
	"fmt"

	"lf-go-app/backend/internal/domain/user"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository 负责关注关系边的持久化操作。
type FollowRepository struct {
	db *gorm.DB
}

// NewFollowRepository 构造关注关系仓储。
func NewFollowRepository(db *gorm.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Exists 检查指定的关注边是否存在。
func (r *FollowRepository) Exists(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&user.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count follow edge: %w", err)
	}
	return count > 0, nil
}

// Create 写入关注边。依赖复合主键的唯一性：并发下重复插入不会报错，
// 而是通过 DoNothing 退化为无操作，由返回值告知是否真的插入。
func (r *FollowRepository) Create(ctx context.Context, followerID, followingID uint) (bool, error) {
	edge := user.Follow{FollowerID: followerID, FollowingID: followingID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge)
	if result.Error != nil {
		return false, fmt.Errorf("create follow edge: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete 删除关注边，返回是否确有删除发生。
func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&user.Follow{})
	if result.Error != nil {
		return false, fmt.Errorf("delete follow edge: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListFollowing 返回指定用户关注的边列表（新边在前）及总数。
func (r *FollowRepository) ListFollowing(ctx context.Context, followerID uint, limit, offset int) ([]user.Follow, int64, error) {
	if followerID == 0 {
		return nil, 0, errors.New("follower id required")
	}
	query := r.db.WithContext(ctx).Model(&user.Follow{}).
		Where("follower_id = ?", followerID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count following: %w", err)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var edges []user.Follow
	if err := query.Order("created_at DESC").Find(&edges).Error; err != nil {
		return nil, 0, fmt.Errorf("list following: %w", err)
	}
	return edges, total, nil
}
