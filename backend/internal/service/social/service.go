package social

import (
	"context"
	"errors"

	"lf-go-app/backend/internal/apperr"
	userdomain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultFollowPageSize = 10
	maxFollowPageSize     = 60
)

// Config 描述关注服务的可配置参数。
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service 维护用户之间的有向关注边。
type Service struct {
	follows         *repository.FollowRepository
	users           *repository.UserRepository
	logger          *zap.SugaredLogger
	defaultPageSize int
	maxPageSize     int
}

// NewService 创建关注服务实例。
func NewService(follows *repository.FollowRepository, users *repository.UserRepository, logger *zap.SugaredLogger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultFollowPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = maxFollowPageSize
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	return &Service{
		follows:         follows,
		users:           users,
		logger:          logger,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
	}
}

// ToggleResult 报告切换后的关注状态，调用方必须以返回值为准。
type ToggleResult struct {
	Followed bool `json:"followed"`
}

// Toggle 切换关注边：已存在则取消，不存在则建立。
// 并发竞态依赖复合主键约束兜底：插入撞到已有边时按“已关注，本次无操作”收敛，
// 不向调用方抛重复键错误。
func (s *Service) Toggle(ctx context.Context, followerID, followingID uint) (*ToggleResult, error) {
	if followerID == 0 || followingID == 0 {
		return nil, apperr.New(apperr.KindValidation, "缺少关注双方的用户编号")
	}
	if followerID == followingID {
		return nil, apperr.New(apperr.KindValidation, "不能关注自己")
	}

	if _, err := s.users.FindByID(ctx, followingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "目标用户不存在")
		}
		return nil, err
	}

	exists, err := s.follows.Exists(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	if exists {
		if _, err := s.follows.Delete(ctx, followerID, followingID); err != nil {
			return nil, err
		}
		return &ToggleResult{Followed: false}, nil
	}

	// Create 在冲突时静默跳过并返回 false，此时说明另一并发调用已建边。
	if _, err := s.follows.Create(ctx, followerID, followingID); err != nil {
		return nil, err
	}
	return &ToggleResult{Followed: true}, nil
}

// FollowingEntry 是关注列表里的单个条目。
type FollowingEntry struct {
	User       *userdomain.Brief `json:"user"`
	FollowedAt string            `json:"followed_at"`
}

// ListResult 封装关注列表的返回结构。
type ListResult struct {
	Items      []FollowingEntry
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// ListFollowing 返回某个用户关注的人的分页，最新建立的边在前。
func (s *Service) ListFollowing(ctx context.Context, userID uint, page, limit int) (*ListResult, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.KindValidation, "缺少用户编号")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	edges, total, err := s.follows.ListFollowing(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	targetIDs := make([]uint, 0, len(edges))
	for _, edge := range edges {
		targetIDs = append(targetIDs, edge.FollowingID)
	}
	targets, err := s.users.ListByIDs(ctx, targetIDs)
	if err != nil {
		return nil, err
	}

	items := make([]FollowingEntry, 0, len(edges))
	for _, edge := range edges {
		target := targets[edge.FollowingID]
		if target == nil {
			// 被关注者已不存在时跳过该边，不让悬挂数据炸掉整页。
			s.logger.Warnw("dangling follow edge", "follower_id", edge.FollowerID, "following_id", edge.FollowingID)
			continue
		}
		items = append(items, FollowingEntry{
			User:       userdomain.BriefOf(target),
			FollowedAt: edge.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &ListResult{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}
