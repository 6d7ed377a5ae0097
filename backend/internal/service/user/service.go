package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"lf-go-app/backend/internal/apperr"
	domain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"
	"lf-go-app/backend/internal/slug"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 20
)

// Service 负责用户目录：本人视图、公开主页与资料维护。
type Service struct {
	users  *repository.UserRepository
	logger *zap.SugaredLogger
}

// NewService 创建用户服务实例。
func NewService(users *repository.UserRepository, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{users: users, logger: logger}
}

// Me 返回当前登录用户的完整档案。
func (s *Service) Me(ctx context.Context, userID uint) (*domain.User, error) {
	entity, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "用户不存在")
		}
		return nil, err
	}
	return entity, nil
}

// Profile 是对外公开的用户主页视图，不含邮箱等私密字段。
type Profile struct {
	domain.Brief
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicProfile 以 id 或 slug 返回公开主页，带历史整数前缀链接的回退解析。
func (s *Service) PublicProfile(ctx context.Context, idOrSlug string) (*Profile, error) {
	entity, err := s.resolve(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Brief:     *domain.BriefOf(entity),
		Status:    entity.Status,
		CreatedAt: entity.CreatedAt,
	}, nil
}

// resolve 按 id 或 slug 查找用户。
func (s *Service) resolve(ctx context.Context, idOrSlug string) (*domain.User, error) {
	token := slug.ParseToken(idOrSlug)
	if token.Numeric {
		entity, err := s.users.FindByID(ctx, token.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.KindNotFound, "用户不存在")
			}
			return nil, err
		}
		return entity, nil
	}

	entity, err := s.users.FindBySlug(ctx, token.Slug)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if legacyID, ok := token.LegacyIDPrefix(); ok {
		entity, err = s.users.FindByID(ctx, legacyID)
		if err == nil {
			return entity, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "用户不存在")
}

// UpdateInput 描述资料更新的可选字段。
type UpdateInput struct {
	Username    *string
	DisplayName *string
	AvatarURL   *string
}

// UpdateProfile 更新当前用户的资料。用户名变更会重新派生 slug。
func (s *Service) UpdateProfile(ctx context.Context, userID uint, input UpdateInput) (*domain.User, error) {
	entity, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "用户不存在")
		}
		return nil, err
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if n := len([]rune(username)); n < usernameMinLen || n > usernameMaxLen {
			return nil, apperr.Newf(apperr.KindValidation, "用户名长度必须在 %d 到 %d 个字符之间", usernameMinLen, usernameMaxLen)
		}
		if username != entity.Username {
			if _, err := s.users.FindByUsername(ctx, username); err == nil {
				return nil, apperr.New(apperr.KindConflict, "用户名已被占用")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			entity.Username = username
			entity.Slug = slug.WithID(username, entity.ID)
		}
	}
	if input.DisplayName != nil {
		entity.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.AvatarURL != nil {
		entity.AvatarURL = strings.TrimSpace(*input.AvatarURL)
	}

	if err := s.users.Update(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}
