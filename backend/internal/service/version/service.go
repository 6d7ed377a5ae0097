package version

import (
	"context"
	"errors"
	"strings"

	"lf-go-app/backend/internal/apperr"
	catalogdomain "lf-go-app/backend/internal/domain/catalog"
	"lf-go-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 负责共享版本记录的增删改查。
// 版本记录独立于包存在，包通过连接（connect）引用既有版本而非创建副本。
type Service struct {
	versions *repository.VersionRepository
	logger   *zap.SugaredLogger
}

// NewService 创建版本服务实例。
func NewService(versions *repository.VersionRepository, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{versions: versions, logger: logger}
}

// ListAll 返回全部版本记录。
func (s *Service) ListAll(ctx context.Context) ([]catalogdomain.Version, error) {
	return s.versions.ListAll(ctx)
}

// CreateInput 描述创建版本所需的字段。
type CreateInput struct {
	VersionNumber string
	URL           string
	PackageID     *uint
	PlatformType  *int
}

// Create 写入一条新的版本记录。
func (s *Service) Create(ctx context.Context, input CreateInput) (*catalogdomain.Version, error) {
	number := strings.TrimSpace(input.VersionNumber)
	if number == "" {
		return nil, apperr.New(apperr.KindValidation, "版本号不能为空")
	}

	entity := &catalogdomain.Version{
		VersionNumber: number,
		URL:           strings.TrimSpace(input.URL),
		PackageID:     input.PackageID,
		PlatformType:  input.PlatformType,
	}
	if err := s.versions.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// UpdateInput 描述版本的部分更新，仅非空字段会被应用。
type UpdateInput struct {
	VersionNumber *string
	URL           *string
	PlatformType  *int
}

// Update 对版本记录执行部分更新。
func (s *Service) Update(ctx context.Context, id uint, input UpdateInput) (*catalogdomain.Version, error) {
	entity, err := s.versions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "版本不存在")
		}
		return nil, err
	}

	fields := map[string]any{}
	if input.VersionNumber != nil {
		number := strings.TrimSpace(*input.VersionNumber)
		if number == "" {
			return nil, apperr.New(apperr.KindValidation, "版本号不能为空")
		}
		fields["version_number"] = number
		entity.VersionNumber = number
	}
	if input.URL != nil {
		url := strings.TrimSpace(*input.URL)
		fields["url"] = url
		entity.URL = url
	}
	if input.PlatformType != nil {
		fields["platform_type"] = *input.PlatformType
		entity.PlatformType = input.PlatformType
	}

	if len(fields) == 0 {
		return entity, nil
	}
	if err := s.versions.Updates(ctx, id, fields); err != nil {
		return nil, err
	}
	return entity, nil
}

// Delete 删除版本记录，同时清理包对它的连接行。
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.versions.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "版本不存在")
		}
		return err
	}
	return nil
}
