package appupdate

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

// Service 负责客户端更新通道：按平台发布与查询最新版本。
type Service struct {
	updates *repository.AppUpdateRepository
	logger  *zap.SugaredLogger
}

// NewService 创建更新通道服务实例。
func NewService(updates *repository.AppUpdateRepository, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{updates: updates, logger: logger}
}

// ListAll 返回全部更新记录，新记录在前。
func (s *Service) ListAll(ctx context.Context) ([]catalogdomain.AppUpdate, error) {
	return s.updates.ListAll(ctx)
}

// Latest 返回指定平台最新发布的更新；平台尚无记录时返回 nil 而非错误。
func (s *Service) Latest(ctx context.Context, platform string) (*catalogdomain.AppUpdate, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		return nil, apperr.New(apperr.KindValidation, "缺少平台标识")
	}
	entity, err := s.updates.LatestByPlatform(ctx, platform)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entity, nil
}

// CreateInput 描述发布更新所需的字段。
type CreateInput struct {
	Platform    string
	VersionName string
	VersionCode int
	IsForce     bool
	DownloadURL string
	Changelog   string
}

// Create 发布一条新的更新记录。
func (s *Service) Create(ctx context.Context, input CreateInput) (*catalogdomain.AppUpdate, error) {
	platform := strings.ToLower(strings.TrimSpace(input.Platform))
	if platform == "" {
		return nil, apperr.New(apperr.KindValidation, "缺少平台标识")
	}
	versionName := strings.TrimSpace(input.VersionName)
	if versionName == "" {
		return nil, apperr.New(apperr.KindValidation, "版本名称不能为空")
	}
	if input.VersionCode <= 0 {
		return nil, apperr.New(apperr.KindValidation, "版本号必须为正整数")
	}
	downloadURL := strings.TrimSpace(input.DownloadURL)
	if downloadURL == "" {
		return nil, apperr.New(apperr.KindValidation, "下载地址不能为空")
	}

	entity := &catalogdomain.AppUpdate{
		Platform:    platform,
		VersionName: versionName,
		VersionCode: input.VersionCode,
		IsForce:     input.IsForce,
		DownloadURL: downloadURL,
		Changelog:   input.Changelog,
	}
	if err := s.updates.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}
