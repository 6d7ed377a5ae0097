package report

import (
	"context"
	"strings"

	"lf-go-app/backend/internal/apperr"
	catalogdomain "lf-go-app/backend/internal/domain/catalog"
	userdomain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"

	"go.uber.org/zap"
)

// Service 负责只追加的举报记录。无更新与删除路径。
type Service struct {
	reports *repository.ReportRepository
	users   *repository.UserRepository
	logger  *zap.SugaredLogger
}

// NewService 创建举报服务实例。
func NewService(reports *repository.ReportRepository, users *repository.UserRepository, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{reports: reports, users: users, logger: logger}
}

// CreateInput 描述提交举报所需的字段。
type CreateInput struct {
	ReporterID   uint
	Reason       string
	TargetUserID *uint
	PackageID    *uint
}

// Create 写入一条举报。目标用户与目标包至少要填一个。
func (s *Service) Create(ctx context.Context, input CreateInput) (*catalogdomain.Report, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperr.New(apperr.KindValidation, "举报原因不能为空")
	}
	if input.ReporterID == 0 {
		return nil, apperr.New(apperr.KindValidation, "缺少举报人")
	}
	hasTargetUser := input.TargetUserID != nil && *input.TargetUserID != 0
	hasPackage := input.PackageID != nil && *input.PackageID != 0
	if !hasTargetUser && !hasPackage {
		return nil, apperr.New(apperr.KindValidation, "必须指定被举报的用户或包")
	}

	entity := &catalogdomain.Report{
		Reason: reason,
		UserID: input.ReporterID,
	}
	if hasTargetUser {
		entity.TargetUserID = input.TargetUserID
	}
	if hasPackage {
		entity.PackageID = input.PackageID
	}
	if err := s.reports.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// ListAll 返回全部举报记录（新举报在前），并补齐举报人与被举报人摘要。供管理面使用。
func (s *Service) ListAll(ctx context.Context) ([]catalogdomain.Report, error) {
	items, err := s.reports.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(items)*2)
	for _, item := range items {
		ids = append(ids, item.UserID)
		if item.TargetUserID != nil {
			ids = append(ids, *item.TargetUserID)
		}
	}
	if len(ids) == 0 {
		return items, nil
	}
	briefs, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Warnw("attach report briefs failed", "error", err)
		return items, nil
	}
	for i := range items {
		if reporter := briefs[items[i].UserID]; reporter != nil {
			items[i].Reporter = userdomain.BriefOf(reporter)
		}
		if items[i].TargetUserID != nil {
			if target := briefs[*items[i].TargetUserID]; target != nil {
				items[i].TargetUser = userdomain.BriefOf(target)
			}
		}
	}
	return items, nil
}
