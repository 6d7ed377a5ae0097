package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lf-go-app/backend/internal/apperr"
	"lf-go-app/backend/internal/domain/catalog"
	userdomain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"
	"lf-go-app/backend/internal/slug"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultCategoryPageSize = 10
	maxCategoryPageSize     = 60
	// maxParentChainDepth 限制环检测时向上回溯的步数，防御脏数据导致的死循环。
	maxParentChainDepth = 64
)

// Config 描述分类服务的可配置参数。
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service 负责分类树及按分类浏览包的业务逻辑。
type Service struct {
	categories      *repository.CategoryRepository
	packages        *repository.PackageRepository
	users           *repository.UserRepository
	logger          *zap.SugaredLogger
	defaultPageSize int
	maxPageSize     int
}

// NewService 创建分类服务实例。
func NewService(categories *repository.CategoryRepository, packages *repository.PackageRepository, users *repository.UserRepository, logger *zap.SugaredLogger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultCategoryPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = maxCategoryPageSize
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	return &Service{
		categories:      categories,
		packages:        packages,
		users:           users,
		logger:          logger,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
	}
}

// ListRoots 返回全部根分类，每个根节点附带一层直接子节点。
func (s *Service) ListRoots(ctx context.Context) ([]catalog.Category, error) {
	return s.categories.ListRoots(ctx)
}

// CreateInput 描述创建分类所需的字段。
type CreateInput struct {
	Name     string
	Param    string
	ParentID *uint
}

// Create 新建分类节点。parentId 不校验存在性，悬挂引用按既有数据兼容处理。
func (s *Service) Create(ctx context.Context, input CreateInput) (*catalog.Category, error) {
	name := strings.TrimSpace(input.Name)
	param := strings.TrimSpace(input.Param)
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "分类名称不能为空")
	}
	if param == "" {
		return nil, apperr.New(apperr.KindValidation, "分类 URL 片段不能为空")
	}

	entity := &catalog.Category{
		Name:     name,
		Param:    param,
		ParentID: input.ParentID,
	}
	if err := s.categories.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// UpdateInput 描述分类的部分更新，仅非空字段会被应用。
type UpdateInput struct {
	Name     *string
	Param    *string
	ParentID *uint
	// ClearParent 为 true 时将分类提升为根节点。
	ClearParent bool
}

// Update 对分类执行部分更新，重新挂载时拒绝把节点挂到自己的后代下。
func (s *Service) Update(ctx context.Context, id uint, input UpdateInput) (*catalog.Category, error) {
	entity, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "分类不存在")
		}
		return nil, err
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.New(apperr.KindValidation, "分类名称不能为空")
		}
		fields["name"] = name
		entity.Name = name
	}
	if input.Param != nil {
		param := strings.TrimSpace(*input.Param)
		if param == "" {
			return nil, apperr.New(apperr.KindValidation, "分类 URL 片段不能为空")
		}
		fields["param"] = param
		entity.Param = param
	}
	if input.ClearParent {
		fields["parent_id"] = nil
		entity.ParentID = nil
	} else if input.ParentID != nil {
		if err := s.checkReparent(ctx, id, *input.ParentID); err != nil {
			return nil, err
		}
		fields["parent_id"] = *input.ParentID
		entity.ParentID = input.ParentID
	}

	if len(fields) == 0 {
		return entity, nil
	}
	if err := s.categories.Updates(ctx, id, fields); err != nil {
		return nil, err
	}
	return entity, nil
}

// checkReparent 拒绝自挂载与挂载到自己后代两种会形成环的情况。
// 沿新父节点的祖先链向上走，若途中遇到待移动的节点即构成环。
func (s *Service) checkReparent(ctx context.Context, id, newParentID uint) error {
	if newParentID == id {
		return apperr.New(apperr.KindValidation, "分类不能挂载到自身")
	}
	current := newParentID
	for depth := 0; depth < maxParentChainDepth; depth++ {
		node, err := s.categories.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 新父节点链头不存在时与创建路径保持一致的宽松语义。
				return nil
			}
			return fmt.Errorf("walk category parents: %w", err)
		}
		if node.ParentID == nil {
			return nil
		}
		if *node.ParentID == id {
			return apperr.New(apperr.KindValidation, "分类不能挂载到自己的子孙节点")
		}
		current = *node.ParentID
	}
	return apperr.New(apperr.KindValidation, "分类层级过深，无法完成挂载校验")
}

// PackagesByCategoryInput 描述按分类浏览包的查询参数。
type PackagesByCategoryInput struct {
	Param string
	Page  int
	Limit int
}

// PackagesByCategoryResult 封装分类浏览的返回结构。
type PackagesByCategoryResult struct {
	Category   catalog.Category
	Items      []catalog.Package
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// PackagesByParam 按分类 param 返回已发布的包分页，分类不存在与分类为空是两种结果。
func (s *Service) PackagesByParam(ctx context.Context, input PackagesByCategoryInput) (*PackagesByCategoryResult, error) {
	param := strings.TrimSpace(input.Param)
	if param == "" {
		return nil, apperr.New(apperr.KindValidation, "缺少分类参数")
	}

	entity, err := s.categories.FindByParam(ctx, param)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "分类不存在")
		}
		return nil, err
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	published := catalog.PackageStatusPublished
	items, total, err := s.packages.List(ctx, repository.PackageListFilter{
		CatID:  entity.ID,
		Status: &published,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	if err := s.attachOwners(ctx, items); err != nil {
		s.logger.Warnw("attach package owners failed", "error", err, "category", param)
	}

	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &PackagesByCategoryResult{
		Category:   *entity,
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// attachOwners 批量补齐包的所有者摘要，并保证展示 slug 不为空。
func (s *Service) attachOwners(ctx context.Context, items []catalog.Package) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.UserID)
	}
	owners, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range items {
		if owner := owners[items[i].UserID]; owner != nil {
			items[i].Owner = userdomain.BriefOf(owner)
		}
		if items[i].Slug == "" {
			// 兼容历史数据：slug 缺失时按当前规则补一个展示值。
			items[i].Slug = slug.WithID(items[i].Title, items[i].ID)
		}
	}
	return nil
}
