package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lf-go-app/backend/internal/apperr"
	catalogdomain "lf-go-app/backend/internal/domain/catalog"
	userdomain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/infra/metrics"
	"lf-go-app/backend/internal/repository"
	"lf-go-app/backend/internal/slug"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPackagePageSize = 10
	maxPackagePageSize     = 60
)

// Config 描述包目录服务的可配置参数。
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service 负责包的生命周期：创建、编辑、发布可见性、浏览与级联删除。
type Service struct {
	packages        *repository.PackageRepository
	versions        *repository.VersionRepository
	comments        *repository.CommentRepository
	users           *repository.UserRepository
	categories      *repository.CategoryRepository
	logger          *zap.SugaredLogger
	defaultPageSize int
	maxPageSize     int
}

// NewService 创建包目录服务实例。
func NewService(packages *repository.PackageRepository, versions *repository.VersionRepository, comments *repository.CommentRepository, users *repository.UserRepository, categories *repository.CategoryRepository, logger *zap.SugaredLogger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultPackagePageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = maxPackagePageSize
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	return &Service{
		packages:        packages,
		versions:        versions,
		comments:        comments,
		users:           users,
		categories:      categories,
		logger:          logger,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
	}
}

// CreateInput 描述创建包所需的字段。版本只做 connect：按 id 连接既有版本记录。
type CreateInput struct {
	Title        string
	ShortSummary string
	Description  string
	Changelog    string
	CatID        uint
	Images       []string
	Urls         []UrlInput
	VersionIDs   []uint
}

// UrlInput 描述包的单条出站链接。
type UrlInput struct {
	Name string
	URL  string
}

// CreateForOwner 为调用者创建一个新包。初始状态恒为草稿，忽略调用方传入的任何状态值。
func (s *Service) CreateForOwner(ctx context.Context, ownerID uint, input CreateInput) (*catalogdomain.Package, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.New(apperr.KindValidation, "包标题不能为空")
	}
	if input.CatID == 0 {
		return nil, apperr.New(apperr.KindValidation, "缺少分类编号")
	}
	if err := s.checkVersionIDs(ctx, input.VersionIDs); err != nil {
		return nil, err
	}

	entity := &catalogdomain.Package{
		Title:        title,
		ShortSummary: strings.TrimSpace(input.ShortSummary),
		Description:  input.Description,
		Changelog:    input.Changelog,
		CatID:        input.CatID,
		UserID:       ownerID,
		Status:       catalogdomain.PackageStatusDraft,
	}
	if err := s.packages.Create(ctx, entity, buildImages(input.Images), buildUrls(input.Urls), input.VersionIDs); err != nil {
		metrics.RecordPackageWrite("create", "error")
		return nil, err
	}
	metrics.RecordPackageWrite("create", "ok")

	if err := s.hydrate(ctx, entity, false, 0); err != nil {
		s.logger.Warnw("hydrate created package failed", "error", err, "package_id", entity.ID)
	}
	return entity, nil
}

// UpdateInput 描述包的部分更新。指针字段缺省表示保持原值；
// 集合字段非 nil 时整体替换（先删后建的编辑策略）。
type UpdateInput struct {
	Title        *string
	ShortSummary *string
	Description  *string
	Changelog    *string
	CatID        *uint
	Images       *[]string
	Urls         *[]UrlInput
	VersionIDs   *[]uint
}

// UpdateForOwner 更新调用者名下的包。任何内容修改都会把状态重置为草稿（需重新审核）。
func (s *Service) UpdateForOwner(ctx context.Context, ownerID, packageID uint, input UpdateInput) (*catalogdomain.Package, error) {
	fields := map[string]any{
		"status": catalogdomain.PackageStatusDraft,
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperr.New(apperr.KindValidation, "包标题不能为空")
		}
		fields["title"] = title
	}
	if input.ShortSummary != nil {
		fields["short_summary"] = strings.TrimSpace(*input.ShortSummary)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Changelog != nil {
		fields["changelog"] = *input.Changelog
	}
	if input.CatID != nil {
		if *input.CatID == 0 {
			return nil, apperr.New(apperr.KindValidation, "分类编号不能为零")
		}
		fields["cat_id"] = *input.CatID
	}
	if input.VersionIDs != nil {
		if err := s.checkVersionIDs(ctx, *input.VersionIDs); err != nil {
			return nil, err
		}
	}

	var (
		images *[]catalogdomain.Image
		urls   *[]catalogdomain.Url
	)
	if input.Images != nil {
		built := buildImages(*input.Images)
		images = &built
	}
	if input.Urls != nil {
		built := buildUrls(*input.Urls)
		urls = &built
	}

	if err := s.packages.UpdateOwned(ctx, ownerID, packageID, fields, images, urls, input.VersionIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "包不存在")
		}
		metrics.RecordPackageWrite("update", "error")
		return nil, err
	}
	metrics.RecordPackageWrite("update", "ok")

	entity, err := s.packages.FindOwned(ctx, ownerID, packageID)
	if err != nil {
		return nil, fmt.Errorf("reload package: %w", err)
	}
	if err := s.hydrate(ctx, entity, false, 0); err != nil {
		s.logger.Warnw("hydrate updated package failed", "error", err, "package_id", packageID)
	}
	return entity, nil
}

// GetPublic 按 id 或 slug 返回一个已发布的包的完整详情：
// 所有者摘要、版本、媒体、链接、顶层评论及其全部回复。
// 未发布的包经由该路径对任何人（包括所有者）均不可见。
func (s *Service) GetPublic(ctx context.Context, idOrSlug string, viewerID uint) (*catalogdomain.Package, error) {
	entity, err := s.resolvePublished(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, entity, true, viewerID); err != nil {
		s.logger.Warnw("hydrate package detail failed", "error", err, "package_id", entity.ID)
	}
	return entity, nil
}

// GetOwned 返回调用者名下的包详情，忽略发布状态。
func (s *Service) GetOwned(ctx context.Context, ownerID, id uint) (*catalogdomain.Package, error) {
	entity, err := s.packages.FindOwned(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "包不存在")
		}
		return nil, err
	}
	if err := s.hydrate(ctx, entity, false, ownerID); err != nil {
		s.logger.Warnw("hydrate owned package failed", "error", err, "package_id", id)
	}
	return entity, nil
}

// ListInput 描述公共列表的查询参数。
type ListInput struct {
	Page   int
	Limit  int
	Search string
	CatID  uint
}

// ListResult 封装分页列表结果。
type ListResult struct {
	Items      []catalogdomain.Package
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// ListPublic 返回已发布包的分页，按创建时间倒序，支持标题/简介子串检索与分类过滤。
func (s *Service) ListPublic(ctx context.Context, input ListInput) (*ListResult, error) {
	page, limit := s.normalizePage(input.Page, input.Limit)
	published := catalogdomain.PackageStatusPublished
	items, total, err := s.packages.List(ctx, repository.PackageListFilter{
		Search: strings.TrimSpace(input.Search),
		CatID:  input.CatID,
		Status: &published,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	if err := s.attachListExtras(ctx, items); err != nil {
		s.logger.Warnw("attach package list extras failed", "error", err)
	}
	return newListResult(items, page, limit, total), nil
}

// ListOwned 返回调用者名下的包分页（含草稿）。
func (s *Service) ListOwned(ctx context.Context, ownerID uint, input ListInput) (*ListResult, error) {
	page, limit := s.normalizePage(input.Page, input.Limit)
	items, total, err := s.packages.List(ctx, repository.PackageListFilter{
		Search: strings.TrimSpace(input.Search),
		CatID:  input.CatID,
		UserID: ownerID,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	if err := s.attachListExtras(ctx, items); err != nil {
		s.logger.Warnw("attach owned package extras failed", "error", err)
	}
	return newListResult(items, page, limit, total), nil
}

// Publish 把包从草稿切换到已发布，供审核通过后的控制面调用。
func (s *Service) Publish(ctx context.Context, id uint) error {
	if err := s.packages.UpdateStatus(ctx, id, catalogdomain.PackageStatusPublished); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "包不存在")
		}
		return err
	}
	return nil
}

// DeleteForOwner 删除调用者名下的包。
// 整个清除过程在单事务内执行：媒体、链接、版本连接、评分、评论（先回复后顶层）、
// 举报与轮播位全部随包移除，失败时不留半删状态。
func (s *Service) DeleteForOwner(ctx context.Context, ownerID, id uint) error {
	if err := s.packages.DeleteCascade(ctx, ownerID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "包不存在")
		}
		metrics.RecordPackageWrite("delete", "error")
		return err
	}
	metrics.RecordPackageWrite("delete", "ok")
	return nil
}

// resolvePublished 以 id 或 slug 解析一个已发布的包，带历史 "id-标题" 链接的整数前缀回退。
func (s *Service) resolvePublished(ctx context.Context, idOrSlug string) (*catalogdomain.Package, error) {
	token := slug.ParseToken(idOrSlug)
	published := catalogdomain.PackageStatusPublished

	if token.Numeric {
		entity, err := s.packages.FindByID(ctx, token.ID, &published)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.KindNotFound, "包不存在")
			}
			return nil, err
		}
		return entity, nil
	}

	entity, err := s.packages.FindBySlug(ctx, token.Slug, &published)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if legacyID, ok := token.LegacyIDPrefix(); ok {
		entity, err = s.packages.FindByID(ctx, legacyID, &published)
		if err == nil {
			return entity, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "包不存在")
}

// checkVersionIDs 校验待连接的版本记录全部存在。
func (s *Service) checkVersionIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return apperr.New(apperr.KindValidation, "版本编号不能为零")
		}
		unique[id] = struct{}{}
	}
	deduped := make([]uint, 0, len(unique))
	for id := range unique {
		deduped = append(deduped, id)
	}
	count, err := s.versions.CountByIDs(ctx, deduped)
	if err != nil {
		return err
	}
	if int(count) != len(deduped) {
		return apperr.New(apperr.KindValidation, "存在无效的版本引用")
	}
	return nil
}

// hydrate 为单个包补齐详情视图：所有者、分类、媒体、链接、版本，
// withComments 为 true 时再附加顶层评论及全部回复。
func (s *Service) hydrate(ctx context.Context, entity *catalogdomain.Package, withComments bool, viewerID uint) error {
	if entity.Slug == "" {
		entity.Slug = slug.WithID(entity.Title, entity.ID)
	}

	if owner, err := s.users.FindByID(ctx, entity.UserID); err == nil {
		entity.Owner = userdomain.BriefOf(owner)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load package owner: %w", err)
	}

	if cat, err := s.categories.FindByID(ctx, entity.CatID); err == nil {
		entity.Category = cat
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load package category: %w", err)
	}

	images, err := s.packages.ListImages(ctx, []uint{entity.ID})
	if err != nil {
		return err
	}
	entity.Images = images[entity.ID]

	urls, err := s.packages.ListUrls(ctx, []uint{entity.ID})
	if err != nil {
		return err
	}
	entity.Urls = urls[entity.ID]

	versions, err := s.packages.ListVersions(ctx, entity.ID)
	if err != nil {
		return err
	}
	entity.Versions = versions

	if !withComments {
		return nil
	}
	return s.attachComments(ctx, entity, viewerID)
}

// attachComments 加载包详情携带的评论区：顶层评论分页之外的简化版，详情页一次性取全。
func (s *Service) attachComments(ctx context.Context, entity *catalogdomain.Package, viewerID uint) error {
	roots, _, err := s.comments.ListTopLevel(ctx, repository.CommentListFilter{PackageID: entity.ID})
	if err != nil {
		return err
	}
	rootIDs := make([]uint, 0, len(roots))
	for _, root := range roots {
		rootIDs = append(rootIDs, root.ID)
	}
	replies, err := s.comments.ListReplies(ctx, rootIDs)
	if err != nil {
		return err
	}

	authorIDs := make([]uint, 0, len(roots)+len(replies))
	for _, c := range roots {
		authorIDs = append(authorIDs, c.UserID)
	}
	for _, c := range replies {
		authorIDs = append(authorIDs, c.UserID)
	}
	authors, err := s.users.ListByIDs(ctx, authorIDs)
	if err != nil {
		return err
	}

	decorate := func(c *catalogdomain.Comment) {
		if author := authors[c.UserID]; author != nil {
			c.Author = userdomain.BriefOf(author)
		}
		c.IsMine = viewerID != 0 && c.UserID == viewerID
	}

	repliesByParent := make(map[uint][]catalogdomain.Comment, len(rootIDs))
	for i := range replies {
		decorate(&replies[i])
		if replies[i].ParentID == nil {
			continue
		}
		parentID := *replies[i].ParentID
		repliesByParent[parentID] = append(repliesByParent[parentID], replies[i])
	}
	for i := range roots {
		decorate(&roots[i])
		roots[i].Replies = repliesByParent[roots[i].ID]
	}
	entity.Comments = roots
	return nil
}

// attachListExtras 为列表项批量补齐所有者摘要并保证展示 slug 不为空。
func (s *Service) attachListExtras(ctx context.Context, items []catalogdomain.Package) error {
	if len(items) == 0 {
		return nil
	}
	ownerIDs := make([]uint, 0, len(items))
	for _, item := range items {
		ownerIDs = append(ownerIDs, item.UserID)
	}
	owners, err := s.users.ListByIDs(ctx, ownerIDs)
	if err != nil {
		return err
	}
	for i := range items {
		if owner := owners[items[i].UserID]; owner != nil {
			items[i].Owner = userdomain.BriefOf(owner)
		}
		if items[i].Slug == "" {
			items[i].Slug = slug.WithID(items[i].Title, items[i].ID)
		}
	}
	return nil
}

// normalizePage 约束页码与页大小到合法范围。
func (s *Service) normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	return page, limit
}

// newListResult 组装分页返回结构。
func newListResult(items []catalogdomain.Package, page, limit int, total int64) *ListResult {
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
	}
}

// buildImages 把图片地址列表转换为媒体实体。
func buildImages(urls []string) []catalogdomain.Image {
	images := make([]catalogdomain.Image, 0, len(urls))
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		images = append(images, catalogdomain.Image{URL: url})
	}
	return images
}

// buildUrls 把链接输入转换为出站链接实体。
func buildUrls(inputs []UrlInput) []catalogdomain.Url {
	urls := make([]catalogdomain.Url, 0, len(inputs))
	for _, input := range inputs {
		url := strings.TrimSpace(input.URL)
		if url == "" {
			continue
		}
		urls = append(urls, catalogdomain.Url{Name: strings.TrimSpace(input.Name), URL: url})
	}
	return urls
}
