package repository

import (
	"context"
	"errors"
	"fmt"

	"lf-go-app/backend/internal/domain/catalog"
	"lf-go-app/backend/internal/slug"

	"gorm.io/gorm"
)

// PackageListFilter 描述公共列表查询的条件。
type PackageListFilter struct {
	Search string // 匹配标题或简介的子串
	CatID  uint   // 非零时限定分类
	UserID uint   // 非零时限定所有者
	Status *int   // 为空时不过滤发布状态
	Limit  int
	Offset int
}

// PackageRepository 负责包及其附属集合（媒体、链接、版本连接）的持久化操作。
type PackageRepository struct {
	db *gorm.DB
}

// NewPackageRepository 构造包仓储。
func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// Create 在单个事务中写入包记录、回写派生 slug，并创建媒体、链接与版本连接。
// slug 以新行主键做去重后缀，因此必须在拿到主键后回写。
func (r *PackageRepository) Create(ctx context.Context, entity *catalog.Package, images []catalog.Image, urls []catalog.Url, versionIDs []uint) error {
	if entity == nil {
		return errors.New("package entity is nil")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return fmt.Errorf("create package: %w", err)
		}
		entity.Slug = slug.WithID(entity.Title, entity.ID)
		if err := tx.Model(&catalog.Package{}).
			Where("id = ?", entity.ID).
			Update("slug", entity.Slug).Error; err != nil {
			return fmt.Errorf("assign package slug: %w", err)
		}
		if err := createAttachments(tx, entity.ID, images, urls, versionIDs); err != nil {
			return err
		}
		return nil
	})
}

// UpdateOwned 以 (id, userId) 双条件执行更新，调用方永远无法改到他人的包。
// collections 为非 nil 时整体替换对应附属集合（先删后建，见文档化的编辑策略）。
// 包不存在或不属于 ownerID 时返回 gorm.ErrRecordNotFound。
func (r *PackageRepository) UpdateOwned(ctx context.Context, ownerID, packageID uint, fields map[string]any, images *[]catalog.Image, urls *[]catalog.Url, versionIDs *[]uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&catalog.Package{}).
			Where("id = ? AND user_id = ?", packageID, ownerID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check package ownership: %w", err)
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		if len(fields) > 0 {
			if err := tx.Model(&catalog.Package{}).
				Where("id = ? AND user_id = ?", packageID, ownerID).
				Updates(fields).Error; err != nil {
				return fmt.Errorf("update package: %w", err)
			}
		}

		if images != nil {
			if err := tx.Where("package_id = ?", packageID).Delete(&catalog.Image{}).Error; err != nil {
				return fmt.Errorf("clear package images: %w", err)
			}
		}
		if urls != nil {
			if err := tx.Where("package_id = ?", packageID).Delete(&catalog.Url{}).Error; err != nil {
				return fmt.Errorf("clear package urls: %w", err)
			}
		}
		if versionIDs != nil {
			if err := tx.Where("package_id = ?", packageID).Delete(&catalog.PackageVersion{}).Error; err != nil {
				return fmt.Errorf("clear package versions: %w", err)
			}
		}

		var (
			newImages     []catalog.Image
			newUrls       []catalog.Url
			newVersionIDs []uint
		)
		if images != nil {
			newImages = *images
		}
		if urls != nil {
			newUrls = *urls
		}
		if versionIDs != nil {
			newVersionIDs = *versionIDs
		}
		return createAttachments(tx, packageID, newImages, newUrls, newVersionIDs)
	})
}

// createAttachments 批量写入媒体、链接与版本连接记录。
func createAttachments(tx *gorm.DB, packageID uint, images []catalog.Image, urls []catalog.Url, versionIDs []uint) error {
	for i := range images {
		images[i].ID = 0
		images[i].PackageID = packageID
	}
	if len(images) > 0 {
		if err := tx.Create(&images).Error; err != nil {
			return fmt.Errorf("create package images: %w", err)
		}
	}
	for i := range urls {
		urls[i].ID = 0
		urls[i].PackageID = packageID
	}
	if len(urls) > 0 {
		if err := tx.Create(&urls).Error; err != nil {
			return fmt.Errorf("create package urls: %w", err)
		}
	}
	for _, versionID := range versionIDs {
		link := catalog.PackageVersion{PackageID: packageID, VersionID: versionID}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("connect package version: %w", err)
		}
	}
	return nil
}

// FindByID 按主键查询包，status 为非 nil 时附加发布状态过滤。
func (r *PackageRepository) FindByID(ctx context.Context, id uint, status *int) (*catalog.Package, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var entity catalog.Package
	if err := query.First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindBySlug 按派生 slug 查询包。
func (r *PackageRepository) FindBySlug(ctx context.Context, slugVal string, status *int) (*catalog.Package, error) {
	query := r.db.WithContext(ctx).Where("slug = ?", slugVal)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var entity catalog.Package
	if err := query.First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindOwned 返回属于指定所有者的包，忽略发布状态。
func (r *PackageRepository) FindOwned(ctx context.Context, ownerID, id uint) (*catalog.Package, error) {
	var entity catalog.Package
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// List 按过滤条件返回一页包记录及总数，按创建时间倒序。
func (r *PackageRepository) List(ctx context.Context, filter PackageListFilter) ([]catalog.Package, int64, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Package{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR short_summary LIKE ?", pattern, pattern)
	}
	if filter.CatID != 0 {
		query = query.Where("cat_id = ?", filter.CatID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count packages: %w", err)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var items []catalog.Package
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list packages: %w", err)
	}
	return items, total, nil
}

// UpdateStatus 切换包的发布状态，供审核/发布流程使用。
// 包不存在时返回 gorm.ErrRecordNotFound。
func (r *PackageRepository) UpdateStatus(ctx context.Context, id uint, status int) error {
	result := r.db.WithContext(ctx).Model(&catalog.Package{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("update package status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&catalog.Package{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check package exists: %w", err)
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// DeleteCascade 以单个事务清除包及其全部依赖记录：
// 媒体、链接、版本连接、评分、回复、顶层评论、举报、轮播位，最后删除包本身。
// 任一步失败整体回滚，不存在半删状态。包不存在或不属于 ownerID 时返回 gorm.ErrRecordNotFound。
func (r *PackageRepository) DeleteCascade(ctx context.Context, ownerID, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity catalog.Package
		if err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&entity).Error; err != nil {
			return err
		}

		if err := tx.Where("package_id = ?", id).Delete(&catalog.Image{}).Error; err != nil {
			return fmt.Errorf("purge package images: %w", err)
		}
		if err := tx.Where("package_id = ?", id).Delete(&catalog.Url{}).Error; err != nil {
			return fmt.Errorf("purge package urls: %w", err)
		}
		if err := tx.Where("package_id = ?", id).Delete(&catalog.PackageVersion{}).Error; err != nil {
			return fmt.Errorf("purge package version links: %w", err)
		}
		if err := tx.Where("package_id = ?", id).Delete(&catalog.Rating{}).Error; err != nil {
			return fmt.Errorf("purge package ratings: %w", err)
		}
		// 先删回复再删顶层评论，满足父子引用的删除顺序。
		if err := tx.Where("package_id = ? AND parent_id IS NOT NULL", id).Delete(&catalog.Comment{}).Error; err != nil {
			return fmt.Errorf("purge package replies: %w", err)
		}
		if err := tx.Where("package_id = ?", id).Delete(&catalog.Comment{}).Error; err != nil {
			return fmt.Errorf("purge package comments: %w", err)
		}
		if err := tx.Where("package_id = ?", id).Delete(&catalog.Report{}).Error; err != nil {
			return fmt.Errorf("purge package reports: %w", err)
		}
		if err := tx.Where("package_id = ?", id).Delete(&catalog.Carousel{}).Error; err != nil {
			return fmt.Errorf("purge package carousels: %w", err)
		}
		if err := tx.Delete(&catalog.Package{}, id).Error; err != nil {
			return fmt.Errorf("delete package: %w", err)
		}
		return nil
	})
}

// ListImages 批量加载若干包的媒体记录。
func (r *PackageRepository) ListImages(ctx context.Context, packageIDs []uint) (map[uint][]catalog.Image, error) {
	result := make(map[uint][]catalog.Image, len(packageIDs))
	if len(packageIDs) == 0 {
		return result, nil
	}
	var rows []catalog.Image
	if err := r.db.WithContext(ctx).
		Where("package_id IN ?", packageIDs).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list package images: %w", err)
	}
	for _, row := range rows {
		result[row.PackageID] = append(result[row.PackageID], row)
	}
	return result, nil
}

// ListUrls 批量加载若干包的出站链接。
func (r *PackageRepository) ListUrls(ctx context.Context, packageIDs []uint) (map[uint][]catalog.Url, error) {
	result := make(map[uint][]catalog.Url, len(packageIDs))
	if len(packageIDs) == 0 {
		return result, nil
	}
	var rows []catalog.Url
	if err := r.db.WithContext(ctx).
		Where("package_id IN ?", packageIDs).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list package urls: %w", err)
	}
	for _, row := range rows {
		result[row.PackageID] = append(result[row.PackageID], row)
	}
	return result, nil
}

// ListVersions 返回指定包的版本列表：直接归属的记录与 connect 方式关联的共享记录，新记录在前。
func (r *PackageRepository) ListVersions(ctx context.Context, packageID uint) ([]catalog.Version, error) {
	var rows []catalog.Version
	err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Or("id IN (?)", r.db.Model(&catalog.PackageVersion{}).
			Select("version_id").
			Where("package_id = ?", packageID)).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list package versions: %w", err)
	}
	return rows, nil
}
