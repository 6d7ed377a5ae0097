package repository

import (
	"context"
	"fmt"
	"math"

	"lf-go-app/backend/internal/domain/catalog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingRepository 负责评分行与包聚合缓存的持久化操作。
type RatingRepository struct {
	db *gorm.DB
}

// NewRatingRepository 构造评分仓储。
func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// UpsertAndRecount 在单个事务中完成评分写入与聚合回写：
// 以 (userId, packageId) 为键 upsert，同一用户重复打分覆盖旧值而非新增行；
// 随后对该包的全部评分做一次全量统计，把行数与两位小数的平均分写回包记录。
// 全量重算换来并发写下的最终一致：最后一个写入者的回写必然反映当时的完整数据。
func (r *RatingRepository) UpsertAndRecount(ctx context.Context, userID, packageID uint, score int) (int, float64, error) {
	var (
		count int
		avg   float64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rating := catalog.Rating{
			UserID:    userID,
			PackageID: packageID,
			Score:     score,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "package_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).Create(&rating).Error; err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		var agg struct {
			Total int64
			Avg   float64
		}
		if err := tx.Model(&catalog.Rating{}).
			Select("COUNT(*) AS total, COALESCE(AVG(score), 0) AS avg").
			Where("package_id = ?", packageID).
			Scan(&agg).Error; err != nil {
			return fmt.Errorf("recount ratings: %w", err)
		}

		count = int(agg.Total)
		avg = math.Round(agg.Avg*100) / 100

		result := tx.Model(&catalog.Package{}).
			Where("id = ?", packageID).
			Updates(map[string]any{
				"rating_count": count,
				"rating_avg":   avg,
			})
		if result.Error != nil {
			return fmt.Errorf("write rating aggregate: %w", result.Error)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return count, avg, nil
}

// FindByUserAndPackage 返回调用者自己的评分记录，不存在时返回 gorm.ErrRecordNotFound。
func (r *RatingRepository) FindByUserAndPackage(ctx context.Context, userID, packageID uint) (*catalog.Rating, error) {
	var entity catalog.Rating
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND package_id = ?", userID, packageID).
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// CountByPackage 返回指定包当前的评分行数，主要供一致性校验使用。
func (r *RatingRepository) CountByPackage(ctx context.Context, packageID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&catalog.Rating{}).
		Where("package_id = ?", packageID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return count, nil
}
