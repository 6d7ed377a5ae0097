package repository

import (
	"context"
	"errors"
	"fmt"

	"lf-go-app/backend/internal/domain/catalog"

	"gorm.io/gorm"
)

// ReportRepository 负责举报记录的持久化操作，只有追加与读取两种路径。
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository 构造举报仓储。
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create 追加一条举报记录。
func (r *ReportRepository) Create(ctx context.Context, entity *catalog.Report) error {
	if entity == nil {
		return errors.New("report entity is nil")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// ListAll 返回全部举报记录，新记录在前，供管理面使用。
func (r *ReportRepository) ListAll(ctx context.Context) ([]catalog.Report, error) {
	var items []catalog.Report
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return items, nil
}
