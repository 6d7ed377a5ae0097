package rating

import (
	"context"
	"errors"

	"lf-go-app/backend/internal/apperr"
	"lf-go-app/backend/internal/infra/metrics"
	"lf-go-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minScore = 1
	maxScore = 5
)

// Service 维护包的评分行与其聚合缓存 (ratingCount, ratingAvg) 的一致性。
type Service struct {
	ratings  *repository.RatingRepository
	packages *repository.PackageRepository
	logger   *zap.SugaredLogger
}

// NewService 创建评分服务实例。
func NewService(ratings *repository.RatingRepository, packages *repository.PackageRepository, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{ratings: ratings, packages: packages, logger: logger}
}

// Result 描述一次评分后的聚合快照。
type Result struct {
	Score       int     `json:"score"`
	RatingCount int     `json:"rating_count"`
	RatingAvg   float64 `json:"rating_avg"`
}

// Rate 提交或覆盖调用者对某个包的评分。
// 同一 (userId, packageId) 只保留一行：重复提交覆盖旧分，不产生第二行。
// 写入后在同一事务内按全量扫描重算 count/avg 并回写到包上：
// 并发评分者之间接受快照级的“最后写入者胜出”，最终值恒收敛到真实聚合。
func (s *Service) Rate(ctx context.Context, userID, packageID uint, score int) (*Result, error) {
	if score < minScore || score > maxScore {
		return nil, apperr.Newf(apperr.KindValidation, "评分必须在 %d 到 %d 之间", minScore, maxScore)
	}
	if packageID == 0 {
		return nil, apperr.New(apperr.KindValidation, "缺少包编号")
	}

	if _, err := s.packages.FindByID(ctx, packageID, nil); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "包不存在")
		}
		return nil, err
	}

	count, avg, err := s.ratings.UpsertAndRecount(ctx, userID, packageID, score)
	if err != nil {
		metrics.RecordRatingSubmission("error")
		return nil, err
	}
	metrics.RecordRatingSubmission("ok")
	return &Result{Score: score, RatingCount: count, RatingAvg: avg}, nil
}

// MyRating 返回调用者对某个包的评分；未评过分时返回 nil 而非错误。
func (s *Service) MyRating(ctx context.Context, userID, packageID uint) (*Result, error) {
	if packageID == 0 {
		return nil, apperr.New(apperr.KindValidation, "缺少包编号")
	}
	entity, err := s.ratings.FindByUserAndPackage(ctx, userID, packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &Result{Score: entity.Score}, nil
}
