package carousel

import (
	"context"
	"errors"
	"strings"

	"lf-go-app/backend/internal/apperr"
	catalogdomain "lf-go-app/backend/internal/domain/catalog"
	userdomain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"
	"lf-go-app/backend/internal/slug"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entry 是轮播接口返回的单个条目，携带解析后的用户与包摘要。
type Entry struct {
	catalogdomain.Carousel
	User        *userdomain.Brief `json:"user,omitempty"`
	PackageSlug string            `json:"package_slug,omitempty"`
}

// Service 负责首页轮播位的读取与维护。
type Service struct {
	carousels *repository.CarouselRepository
	packages  *repository.PackageRepository
	users     *repository.UserRepository
	logger    *zap.SugaredLogger
}

// NewService 创建轮播服务实例。
func NewService(carousels *repository.CarouselRepository, packages *repository.PackageRepository, users *repository.UserRepository, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{carousels: carousels, packages: packages, users: users, logger: logger}
}

// ListAll 返回全部轮播条目（新条目在前），并为引用到的用户与包解析展示 slug。
func (s *Service) ListAll(ctx context.Context) ([]Entry, error) {
	rows, err := s.carousels.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		userIDs = append(userIDs, row.UserID)
	}
	users, err := s.users.ListByIDs(ctx, userIDs)
	if err != nil {
		s.logger.Warnw("attach carousel users failed", "error", err)
		users = map[uint]*userdomain.User{}
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := Entry{Carousel: row}
		if u := users[row.UserID]; u != nil {
			entry.User = userdomain.BriefOf(u)
		}
		if row.PackageID != nil {
			if pkg, err := s.packages.FindByID(ctx, *row.PackageID, nil); err == nil {
				entry.PackageSlug = pkg.Slug
				if entry.PackageSlug == "" {
					entry.PackageSlug = slug.WithID(pkg.Title, pkg.ID)
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Warnw("resolve carousel package failed", "error", err, "package_id", *row.PackageID)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CreateInput 描述创建轮播条目所需的字段。
type CreateInput struct {
	Title     string
	Summary   string
	ImageURL  string
	CatID     uint
	UserID    uint
	PackageID *uint
}

// Create 写入一条新的轮播条目，引用的包必须真实存在。
func (s *Service) Create(ctx context.Context, input CreateInput) (*catalogdomain.Carousel, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.New(apperr.KindValidation, "轮播标题不能为空")
	}
	if input.CatID == 0 || input.UserID == 0 {
		return nil, apperr.New(apperr.KindValidation, "缺少轮播引用的分类或用户")
	}
	if input.PackageID != nil && *input.PackageID != 0 {
		if _, err := s.packages.FindByID(ctx, *input.PackageID, nil); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.KindValidation, "轮播引用的包不存在")
			}
			return nil, err
		}
	} else {
		input.PackageID = nil
	}

	entity := &catalogdomain.Carousel{
		Title:     title,
		Summary:   strings.TrimSpace(input.Summary),
		ImageURL:  strings.TrimSpace(input.ImageURL),
		CatID:     input.CatID,
		UserID:    input.UserID,
		PackageID: input.PackageID,
	}
	if err := s.carousels.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Delete 移除一条轮播条目。
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.carousels.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "轮播条目不存在")
		}
		return err
	}
	return nil
}
