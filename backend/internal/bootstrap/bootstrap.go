package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"lf-go-app/backend/internal/app"
	"lf-go-app/backend/internal/config"
	"lf-go-app/backend/internal/handler"
	"lf-go-app/backend/internal/infra/captcha"
	"lf-go-app/backend/internal/infra/ratelimit"
	"lf-go-app/backend/internal/infra/token"
	"lf-go-app/backend/internal/middleware"
	"lf-go-app/backend/internal/repository"
	"lf-go-app/backend/internal/server"
	appupdatesvc "lf-go-app/backend/internal/service/appupdate"
	authsvc "lf-go-app/backend/internal/service/auth"
	carouselsvc "lf-go-app/backend/internal/service/carousel"
	catalogsvc "lf-go-app/backend/internal/service/catalog"
	categorysvc "lf-go-app/backend/internal/service/category"
	commentsvc "lf-go-app/backend/internal/service/comment"
	ratingsvc "lf-go-app/backend/internal/service/rating"
	reportsvc "lf-go-app/backend/internal/service/report"
	socialsvc "lf-go-app/backend/internal/service/social"
	usersvc "lf-go-app/backend/internal/service/user"
	versionsvc "lf-go-app/backend/internal/service/version"

	"go.uber.org/zap"
)

const (
	defaultPackageWriteLimit  = 10
	defaultPackageWriteWindow = time.Minute
	defaultCommentLimit       = 6
	defaultCommentWindow      = time.Minute
	defaultRatingLimit        = 20
	defaultRatingWindow       = time.Minute
)

// Application 聚合构建完的服务与路由，供入口启动 HTTP 服务。
type Application struct {
	Resources *app.Resources
	AuthSvc   *authsvc.Service
	Router    http.Handler
}

// BuildApplication 完成仓储、服务、处理器到路由的全部装配。
// Redis 缺失时刷新令牌与限流均退化为进程内实现。
func BuildApplication(ctx context.Context, logger *zap.SugaredLogger, resources *app.Resources, cfg config.RuntimeConfig) (*Application, error) {
	db := resources.DBConn()

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	reportRepo := repository.NewReportRepository(db)
	carouselRepo := repository.NewCarouselRepository(db)
	appUpdateRepo := repository.NewAppUpdateRepository(db)

	tokens := token.NewJWTManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)

	var refreshStore authsvc.RefreshTokenStore
	if resources.Redis != nil {
		refreshStore = token.NewRedisRefreshTokenStore(resources.Redis, "")
	} else {
		refreshStore = token.NewMemoryRefreshTokenStore()
		logger.Infow("using in-memory refresh token store; tokens won't persist across restarts")
	}

	captchaManager, err := initCaptchaManager(resources, logger)
	if err != nil {
		return nil, err
	}

	var limiter ratelimit.Limiter
	if resources.Redis != nil {
		limiter = ratelimit.NewRedisLimiter(resources.Redis, "")
	} else {
		limiter = ratelimit.NewMemoryLimiter()
		logger.Infow("using in-memory rate limiter; counters reset on restart")
	}

	authService := authsvc.NewService(userRepo, tokens, refreshStore, captchaManager)
	userService := usersvc.NewService(userRepo, logger)
	socialService := socialsvc.NewService(followRepo, userRepo, logger, socialsvc.Config{})
	catalogService := catalogsvc.NewService(packageRepo, versionRepo, commentRepo, userRepo, categoryRepo, logger, catalogsvc.Config{})
	categoryService := categorysvc.NewService(categoryRepo, packageRepo, userRepo, logger, categorysvc.Config{})
	commentService := commentsvc.NewService(commentRepo, packageRepo, userRepo, logger, commentsvc.Config{})
	ratingService := ratingsvc.NewService(ratingRepo, packageRepo, logger)
	reportService := reportsvc.NewService(reportRepo, userRepo, logger)
	versionService := versionsvc.NewService(versionRepo, logger)
	carouselService := carouselsvc.NewService(carouselRepo, packageRepo, userRepo, logger)
	appUpdateService := appupdatesvc.NewService(appUpdateRepo, logger)

	packageLimits := handler.PackageWriteRateLimit{
		WriteLimit:  envInt("PACKAGE_WRITE_RATE_LIMIT", defaultPackageWriteLimit),
		WriteWindow: envDuration("PACKAGE_WRITE_RATE_WINDOW", defaultPackageWriteWindow),
	}
	commentLimits := handler.CommentRateLimit{
		CreateLimit:  envInt("COMMENT_CREATE_RATE_LIMIT", defaultCommentLimit),
		CreateWindow: envDuration("COMMENT_CREATE_RATE_WINDOW", defaultCommentWindow),
	}
	ratingLimits := handler.RatingRateLimit{
		WriteLimit:  envInt("RATING_WRITE_RATE_LIMIT", defaultRatingLimit),
		WriteWindow: envDuration("RATING_WRITE_RATE_WINDOW", defaultRatingWindow),
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	router := server.NewRouter(server.RouterOptions{
		AuthHandler:      handler.NewAuthHandler(authService),
		UserHandler:      handler.NewUserHandler(userService, socialService),
		CategoryHandler:  handler.NewCategoryHandler(categoryService),
		PackageHandler:   handler.NewPackageHandler(catalogService, limiter, packageLimits),
		CommentHandler:   handler.NewCommentHandler(commentService, limiter, commentLimits),
		RatingHandler:    handler.NewRatingHandler(ratingService, limiter, ratingLimits),
		ReportHandler:    handler.NewReportHandler(reportService),
		VersionHandler:   handler.NewVersionHandler(versionService),
		CarouselHandler:  handler.NewCarouselHandler(carouselService),
		AppUpdateHandler: handler.NewAppUpdateHandler(appUpdateService),
		UploadHandler:    handler.NewUploadHandler("public"),
		AuthMW:           authMiddleware,
	})

	return &Application{
		Resources: resources,
		AuthSvc:   authService,
		Router:    router,
	}, nil
}

// initCaptchaManager 按环境变量决定是否启用图形验证码。
// 启用时必须有 Redis 存储验证码答案，否则启动失败。
func initCaptchaManager(resources *app.Resources, logger *zap.SugaredLogger) (authsvc.CaptchaManager, error) {
	captchaOpts, captchaEnabled, err := captcha.LoadOptionsFromEnv()
	if err != nil {
		logger.Errorw("load captcha config failed", "error", err)
		return nil, fmt.Errorf("load captcha config: %w", err)
	}

	if !captchaEnabled {
		return nil, nil
	}

	if resources.Redis == nil {
		return nil, fmt.Errorf("captcha enabled but redis not configured")
	}

	manager := captcha.NewManager(resources.Redis, captchaOpts)
	logger.Infow("captcha enabled", "prefix", captchaOpts.Prefix, "ttl", captchaOpts.TTL)
	return manager, nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
