package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"lf-go-app/backend/internal/handler"
	"lf-go-app/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	CategoryHandler  *handler.CategoryHandler
	PackageHandler   *handler.PackageHandler
	CommentHandler   *handler.CommentHandler
	RatingHandler    *handler.RatingHandler
	ReportHandler    *handler.ReportHandler
	VersionHandler   *handler.VersionHandler
	CarouselHandler  *handler.CarouselHandler
	AppUpdateHandler *handler.AppUpdateHandler
	UploadHandler    *handler.UploadHandler
	AuthMW           middleware.Authenticator
	StaticFS         http.FileSystem
}

// NewRouter 构建应用的 Gin Engine，汇总所有 REST 接口与公共中间件配置。
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// gin 中间件配置
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  false,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return false
			}
			if origin == "null" {
				return true
			}
			if strings.HasPrefix(origin, "http://localhost:") {
				return true
			}
			if strings.HasPrefix(origin, "http://127.0.0.1:") {
				return true
			}
			return false
		},
	}))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
	}))

	if opts.StaticFS != nil {
		r.StaticFS("/static", opts.StaticFS)
	} else {
		r.Static("/static", "./public")
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		if opts.AuthHandler != nil {
			authGroup := api.Group("/auth")
			authGroup.GET("/captcha", opts.AuthHandler.Captcha)
			authGroup.POST("/register", opts.AuthHandler.Register)
			authGroup.POST("/login", opts.AuthHandler.Login)
			authGroup.POST("/external", opts.AuthHandler.External)
			authGroup.POST("/refresh", opts.AuthHandler.Refresh)
			authGroup.POST("/logout", opts.AuthHandler.Logout)
		}

		// /api/users/me 下的路由需要登录；公开主页单独分组，不挂鉴权。
		if opts.UserHandler != nil {
			userGroup := api.Group("/users")
			if opts.AuthMW != nil {
				userGroup.Use(opts.AuthMW.Handle())
			}
			userGroup.GET("/me", opts.UserHandler.GetMe)
			userGroup.PUT("/me", opts.UserHandler.UpdateMe)
			userGroup.GET("/me/following", opts.UserHandler.ListFollowing)
			userGroup.POST("/:id/follow", opts.UserHandler.ToggleFollow)

			publicUsers := api.Group("/users")
			publicUsers.GET("/:id", opts.UserHandler.PublicProfile)
		}

		if opts.CategoryHandler != nil {
			categories := api.Group("/categories")
			categories.GET("", opts.CategoryHandler.ListRoots)
			categories.GET("/:id/packages", opts.CategoryHandler.Packages)

			if opts.AuthMW != nil {
				adminCategories := api.Group("/categories")
				adminCategories.Use(opts.AuthMW.Handle())
				adminCategories.POST("", opts.CategoryHandler.Create)
				adminCategories.PUT("/:id", opts.CategoryHandler.Update)
			}
		}

		if opts.PackageHandler != nil {
			// 公共读取路径挂可选鉴权：登录用户能拿到 is_mine 标记，匿名照常访问。
			packages := api.Group("/packages")
			if opts.AuthMW != nil {
				packages.Use(opts.AuthMW.Optional())
			}
			packages.GET("", opts.PackageHandler.ListPublic)
			packages.GET("/:id", opts.PackageHandler.GetPublic)
			if opts.CommentHandler != nil {
				packages.GET("/:id/comments", opts.CommentHandler.List)
			}

			owned := api.Group("/packages")
			if opts.AuthMW != nil {
				owned.Use(opts.AuthMW.Handle())
			}
			owned.POST("", opts.PackageHandler.Create)
			owned.GET("/mine", opts.PackageHandler.ListOwned)
			owned.GET("/mine/:id", opts.PackageHandler.GetOwned)
			owned.PUT("/:id", opts.PackageHandler.Update)
			owned.DELETE("/:id", opts.PackageHandler.Delete)
			owned.POST("/:id/publish", opts.PackageHandler.Publish)
			if opts.CommentHandler != nil {
				owned.POST("/:id/comments", opts.CommentHandler.Create)
				owned.DELETE("/comments/:commentId", opts.CommentHandler.Delete)
			}
			if opts.RatingHandler != nil {
				owned.PUT("/:id/rating", opts.RatingHandler.Rate)
				owned.GET("/:id/rating", opts.RatingHandler.MyRating)
			}
		}

		if opts.ReportHandler != nil {
			reports := api.Group("/reports")
			if opts.AuthMW != nil {
				reports.Use(opts.AuthMW.Handle())
			}
			reports.POST("", opts.ReportHandler.Create)
			reports.GET("", opts.ReportHandler.List)
		}

		if opts.VersionHandler != nil {
			versions := api.Group("/versions")
			if opts.AuthMW != nil {
				versions.Use(opts.AuthMW.Handle())
			}
			versions.GET("", opts.VersionHandler.List)
			versions.POST("", opts.VersionHandler.Create)
			versions.PUT("/:id", opts.VersionHandler.Update)
			versions.DELETE("/:id", opts.VersionHandler.Delete)
		}

		if opts.CarouselHandler != nil {
			carousels := api.Group("/carousels")
			carousels.GET("", opts.CarouselHandler.List)

			if opts.AuthMW != nil {
				adminCarousels := api.Group("/carousels")
				adminCarousels.Use(opts.AuthMW.Handle())
				adminCarousels.POST("", opts.CarouselHandler.Create)
				adminCarousels.DELETE("/:id", opts.CarouselHandler.Delete)
			}
		}

		if opts.AppUpdateHandler != nil {
			updates := api.Group("/app-updates")
			updates.GET("/latest", opts.AppUpdateHandler.Latest)

			if opts.AuthMW != nil {
				adminUpdates := api.Group("/app-updates")
				adminUpdates.Use(opts.AuthMW.Handle())
				adminUpdates.GET("", opts.AppUpdateHandler.List)
				adminUpdates.POST("", opts.AppUpdateHandler.Create)
			}
		}

		if opts.UploadHandler != nil {
			uploads := api.Group("/uploads")
			// 头像上传在注册阶段也会使用，所以该路由不强制登录。
			uploads.POST("/avatar", opts.UploadHandler.UploadAvatar)
			if opts.AuthMW != nil {
				authUploads := api.Group("/uploads")
				authUploads.Use(opts.AuthMW.Handle())
				authUploads.POST("/image", opts.UploadHandler.UploadImage)
			}
		}
	}

	return r
}
