package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"lf-go-app/backend/internal/config"
	"lf-go-app/backend/internal/domain/catalog"
	"lf-go-app/backend/internal/domain/user"
	infra "lf-go-app/backend/internal/infra/client"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AppConfig 汇总启动时解析出的外部依赖配置。
type AppConfig struct {
	MySQL infra.MySQLConfig
	Redis infra.RedisOptions
}

// Resources 持有进程级共享资源，由 Bootstrap 创建、Close 释放。
type Resources struct {
	Config AppConfig
	DB     *gorm.DB
	SQLDB  *sql.DB
	Redis  *redis.Client
}

// Bootstrap 加载环境配置、建立 MySQL/Redis 连接并执行表结构迁移。
// Redis 是可选依赖：未配置 REDIS_ENDPOINT 时返回的 Resources.Redis 为 nil，
// 上层据此降级为内存实现（刷新令牌、限流）。
func Bootstrap(ctx context.Context) (*Resources, error) {
	config.LoadEnvFiles()

	mysqlCfg, err := infra.LoadMySQLConfig()
	if err != nil {
		return nil, fmt.Errorf("load mysql config: %w", err)
	}

	db, sqlDB, err := infra.NewGORMMySQL(mysqlCfg)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	resources := &Resources{
		Config: AppConfig{MySQL: mysqlCfg},
		DB:     db,
		SQLDB:  sqlDB,
	}

	redisOpts, err := infra.NewDefaultRedisOptions()
	if err != nil {
		log.Printf("redis disabled: %v", err)
		return resources, nil
	}

	redisClient, err := infra.NewRedisClient(redisOpts)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	resources.Config.Redis = redisOpts
	resources.Redis = redisClient
	return resources, nil
}

// migrate 按依赖顺序迁移全部实体表。
func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.User{},
		&user.Follow{},
		&catalog.Category{},
		&catalog.Package{},
		&catalog.Image{},
		&catalog.Url{},
		&catalog.Version{},
		&catalog.PackageVersion{},
		&catalog.Rating{},
		&catalog.Comment{},
		&catalog.Report{},
		&catalog.Carousel{},
		&catalog.AppUpdate{},
	)
}

// Close 释放 Bootstrap 建立的连接，先关 Redis 再关数据库。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			return err
		}
	}
	if r.SQLDB != nil {
		if err := r.SQLDB.Close(); err != nil {
			return err
		}
	}
	return nil
}

// DBConn 返回 GORM 连接，空接收者安全。
func (r *Resources) DBConn() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.DB
}

// WithShutdown 执行 fn 并在返回后取消上下文，错误时直接终止进程。
func WithShutdown(ctx context.Context, cancel func(), fn func(context.Context) error) {
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
