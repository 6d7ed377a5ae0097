package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultPort       = "3000"
	defaultAccessTTL  = 2 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// RuntimeConfig 汇总服务启动所需的运行期参数。
type RuntimeConfig struct {
	Port       string
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// LoadRuntimeConfig 从环境变量解析端口、JWT 密钥与令牌有效期。
// JWT 密钥是硬性要求，缺失时直接返回错误终止启动。
func LoadRuntimeConfig() (RuntimeConfig, error) {
	LoadEnvFiles()

	cfg := RuntimeConfig{
		Port:       strings.TrimSpace(os.Getenv("PORT")),
		JWTSecret:  strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AccessTTL:  defaultAccessTTL,
		RefreshTTL: defaultRefreshTTL,
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.JWTSecret == "" {
		return RuntimeConfig{}, fmt.Errorf("JWT_SECRET not set")
	}

	if raw := strings.TrimSpace(os.Getenv("JWT_ACCESS_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return RuntimeConfig{}, fmt.Errorf("parse JWT_ACCESS_TTL: %w", err)
		}
		cfg.AccessTTL = ttl
	}
	if raw := strings.TrimSpace(os.Getenv("JWT_REFRESH_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return RuntimeConfig{}, fmt.Errorf("parse JWT_REFRESH_TTL: %w", err)
		}
		cfg.RefreshTTL = ttl
	}

	return cfg, nil
}
