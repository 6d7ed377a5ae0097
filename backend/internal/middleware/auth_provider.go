package middleware

import "github.com/gin-gonic/gin"

// Authenticator 抽象鉴权中间件：Handle 保护受限路由，Optional 为匿名可访问路由注入身份。
type Authenticator interface {
	Handle() gin.HandlerFunc
	Optional() gin.HandlerFunc
}
