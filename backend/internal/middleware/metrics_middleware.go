package middleware

import (
	"time"

	"lf-go-app/backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 返回采集 HTTP 请求指标的 Gin 中间件。
// 以注册时的路由模板作为 route 标签，避免路径参数导致标签爆炸。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
