package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// extractUserID 从鉴权中间件注入的上下文取出当前用户编号。
func extractUserID(c *gin.Context) (uint, bool) {
	val, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	switch id := val.(type) {
	case uint:
		return id, true
	case uint64:
		return uint(id), true
	case int:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case int64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case float64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	default:
		return 0, false
	}
}

// isAdmin 判断当前调用者是否携带管理员标记。
func isAdmin(c *gin.Context) bool {
	val, ok := c.Get("isAdmin")
	if !ok {
		return false
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}

// pathID 解析路径参数里的正整数编号。
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	num, err := strconv.Atoi(raw)
	if err != nil || num <= 0 {
		return 0, false
	}
	return uint(num), true
}

// queryInt 解析查询参数里的整数，解析失败时退回默认值。
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.DefaultQuery(name, ""))
	if raw == "" {
		return fallback
	}
	num, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return num
}
