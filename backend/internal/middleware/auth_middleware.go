package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextUserIDKey 是注入到 gin.Context 的当前用户 ID 键名。
	ContextUserIDKey = "userID"
	// ContextIsAdminKey 是注入到 gin.Context 的管理员标记键名。
	ContextIsAdminKey = "isAdmin"
)

// AuthMiddleware 基于共享密钥校验 JWT 的合法性，保护受限路由。
type AuthMiddleware struct {
	secret string
}

// NewAuthMiddleware 创建鉴权中间件实例，注入 JWT 签名密钥。
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

// Handle 返回 Gin 中间件，验证 Bearer Token 并在上下文中注入用户身份。
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		if !m.inject(c, raw) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Next()
	}
}

// Optional 返回可选鉴权中间件：携带合法令牌时注入身份，否则按匿名请求放行。
// 适用于列表/详情这类匿名可访问、但登录后展示个性化字段的路由。
func (m *AuthMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			m.inject(c, raw)
		}
		c.Next()
	}
}

// inject 解析令牌并把 sub/is_admin 写入上下文，令牌无效时返回 false。
func (m *AuthMiddleware) inject(c *gin.Context, raw string) bool {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return []byte(m.secret), nil
	})
	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}

	userID, ok := subjectID(claims)
	if !ok {
		return false
	}

	isAdmin := false
	if flag, ok := claims["is_admin"].(bool); ok {
		isAdmin = flag
	}

	c.Set("claims", claims)
	c.Set(ContextUserIDKey, userID)
	c.Set(ContextIsAdminKey, isAdmin)
	return true
}

// bearerToken 从 Authorization 头提取 Bearer 令牌。
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(authHeader[7:])
	if raw == "" {
		return "", false
	}
	return raw, true
}

// subjectID 将 sub claim 解析为用户主键，兼容字符串与数字两种编码。
func subjectID(claims jwt.MapClaims) (uint, bool) {
	switch v := claims["sub"].(type) {
	case string:
		id64, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return uint(id64), true
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
