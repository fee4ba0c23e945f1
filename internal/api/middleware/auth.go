package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/chat-gateway/internal/auth"
	"github.com/d60-Lab/chat-gateway/pkg/response"
)

const (
	ctxUserIDKey   = "userID"
	ctxUsernameKey = "username"
)

// Auth 校验 Bearer 访问令牌，并把用户身份写入请求上下文。
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseToken(tokenStr, auth.TokenTypeAccess, secret)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxUsernameKey, claims.Username)
		c.Next()
	}
}

// UserID 取出 Auth 中间件写入的用户 ID，未认证时返回 0。
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(ctxUserIDKey); ok {
		if id, ok2 := v.(uint); ok2 {
			return id
		}
	}
	return 0
}

func Username(c *gin.Context) string {
	if v, ok := c.Get(ctxUsernameKey); ok {
		if name, ok2 := v.(string); ok2 {
			return name
		}
	}
	return ""
}
