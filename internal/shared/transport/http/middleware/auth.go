package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"KingdomWars/internal/shared/security"
)

const ctxKeyUID = "uid"

// Auth 校验 Authorization: Bearer <token> 并把 uid 写入 gin 上下文。
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if !strings.HasPrefix(raw, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "missing token"})
			return
		}
		token := strings.TrimPrefix(raw, "Bearer ")

		_, claims, err := security.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "invalid token"})
			return
		}
		c.Set(ctxKeyUID, claims.Uid)
		c.Next()
	}
}

// UIDFrom 读取认证中间件写入的 uid。
func UIDFrom(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxKeyUID)
	if !ok {
		return 0, false
	}
	uid, ok := v.(int64)
	return uid, ok && uid > 0
}
