package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recipebox/internal/errcode"
)

// InternalSecretMiddleware 保护运维端点（/metrics），要求 X-Internal-Secret 与配置一致。
func InternalSecretMiddleware(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "internal api secret is not configured", "code": errcode.SystemError})
			return
		}
		// 密钥只从 Header 读取，避免出现在 query 与访问日志中。
		token := strings.TrimSpace(c.GetHeader("X-Internal-Secret"))
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": errcode.AuthenticationFailed})
			return
		}
		c.Next()
	}
}
