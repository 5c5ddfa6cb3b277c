package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recipebox/internal/account"
	"recipebox/internal/auth"
	"recipebox/internal/errcode"
)

const userIDKey = "userID"

// AccessTokenValidator 校验访问令牌，由 *auth.Service 实现。
type AccessTokenValidator interface {
	ValidateAccess(token string) (*auth.TokenClaims, error)
}

// ActiveUserChecker 确认令牌主体仍是存在且激活的账号，由 *account.Store 实现。
type ActiveUserChecker interface {
	CheckActive(ctx context.Context, userID uint) error
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": errcode.AuthenticationFailed})
}

// authenticate 解析令牌并确认主体账号可用，失败时已写入响应。
func authenticate(c *gin.Context, validator AccessTokenValidator, users ActiveUserChecker) (uint, bool) {
	rawToken, ok := bearerToken(c)
	if !ok {
		abortUnauthorized(c)
		return 0, false
	}

	claims, err := validator.ValidateAccess(rawToken)
	if err != nil {
		abortUnauthorized(c)
		return 0, false
	}

	if err := users.CheckActive(c.Request.Context(), claims.UserID); err != nil {
		if errors.Is(err, account.ErrNotFound) || errors.Is(err, account.ErrInactive) {
			LoggerFromContext(c).Info("token subject rejected", slog.Uint64("user_id", uint64(claims.UserID)), slog.Any("error", err))
			abortUnauthorized(c)
			return 0, false
		}
		LoggerFromContext(c).Error("token subject lookup failed", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": errcode.SystemError})
		return 0, false
	}
	return claims.UserID, true
}

// AuthMiddleware 校验访问令牌与账号状态，并将 userID 注入上下文。
// 账号已删除或停用时返回 401。
func AuthMiddleware(validator AccessTokenValidator, users ActiveUserChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := authenticate(c, validator, users)
		if !ok {
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware 在携带有效访问令牌时注入 userID，未携带时匿名放行。
// 携带了但无效的令牌仍然返回 401。
func OptionalAuthMiddleware(validator AccessTokenValidator, users ActiveUserChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("Authorization")) == "" {
			c.Next()
			return
		}

		userID, ok := authenticate(c, validator, users)
		if !ok {
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID 返回认证中间件注入的用户 ID。
func UserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	rawToken := strings.TrimSpace(parts[1])
	return rawToken, rawToken != ""
}
