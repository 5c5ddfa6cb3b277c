package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"recipebox/internal/account"
	"recipebox/internal/api/middleware"
	"recipebox/internal/auth"
	"recipebox/internal/errcode"
	"recipebox/internal/policy"
	"recipebox/internal/recipe"
	"recipebox/internal/relation"
	"recipebox/internal/validate"
)

var errRateLimited = errors.New("too many login attempts, try again later")

type errorResponse struct {
	Error  string               `json:"error"`
	Code   int                  `json:"code"`
	Fields validate.FieldErrors `json:"fields,omitempty"`
}

func Error(c *gin.Context, status, code int, msg string) {
	c.JSON(status, errorResponse{Error: msg, Code: code})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: errcode.AuthenticationFailed})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, errcode.ValidationFailed, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, errcode.PermissionDenied, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, errcode.ResourceMissing, msg) }
func Internal(c *gin.Context)               { Error(c, http.StatusInternalServerError, errcode.SystemError, "internal error") }

// respondError 将领域错误映射为统一的 JSON 错误响应。未识别的错误记录日志并返回 500。
func respondError(c *gin.Context, err error) {
	if fe, ok := validate.AsFieldErrors(err); ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Code: errcode.ValidationFailed, Fields: fe})
		return
	}

	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		Error(c, http.StatusBadRequest, errcode.AuthenticationFailed, "Unable to log in with provided credentials.")
	case errors.Is(err, policy.ErrUnauthenticated),
		errors.Is(err, account.ErrInactive),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenRevoked):
		Error(c, http.StatusUnauthorized, errcode.AuthenticationFailed, err.Error())
	case errors.Is(err, policy.ErrForbidden):
		Forbidden(c, err.Error())
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, recipe.ErrNotFound),
		errors.Is(err, recipe.ErrAuthorNotFound),
		errors.Is(err, relation.ErrRecipeNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, relation.ErrNotRelated):
		Error(c, http.StatusBadRequest, errcode.RelationConflict, err.Error())
	case errors.Is(err, errRateLimited):
		Error(c, http.StatusTooManyRequests, errcode.RateLimited, err.Error())
	default:
		middleware.LoggerFromContext(c).Error("request failed", slog.Any("error", err))
		Internal(c)
	}
}

// bindJSON 解码请求体，失败时写入 400 并返回 false。
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:  "malformed request body",
			Code:   errcode.ValidationFailed,
			Fields: validate.Field("non_field_errors", err.Error()),
		})
		return false
	}
	return true
}
