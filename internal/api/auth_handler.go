package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"recipebox/internal/account"
	"recipebox/internal/api/middleware"
	"recipebox/internal/auth"
	"recipebox/internal/database"
	"recipebox/internal/errcode"
	"recipebox/internal/metrics"
	"recipebox/internal/tasks"
	"recipebox/internal/validate"
)

// AuthHandler 处理注册、登录、刷新与退出。
type AuthHandler struct {
	accounts              *account.Store
	authService           *auth.Service
	redis                 redis.UniversalClient
	enqueuer              TaskEnqueuer
	loginRateLimitPerHour int
}

// NewAuthHandler 构造认证处理器。redisClient 为 nil 时不做登录限流，enqueuer 为 nil 时不发送欢迎邮件。
func NewAuthHandler(accounts *account.Store, authService *auth.Service, redisClient redis.UniversalClient, enqueuer TaskEnqueuer, loginRateLimitPerHour int) *AuthHandler {
	return &AuthHandler{
		accounts:              accounts,
		authService:           authService,
		redis:                 redisClient,
		enqueuer:              enqueuer,
		loginRateLimitPerHour: loginRateLimitPerHour,
	}
}

// Register 创建账号与资料，并直接返回一对令牌。
func (h *AuthHandler) Register(c *gin.Context) {
	var req account.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(user.ID)))
	logger.Info("user registered")

	correlationID := middleware.GetCorrelationID(c)
	enqueue(c, h.enqueuer, func() (*asynq.Task, error) {
		return tasks.NewWelcomeMailTask(user.ID, user.Email, user.Username, correlationID)
	})

	h.replyWithTokenPair(c, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login 以邮箱与密码登录。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validate.Struct(req).Err(); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := middleware.LoggerFromContext(c)

	// 速率限制：每 IP+邮箱 每小时 loginRateLimitPerHour 次。
	if h.redis != nil && h.loginRateLimitPerHour > 0 {
		rateKey := "rate:login:" + c.ClientIP() + ":" + email + ":" + time.Now().UTC().Format("2006010215")
		count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
		if err != nil {
			logger.Warn("login rate counter unavailable", slog.Any("error", err))
			count = 0
		}
		if count > int64(h.loginRateLimitPerHour) {
			metrics.ObserveLogin("rate_limited")
			respondError(c, errRateLimited)
			return
		}
	}

	user, err := h.accounts.Authenticate(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			metrics.ObserveLogin("invalid")
			logger.Info("login failed: invalid credentials")
		}
		respondError(c, err)
		return
	}

	metrics.ObserveLogin("success")
	logger.Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
	h.replyWithTokenPair(c, http.StatusOK, user)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh 用刷新令牌换取新的访问令牌。
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Refresh) == "" {
		Error(c, http.StatusUnauthorized, errcode.AuthenticationFailed, "refresh token missing")
		return
	}

	ctx := c.Request.Context()
	token := strings.TrimSpace(req.Refresh)
	owner, err := h.authService.ValidateRefresh(ctx, token)
	if err == nil {
		err = h.accounts.CheckActive(ctx, owner.UserID)
		if errors.Is(err, account.ErrNotFound) {
			err = auth.ErrInvalidToken
		}
	}
	if err != nil {
		middleware.LoggerFromContext(c).Info("refresh rejected", slog.Any("error", err))
		respondError(c, err)
		return
	}

	access, claims, err := h.authService.Refresh(ctx, token)
	if err != nil {
		middleware.LoggerFromContext(c).Info("refresh rejected", slog.Any("error", err))
		respondError(c, err)
		return
	}

	middleware.LoggerFromContext(c).Info("access token refreshed", slog.Uint64("user_id", uint64(claims.UserID)))
	c.JSON(http.StatusOK, gin.H{"access": access})
}

// Logout 将调用方自己的刷新令牌加入黑名单。令牌无效、已吊销或不属于调用方时返回 400。
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Refresh) == "" {
		BadRequest(c, "refresh token missing")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))
	refresh := strings.TrimSpace(req.Refresh)

	claims, err := h.authService.ValidateRefresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenRevoked) {
			logger.Info("logout token rejected", slog.Any("error", err))
			BadRequest(c, "refresh token is invalid or already revoked")
			return
		}
		respondError(c, err)
		return
	}
	if claims.UserID != userID {
		logger.Warn("logout with another user's refresh token")
		BadRequest(c, "refresh token does not belong to the current user")
		return
	}

	if _, err := h.authService.Revoke(ctx, refresh); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenRevoked) {
			BadRequest(c, "refresh token is invalid or already revoked")
			return
		}
		respondError(c, err)
		return
	}

	logger.Info("refresh token revoked", slog.String("jti", claims.ID))
	c.Status(http.StatusResetContent)
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, status int, user *database.User) {
	pair, err := h.authService.IssuePair(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, authResponse{
		userResponse: newUserResponse(user),
		Tokens:       tokensResponse{Refresh: pair.RefreshToken, Access: pair.AccessToken},
	})
}
