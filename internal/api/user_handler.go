package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"recipebox/internal/account"
	"recipebox/internal/api/middleware"
	"recipebox/internal/recipe"
	"recipebox/internal/relation"
	"recipebox/internal/tasks"
	"recipebox/internal/validate"
)

// UserHandler 处理当前用户的账号、资料、收藏与改密。所有路由都要求登录。
type UserHandler struct {
	accounts   *account.Store
	recipes    *recipe.Store
	bookmarks  *relation.Store
	serializer recipeSerializer
	enqueuer   TaskEnqueuer
}

// NewUserHandler 构造用户处理器。
func NewUserHandler(accounts *account.Store, recipes *recipe.Store, likes, bookmarks *relation.Store, renderer *recipe.Renderer, enqueuer TaskEnqueuer) *UserHandler {
	return &UserHandler{
		accounts:   accounts,
		recipes:    recipes,
		bookmarks:  bookmarks,
		serializer: recipeSerializer{likes: likes, bookmarks: bookmarks, renderer: renderer},
		enqueuer:   enqueuer,
	}
}

// Me 返回当前用户。
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	user, err := h.accounts.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

// UpdateMe 部分更新当前用户的用户名、邮箱与姓名。
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var patch account.UserPatch
	if !bindJSON(c, &patch) {
		return
	}

	user, err := h.accounts.UpdateUser(c.Request.Context(), userID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

// DeleteMe 删除当前账号及其名下全部数据，头像对象交由 worker 清理。
func (h *UserHandler) DeleteMe(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	view, err := h.accounts.GetProfile(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.accounts.Delete(ctx, userID); err != nil {
		respondError(c, err)
		return
	}
	middleware.LoggerFromContext(c).Info("account deleted", slog.Uint64("user_id", uint64(userID)))

	if avatar := view.Profile.Avatar; avatar != "" {
		correlationID := middleware.GetCorrelationID(c)
		enqueue(c, h.enqueuer, func() (*asynq.Task, error) {
			return tasks.NewAvatarCleanupTask(avatar, correlationID)
		})
	}
	c.Status(http.StatusNoContent)
}

// Profile 返回简介与收藏的菜谱 ID。
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	view, err := h.accounts.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{Bio: view.Profile.Bio, Bookmarks: view.Bookmarks})
}

// UpdateProfile 部分更新简介；提供 bookmarks 时整体替换收藏集合。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var patch account.ProfilePatch
	if !bindJSON(c, &patch) {
		return
	}

	view, err := h.accounts.UpdateProfile(c.Request.Context(), userID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{Bio: view.Profile.Bio, Bookmarks: view.Bookmarks})
}

// ChangePassword 校验旧密码后更新为新密码。
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req account.PasswordChangeInput
	if !bindJSON(c, &req) {
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}
	middleware.LoggerFromContext(c).Info("password changed", slog.Uint64("user_id", uint64(userID)))
	c.JSON(http.StatusOK, gin.H{"detail": "Password updated successfully."})
}

type bookmarkRequest struct {
	ID uint `json:"id" validate:"required"`
}

// Bookmarks 处理 /users/profile/:id/bookmarks/：GET 列出收藏的菜谱，POST 幂等收藏，DELETE 幂等取消。
// 路径中的 id 必须是当前用户。
func (h *UserHandler) Bookmarks(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	pathID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		NotFound(c, "user not found")
		return
	}
	if uint(pathID) != userID {
		Forbidden(c, "you can only manage your own bookmarks")
		return
	}

	ctx := c.Request.Context()
	if c.Request.Method == http.MethodGet {
		ids, err := h.bookmarks.RecipeIDs(ctx, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		recipes, err := h.recipes.ListByIDs(ctx, ids)
		if err != nil {
			respondError(c, err)
			return
		}
		out, err := h.serializer.many(ctx, recipes, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
		return
	}

	var req bookmarkRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validate.Struct(req).Err(); err != nil {
		respondError(c, err)
		return
	}

	switch c.Request.Method {
	case http.MethodPost:
		err = h.bookmarks.Ensure(ctx, userID, req.ID)
	case http.MethodDelete:
		err = h.bookmarks.Discard(ctx, userID, req.ID)
	default:
		c.Status(http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	ids, err := h.bookmarks.RecipeIDs(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": ids})
}
