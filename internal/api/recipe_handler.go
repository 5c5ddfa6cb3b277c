package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"recipebox/internal/api/middleware"
	"recipebox/internal/database"
	"recipebox/internal/metrics"
	"recipebox/internal/policy"
	"recipebox/internal/recipe"
	"recipebox/internal/relation"
)

// RecipeHandler 处理菜谱的增删改查以及点赞、收藏。
// 路由挂载 OptionalAuthMiddleware，权限由 policy 按操作判定。
type RecipeHandler struct {
	recipes    *recipe.Store
	likes      *relation.Store
	bookmarks  *relation.Store
	serializer recipeSerializer
}

// NewRecipeHandler 构造菜谱处理器。
func NewRecipeHandler(recipes *recipe.Store, likes, bookmarks *relation.Store, renderer *recipe.Renderer) *RecipeHandler {
	return &RecipeHandler{
		recipes:    recipes,
		likes:      likes,
		bookmarks:  bookmarks,
		serializer: recipeSerializer{likes: likes, bookmarks: bookmarks, renderer: renderer},
	}
}

// List 返回菜谱列表，支持 ?author__username= 过滤。
func (h *RecipeHandler) List(c *gin.Context) {
	subject := subjectFromContext(c)
	if err := policy.Allow(policy.PublicRead, c.Request.Method, subject, 0); err != nil {
		respondError(c, err)
		return
	}

	recipes, err := h.recipes.List(c.Request.Context(), recipe.ListFilter{AuthorUsername: c.Query("author__username")})
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := h.serializer.many(c.Request.Context(), recipes, subject.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Create 以当前用户为作者创建菜谱。
func (h *RecipeHandler) Create(c *gin.Context) {
	subject := subjectFromContext(c)
	if err := policy.Allow(policy.Authenticated, c.Request.Method, subject, 0); err != nil {
		respondError(c, err)
		return
	}

	var in recipe.Input
	if !bindJSON(c, &in) {
		return
	}

	created, err := h.recipes.Create(c.Request.Context(), subject.UserID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.LoggerFromContext(c).Info("recipe created", slog.Uint64("recipe_id", uint64(created.ID)))

	h.reply(c, http.StatusCreated, created, subject.UserID)
}

// Detail 返回单个菜谱。
func (h *RecipeHandler) Detail(c *gin.Context) {
	id, ok := recipeIDParam(c)
	if !ok {
		return
	}
	subject := subjectFromContext(c)

	r, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reply(c, http.StatusOK, r, subject.UserID)
}

// Update 整体替换菜谱内容，仅作者可操作。
func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := recipeIDParam(c)
	if !ok {
		return
	}
	subject := subjectFromContext(c)
	if !h.authorize(c, id, subject) {
		return
	}

	var in recipe.Input
	if !bindJSON(c, &in) {
		return
	}

	updated, err := h.recipes.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reply(c, http.StatusOK, updated, subject.UserID)
}

// Delete 删除菜谱及其点赞、收藏，仅作者可操作。
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := recipeIDParam(c)
	if !ok {
		return
	}
	subject := subjectFromContext(c)
	if !h.authorize(c, id, subject) {
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	middleware.LoggerFromContext(c).Info("recipe deleted", slog.Uint64("recipe_id", uint64(id)))
	c.Status(http.StatusNoContent)
}

// Like 处理 POST/DELETE /recipes/:id/like/。
func (h *RecipeHandler) Like(c *gin.Context) {
	h.changeRelation(c, h.likes)
}

// Bookmark 处理 POST/DELETE /recipes/:id/bookmark/。
func (h *RecipeHandler) Bookmark(c *gin.Context) {
	h.changeRelation(c, h.bookmarks)
}

// changeRelation POST 切换关系（新建 201，取消 200），DELETE 严格删除（不存在时 400）。
func (h *RecipeHandler) changeRelation(c *gin.Context, store *relation.Store) {
	id, ok := recipeIDParam(c)
	if !ok {
		return
	}
	subject := subjectFromContext(c)
	if err := policy.Allow(policy.Authenticated, c.Request.Method, subject, 0); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	kind := store.Kind().Name
	logger := middleware.LoggerFromContext(c).With(
		slog.String("relation", kind),
		slog.Uint64("recipe_id", uint64(id)),
	)

	switch c.Request.Method {
	case http.MethodPost:
		outcome, err := store.Toggle(ctx, subject.UserID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		metrics.ObserveRelationChange(kind, outcome.String())
		logger.Info("relation toggled", slog.String("outcome", outcome.String()))

		status := http.StatusOK
		if outcome == relation.Added {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"status": outcome.String()})
	case http.MethodDelete:
		if err := store.Remove(ctx, subject.UserID, id); err != nil {
			respondError(c, err)
			return
		}
		metrics.ObserveRelationChange(kind, relation.Removed.String())
		logger.Info("relation removed")
		c.JSON(http.StatusOK, gin.H{"status": relation.Removed.String()})
	default:
		c.Status(http.StatusMethodNotAllowed)
	}
}

// authorize 先要求登录，再加载菜谱并校验作者身份；失败时已写入响应。
func (h *RecipeHandler) authorize(c *gin.Context, id uint, subject policy.Subject) bool {
	if err := policy.Allow(policy.Authenticated, c.Request.Method, subject, 0); err != nil {
		respondError(c, err)
		return false
	}
	r, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return false
	}
	if err := policy.Allow(policy.AuthorOrReadOnly, c.Request.Method, subject, r.AuthorID); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

func (h *RecipeHandler) reply(c *gin.Context, status int, r *database.Recipe, viewer uint) {
	out, err := h.serializer.one(c.Request.Context(), *r, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, out)
}

func recipeIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		NotFound(c, "recipe not found")
		return 0, false
	}
	return uint(id), true
}
