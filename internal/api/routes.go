package api

import (
	"github.com/gin-gonic/gin"

	"recipebox/internal/api/middleware"
)

// Handlers 汇总各业务处理器及其共享的令牌与账号校验器。
type Handlers struct {
	Validator middleware.AccessTokenValidator
	Accounts  middleware.ActiveUserChecker
	Auth      *AuthHandler
	Users     *UserHandler
	Avatars   *AvatarHandler
	Recipes   *RecipeHandler
}

// RegisterRoutes 注册业务路由。所有路径以 / 结尾。
func RegisterRoutes(router *gin.Engine, h Handlers) {
	requireAuth := middleware.AuthMiddleware(h.Validator, h.Accounts)
	optionalAuth := middleware.OptionalAuthMiddleware(h.Validator, h.Accounts)

	recipes := router.Group("/recipes", optionalAuth)
	{
		recipes.GET("/", h.Recipes.List)
		recipes.POST("/", h.Recipes.Create)
		recipes.GET("/:id/", h.Recipes.Detail)
		recipes.PUT("/:id/", h.Recipes.Update)
		recipes.DELETE("/:id/", h.Recipes.Delete)
		recipes.POST("/:id/like/", h.Recipes.Like)
		recipes.DELETE("/:id/like/", h.Recipes.Like)
		recipes.POST("/:id/bookmark/", h.Recipes.Bookmark)
		recipes.DELETE("/:id/bookmark/", h.Recipes.Bookmark)
	}

	users := router.Group("/users")
	{
		users.POST("/register/", h.Auth.Register)
		users.POST("/login/", h.Auth.Login)
		users.POST("/token/refresh/", h.Auth.Refresh)
		users.POST("/logout/", requireAuth, h.Auth.Logout)

		me := users.Group("", requireAuth)
		me.GET("/", h.Users.Me)
		me.PUT("/", h.Users.UpdateMe)
		me.DELETE("/", h.Users.DeleteMe)
		me.GET("/profile/", h.Users.Profile)
		me.PUT("/profile/", h.Users.UpdateProfile)
		me.GET("/profile/avatar/", h.Avatars.Get)
		me.PUT("/profile/avatar/", h.Avatars.Upload)
		me.GET("/profile/:id/bookmarks/", h.Users.Bookmarks)
		me.POST("/profile/:id/bookmarks/", h.Users.Bookmarks)
		me.DELETE("/profile/:id/bookmarks/", h.Users.Bookmarks)
		me.PUT("/password/change/", h.Users.ChangePassword)
	}
}
