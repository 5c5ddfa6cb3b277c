package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recipebox/internal/api/middleware"
	"recipebox/internal/config"
	"recipebox/internal/metrics"
)

// NewRouter 构建 Gin 引擎并挂载全局中间件、健康检查与指标端点。业务路由由 RegisterRoutes 注册。
func NewRouter(cfg config.APIConfig, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = true

	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware("/metrics", "/health"),
	)

	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = origins
		corsCfg.AddAllowHeaders("Authorization", "X-Correlation-ID")
		corsCfg.AddExposeHeaders("X-Correlation-ID")
		corsCfg.AllowCredentials = true
		corsCfg.MaxAge = 12 * time.Hour
		router.Use(cors.New(corsCfg))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metricsHandler := gin.WrapH(promhttp.Handler())
	if strings.TrimSpace(cfg.InternalSecret) != "" {
		router.GET("/metrics", middleware.InternalSecretMiddleware(cfg.InternalSecret), metricsHandler)
	} else {
		router.GET("/metrics", metricsHandler)
	}

	return router
}
