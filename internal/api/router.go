package api

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/d60-Lab/novel-engine/config"
	_ "github.com/d60-Lab/novel-engine/docs"
	"github.com/d60-Lab/novel-engine/internal/api/handler"
	"github.com/d60-Lab/novel-engine/internal/api/middleware"
	"github.com/d60-Lab/novel-engine/pkg/metrics"
)

// NewRouter 注册中间件与全部路由；db 仅用于健康检查，可为 nil
func NewRouter(cfg *config.Config, h *handler.Handler, resolver middleware.Resolver, db *gorm.DB) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Sentry.DSN != "" && sentry.CurrentHub().Client() != nil {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.Logging())
	r.Use(metrics.Middleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.GET("/healthz", func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware())
	}
	auth := middleware.Auth(resolver)

	{
		g := v1.Group("/auth")
		g.POST("/signup", h.Signup)
		g.POST("/login", h.Login)
	}
	{
		g := v1.Group("/user", auth)
		g.GET("/profile", h.GetProfile)
		g.PUT("/profile", h.UpdateProfile)
	}
	{
		g := v1.Group("/novels")
		g.GET("", h.ListNovels)
		g.GET("/:id", h.GetNovel)
		g.GET("/:id/stats", h.NovelStats)
		g.GET("/:id/subscribers", h.NovelSubscribers)
		g.POST("", auth, h.CreateNovel)
		g.PUT("/:id", auth, h.UpdateNovel)
		g.DELETE("/:id", auth, h.DeleteNovel)
		g.POST("/:id/like", auth, h.LikeNovel)
		g.DELETE("/:id/like", auth, h.UnlikeNovel)
		g.POST("/:id/bookmark", auth, h.BookmarkNovel)
		g.DELETE("/:id/bookmark", auth, h.UnbookmarkNovel)
	}
	{
		g := v1.Group("/chapters")
		g.GET("", h.ListChapters)
		g.GET("/:id", h.GetChapter)
		g.GET("/:id/navigation", h.ChapterNavigation)
		g.POST("", auth, h.CreateChapter)
		g.PUT("/:id", auth, h.UpdateChapter)
		g.DELETE("/:id", auth, h.DeleteChapter)
	}
	{
		g := v1.Group("/subscriptions", auth)
		g.POST("", h.Subscribe)
		g.GET("", h.ListMySubscriptions)
		g.DELETE("/:novel_id", h.Unsubscribe)
		g.GET("/:novel_id/check", h.CheckSubscription)
	}
	{
		g := v1.Group("/reading/progress", auth)
		g.PUT("", h.UpdateReadingProgress)
		g.GET("", h.ListReadingProgress)
		g.DELETE("/:novel_id", h.DeleteReadingProgress)
	}
	{
		g := v1.Group("/notifications", auth)
		g.GET("", h.ListNotifications)
		g.GET("/unread-count", h.UnreadCount)
		g.POST("/mark-read", h.MarkRead)
		g.POST("/mark-all-read", h.MarkAllRead)
		g.DELETE("/:id", h.DeleteNotification)
	}
	{
		g := v1.Group("/admin", auth)
		g.GET("/dashboard/stats", h.DashboardStats)
		g.POST("/reconcile", h.ReconcileCounters)
	}
	return r
}
