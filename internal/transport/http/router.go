package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/outloudvi/mail-list-rss/internal/config"
	"github.com/outloudvi/mail-list-rss/internal/health"
	"github.com/outloudvi/mail-list-rss/internal/middleware"
	"github.com/outloudvi/mail-list-rss/internal/monitoring"
	"github.com/outloudvi/mail-list-rss/internal/storage"
	redisstore "github.com/outloudvi/mail-list-rss/internal/storage/redis"
	"github.com/outloudvi/mail-list-rss/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config       *config.Config
	Store        storage.FeedRepository
	Cache        *redisstore.Cache // 可为 nil
	Metrics      *monitoring.Metrics
	Health       *health.Checker
	WebSocketHub *websocket.Hub
	Logger       *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS：读侧接口对外公开，允许所有来源
	corsConfig := gincors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	router.Use(gincors.New(corsConfig))

	handler := NewFeedHandler(deps.Config, deps.Store, deps.Cache, deps.Logger)

	// 探针与指标不经过 Basic Auth
	if deps.Health != nil {
		router.GET("/health/live", gin.WrapH(deps.Health.LiveHandler()))
		router.GET("/health/ready", gin.WrapH(deps.Health.ReadyHandler()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	public := router.Group("/")
	if deps.Config.Web.AuthUsername != "" && deps.Config.Web.AuthPassword != "" {
		public.Use(middleware.BasicAuth(deps.Config.Web.AuthUsername, deps.Config.Web.AuthPassword))
	}

	public.GET("", handler.Index)
	public.GET("feeds", handler.ListFeeds)
	public.GET("feeds/:id", handler.GetFeedContent)
	public.GET("feeds/:id/raw", handler.GetFeedRaw)
	public.GET("boxes", handler.ListBoxes)
	public.GET("rss", handler.RSS)
	public.GET("rss/:box", handler.RSSByBox)

	if deps.WebSocketHub != nil {
		public.GET("ws", websocket.HandleWebSocket(deps.WebSocketHub))
	}

	return router
}
