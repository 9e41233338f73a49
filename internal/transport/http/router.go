// Package httptransport 提供会话的 HTTP 接口。
package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tempmail/playground/internal/config"
	"tempmail/playground/internal/health"
	"tempmail/playground/internal/middleware"
	"tempmail/playground/internal/monitoring"
	"tempmail/playground/internal/session"
	"tempmail/playground/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	Session       SessionService
	SessionConfig session.Config
	Notifications NotificationFeed
	WebSocketHub  *websocket.Hub          // 可为 nil
	Health        *health.HealthChecker   // 存活/就绪探针，可为 nil
	Reporter      *monitoring.Reporter    // 详细健康报告，可为 nil
	Metrics       *monitoring.Metrics     // 可为 nil
	RateLimiter   *middleware.RateLimiter // 命令接口限流，可为 nil
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	var onPanic func()
	if deps.Metrics != nil {
		onPanic = deps.Metrics.RecordPanic
	}
	router.Use(middleware.RecoveryHandler(log, onPanic))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}
	router.Use(middleware.BodySizeLimit(middleware.CommandBodyLimit))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	allowAll := len(corsConfig.AllowOrigins) == 0
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}
	if allowAll {
		corsConfig.AllowCredentials = false
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	router.Use(gincors.New(corsConfig))

	sessionHandler := NewSessionHandler(deps.Session, log)
	publicHandler := NewPublicHandler(deps.SessionConfig)
	notificationHandler := NewNotificationHandler(deps.Notifications)

	// 健康检查
	router.GET("/health", healthReport(deps.Reporter))
	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveHandler()))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyHandler()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// 命令接口限流
	limit := func(c *gin.Context) { c.Next() }
	if deps.RateLimiter != nil {
		var onBlock func(string)
		if deps.Metrics != nil {
			onBlock = deps.Metrics.RecordRateLimitBlock
		}
		limit = deps.RateLimiter.Middleware(onBlock)
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		v1.GET("/public/config", publicHandler.GetSystemConfig)
		v1.GET("/notifications", notificationHandler.ListNotifications)

		// ========== Session Routes ==========
		sessionRoutes := v1.Group("/session")
		{
			sessionRoutes.GET("", sessionHandler.GetSession)
			sessionRoutes.GET("/inbox", sessionHandler.GetInbox)

			sessionRoutes.POST("/address", limit, sessionHandler.GenerateAddress)
			sessionRoutes.DELETE("/address", limit, sessionHandler.DeleteAddress)
			sessionRoutes.POST("/address/copy", limit, sessionHandler.CopyAddress)
			sessionRoutes.POST("/inbox/refresh", limit, sessionHandler.RefreshInbox)
			sessionRoutes.DELETE("/inbox", limit, sessionHandler.ClearInbox)
			sessionRoutes.POST("/expiry/extend", limit, sessionHandler.ExtendExpiry)
			sessionRoutes.POST("/auto-refresh/toggle", limit, sessionHandler.ToggleAutoRefresh)
			sessionRoutes.POST("/theme/toggle", limit, sessionHandler.ToggleTheme)
			sessionRoutes.POST("/shortcut", limit, sessionHandler.Shortcut)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	return router
}

// healthReport 详细健康报告，不健康时返回 503
func healthReport(reporter *monitoring.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reporter == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		report := reporter.CheckHealth(c.Request.Context())
		status := http.StatusOK
		if report.Status == monitoring.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}
